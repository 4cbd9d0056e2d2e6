package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"saldo/internal/core"
)

// AnalyticsReader is the read side the aggregations need.
type AnalyticsReader interface {
	QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error)
	QueryCategoryTotals(ctx context.Context, start, end time.Time, t core.TransactionType) ([]core.CategoryTotal, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

// AnalyticsService computes read-only monthly aggregations. Month
// boundaries are evaluated in a single configured location.
type AnalyticsService struct {
	store AnalyticsReader
	loc   *time.Location
	now   func() time.Time
}

func NewAnalyticsService(store AnalyticsReader, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{store: store, loc: loc, now: time.Now}
}

func (s *AnalyticsService) Location() *time.Location {
	return s.loc
}

// MonthlyStats totals income and expense for the month. Transactions dated
// exactly on either boundary are included.
func (s *AnalyticsService) MonthlyStats(ctx context.Context, year, month int) (core.MonthlyStats, error) {
	p, err := core.MonthPeriod(year, month, s.loc)
	if err != nil {
		return core.MonthlyStats{}, err
	}
	txs, err := s.store.QueryTransactionsByDateRange(ctx, p.Start, p.End)
	if err != nil {
		return core.MonthlyStats{}, fmt.Errorf("query month %d-%02d: %w", year, month, err)
	}
	return core.ComputeMonthlyStats(txs), nil
}

// CategorySpending groups transactions of type t in [start, end] by category.
func (s *AnalyticsService) CategorySpending(ctx context.Context, start, end time.Time, t core.TransactionType) ([]core.CategorySpending, error) {
	if !t.Valid() {
		return nil, core.NewValidationError("type", "Invalid transaction type")
	}
	totals, err := s.store.QueryCategoryTotals(ctx, start, end, t)
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	if len(totals) == 0 {
		return []core.CategorySpending{}, nil
	}
	cats, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}
	return core.BuildCategorySpending(totals, cats), nil
}

// MonthAnalytics computes stats and both category breakdowns concurrently.
func (s *AnalyticsService) MonthAnalytics(ctx context.Context, year, month int) (core.MonthAnalytics, error) {
	p, err := core.MonthPeriod(year, month, s.loc)
	if err != nil {
		return core.MonthAnalytics{}, err
	}

	out := core.MonthAnalytics{Year: year, Month: month}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.MonthlyStats(gctx, year, month)
		out.Stats = stats
		return err
	})
	g.Go(func() error {
		exp, err := s.CategorySpending(gctx, p.Start, p.End, core.Expense)
		out.ExpensesByCategory = exp
		return err
	})
	g.Go(func() error {
		inc, err := s.CategorySpending(gctx, p.Start, p.End, core.Income)
		out.IncomeByCategory = inc
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthAnalytics{}, err
	}
	return out, nil
}

// CurrentMonthAnalytics is MonthAnalytics for the month containing now.
func (s *AnalyticsService) CurrentMonthAnalytics(ctx context.Context) (core.MonthAnalytics, error) {
	year, month := core.CurrentMonth(s.now(), s.loc)
	return s.MonthAnalytics(ctx, year, month)
}

func (s *AnalyticsService) categoryIndex(ctx context.Context) (map[int64]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	idx := make(map[int64]core.Category, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx, nil
}
