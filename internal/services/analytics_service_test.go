package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func TestCategorySpendingSingleCategory(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	e.create(t, core.Expense, 4000, e.food, day)
	e.create(t, core.Expense, 6000, e.food, day.Add(time.Hour))

	p, err := core.MonthPeriod(2024, 3, time.UTC)
	require.NoError(t, err)
	groups, err := e.analytics.CategorySpending(ctx, p.Start, p.End, core.Expense)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(10000), groups[0].TotalAmount)
	assert.Equal(t, 2, groups[0].TransactionCount)
	assert.Equal(t, 1.0, groups[0].Percentage)
	assert.Equal(t, "Food", groups[0].CategoryName)
}

func TestMonthAnalytics(t *testing.T) {
	for name, mk := range map[string]func(*testing.T) *env{
		"memory": newMemoryEnv,
		"sqlite": newSQLiteEnv,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mk(t)
			housing, err := e.categories.CreateCategory(ctx, core.NewCategory{Name: "Housing", Type: core.Expense})
			require.NoError(t, err)

			e.create(t, core.Income, 300000, e.salary, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
			e.create(t, core.Expense, 120000, housing, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
			e.create(t, core.Expense, 30000, e.food, time.Date(2024, 3, 31, 23, 59, 59, 999_000_000, time.UTC))
			// outside the month on both sides
			e.create(t, core.Expense, 777, e.food, time.Date(2024, 2, 29, 23, 59, 59, 999_000_000, time.UTC))
			e.create(t, core.Expense, 888, e.food, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))

			got, err := e.analytics.MonthAnalytics(ctx, 2024, 3)
			require.NoError(t, err)
			assert.Equal(t, core.MonthlyStats{
				TotalIncome: 300000, TotalExpense: 150000, Balance: 150000, TransactionCount: 3,
			}, got.Stats)

			require.Len(t, got.ExpensesByCategory, 2)
			assert.Equal(t, housing.ID, got.ExpensesByCategory[0].CategoryID)
			assert.InDelta(t, 0.8, got.ExpensesByCategory[0].Percentage, 1e-9)
			assert.InDelta(t, 0.2, got.ExpensesByCategory[1].Percentage, 1e-9)
			require.Len(t, got.IncomeByCategory, 1)
			assert.Equal(t, 1.0, got.IncomeByCategory[0].Percentage)

			again, err := e.analytics.MonthAnalytics(ctx, 2024, 3)
			require.NoError(t, err)
			assert.Equal(t, got, again, "aggregations are idempotent")
		})
	}
}

func TestMonthAnalyticsEmptyAndInvalid(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)

	got, err := e.analytics.MonthAnalytics(ctx, 2030, 1)
	require.NoError(t, err)
	assert.Equal(t, core.MonthlyStats{}, got.Stats)
	assert.Empty(t, got.ExpensesByCategory)
	assert.Empty(t, got.IncomeByCategory)

	_, err = e.analytics.MonthAnalytics(ctx, 2024, 13)
	assert.True(t, core.IsValidation(err))
	_, err = e.analytics.MonthlyStats(ctx, 2024, 0)
	assert.True(t, core.IsValidation(err))
}

func TestPercentagesSumToOne(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, n := range names {
		c, err := e.categories.CreateCategory(ctx, core.NewCategory{Name: n, Type: core.Expense})
		require.NoError(t, err)
		e.create(t, core.Expense, int64(333*(i+1)+7), c, day)
	}

	p, err := core.MonthPeriod(2024, 3, time.UTC)
	require.NoError(t, err)
	groups, err := e.analytics.CategorySpending(ctx, p.Start, p.End, core.Expense)
	require.NoError(t, err)

	var sum float64
	for i, g := range groups {
		sum += g.Percentage
		if i > 0 {
			assert.GreaterOrEqual(t, groups[i-1].TotalAmount, g.TotalAmount, "ordered by total descending")
		}
	}
	assert.True(t, math.Abs(sum-1) < 1e-9, "sum = %v", sum)
}

func TestMonthBoundariesUseLocation(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata not available")
	}
	svc := NewAnalyticsService(e.store, rome)

	// 23:30 UTC on Jan 31 is already February in Rome
	e.create(t, core.Expense, 100, e.food, time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC))

	jan, err := svc.MonthlyStats(ctx, 2024, 1)
	require.NoError(t, err)
	feb, err := svc.MonthlyStats(ctx, 2024, 2)
	require.NoError(t, err)
	assert.Zero(t, jan.TransactionCount)
	assert.Equal(t, 1, feb.TransactionCount)
}

func TestCurrentMonthAnalytics(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	e.analytics.now = func() time.Time { return day }
	e.create(t, core.Income, 100, e.salary, day)

	got, err := e.analytics.CurrentMonthAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year)
	assert.Equal(t, 3, got.Month)
	assert.Equal(t, int64(100), got.Stats.TotalIncome)
}
