// Package state is the in-process view of the ledger served to clients.
// Accounts and categories are updated optimistically and rolled back on
// failure; transactions and balances are reloaded after every mutation.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"saldo/internal/cache"
	"saldo/internal/core"
	"saldo/internal/log"
)

type (
	AccountService interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		CreateAccount(ctx context.Context, in core.NewAccount) (core.Account, error)
		UpdateAccount(ctx context.Context, id int64, p core.AccountPatch) (core.Account, error)
		DeleteAccount(ctx context.Context, id int64) error
		AdjustBalance(ctx context.Context, id int64, delta int64) (core.Account, error)
	}

	CategoryService interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error)
		UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	TransactionService interface {
		ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.TransactionDetails, error)
		CreateTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	AnalyticsService interface {
		MonthAnalytics(ctx context.Context, year, month int) (core.MonthAnalytics, error)
	}
)

type Config struct {
	// TransactionWindow bounds how many recent transactions are held (0 = all).
	TransactionWindow int
	AnalyticsSize     int
	AnalyticsTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{TransactionWindow: 500, AnalyticsSize: 24, AnalyticsTTL: 5 * time.Minute}
}

// Store caches ledger state for readers. Slices handed out are copies.
type Store struct {
	accountsSvc   AccountService
	categoriesSvc CategoryService
	txSvc         TransactionService
	analyticsSvc  AnalyticsService
	config        Config

	mu           sync.RWMutex
	accounts     []core.Account
	categories   []core.Category
	transactions []core.TransactionDetails
	lastError    string
	loadedAt     time.Time

	analytics *cache.Loading[core.MonthAnalytics]
	lru       *cache.LRUCache[core.MonthAnalytics]
}

func New(accounts AccountService, categories CategoryService, txs TransactionService, analytics AnalyticsService, config Config) *Store {
	lru := cache.NewLRUCache[core.MonthAnalytics](config.AnalyticsSize, config.AnalyticsTTL)
	return &Store{
		accountsSvc:   accounts,
		categoriesSvc: categories,
		txSvc:         txs,
		analyticsSvc:  analytics,
		config:        config,
		analytics:     cache.NewLoading[core.MonthAnalytics](lru),
		lru:           lru,
	}
}

// AnalyticsCache exposes the analytics LRU for registration with a cache.Manager.
func (s *Store) AnalyticsCache() cache.Cleaner {
	return s.lru
}

// Load replaces every snapshot with fresh data.
func (s *Store) Load(ctx context.Context) error {
	accounts, err := s.accountsSvc.ListAccounts(ctx)
	if err != nil {
		return s.fail(ctx, "load accounts", err)
	}
	categories, err := s.categoriesSvc.ListCategories(ctx)
	if err != nil {
		return s.fail(ctx, "load categories", err)
	}
	txs, err := s.txSvc.ListTransactions(ctx, core.TransactionFilter{Limit: s.config.TransactionWindow})
	if err != nil {
		return s.fail(ctx, "load transactions", err)
	}

	s.mu.Lock()
	s.accounts = accounts
	s.categories = categories
	s.transactions = txs
	s.lastError = ""
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.analytics.Invalidate()
	slog.DebugContext(ctx, "State loaded",
		log.FieldComponent, log.ComponentState,
		"accounts", len(accounts),
		"categories", len(categories),
		"transactions", len(txs))
	return nil
}

// reloadLedger refreshes the data a transaction mutation can change.
func (s *Store) reloadLedger(ctx context.Context) error {
	accounts, err := s.accountsSvc.ListAccounts(ctx)
	if err != nil {
		return s.fail(ctx, "reload accounts", err)
	}
	txs, err := s.txSvc.ListTransactions(ctx, core.TransactionFilter{Limit: s.config.TransactionWindow})
	if err != nil {
		return s.fail(ctx, "reload transactions", err)
	}
	s.mu.Lock()
	s.accounts = accounts
	s.transactions = txs
	s.mu.Unlock()
	return nil
}

func (s *Store) fail(ctx context.Context, what string, err error) error {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	slog.WarnContext(ctx, "State operation failed",
		log.FieldComponent, log.ComponentState,
		log.FieldOperation, what,
		log.FieldError, err.Error())
	return fmt.Errorf("%s: %w", what, err)
}

// LastError is the message of the most recent failed operation, or "".
func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *Store) clearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

// MonthAnalytics serves month analytics from the cache, loading on a miss.
func (s *Store) MonthAnalytics(ctx context.Context, year, month int) (core.MonthAnalytics, error) {
	if month < 1 || month > 12 {
		return core.MonthAnalytics{}, core.ErrInvalidMonth
	}
	key := fmt.Sprintf("%04d-%02d", year, month)
	return s.analytics.GetOrLoad(key, func() (core.MonthAnalytics, error) {
		return s.analyticsSvc.MonthAnalytics(ctx, year, month)
	})
}

// InvalidateAnalytics drops every cached month.
func (s *Store) InvalidateAnalytics() {
	s.analytics.Invalidate()
}
