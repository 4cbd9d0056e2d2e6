package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
)

var day = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	store      ledger.Store
	tx         *TransactionService
	accounts   *AccountService
	categories *CategoryService
	analytics  *AnalyticsService

	account core.Account
	salary  core.Category
	food    core.Category
}

func newEnv(t *testing.T, store ledger.Store) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{
		store:      store,
		tx:         NewTransactionService(store),
		accounts:   NewAccountService(store),
		categories: NewCategoryService(store),
		analytics:  NewAnalyticsService(store, time.UTC),
	}
	var err error
	e.account, err = e.accounts.CreateAccount(ctx, core.NewAccount{Name: "Checking"})
	require.NoError(t, err)
	e.salary, err = e.categories.CreateCategory(ctx, core.NewCategory{Name: "Salary", Type: core.Income})
	require.NoError(t, err)
	e.food, err = e.categories.CreateCategory(ctx, core.NewCategory{Name: "Food", Type: core.Expense})
	require.NoError(t, err)
	return e
}

func newMemoryEnv(t *testing.T) *env {
	return newEnv(t, memory.New())
}

func newSQLiteEnv(t *testing.T) *env {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return newEnv(t, repo)
}

func (e *env) balance(t *testing.T, id int64) int64 {
	t.Helper()
	acc, err := e.store.GetAccountByID(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func (e *env) create(t *testing.T, typ core.TransactionType, amount int64, cat core.Category, date time.Time) core.Transaction {
	t.Helper()
	tx, err := e.tx.CreateTransaction(context.Background(), core.NewTransaction{
		Type: typ, Amount: amount, AccountID: e.account.ID, CategoryID: cat.ID, Date: date,
	})
	require.NoError(t, err)
	return tx
}

var errInjected = errors.New("injected failure")

// failingStore fails the Nth UpdateAccountBalance call made inside Atomic.
type failingStore struct {
	ledger.Store
	failOn int
	calls  int
}

func (f *failingStore) Atomic(ctx context.Context, fn func(q ledger.Queries) error) error {
	return f.Store.Atomic(ctx, func(q ledger.Queries) error {
		return fn(&failingQueries{Queries: q, parent: f})
	})
}

type failingQueries struct {
	ledger.Queries
	parent *failingStore
}

func (q *failingQueries) UpdateAccountBalance(ctx context.Context, id int64, balance int64) (core.Account, error) {
	q.parent.calls++
	if q.parent.calls == q.parent.failOn {
		return core.Account{}, errInjected
	}
	return q.Queries.UpdateAccountBalance(ctx, id, balance)
}

func ptr[T any](v T) *T { return &v }
