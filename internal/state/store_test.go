package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/services"
	"saldo/internal/storage/memory"
)

var day = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	state    *Store
	accounts *services.AccountService
	analytic *countingAnalytics
	account  core.Account
	salary   core.Category
	food     core.Category
}

type countingAnalytics struct {
	inner *services.AnalyticsService
	calls int
}

func (c *countingAnalytics) MonthAnalytics(ctx context.Context, year, month int) (core.MonthAnalytics, error) {
	c.calls++
	return c.inner.MonthAnalytics(ctx, year, month)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	accounts := services.NewAccountService(store)
	categories := services.NewCategoryService(store)
	txs := services.NewTransactionService(store)
	analytics := &countingAnalytics{inner: services.NewAnalyticsService(store, time.UTC)}

	f := &fixture{
		state:    New(accounts, categories, txs, analytics, DefaultConfig()),
		accounts: accounts,
		analytic: analytics,
	}
	var err error
	f.account, err = accounts.CreateAccount(ctx, core.NewAccount{Name: "Checking"})
	require.NoError(t, err)
	f.salary, err = categories.CreateCategory(ctx, core.NewCategory{Name: "Salary", Type: core.Income})
	require.NoError(t, err)
	f.food, err = categories.CreateCategory(ctx, core.NewCategory{Name: "Food", Type: core.Expense})
	require.NoError(t, err)
	require.NoError(t, f.state.Load(ctx))
	return f
}

func TestTransactionMutationsReloadBalances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.state.CreateTransaction(ctx, core.NewTransaction{
		Type: core.Income, Amount: 10000, AccountID: f.account.ID, CategoryID: f.salary.ID, Date: day,
	})
	require.NoError(t, err)
	exp, err := f.state.CreateTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 3000, AccountID: f.account.ID, CategoryID: f.food.ID, Date: day.Add(time.Hour),
	})
	require.NoError(t, err)

	acc, ok := f.state.AccountByID(f.account.ID)
	require.True(t, ok)
	assert.Equal(t, int64(7000), acc.Balance)
	assert.Equal(t, int64(7000), f.state.TotalBalance())
	require.Len(t, f.state.RecentTransactions(10), 2)
	assert.Equal(t, exp.ID, f.state.RecentTransactions(1)[0].ID)
	assert.Len(t, f.state.TransactionsByType(core.Expense), 1)
	assert.Len(t, f.state.TransactionsByCategory(f.salary.ID), 1)
	assert.Len(t, f.state.TransactionsByAccount(f.account.ID), 2)

	require.NoError(t, f.state.DeleteTransaction(ctx, exp.ID))
	acc, _ = f.state.AccountByID(f.account.ID)
	assert.Equal(t, int64(10000), acc.Balance)
	assert.Len(t, f.state.Transactions(), 1)
}

func TestFailedTransactionKeepsStateAndRecordsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.state.CreateTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 100, AccountID: f.account.ID, CategoryID: f.salary.ID, Date: day,
	})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.NotEmpty(t, f.state.LastError())
	assert.Empty(t, f.state.Transactions())
	assert.Zero(t, f.state.TotalBalance())
}

type rejectingAccounts struct {
	AccountService
	observe func()
}

func (r *rejectingAccounts) UpdateAccount(context.Context, int64, core.AccountPatch) (core.Account, error) {
	r.observe()
	return core.Account{}, errors.New("storage offline")
}

func (r *rejectingAccounts) AdjustBalance(context.Context, int64, int64) (core.Account, error) {
	r.observe()
	return core.Account{}, core.ErrInsufficientFunds
}

func TestOptimisticAccountUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var seenDuring string
	var balanceDuring int64
	f.state.accountsSvc = &rejectingAccounts{AccountService: f.accounts, observe: func() {
		a, _ := f.state.AccountByID(f.account.ID)
		seenDuring = a.Name
		balanceDuring = a.Balance
	}}

	_, err := f.state.UpdateAccount(ctx, f.account.ID, core.AccountPatch{Name: ptr("Renamed")})
	require.Error(t, err)
	assert.Equal(t, "Renamed", seenDuring, "the change is visible while in flight")
	a, _ := f.state.AccountByID(f.account.ID)
	assert.Equal(t, "Checking", a.Name, "and rolled back on failure")
	assert.Contains(t, f.state.LastError(), "storage offline")

	_, err = f.state.AdjustBalance(ctx, f.account.ID, -500)
	require.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, int64(-500), balanceDuring)
	a, _ = f.state.AccountByID(f.account.ID)
	assert.Zero(t, a.Balance)
}

func TestCategoryMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	pets, err := f.state.CreateCategory(ctx, core.NewCategory{Name: "Pets", Type: core.Expense})
	require.NoError(t, err)
	assert.Len(t, f.state.CategoriesByType(core.Expense), 2)

	_, err = f.state.UpdateCategory(ctx, pets.ID, core.CategoryPatch{Name: ptr("food")})
	require.ErrorIs(t, err, core.ErrDuplicateCategory)
	c, ok := f.state.CategoryByID(pets.ID)
	require.True(t, ok)
	assert.Equal(t, "Pets", c.Name, "rejected rename is rolled back")

	require.NoError(t, f.state.DeleteCategory(ctx, pets.ID))
	_, ok = f.state.CategoryByID(pets.ID)
	assert.False(t, ok)

	_, err = f.state.CreateTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 100, AccountID: f.account.ID, CategoryID: f.food.ID, Date: day,
	})
	require.NoError(t, err)
	require.Error(t, f.state.DeleteCategory(ctx, f.food.ID))
	_, ok = f.state.CategoryByID(f.food.ID)
	assert.True(t, ok, "category in use is restored after the refused delete")
}

func TestAccountCreateAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	savings, err := f.state.CreateAccount(ctx, core.NewAccount{Name: "Savings", Balance: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(500), f.state.TotalBalance())

	_, err = f.state.CreateTransaction(ctx, core.NewTransaction{
		Type: core.Income, Amount: 100, AccountID: savings.ID, CategoryID: f.salary.ID, Date: day,
	})
	require.NoError(t, err)

	require.NoError(t, f.state.DeleteAccount(ctx, savings.ID))
	_, ok := f.state.AccountByID(savings.ID)
	assert.False(t, ok)
	assert.Empty(t, f.state.Transactions(), "cascaded transactions disappear on reload")
}

func TestAnalyticsCacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.state.MonthAnalytics(ctx, 2024, 3)
	require.NoError(t, err)
	_, err = f.state.MonthAnalytics(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, f.analytic.calls, "second read is served from cache")
	assert.Zero(t, first.Stats.TransactionCount)

	_, err = f.state.CreateTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 250, AccountID: f.account.ID, CategoryID: f.food.ID, Date: day,
	})
	require.NoError(t, err)

	second, err := f.state.MonthAnalytics(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, f.analytic.calls)
	assert.Equal(t, int64(250), second.Stats.TotalExpense)

	_, err = f.state.MonthAnalytics(ctx, 2024, 0)
	assert.True(t, core.IsValidation(err))
}

func ptr[T any](v T) *T { return &v }
