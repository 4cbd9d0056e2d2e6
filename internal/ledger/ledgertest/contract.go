// Package ledgertest holds the behavior every ledger.Store must share.
package ledgertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

// Factory returns an empty, ready store. It is called once per subtest.
type Factory func(t *testing.T) ledger.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("AccountsCRUD", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("AccountNameUniqueness", func(t *testing.T) { testAccountUniqueness(t, newStore(t)) })
	t.Run("CategoriesCRUD", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("CategoryNameUniqueness", func(t *testing.T) { testCategoryUniqueness(t, newStore(t)) })
	t.Run("TransactionsCRUD", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("DateRangeInclusive", func(t *testing.T) { testDateRange(t, newStore(t)) })
	t.Run("CategoryTotals", func(t *testing.T) { testCategoryTotals(t, newStore(t)) })
	t.Run("CascadeAndRestrict", func(t *testing.T) { testReferences(t, newStore(t)) })
	t.Run("AtomicRollback", func(t *testing.T) { testAtomicRollback(t, newStore(t)) })
	t.Run("Outbox", func(t *testing.T) { testOutbox(t, newStore(t)) })
}

// Fixture creates one account and one category of each type.
type Fixture struct {
	Account core.Account
	Income  core.Category
	Expense core.Category
}

func NewFixture(t *testing.T, s ledger.Store) Fixture {
	t.Helper()
	ctx := context.Background()
	acc, err := s.InsertAccount(ctx, core.NewAccount{Name: "Checking", Balance: 0})
	require.NoError(t, err)
	inc, err := s.InsertCategory(ctx, core.NewCategory{Name: "Salary", Type: core.Income})
	require.NoError(t, err)
	exp, err := s.InsertCategory(ctx, core.NewCategory{Name: "Food", Type: core.Expense})
	require.NoError(t, err)
	return Fixture{Account: acc, Income: inc, Expense: exp}
}

func testAccounts(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	a, err := s.InsertAccount(ctx, core.NewAccount{Name: "Wallet", Balance: 2500})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, int64(2500), a.Balance)
	assert.Equal(t, int64(2500), a.OpeningBalance)

	_, err = s.InsertAccount(ctx, core.NewAccount{Name: "Bank", Balance: -100})
	require.NoError(t, err)

	list, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bank", list[0].Name)

	updated, err := s.UpdateAccountBalance(ctx, a.ID, -700)
	require.NoError(t, err, "negative balances are allowed at the storage level")
	assert.Equal(t, int64(-700), updated.Balance)

	renamed, err := s.RenameAccount(ctx, a.ID, "Cash")
	require.NoError(t, err)
	assert.Equal(t, "Cash", renamed.Name)

	total, err := s.SumAccountBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-800), total)

	_, err = s.GetAccountByID(ctx, 9999)
	assert.True(t, core.IsNotFound(err))
	_, err = s.UpdateAccountBalance(ctx, 9999, 1)
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, s.DeleteAccount(ctx, a.ID))
	_, err = s.GetAccountByID(ctx, a.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(s.DeleteAccount(ctx, a.ID)))
}

func testAccountUniqueness(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a, err := s.InsertAccount(ctx, core.NewAccount{Name: "Savings"})
	require.NoError(t, err)

	exists, err := s.AccountNameExists(ctx, "SAVINGS", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.AccountNameExists(ctx, "savings", a.ID)
	require.NoError(t, err)
	assert.False(t, exists, "the account itself is excluded")

	_, err = s.InsertAccount(ctx, core.NewAccount{Name: "savings"})
	assert.True(t, core.IsValidation(err), "got %v", err)

	// Case folding is not limited to ASCII.
	e, err := s.InsertAccount(ctx, core.NewAccount{Name: "Épargne"})
	require.NoError(t, err)
	_, err = s.InsertAccount(ctx, core.NewAccount{Name: "épargne"})
	assert.True(t, core.IsValidation(err), "got %v", err)
	exists, err = s.AccountNameExists(ctx, "ÉPARGNE", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.RenameAccount(ctx, a.ID, "ÉPARGNE")
	assert.True(t, core.IsValidation(err), "got %v", err)
	_, err = s.RenameAccount(ctx, e.ID, "ÉPARGNE")
	require.NoError(t, err, "renaming to a case variant of itself is allowed")

	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Savings", accounts[0].Name)
	assert.Equal(t, "ÉPARGNE", accounts[1].Name, "ordering compares folded keys")
}

func testCategories(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	c, err := s.InsertCategory(ctx, core.NewCategory{Name: "Pets", Type: core.Expense})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultCategoryIcon, c.Icon)
	assert.Equal(t, core.DefaultCategoryColor, c.Color)
	assert.False(t, c.IsSystem)

	_, err = s.InsertCategory(ctx, core.NewCategory{Name: "Bonus", Type: core.Income, IsSystem: true})
	require.NoError(t, err)

	n, err := s.CountCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	expenses, err := s.ListCategoriesByType(ctx, core.Expense)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Pets", expenses[0].Name)

	icon := "🐶"
	name := "Pet care"
	updated, err := s.UpdateCategory(ctx, c.ID, core.CategoryPatch{Name: &name, Icon: &icon})
	require.NoError(t, err)
	assert.Equal(t, "Pet care", updated.Name)
	assert.Equal(t, "🐶", updated.Icon)
	assert.Equal(t, core.DefaultCategoryColor, updated.Color)

	require.NoError(t, s.DeleteCategory(ctx, c.ID))
	_, err = s.GetCategoryByID(ctx, c.ID)
	assert.True(t, core.IsNotFound(err))
}

func testCategoryUniqueness(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, err := s.InsertCategory(ctx, core.NewCategory{Name: "Other", Type: core.Expense})
	require.NoError(t, err)

	_, err = s.InsertCategory(ctx, core.NewCategory{Name: "other", Type: core.Income})
	require.NoError(t, err, "same name is allowed across types")

	_, err = s.InsertCategory(ctx, core.NewCategory{Name: "OTHER", Type: core.Expense})
	assert.True(t, core.IsValidation(err), "got %v", err)

	exists, err := s.CategoryNameExists(ctx, core.Expense, "oThEr", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	cafe, err := s.InsertCategory(ctx, core.NewCategory{Name: "Café", Type: core.Expense})
	require.NoError(t, err)
	_, err = s.InsertCategory(ctx, core.NewCategory{Name: "CAFÉ", Type: core.Expense})
	assert.True(t, core.IsValidation(err), "got %v", err)
	exists, err = s.CategoryNameExists(ctx, core.Expense, "café", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	other := "oTHER"
	_, err = s.UpdateCategory(ctx, cafe.ID, core.CategoryPatch{Name: &other})
	assert.True(t, core.IsValidation(err), "got %v", err)
}

func testTransactions(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	fx := NewFixture(t, s)
	day := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	tx, err := s.InsertTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 1250, AccountID: fx.Account.ID, CategoryID: fx.Expense.ID,
		Description: "lunch", Date: day,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
	assert.True(t, tx.Date.Equal(day))

	got, err := s.GetTransactionByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "lunch", got.Description)
	assert.Equal(t, int64(-1250), got.Delta())

	details, err := s.GetTransactionDetails(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checking", details.AccountName)
	assert.Equal(t, "Food", details.CategoryName)

	amount := int64(900)
	desc := ""
	updated, err := s.UpdateTransactionRecord(ctx, tx.ID, core.TransactionPatch{Amount: &amount, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, int64(900), updated.Amount)
	assert.Equal(t, "", updated.Description)

	_, err = s.InsertTransaction(ctx, core.NewTransaction{
		Type: core.Income, Amount: 5000, AccountID: fx.Account.ID, CategoryID: fx.Income.ID, Date: day.Add(time.Hour),
	})
	require.NoError(t, err)

	list, err := s.ListTransactions(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.Income, list[0].Type, "newest first")

	limited, err := s.ListTransactions(ctx, core.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	byCat, err := s.ListTransactions(ctx, core.TransactionFilter{CategoryID: fx.Expense.ID})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, tx.ID, byCat[0].ID)

	sum, err := s.LedgerSum(ctx, fx.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000-900), sum)

	require.NoError(t, s.DeleteTransactionRecord(ctx, tx.ID))
	_, err = s.GetTransactionByID(ctx, tx.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(s.DeleteTransactionRecord(ctx, tx.ID)))
	_, err = s.UpdateTransactionRecord(ctx, tx.ID, core.TransactionPatch{Amount: &amount})
	assert.True(t, core.IsNotFound(err))
}

func testDateRange(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	fx := NewFixture(t, s)
	period, err := core.MonthPeriod(2024, 1, time.UTC)
	require.NoError(t, err)

	dates := []time.Time{
		period.Start.Add(-time.Millisecond), // Dec 31 23:59:59.999
		period.Start,
		time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		period.End,
		period.End.Add(time.Millisecond), // Feb 1 00:00:00.000
	}
	for _, d := range dates {
		_, err := s.InsertTransaction(ctx, core.NewTransaction{
			Type: core.Expense, Amount: 100, AccountID: fx.Account.ID, CategoryID: fx.Expense.ID, Date: d,
		})
		require.NoError(t, err)
	}

	txs, err := s.QueryTransactionsByDateRange(ctx, period.Start, period.End)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	for _, tx := range txs {
		assert.True(t, period.Contains(tx.Date), "%v outside period", tx.Date)
	}
}

func testCategoryTotals(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	fx := NewFixture(t, s)
	housing, err := s.InsertCategory(ctx, core.NewCategory{Name: "Housing", Type: core.Expense})
	require.NoError(t, err)
	day := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	for _, in := range []core.NewTransaction{
		{Type: core.Expense, Amount: 2000, CategoryID: fx.Expense.ID},
		{Type: core.Expense, Amount: 3000, CategoryID: housing.ID},
		{Type: core.Expense, Amount: 3000, CategoryID: housing.ID},
		{Type: core.Income, Amount: 100000, CategoryID: fx.Income.ID},
	} {
		in.AccountID = fx.Account.ID
		in.Date = day
		_, err := s.InsertTransaction(ctx, in)
		require.NoError(t, err)
	}

	period, err := core.MonthPeriod(2024, 2, time.UTC)
	require.NoError(t, err)
	totals, err := s.QueryCategoryTotals(ctx, period.Start, period.End, core.Expense)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	byID := map[int64]core.CategoryTotal{}
	for _, ct := range totals {
		byID[ct.CategoryID] = ct
	}
	assert.Equal(t, core.CategoryTotal{CategoryID: housing.ID, TotalAmount: 6000, TransactionCount: 2}, byID[housing.ID])
	assert.Equal(t, core.CategoryTotal{CategoryID: fx.Expense.ID, TotalAmount: 2000, TransactionCount: 1}, byID[fx.Expense.ID])

	other, err := core.MonthPeriod(2024, 3, time.UTC)
	require.NoError(t, err)
	empty, err := s.QueryCategoryTotals(ctx, other.Start, other.End, core.Expense)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testReferences(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	fx := NewFixture(t, s)
	tx, err := s.InsertTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 100, AccountID: fx.Account.ID, CategoryID: fx.Expense.ID, Date: time.Now(),
	})
	require.NoError(t, err)

	n, err := s.CountTransactionsByCategory(ctx, fx.Expense.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	err = s.DeleteCategory(ctx, fx.Expense.ID)
	assert.True(t, core.IsConstraint(err), "referenced category delete must be refused, got %v", err)

	_, err = s.InsertTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 100, AccountID: 4242, CategoryID: fx.Expense.ID, Date: time.Now(),
	})
	assert.True(t, core.IsConstraint(err), "dangling account must be refused, got %v", err)

	require.NoError(t, s.DeleteAccount(ctx, fx.Account.ID))
	_, err = s.GetTransactionByID(ctx, tx.ID)
	assert.True(t, core.IsNotFound(err), "transactions cascade with their account")
}

func testAtomicRollback(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	fx := NewFixture(t, s)
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(q ledger.Queries) error {
		if _, err := q.InsertTransaction(ctx, core.NewTransaction{
			Type: core.Income, Amount: 700, AccountID: fx.Account.ID, CategoryID: fx.Income.ID, Date: time.Now(),
		}); err != nil {
			return err
		}
		if _, err := q.UpdateAccountBalance(ctx, fx.Account.ID, 700); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	acc, err := s.GetAccountByID(ctx, fx.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance)
	list, err := s.ListTransactions(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	err = s.Atomic(ctx, func(q ledger.Queries) error {
		_, err := q.UpdateAccountBalance(ctx, fx.Account.ID, 42)
		return err
	})
	require.NoError(t, err)
	acc, err = s.GetAccountByID(ctx, fx.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), acc.Balance)
}

func testOutbox(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	now := time.Now()

	first := core.NewLedgerEvent(core.EventTransactionCreated, 1, now)
	second := core.NewLedgerEvent(core.EventTransactionDeleted, 1, now)
	require.NoError(t, s.EnqueueEvent(ctx, first))
	require.NoError(t, s.EnqueueEvent(ctx, second))

	pending, err := s.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].Event.ID, "oldest first")

	require.NoError(t, s.MarkEventRetry(ctx, pending[0].ID, "broker down"))
	pending, err = s.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "broker down", pending[0].LastError)

	require.NoError(t, s.MarkEventPublished(ctx, pending[0].ID))
	require.NoError(t, s.MarkEventFailed(ctx, pending[1].ID, "poison"))
	pending, err = s.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	removed, err := s.CleanupPublishedEvents(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
