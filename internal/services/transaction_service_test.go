package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

func TestBalanceScenarios(t *testing.T) {
	for name, mk := range map[string]func(*testing.T) *env{
		"memory": newMemoryEnv,
		"sqlite": newSQLiteEnv,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mk(t)

			income := e.create(t, core.Income, 10000, e.salary, day)
			assert.Equal(t, int64(10000), e.balance(t, e.account.ID), "scenario A")

			expense := e.create(t, core.Expense, 3000, e.food, day)
			assert.Equal(t, int64(7000), e.balance(t, e.account.ID), "scenario B")

			_, err := e.tx.UpdateTransaction(ctx, expense.ID, core.TransactionPatch{Amount: ptr(int64(5000))})
			require.NoError(t, err)
			assert.Equal(t, int64(5000), e.balance(t, e.account.ID), "scenario C")

			require.NoError(t, e.tx.DeleteTransaction(ctx, income.ID))
			assert.Equal(t, int64(-5000), e.balance(t, e.account.ID), "scenario D: negative balances are allowed")

			drifts, err := CheckInvariant(ctx, e.store)
			require.NoError(t, err)
			assert.Empty(t, drifts)
		})
	}
}

func TestRandomMutationsKeepInvariant(t *testing.T) {
	for _, tt := range []struct {
		name string
		mk   func(*testing.T) *env
		seed int64
	}{
		{"memory", newMemoryEnv, 1},
		{"memory", newMemoryEnv, 20240315},
		{"sqlite", newSQLiteEnv, 1},
		{"sqlite", newSQLiteEnv, 20240315},
	} {
		t.Run(fmt.Sprintf("%s/seed=%d", tt.name, tt.seed), func(t *testing.T) {
			ctx := context.Background()
			e := tt.mk(t)
			rng := rand.New(rand.NewSource(tt.seed))

			savings, err := e.accounts.CreateAccount(ctx, core.NewAccount{Name: "Savings"})
			require.NoError(t, err)
			accounts := []int64{e.account.ID, savings.ID}
			categories := map[core.TransactionType]int64{core.Income: e.salary.ID, core.Expense: e.food.ID}
			types := []core.TransactionType{core.Income, core.Expense}

			type entry struct {
				account int64
				delta   int64
			}
			live := map[int64]entry{}
			var ids []int64

			for step := 0; step < 150; step++ {
				switch op := rng.Intn(3); {
				case op == 0 || len(ids) == 0:
					typ := types[rng.Intn(2)]
					acc := accounts[rng.Intn(2)]
					amount := int64(rng.Intn(10000) + 1)
					tx, err := e.tx.CreateTransaction(ctx, core.NewTransaction{
						Type: typ, Amount: amount, AccountID: acc, CategoryID: categories[typ], Date: day,
					})
					require.NoError(t, err, "step %d", step)
					live[tx.ID] = entry{acc, typ.SignedAmount(amount)}
					ids = append(ids, tx.ID)
				case op == 1:
					id := ids[rng.Intn(len(ids))]
					typ := types[rng.Intn(2)]
					acc := accounts[rng.Intn(2)]
					amount := int64(rng.Intn(10000) + 1)
					_, err := e.tx.UpdateTransaction(ctx, id, core.TransactionPatch{
						Type: &typ, Amount: &amount, AccountID: &acc, CategoryID: ptr(categories[typ]),
					})
					require.NoError(t, err, "step %d", step)
					live[id] = entry{acc, typ.SignedAmount(amount)}
				default:
					i := rng.Intn(len(ids))
					require.NoError(t, e.tx.DeleteTransaction(ctx, ids[i]), "step %d", step)
					delete(live, ids[i])
					ids = append(ids[:i], ids[i+1:]...)
				}
			}

			want := map[int64]int64{}
			for _, en := range live {
				want[en.account] += en.delta
			}
			for _, id := range accounts {
				assert.Equal(t, want[id], e.balance(t, id), "account %d", id)
			}
			drifts, err := CheckInvariant(ctx, e.store)
			require.NoError(t, err)
			assert.Empty(t, drifts)
		})
	}
}

func TestCreateTransactionCategoryTypeMismatch(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)

	_, err := e.tx.CreateTransaction(ctx, core.NewTransaction{
		Type: core.Expense, Amount: 500, AccountID: e.account.ID, CategoryID: e.salary.ID, Date: day,
	})
	var ve *core.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "type", ve.Field)
	assert.Equal(t, int64(0), e.balance(t, e.account.ID))

	list, err := e.tx.ListTransactions(ctx, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list, "validation failures write nothing")
}

func TestCreateTransactionValidation(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)

	cases := map[string]core.NewTransaction{
		"zero amount":      {Type: core.Expense, Amount: 0, AccountID: e.account.ID, CategoryID: e.food.ID, Date: day},
		"negative amount":  {Type: core.Expense, Amount: -1, AccountID: e.account.ID, CategoryID: e.food.ID, Date: day},
		"unknown account":  {Type: core.Expense, Amount: 1, AccountID: 999, CategoryID: e.food.ID, Date: day},
		"unknown category": {Type: core.Expense, Amount: 1, AccountID: e.account.ID, CategoryID: 999, Date: day},
		"bad type":         {Type: "transfer", Amount: 1, AccountID: e.account.ID, CategoryID: e.food.ID, Date: day},
		"missing date":     {Type: core.Expense, Amount: 1, AccountID: e.account.ID, CategoryID: e.food.ID},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.tx.CreateTransaction(ctx, in)
			assert.True(t, core.IsValidation(err), "got %v", err)
			assert.Equal(t, int64(0), e.balance(t, e.account.ID))
		})
	}
}

func TestUpdateTransactionMovesBetweenAccounts(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	savings, err := e.accounts.CreateAccount(ctx, core.NewAccount{Name: "Savings", Balance: 1000})
	require.NoError(t, err)

	tx := e.create(t, core.Expense, 2500, e.food, day)
	require.Equal(t, int64(-2500), e.balance(t, e.account.ID))

	_, err = e.tx.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{AccountID: &savings.ID})
	require.NoError(t, err)

	assert.Equal(t, int64(0), e.balance(t, e.account.ID), "original account gets the delta back")
	assert.Equal(t, int64(-1500), e.balance(t, savings.ID))

	pending, err := e.store.PendingEvents(ctx, 10)
	require.NoError(t, err)
	last := pending[len(pending)-1].Event
	assert.Equal(t, core.EventTransactionUpdated, last.Type)
	assert.ElementsMatch(t, []int64{savings.ID, e.account.ID}, last.AffectedAccounts())
}

func TestUpdateTransactionChangeType(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	tx := e.create(t, core.Expense, 1000, e.food, day)

	// switching only the type leaves the category mismatched
	_, err := e.tx.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Type: ptr(core.Income)})
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, int64(-1000), e.balance(t, e.account.ID))

	_, err = e.tx.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Type: ptr(core.Income), CategoryID: &e.salary.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), e.balance(t, e.account.ID))
}

func TestUpdateTransactionDescriptionOnly(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	tx := e.create(t, core.Expense, 1000, e.food, day)

	updated, err := e.tx.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Description: ptr("groceries")})
	require.NoError(t, err)
	assert.Equal(t, "groceries", updated.Description)
	assert.Equal(t, int64(-1000), e.balance(t, e.account.ID))
}

func TestUpdateAndDeleteMissingTransaction(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)

	_, err := e.tx.UpdateTransaction(ctx, 404, core.TransactionPatch{Amount: ptr(int64(1))})
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(e.tx.DeleteTransaction(ctx, 404)))
}

func TestMutationRollsBackOnMidwayFailure(t *testing.T) {
	for name, mk := range map[string]func(*testing.T) *env{
		"memory": newMemoryEnv,
		"sqlite": newSQLiteEnv,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mk(t)
			tx := e.create(t, core.Expense, 3000, e.food, day)

			// the second balance write of an update is the apply step
			failing := &failingStore{Store: e.store, failOn: 2}
			svc := NewTransactionService(failing)
			_, err := svc.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Amount: ptr(int64(5000))})
			require.ErrorIs(t, err, errInjected)

			assert.Equal(t, int64(-3000), e.balance(t, e.account.ID), "reverse step must be rolled back")
			stored, err := e.store.GetTransactionByID(ctx, tx.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3000), stored.Amount)

			failing = &failingStore{Store: e.store, failOn: 1}
			_, err = NewTransactionService(failing).CreateTransaction(ctx, core.NewTransaction{
				Type: core.Income, Amount: 100, AccountID: e.account.ID, CategoryID: e.salary.ID, Date: day,
			})
			require.ErrorIs(t, err, errInjected)
			list, err := e.store.ListTransactions(ctx, core.TransactionFilter{})
			require.NoError(t, err)
			assert.Len(t, list, 1, "insert must be rolled back with the balance write")
		})
	}
}

func TestMutationsEnqueueEvents(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	tx := e.create(t, core.Income, 700, e.salary, day)
	_, err := e.tx.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Amount: ptr(int64(900))})
	require.NoError(t, err)
	require.NoError(t, e.tx.DeleteTransaction(ctx, tx.ID))

	pending, err := e.store.PendingEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	types := []core.EventType{pending[0].Event.Type, pending[1].Event.Type, pending[2].Event.Type}
	assert.Equal(t, []core.EventType{core.EventTransactionCreated, core.EventTransactionUpdated, core.EventTransactionDeleted}, types)
	assert.Equal(t, int64(700), pending[0].Event.DeltaCents)
	assert.Equal(t, int64(200), pending[1].Event.DeltaCents)
	assert.Equal(t, int64(-900), pending[2].Event.DeltaCents)
}

func TestTransactionQueries(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	for i := 0; i < 25; i++ {
		e.create(t, core.Expense, int64(100+i), e.food, day.AddDate(0, 0, -i))
	}
	salary := e.create(t, core.Income, 5000, e.salary, day.AddDate(0, 0, 1))

	recent, err := e.tx.RecentTransactions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, salary.ID, recent[0].ID)

	byCat, err := e.tx.TransactionsByCategory(ctx, e.salary.ID)
	require.NoError(t, err)
	assert.Len(t, byCat, 1)

	byAcc, err := e.tx.TransactionsByAccount(ctx, e.account.ID)
	require.NoError(t, err)
	assert.Len(t, byAcc, 26)

	details, err := e.tx.GetTransaction(ctx, salary.ID)
	require.NoError(t, err)
	assert.Equal(t, "Salary", details.CategoryName)
	assert.Equal(t, "Checking", details.AccountName)
}

var _ ledger.Store = (*failingStore)(nil)
