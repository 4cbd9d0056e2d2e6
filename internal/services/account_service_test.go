package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
)

func TestCreateAccountValidation(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)

	_, err := e.accounts.CreateAccount(ctx, core.NewAccount{Name: "  "})
	assert.True(t, core.IsValidation(err))

	_, err = e.accounts.CreateAccount(ctx, core.NewAccount{Name: strings.Repeat("x", 101)})
	assert.True(t, core.IsValidation(err))

	_, err = e.accounts.CreateAccount(ctx, core.NewAccount{Name: "checking"})
	assert.ErrorIs(t, err, core.ErrDuplicateAccount, "names are unique ignoring case")

	acc, err := e.accounts.CreateAccount(ctx, core.NewAccount{Name: "  Cash ", Balance: 1500})
	require.NoError(t, err)
	assert.Equal(t, "Cash", acc.Name)
	assert.Equal(t, int64(1500), acc.OpeningBalance)
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	other, err := e.accounts.CreateAccount(ctx, core.NewAccount{Name: "Savings"})
	require.NoError(t, err)

	_, err = e.accounts.UpdateAccount(ctx, other.ID, core.AccountPatch{Name: ptr("CHECKING")})
	assert.ErrorIs(t, err, core.ErrDuplicateAccount)

	renamed, err := e.accounts.UpdateAccount(ctx, e.account.ID, core.AccountPatch{Name: ptr("checking")})
	require.NoError(t, err, "renaming to a different case of the same name is allowed")
	assert.Equal(t, "checking", renamed.Name)

	_, err = e.accounts.UpdateAccount(ctx, 404, core.AccountPatch{Name: ptr("x")})
	assert.True(t, core.IsNotFound(err))
}

func TestAdjustBalance(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)

	acc, err := e.accounts.AdjustBalance(ctx, e.account.ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), acc.Balance)

	_, err = e.accounts.AdjustBalance(ctx, e.account.ID, -2500)
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)
	assert.Equal(t, int64(2000), e.balance(t, e.account.ID))

	acc, err = e.accounts.AdjustBalance(ctx, e.account.ID, -2000)
	require.NoError(t, err)
	assert.Zero(t, acc.Balance, "reaching exactly zero is allowed")

	e.create(t, core.Expense, 500, e.food, day)
	drifts, err := CheckInvariant(ctx, e.store)
	require.NoError(t, err)
	assert.Empty(t, drifts, "manual adjustments keep the account reconciled")

	_, err = e.accounts.AdjustBalance(ctx, 404, 1)
	assert.True(t, core.IsNotFound(err))
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	e := newSQLiteEnv(t)
	tx := e.create(t, core.Expense, 500, e.food, day)

	require.NoError(t, e.accounts.DeleteAccount(ctx, e.account.ID))
	_, err := e.tx.GetTransaction(ctx, tx.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(e.accounts.DeleteAccount(ctx, e.account.ID)))
}

func TestTotalBalance(t *testing.T) {
	ctx := context.Background()
	e := newMemoryEnv(t)
	_, err := e.accounts.CreateAccount(ctx, core.NewAccount{Name: "Savings", Balance: 10000})
	require.NoError(t, err)
	e.create(t, core.Expense, 2500, e.food, day)

	total, err := e.accounts.TotalBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), total)
}
