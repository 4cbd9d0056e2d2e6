package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

type AccountService struct {
	store ledger.Store
	now   func() time.Time
}

func NewAccountService(store ledger.Store) *AccountService {
	return &AccountService{store: store, now: time.Now}
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccountByID(ctx, id)
}

// TotalBalance sums the stored balances of all accounts.
func (s *AccountService) TotalBalance(ctx context.Context) (int64, error) {
	return s.store.SumAccountBalances(ctx)
}

// CreateAccount stores a new account; its initial balance becomes the
// opening balance used by reconciliation.
func (s *AccountService) CreateAccount(ctx context.Context, in core.NewAccount) (core.Account, error) {
	name, err := core.ValidateAccountName(in.Name)
	if err != nil {
		return core.Account{}, err
	}
	in.Name = name

	var created core.Account
	err = s.store.Atomic(ctx, func(q ledger.Queries) error {
		exists, err := q.AccountNameExists(ctx, name, 0)
		if err != nil {
			return err
		}
		if exists {
			return core.ErrDuplicateAccount
		}
		created, err = q.InsertAccount(ctx, in)
		return err
	})
	if err != nil {
		logFailure(ctx, "Create account failed", log.OpCreate, err)
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account created", log.FieldAccountID, created.ID, "balance", created.Balance)
	return created, nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, id int64, patch core.AccountPatch) (core.Account, error) {
	var updated core.Account
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		acc, err := q.GetAccountByID(ctx, id)
		if err != nil {
			return err
		}
		updated = acc
		if patch.Name == nil {
			return nil
		}

		name, err := core.ValidateAccountName(*patch.Name)
		if err != nil {
			return err
		}
		exists, err := q.AccountNameExists(ctx, name, id)
		if err != nil {
			return err
		}
		if exists {
			return core.ErrDuplicateAccount
		}
		updated, err = q.RenameAccount(ctx, id, name)
		return err
	})
	if err != nil {
		logFailure(ctx, "Update account failed", log.OpUpdate, err, log.FieldAccountID, id)
		return core.Account{}, err
	}
	return updated, nil
}

// DeleteAccount removes the account together with its transactions.
func (s *AccountService) DeleteAccount(ctx context.Context, id int64) error {
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		if _, err := q.GetAccountByID(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteAccount(ctx, id); err != nil {
			return err
		}
		return q.EnqueueEvent(ctx, core.NewLedgerEvent(core.EventAccountDeleted, id, s.now()))
	})
	if err != nil {
		logFailure(ctx, "Delete account failed", log.OpDelete, err, log.FieldAccountID, id)
		return err
	}
	slog.InfoContext(ctx, "Account deleted", log.FieldAccountID, id)
	return nil
}

// AdjustBalance applies a manual correction to an account. Unlike
// transaction deltas, a manual adjustment may not leave the balance below
// zero. The opening balance moves with it so the account still reconciles.
func (s *AccountService) AdjustBalance(ctx context.Context, id int64, delta int64) (core.Account, error) {
	var adjusted core.Account
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		acc, err := q.GetAccountByID(ctx, id)
		if err != nil {
			return err
		}
		newBalance := acc.Balance + delta
		if newBalance < 0 {
			return core.ErrInsufficientFunds
		}
		if adjusted, err = q.UpdateAccountBalance(ctx, id, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
		if err := q.UpdateAccountOpeningBalance(ctx, id, acc.OpeningBalance+delta); err != nil {
			return err
		}
		adjusted.OpeningBalance = acc.OpeningBalance + delta

		ev := core.NewLedgerEvent(core.EventAccountAdjusted, id, s.now())
		ev.DeltaCents = delta
		return q.EnqueueEvent(ctx, ev)
	})
	if err != nil {
		logFailure(ctx, "Adjust balance failed", log.OpAdjust, err, log.FieldAccountID, id, log.FieldDeltaCents, delta)
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Balance adjusted",
		log.FieldAccountID, id,
		log.FieldDeltaCents, delta,
		"new_balance", adjusted.Balance)
	return adjusted, nil
}
