package services

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

// applyDelta adds delta to the stored balance of accountID. It is the only
// write path for balances driven by transactions and never rejects a
// negative result.
func applyDelta(ctx context.Context, q ledger.Queries, accountID, delta int64) error {
	acc, err := q.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if _, err := q.UpdateAccountBalance(ctx, accountID, acc.Balance+delta); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	slog.DebugContext(ctx, "Balance delta applied",
		log.FieldAccountID, accountID,
		log.FieldDeltaCents, delta,
		"new_balance", acc.Balance+delta)
	return nil
}

// validateTransaction checks a candidate transaction against the current
// ledger: amount and type, account and category existence, and that the
// category type matches the transaction type.
func validateTransaction(ctx context.Context, q ledger.Queries, t core.NewTransaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	if _, err := q.GetAccountByID(ctx, t.AccountID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError("account_id", "Account not found")
		}
		return fmt.Errorf("load account: %w", err)
	}

	cat, err := q.GetCategoryByID(ctx, t.CategoryID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError("category_id", "Category not found")
		}
		return fmt.Errorf("load category: %w", err)
	}

	return core.CheckCategoryMatch(t.Type, cat)
}
