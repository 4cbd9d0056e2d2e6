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

const DefaultRecentLimit = 20

// TransactionService keeps account balances consistent with the
// transactions that reference them. Every mutation runs as a single unit
// of work: the record change, both balance deltas and the outbox event
// commit together or not at all.
type TransactionService struct {
	store ledger.Store
	now   func() time.Time
}

func NewTransactionService(store ledger.Store) *TransactionService {
	return &TransactionService{store: store, now: time.Now}
}

// CreateTransaction validates t, stores it and applies its delta to the
// account balance.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.NewTransaction) (core.Transaction, error) {
	t.Date = core.NormalizeTime(t.Date)

	var created core.Transaction
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		if err := validateTransaction(ctx, q, t); err != nil {
			return err
		}

		tx, err := q.InsertTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if err := applyDelta(ctx, q, tx.AccountID, tx.Delta()); err != nil {
			return err
		}
		if err := q.EnqueueEvent(ctx, core.TransactionEvent(core.EventTransactionCreated, tx, tx.Delta(), s.now())); err != nil {
			return err
		}

		created = tx
		return nil
	})
	if err != nil {
		logFailure(ctx, "Create transaction failed", log.OpCreate, err)
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		log.FieldTxID, created.ID,
		log.FieldAccountID, created.AccountID,
		log.FieldCategoryID, created.CategoryID,
		log.FieldTxType, string(created.Type),
		log.FieldAmountCents, created.Amount)
	return created, nil
}

// UpdateTransaction merges patch into the stored transaction. The original
// delta is reversed on the original account before the new delta is
// applied to the (possibly different) target account.
func (s *TransactionService) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	if patch.Date != nil {
		d := core.NormalizeTime(*patch.Date)
		patch.Date = &d
	}

	var updated core.Transaction
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		original, err := q.GetTransactionByID(ctx, id)
		if err != nil {
			return err
		}

		merged := patch.Apply(original)
		if patch.TouchesLedger() {
			if err := validateTransaction(ctx, q, merged.AsNew()); err != nil {
				return err
			}
		} else if patch.Description != nil {
			if err := core.ValidateDescription(*patch.Description); err != nil {
				return err
			}
		}

		if err := applyDelta(ctx, q, original.AccountID, -original.Delta()); err != nil {
			return fmt.Errorf("reverse original delta: %w", err)
		}
		tx, err := q.UpdateTransactionRecord(ctx, id, patch)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if err := applyDelta(ctx, q, tx.AccountID, tx.Delta()); err != nil {
			return fmt.Errorf("apply new delta: %w", err)
		}

		ev := core.TransactionEvent(core.EventTransactionUpdated, tx, tx.Delta()-original.Delta(), s.now())
		if original.AccountID != tx.AccountID {
			ev.PreviousAccountID = original.AccountID
			ev.DeltaCents = tx.Delta()
		}
		if err := q.EnqueueEvent(ctx, ev); err != nil {
			return err
		}

		updated = tx
		return nil
	})
	if err != nil {
		logFailure(ctx, "Update transaction failed", log.OpUpdate, err, log.FieldTxID, id)
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		log.FieldTxID, updated.ID,
		log.FieldAccountID, updated.AccountID,
		log.FieldAmountCents, updated.Amount)
	return updated, nil
}

// DeleteTransaction reverses the transaction's delta and removes it.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		original, err := q.GetTransactionByID(ctx, id)
		if err != nil {
			return err
		}
		if err := applyDelta(ctx, q, original.AccountID, -original.Delta()); err != nil {
			return fmt.Errorf("reverse delta: %w", err)
		}
		if err := q.DeleteTransactionRecord(ctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return q.EnqueueEvent(ctx, core.TransactionEvent(core.EventTransactionDeleted, original, -original.Delta(), s.now()))
	})
	if err != nil {
		logFailure(ctx, "Delete transaction failed", log.OpDelete, err, log.FieldTxID, id)
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id)
	return nil
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (core.TransactionDetails, error) {
	return s.store.GetTransactionDetails(ctx, id)
}

func (s *TransactionService) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.TransactionDetails, error) {
	return s.store.ListTransactions(ctx, f)
}

// RecentTransactions returns the newest transactions; limit <= 0 means
// DefaultRecentLimit.
func (s *TransactionService) RecentTransactions(ctx context.Context, limit int) ([]core.TransactionDetails, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.store.ListTransactions(ctx, core.TransactionFilter{Limit: limit})
}

func (s *TransactionService) TransactionsByAccount(ctx context.Context, accountID int64) ([]core.TransactionDetails, error) {
	return s.store.ListTransactions(ctx, core.TransactionFilter{AccountID: accountID})
}

func (s *TransactionService) TransactionsByCategory(ctx context.Context, categoryID int64) ([]core.TransactionDetails, error) {
	return s.store.ListTransactions(ctx, core.TransactionFilter{CategoryID: categoryID})
}

// logFailure logs expected rejections at warn and everything else at error.
func logFailure(ctx context.Context, msg, op string, err error, args ...any) {
	args = append(args, log.FieldOperation, op, log.FieldError, err.Error())
	switch {
	case core.IsValidation(err):
		slog.WarnContext(ctx, msg, append(args, log.FieldErrorType, log.ErrorTypeValidation)...)
	case core.IsNotFound(err):
		slog.WarnContext(ctx, msg, append(args, log.FieldErrorType, log.ErrorTypeNotFound)...)
	case core.IsConstraint(err):
		slog.WarnContext(ctx, msg, append(args, log.FieldErrorType, log.ErrorTypeConflict)...)
	default:
		slog.ErrorContext(ctx, msg, append(args, log.FieldErrorType, log.ErrorTypeDatabase)...)
	}
}
