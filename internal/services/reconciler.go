package services

import (
	"context"
	"log/slog"

	"saldo/internal/ledger"
	"saldo/internal/log"
)

// Drift describes an account whose stored balance disagrees with its
// opening balance plus the signed sum of its transactions.
type Drift struct {
	AccountID   int64
	AccountName string
	Stored      int64
	Expected    int64
	Repaired    bool
}

func (d Drift) Difference() int64 {
	return d.Stored - d.Expected
}

// Reconciler checks the balance invariant and optionally repairs drift by
// rewriting the stored balance.
type Reconciler struct {
	store  ledger.Store
	repair bool
}

func NewReconciler(store ledger.Store, repair bool) *Reconciler {
	return &Reconciler{store: store, repair: repair}
}

// ReconcileAccount returns the drift of one account, or nil when it is
// consistent.
func (r *Reconciler) ReconcileAccount(ctx context.Context, id int64) (*Drift, error) {
	var drift *Drift
	err := r.store.Atomic(ctx, func(q ledger.Queries) error {
		d, err := r.check(ctx, q, id)
		drift = d
		return err
	})
	return drift, err
}

// ReconcileAll checks every account and returns the drifted ones.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]Drift, error) {
	var drifts []Drift
	err := r.store.Atomic(ctx, func(q ledger.Queries) error {
		accounts, err := q.ListAccounts(ctx)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			d, err := r.check(ctx, q, a.ID)
			if err != nil {
				return err
			}
			if d != nil {
				drifts = append(drifts, *d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Reconciliation finished",
		log.FieldOperation, log.OpReconcile,
		"drifted", len(drifts),
		"repair", r.repair)
	return drifts, nil
}

func (r *Reconciler) check(ctx context.Context, q ledger.Queries, id int64) (*Drift, error) {
	acc, err := q.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sum, err := q.LedgerSum(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := acc.OpeningBalance + sum
	if expected == acc.Balance {
		return nil, nil
	}

	d := &Drift{AccountID: id, AccountName: acc.Name, Stored: acc.Balance, Expected: expected}
	slog.WarnContext(ctx, "Balance drift detected",
		log.FieldAccountID, id,
		"stored", acc.Balance,
		"expected", expected)

	if r.repair {
		if _, err := q.UpdateAccountBalance(ctx, id, expected); err != nil {
			return nil, err
		}
		d.Repaired = true
		slog.InfoContext(ctx, "Balance drift repaired", log.FieldAccountID, id, "balance", expected)
	}
	return d, nil
}

// CheckInvariant reports whether every account reconciles, without repairing.
func CheckInvariant(ctx context.Context, store ledger.Store) ([]Drift, error) {
	return NewReconciler(store, false).ReconcileAll(ctx)
}
