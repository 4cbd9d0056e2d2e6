package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/sheets"
)

// LedgerWorker reacts to published ledger events: it re-checks the
// balances the event touched and mirrors created or updated transactions
// to the configured spreadsheet.
type LedgerWorker struct {
	store      ledger.Store
	reconciler *services.Reconciler
	exporter   sheets.TransactionExporter
}

// NewLedgerWorker creates a worker. exporter may be nil to disable export.
func NewLedgerWorker(store ledger.Store, reconciler *services.Reconciler, exporter sheets.TransactionExporter) *LedgerWorker {
	return &LedgerWorker{
		store:      store,
		reconciler: reconciler,
		exporter:   exporter,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP
func (w *LedgerWorker) HandleLedgerEvent(ctx context.Context, ev core.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		log.FieldEventID, ev.ID,
		log.FieldEventType, ev.Type,
		log.FieldAccountID, ev.AccountID)

	if ev.Type != core.EventAccountDeleted {
		for _, id := range ev.AffectedAccounts() {
			if err := w.reconcile(ctx, id); err != nil {
				return err
			}
		}
	}

	switch ev.Type {
	case core.EventTransactionCreated, core.EventTransactionUpdated:
		return w.exportTransaction(ctx, ev.TransactionID)
	}
	return nil
}

func (w *LedgerWorker) reconcile(ctx context.Context, accountID int64) error {
	drift, err := w.reconciler.ReconcileAccount(ctx, accountID)
	if core.IsNotFound(err) {
		// Deleted after the event was written.
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile account %d: %w", accountID, err)
	}
	if drift != nil {
		slog.WarnContext(ctx, "Account drifted from its ledger",
			log.FieldAccountID, accountID,
			"difference", drift.Difference(),
			"repaired", drift.Repaired)
	}
	return nil
}

func (w *LedgerWorker) exportTransaction(ctx context.Context, id int64) error {
	if w.exporter == nil {
		return nil
	}
	details, err := w.store.GetTransactionDetails(ctx, id)
	if core.IsNotFound(err) {
		slog.InfoContext(ctx, "Transaction gone before export, skipping", log.FieldTxID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := w.exporter.AppendTransaction(ctx, details)
	if err != nil {
		return fmt.Errorf("export transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		log.FieldTxID, id,
		"sheets_ref", ref,
		log.FieldAmountCents, details.Amount)
	return nil
}

// StartupReconcile checks every account once when the worker starts, to
// catch drift that happened while it was down.
func (w *LedgerWorker) StartupReconcile(ctx context.Context) error {
	drifts, err := w.reconciler.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	if len(drifts) == 0 {
		slog.InfoContext(ctx, "All account balances reconcile on startup")
		return nil
	}
	repaired := 0
	for _, d := range drifts {
		if d.Repaired {
			repaired++
		}
	}
	slog.WarnContext(ctx, "Startup reconcile found drift",
		"drifted", len(drifts),
		"repaired", repaired)
	return nil
}

// RunPeriodicReconcile runs ReconcileAll every interval until ctx is done.
func (w *LedgerWorker) RunPeriodicReconcile(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.reconciler.ReconcileAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", log.FieldError, err)
			}
		}
	}
}

// PublishLedgerEvent handles ev in process. It lets the outbox processor
// deliver straight to the worker when no broker is configured.
func (w *LedgerWorker) PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error {
	return w.HandleLedgerEvent(ctx, ev)
}
