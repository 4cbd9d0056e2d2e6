package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/services"
	sheetsmem "saldo/internal/sheets/memory"
	"saldo/internal/storage/memory"
)

type setup struct {
	store    *memory.Store
	txs      *services.TransactionService
	exporter *sheetsmem.Exporter
	worker   *LedgerWorker
	account  core.Account
	category core.Category
}

func newSetup(t *testing.T, repair bool) *setup {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	account, err := services.NewAccountService(store).CreateAccount(ctx, core.NewAccount{Name: "Checking", Balance: 1000})
	require.NoError(t, err)
	category, err := services.NewCategoryService(store).CreateCategory(ctx, core.NewCategory{Name: "Food", Type: core.Expense})
	require.NoError(t, err)

	exporter := sheetsmem.New(time.UTC)
	return &setup{
		store:    store,
		txs:      services.NewTransactionService(store),
		exporter: exporter,
		worker:   NewLedgerWorker(store, services.NewReconciler(store, repair), exporter),
		account:  account,
		category: category,
	}
}

func (s *setup) createExpense(t *testing.T, amount int64) core.Transaction {
	t.Helper()
	tx, err := s.txs.CreateTransaction(context.Background(), core.NewTransaction{
		Type: core.Expense, Amount: amount, AccountID: s.account.ID, CategoryID: s.category.ID,
		Description: "Lunch", Date: time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return tx
}

func TestHandleLedgerEvent_ExportsTransaction(t *testing.T) {
	s := newSetup(t, false)
	tx := s.createExpense(t, 250)

	ev := core.TransactionEvent(core.EventTransactionCreated, tx, tx.Delta(), time.Now())
	require.NoError(t, s.worker.HandleLedgerEvent(context.Background(), ev))

	rows := s.exporter.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"2024-05-02", "expense", "Checking", "Food", "Lunch", "-2.50", "1"}, rows[0])
}

func TestHandleLedgerEvent_DeletedTransactionIsSkipped(t *testing.T) {
	s := newSetup(t, false)
	tx := s.createExpense(t, 250)
	require.NoError(t, s.txs.DeleteTransaction(context.Background(), tx.ID))

	ev := core.TransactionEvent(core.EventTransactionUpdated, tx, 0, time.Now())
	require.NoError(t, s.worker.HandleLedgerEvent(context.Background(), ev))
	assert.Empty(t, s.exporter.Rows())

	deleted := core.TransactionEvent(core.EventTransactionDeleted, tx, 250, time.Now())
	require.NoError(t, s.worker.HandleLedgerEvent(context.Background(), deleted))
	assert.Empty(t, s.exporter.Rows(), "deletions are not exported")
}

func TestHandleLedgerEvent_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, true)
	tx := s.createExpense(t, 300)

	_, err := s.store.UpdateAccountBalance(ctx, s.account.ID, 5)
	require.NoError(t, err)

	ev := core.TransactionEvent(core.EventTransactionCreated, tx, tx.Delta(), time.Now())
	require.NoError(t, s.worker.HandleLedgerEvent(ctx, ev))

	acc, err := s.store.GetAccountByID(ctx, s.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), acc.Balance)
}

func TestHandleLedgerEvent_AccountDeleted(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, false)
	require.NoError(t, services.NewAccountService(s.store).DeleteAccount(ctx, s.account.ID))

	ev := core.NewLedgerEvent(core.EventAccountDeleted, s.account.ID, time.Now())
	assert.NoError(t, s.worker.HandleLedgerEvent(ctx, ev))

	// A late adjustment event for the vanished account is not an error either.
	adj := core.NewLedgerEvent(core.EventAccountAdjusted, s.account.ID, time.Now())
	assert.NoError(t, s.worker.HandleLedgerEvent(ctx, adj))
}

type failingExporter struct{}

func (failingExporter) AppendTransaction(context.Context, core.TransactionDetails) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestHandleLedgerEvent_ExportFailureIsReturned(t *testing.T) {
	s := newSetup(t, false)
	tx := s.createExpense(t, 100)
	w := NewLedgerWorker(s.store, services.NewReconciler(s.store, false), failingExporter{})

	err := w.HandleLedgerEvent(context.Background(), core.TransactionEvent(core.EventTransactionCreated, tx, tx.Delta(), time.Now()))
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestHandleLedgerEvent_NoExporter(t *testing.T) {
	s := newSetup(t, false)
	tx := s.createExpense(t, 100)
	w := NewLedgerWorker(s.store, services.NewReconciler(s.store, false), nil)

	assert.NoError(t, w.HandleLedgerEvent(context.Background(), core.TransactionEvent(core.EventTransactionCreated, tx, tx.Delta(), time.Now())))
}

func TestStartupReconcile(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, true)
	s.createExpense(t, 100)
	_, err := s.store.UpdateAccountBalance(ctx, s.account.ID, 0)
	require.NoError(t, err)

	require.NoError(t, s.worker.StartupReconcile(ctx))
	acc, err := s.store.GetAccountByID(ctx, s.account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), acc.Balance)
	require.NoError(t, s.worker.StartupReconcile(ctx))
}

func TestRunPeriodicReconcileStopsOnCancel(t *testing.T) {
	s := newSetup(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.worker.RunPeriodicReconcile(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodicReconcile did not stop")
	}
}

func TestWorkerDrainsOutboxInProcess(t *testing.T) {
	s := newSetup(t, false)
	s.createExpense(t, 400)

	processor := services.NewSyncProcessor(s.store, s.worker, services.DefaultSyncProcessorConfig())
	processor.ProcessBatch(context.Background())

	require.Len(t, s.exporter.Rows(), 1)
	pending, err := s.store.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
