// Package ledger defines the storage contract the balance engine runs on.
// Implementations live in internal/storage (SQLite) and
// internal/storage/memory.
package ledger

import (
	"context"
	"time"

	"saldo/internal/core"
)

// Lookups return *core.NotFoundError when the row does not exist.

type Accounts interface {
	ListAccounts(ctx context.Context) ([]core.Account, error)
	GetAccountByID(ctx context.Context, id int64) (core.Account, error)
	// AccountNameExists matches case-insensitively, ignoring excludeID.
	AccountNameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	InsertAccount(ctx context.Context, a core.NewAccount) (core.Account, error)
	RenameAccount(ctx context.Context, id int64, name string) (core.Account, error)
	// UpdateAccountBalance stores newBalance as is. Negative values are allowed.
	UpdateAccountBalance(ctx context.Context, id int64, newBalance int64) (core.Account, error)
	UpdateAccountOpeningBalance(ctx context.Context, id int64, opening int64) error
	// DeleteAccount removes the account and cascades to its transactions.
	DeleteAccount(ctx context.Context, id int64) error
	SumAccountBalances(ctx context.Context) (int64, error)
	// LedgerSum is the signed sum of all transactions of the account.
	LedgerSum(ctx context.Context, accountID int64) (int64, error)
}

type Categories interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListCategoriesByType(ctx context.Context, t core.TransactionType) ([]core.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (core.Category, error)
	CategoryNameExists(ctx context.Context, t core.TransactionType, name string, excludeID int64) (bool, error)
	InsertCategory(ctx context.Context, c core.NewCategory) (core.Category, error)
	UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CountCategories(ctx context.Context) (int64, error)
	CountTransactionsByCategory(ctx context.Context, categoryID int64) (int64, error)
}

type Transactions interface {
	InsertTransaction(ctx context.Context, t core.NewTransaction) (core.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error)
	GetTransactionDetails(ctx context.Context, id int64) (core.TransactionDetails, error)
	UpdateTransactionRecord(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error)
	DeleteTransactionRecord(ctx context.Context, id int64) error
	// ListTransactions orders by date descending, then id descending.
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.TransactionDetails, error)
	// QueryTransactionsByDateRange matches start <= date <= end.
	QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error)
	QueryCategoryTotals(ctx context.Context, start, end time.Time, t core.TransactionType) ([]core.CategoryTotal, error)
}

const (
	OutboxPending   = "pending"
	OutboxPublished = "published"
	OutboxFailed    = "failed"
)

// OutboxItem is a queued ledger event awaiting publication.
type OutboxItem struct {
	ID        int64
	Event     core.LedgerEvent
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
}

type Outbox interface {
	EnqueueEvent(ctx context.Context, ev core.LedgerEvent) error
	// PendingEvents returns pending items oldest first.
	PendingEvents(ctx context.Context, limit int) ([]OutboxItem, error)
	MarkEventPublished(ctx context.Context, id int64) error
	// MarkEventRetry records a failed attempt; the item stays pending.
	MarkEventRetry(ctx context.Context, id int64, errMsg string) error
	MarkEventFailed(ctx context.Context, id int64, errMsg string) error
	CleanupPublishedEvents(ctx context.Context, before time.Time) (int64, error)
}

// Queries is everything a single unit of work can touch.
type Queries interface {
	Accounts
	Categories
	Transactions
	Outbox
}

// Store is a ledger backend. Atomic runs fn as one unit: either every write
// made through q is committed or none is.
type Store interface {
	Queries
	Atomic(ctx context.Context, fn func(q Queries) error) error
	Close() error
}
