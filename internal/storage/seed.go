package storage

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

// DefaultCategories is inserted into an empty ledger. All of them are
// system categories and cannot be edited or removed.
var DefaultCategories = []core.NewCategory{
	{Name: "Food & Dining", Type: core.Expense, Icon: "🍔", Color: "#ef4444", IsSystem: true},
	{Name: "Housing", Type: core.Expense, Icon: "🏠", Color: "#f97316", IsSystem: true},
	{Name: "Transportation", Type: core.Expense, Icon: "🚗", Color: "#eab308", IsSystem: true},
	{Name: "Healthcare", Type: core.Expense, Icon: "💊", Color: "#22c55e", IsSystem: true},
	{Name: "Entertainment", Type: core.Expense, Icon: "🎮", Color: "#06b6d4", IsSystem: true},
	{Name: "Shopping", Type: core.Expense, Icon: "🛍️", Color: "#8b5cf6", IsSystem: true},
	{Name: "Education", Type: core.Expense, Icon: "📚", Color: "#3b82f6", IsSystem: true},
	{Name: "Communication", Type: core.Expense, Icon: "📱", Color: "#6366f1", IsSystem: true},
	{Name: "Subscriptions", Type: core.Expense, Icon: "📺", Color: "#a855f7", IsSystem: true},
	{Name: "Other", Type: core.Expense, Icon: "📦", Color: "#6b7280", IsSystem: true},

	{Name: "Salary", Type: core.Income, Icon: "💰", Color: "#10b981", IsSystem: true},
	{Name: "Freelance", Type: core.Income, Icon: "💼", Color: "#059669", IsSystem: true},
	{Name: "Investments", Type: core.Income, Icon: "📈", Color: "#14b8a6", IsSystem: true},
	{Name: "Gifts", Type: core.Income, Icon: "🎁", Color: "#06b6d4", IsSystem: true},
	{Name: "Other", Type: core.Income, Icon: "💵", Color: "#6b7280", IsSystem: true},
}

// SeedDefaultCategories inserts DefaultCategories when no category exists.
// It returns the number of categories inserted.
func SeedDefaultCategories(ctx context.Context, store ledger.Store) (int, error) {
	inserted := 0
	err := store.Atomic(ctx, func(q ledger.Queries) error {
		n, err := q.CountCategories(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		for _, c := range DefaultCategories {
			if _, err := q.InsertCategory(ctx, c); err != nil {
				return fmt.Errorf("seed category %q: %w", c.Name, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		slog.InfoContext(ctx, "Seeded default categories", "count", inserted)
	}
	return inserted, nil
}
