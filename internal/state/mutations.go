package state

import (
	"context"

	"saldo/internal/core"
)

// restoreAccounts puts back a snapshot captured before an optimistic change.
func (s *Store) restoreAccounts(snapshot []core.Account) {
	s.mu.Lock()
	s.accounts = snapshot
	s.mu.Unlock()
}

func (s *Store) restoreCategories(snapshot []core.Category) {
	s.mu.Lock()
	s.categories = snapshot
	s.mu.Unlock()
}

// mutateAccounts swaps in change(current) and returns the previous slice.
func (s *Store) mutateAccounts(change func([]core.Account) []core.Account) []core.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.accounts
	s.accounts = change(append([]core.Account(nil), prev...))
	return prev
}

func (s *Store) mutateCategories(change func([]core.Category) []core.Category) []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.categories
	s.categories = change(append([]core.Category(nil), prev...))
	return prev
}

func (s *Store) CreateAccount(ctx context.Context, in core.NewAccount) (core.Account, error) {
	created, err := s.accountsSvc.CreateAccount(ctx, in)
	if err != nil {
		return core.Account{}, s.fail(ctx, "create account", err)
	}
	s.mutateAccounts(func(list []core.Account) []core.Account { return append(list, created) })
	s.analytics.Invalidate()
	s.clearError()
	return created, nil
}

func (s *Store) UpdateAccount(ctx context.Context, id int64, p core.AccountPatch) (core.Account, error) {
	snapshot := s.mutateAccounts(func(list []core.Account) []core.Account {
		for i := range list {
			if list[i].ID == id && p.Name != nil {
				list[i].Name = *p.Name
			}
		}
		return list
	})

	updated, err := s.accountsSvc.UpdateAccount(ctx, id, p)
	if err != nil {
		s.restoreAccounts(snapshot)
		return core.Account{}, s.fail(ctx, "update account", err)
	}
	s.mutateAccounts(func(list []core.Account) []core.Account { return replaceByID(list, updated, accountID) })
	s.analytics.Invalidate()
	s.clearError()
	return updated, nil
}

// DeleteAccount removes the account locally first. Its transactions go
// with it, so the ledger snapshot is reloaded afterwards.
func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	snapshot := s.mutateAccounts(func(list []core.Account) []core.Account {
		return removeByID(list, id, accountID)
	})

	if err := s.accountsSvc.DeleteAccount(ctx, id); err != nil {
		s.restoreAccounts(snapshot)
		return s.fail(ctx, "delete account", err)
	}
	s.analytics.Invalidate()
	s.clearError()
	return s.reloadLedger(ctx)
}

func (s *Store) AdjustBalance(ctx context.Context, id int64, delta int64) (core.Account, error) {
	snapshot := s.mutateAccounts(func(list []core.Account) []core.Account {
		for i := range list {
			if list[i].ID == id {
				list[i].Balance += delta
			}
		}
		return list
	})

	adjusted, err := s.accountsSvc.AdjustBalance(ctx, id, delta)
	if err != nil {
		s.restoreAccounts(snapshot)
		return core.Account{}, s.fail(ctx, "adjust balance", err)
	}
	s.mutateAccounts(func(list []core.Account) []core.Account { return replaceByID(list, adjusted, accountID) })
	s.analytics.Invalidate()
	s.clearError()
	return adjusted, nil
}

func (s *Store) CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error) {
	created, err := s.categoriesSvc.CreateCategory(ctx, in)
	if err != nil {
		return core.Category{}, s.fail(ctx, "create category", err)
	}
	s.mutateCategories(func(list []core.Category) []core.Category { return append(list, created) })
	s.analytics.Invalidate()
	s.clearError()
	return created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	snapshot := s.mutateCategories(func(list []core.Category) []core.Category {
		for i := range list {
			if list[i].ID == id {
				list[i] = p.Apply(list[i])
			}
		}
		return list
	})

	updated, err := s.categoriesSvc.UpdateCategory(ctx, id, p)
	if err != nil {
		s.restoreCategories(snapshot)
		return core.Category{}, s.fail(ctx, "update category", err)
	}
	s.mutateCategories(func(list []core.Category) []core.Category { return replaceByID(list, updated, categoryID) })
	s.analytics.Invalidate()
	s.clearError()
	return updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	snapshot := s.mutateCategories(func(list []core.Category) []core.Category {
		return removeByID(list, id, categoryID)
	})

	if err := s.categoriesSvc.DeleteCategory(ctx, id); err != nil {
		s.restoreCategories(snapshot)
		return s.fail(ctx, "delete category", err)
	}
	s.analytics.Invalidate()
	s.clearError()
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	created, err := s.txSvc.CreateTransaction(ctx, in)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, "create transaction", err)
	}
	s.analytics.Invalidate()
	s.clearError()
	return created, s.reloadLedger(ctx)
}

func (s *Store) UpdateTransaction(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	updated, err := s.txSvc.UpdateTransaction(ctx, id, p)
	if err != nil {
		return core.Transaction{}, s.fail(ctx, "update transaction", err)
	}
	s.analytics.Invalidate()
	s.clearError()
	return updated, s.reloadLedger(ctx)
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.txSvc.DeleteTransaction(ctx, id); err != nil {
		return s.fail(ctx, "delete transaction", err)
	}
	s.analytics.Invalidate()
	s.clearError()
	return s.reloadLedger(ctx)
}

func accountID(a core.Account) int64   { return a.ID }
func categoryID(c core.Category) int64 { return c.ID }

func replaceByID[T any](list []T, v T, id func(T) int64) []T {
	for i := range list {
		if id(list[i]) == id(v) {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

func removeByID[T any](list []T, target int64, id func(T) int64) []T {
	out := list[:0]
	for _, v := range list {
		if id(v) != target {
			out = append(out, v)
		}
	}
	return out
}
