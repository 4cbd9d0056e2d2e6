package services

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

type CategoryService struct {
	store ledger.Store
}

func NewCategoryService(store ledger.Store) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) ListCategoriesByType(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	if !t.Valid() {
		return nil, core.NewValidationError("type", "Invalid category type")
	}
	return s.store.ListCategoriesByType(ctx, t)
}

func (s *CategoryService) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return s.store.GetCategoryByID(ctx, id)
}

// CreateCategory stores a user category. Names are unique per type,
// ignoring case.
func (s *CategoryService) CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error) {
	in, err := in.Validate()
	if err != nil {
		return core.Category{}, err
	}
	in.IsSystem = false

	var created core.Category
	err = s.store.Atomic(ctx, func(q ledger.Queries) error {
		exists, err := q.CategoryNameExists(ctx, in.Type, in.Name, 0)
		if err != nil {
			return err
		}
		if exists {
			return core.ErrDuplicateCategory
		}
		created, err = q.InsertCategory(ctx, in)
		return err
	})
	if err != nil {
		logFailure(ctx, "Create category failed", log.OpCreate, err)
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category created", log.FieldCategoryID, created.ID, "type", string(created.Type))
	return created, nil
}

// UpdateCategory edits a user category. System categories are read-only
// and the type of a category in use cannot change, since every
// transaction must match its category's type.
func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, patch core.CategoryPatch) (core.Category, error) {
	var updated core.Category
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		current, err := q.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		if current.IsSystem {
			return core.ErrSystemCategory
		}

		if patch.Name != nil {
			name, err := core.ValidateCategoryName(*patch.Name)
			if err != nil {
				return err
			}
			patch.Name = &name
		}
		if patch.Type != nil && !patch.Type.Valid() {
			return core.NewValidationError("type", "Invalid category type")
		}

		merged := patch.Apply(current)
		if merged.Type != current.Type {
			used, err := q.CountTransactionsByCategory(ctx, id)
			if err != nil {
				return err
			}
			if used > 0 {
				return core.ErrCategoryTypeLocked
			}
		}
		if patch.Name != nil || patch.Type != nil {
			exists, err := q.CategoryNameExists(ctx, merged.Type, merged.Name, id)
			if err != nil {
				return err
			}
			if exists {
				return core.ErrDuplicateCategory
			}
		}

		updated, err = q.UpdateCategory(ctx, id, patch)
		return err
	})
	if err != nil {
		logFailure(ctx, "Update category failed", log.OpUpdate, err, log.FieldCategoryID, id)
		return core.Category{}, err
	}
	return updated, nil
}

// DeleteCategory removes a user category that no transaction references.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	err := s.store.Atomic(ctx, func(q ledger.Queries) error {
		c, err := q.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		if c.IsSystem {
			return core.ErrSystemCategory
		}
		used, err := q.CountTransactionsByCategory(ctx, id)
		if err != nil {
			return err
		}
		if used > 0 {
			return core.NewConstraintError(fmt.Sprintf("Category is used by %d transactions", used))
		}
		return q.DeleteCategory(ctx, id)
	})
	if err != nil {
		logFailure(ctx, "Delete category failed", log.OpDelete, err, log.FieldCategoryID, id)
		return err
	}
	slog.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id)
	return nil
}
