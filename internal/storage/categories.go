package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"saldo/internal/core"
)

const categoryColumns = `id, name, type, icon, color, is_system`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c        core.Category
		typ      string
		isSystem int64
	)
	if err := s.Scan(&c.ID, &c.Name, &typ, &c.Icon, &c.Color, &isSystem); err != nil {
		return core.Category{}, err
	}
	c.Type = core.TransactionType(typ)
	c.IsSystem = isSystem != 0
	return c, nil
}

func (q *Queries) queryCategories(ctx context.Context, query string, args ...interface{}) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	return q.queryCategories(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY type, name_key, id`)
}

func (q *Queries) ListCategoriesByType(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	return q.queryCategories(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE type = ? ORDER BY name_key, id`, string(t))
}

func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (q *Queries) CategoryNameExists(ctx context.Context, t core.TransactionType, name string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM categories WHERE type = ? AND name_key = ? AND id != ?`,
		string(t), core.NameKey(name), excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) InsertCategory(ctx context.Context, in core.NewCategory) (core.Category, error) {
	in = in.WithDefaults()
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, name_key, type, icon, color, is_system) VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING `+categoryColumns,
		in.Name, core.NameKey(in.Name), string(in.Type), in.Icon, in.Color, boolToInt(in.IsSystem))
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", translate(err, core.ErrDuplicateCategory))
	}
	return c, nil
}

func (q *Queries) UpdateCategory(ctx context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	var (
		sets []string
		args []interface{}
	)
	if p.Name != nil {
		sets = append(sets, "name = ?", "name_key = ?")
		args = append(args, *p.Name, core.NameKey(*p.Name))
	}
	if p.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*p.Type))
	}
	if p.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *p.Icon)
	}
	if p.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *p.Color)
	}
	if len(sets) == 0 {
		return q.GetCategoryByID(ctx, id)
	}
	args = append(args, id)

	row := q.db.QueryRowContext(ctx,
		`UPDATE categories SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+categoryColumns, args...)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", id, translate(err, core.ErrDuplicateCategory))
	}
	return c, nil
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, translate(err, nil))
	}
	return requireAffected(res, "category", id)
}

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (q *Queries) CountTransactionsByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM transactions WHERE category_id = ?`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions of category %d: %w", categoryID, err)
	}
	return n, nil
}
