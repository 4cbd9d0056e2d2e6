package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"saldo/internal/core"
)

const transactionColumns = `id, type, amount, account_id, category_id, description, date, created_at, updated_at`

const detailsQuery = `
SELECT t.id, t.type, t.amount, t.account_id, t.category_id, t.description, t.date, t.created_at, t.updated_at,
       COALESCE(a.name, ''), COALESCE(c.name, ''), COALESCE(c.icon, ''), COALESCE(c.color, '')
FROM transactions t
LEFT JOIN accounts a ON a.id = t.account_id
LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(s scanner, extra ...interface{}) (core.Transaction, error) {
	var (
		t                      core.Transaction
		typ                    string
		desc                   sql.NullString
		date, created, updated int64
	)
	dest := append([]interface{}{
		&t.ID, &typ, &t.Amount, &t.AccountID, &t.CategoryID, &desc, &date, &created, &updated,
	}, extra...)
	if err := s.Scan(dest...); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Description = desc.String
	t.Date = fromMillis(date)
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

func scanDetails(s scanner) (core.TransactionDetails, error) {
	var d core.TransactionDetails
	t, err := scanTransaction(s, &d.AccountName, &d.CategoryName, &d.CategoryIcon, &d.CategoryColor)
	if err != nil {
		return core.TransactionDetails{}, err
	}
	d.Transaction = t
	return d, nil
}

func (q *Queries) InsertTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	now := toMillis(q.now())
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO transactions (type, amount, account_id, category_id, description, date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+transactionColumns,
		string(in.Type), in.Amount, in.AccountID, in.CategoryID, nullString(in.Description),
		toMillis(in.Date), now, now)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", translate(err, nil))
	}
	return t, nil
}

func (q *Queries) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewNotFoundError("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

func (q *Queries) GetTransactionDetails(ctx context.Context, id int64) (core.TransactionDetails, error) {
	row := q.db.QueryRowContext(ctx, detailsQuery+` WHERE t.id = ?`, id)
	d, err := scanDetails(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TransactionDetails{}, core.NewNotFoundError("transaction", id)
	}
	if err != nil {
		return core.TransactionDetails{}, fmt.Errorf("get transaction details %d: %w", id, err)
	}
	return d, nil
}

func (q *Queries) UpdateTransactionRecord(ctx context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{toMillis(q.now())}
	if p.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*p.Type))
	}
	if p.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *p.Amount)
	}
	if p.AccountID != nil {
		sets = append(sets, "account_id = ?")
		args = append(args, *p.AccountID)
	}
	if p.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *p.CategoryID)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*p.Description))
	}
	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, toMillis(*p.Date))
	}
	args = append(args, id)

	row := q.db.QueryRowContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+transactionColumns, args...)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewNotFoundError("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, translate(err, nil))
	}
	return t, nil
}

func (q *Queries) DeleteTransactionRecord(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return requireAffected(res, "transaction", id)
}

func (q *Queries) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.TransactionDetails, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.AccountID != 0 {
		where = append(where, "t.account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != 0 {
		where = append(where, "t.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(f.Type))
	}

	query := detailsQuery
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.date DESC, t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionDetails
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE date >= ? AND date <= ? ORDER BY date, id`,
		toMillis(start), toMillis(end))
	if err != nil {
		return nil, fmt.Errorf("query transactions by date: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) QueryCategoryTotals(ctx context.Context, start, end time.Time, t core.TransactionType) ([]core.CategoryTotal, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category_id, SUM(amount), COUNT(id) FROM transactions
		 WHERE date >= ? AND date <= ? AND type = ?
		 GROUP BY category_id`,
		toMillis(start), toMillis(end), string(t))
	if err != nil {
		return nil, fmt.Errorf("query category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.CategoryID, &ct.TotalAmount, &ct.TransactionCount); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}
