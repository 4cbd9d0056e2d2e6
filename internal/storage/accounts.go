package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saldo/internal/core"
)

const accountColumns = `id, name, balance, opening_balance, created_at`

func scanAccount(s scanner) (core.Account, error) {
	var (
		a       core.Account
		created int64
	)
	if err := s.Scan(&a.ID, &a.Name, &a.Balance, &a.OpeningBalance, &created); err != nil {
		return core.Account{}, err
	}
	a.CreatedAt = fromMillis(created)
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name_key, id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) GetAccountByID(ctx context.Context, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NewNotFoundError("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (q *Queries) AccountNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM accounts WHERE name_key = ? AND id != ?`, core.NameKey(name), excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account name: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) InsertAccount(ctx context.Context, in core.NewAccount) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO accounts (name, name_key, balance, opening_balance, created_at) VALUES (?, ?, ?, ?, ?)
		 RETURNING `+accountColumns,
		in.Name, core.NameKey(in.Name), in.Balance, in.Balance, toMillis(q.now()))
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", translate(err, core.ErrDuplicateAccount))
	}
	return a, nil
}

func (q *Queries) RenameAccount(ctx context.Context, id int64, name string) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE accounts SET name = ?, name_key = ? WHERE id = ? RETURNING `+accountColumns, name, core.NameKey(name), id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NewNotFoundError("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("rename account %d: %w", id, translate(err, core.ErrDuplicateAccount))
	}
	return a, nil
}

func (q *Queries) UpdateAccountBalance(ctx context.Context, id int64, newBalance int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE accounts SET balance = ? WHERE id = ? RETURNING `+accountColumns, newBalance, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NewNotFoundError("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("update balance of account %d: %w", id, err)
	}
	return a, nil
}

func (q *Queries) UpdateAccountOpeningBalance(ctx context.Context, id int64, opening int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE accounts SET opening_balance = ? WHERE id = ?`, opening, id)
	if err != nil {
		return fmt.Errorf("update opening balance of account %d: %w", id, err)
	}
	return requireAffected(res, "account", id)
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, translate(err, nil))
	}
	return requireAffected(res, "account", id)
}

func (q *Queries) SumAccountBalances(ctx context.Context) (int64, error) {
	var total int64
	if err := q.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum balances: %w", err)
	}
	return total, nil
}

func (q *Queries) LedgerSum(ctx context.Context, accountID int64) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0)
		 FROM transactions WHERE account_id = ?`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("ledger sum for account %d: %w", accountID, err)
	}
	return sum, nil
}
