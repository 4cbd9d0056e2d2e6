package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"saldo/internal/core"
	"saldo/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the SQLite ledger backend. Reads outside Atomic go
// through the embedded *Queries on the shared connection.
type SQLiteRepository struct {
	*Queries
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes ledger
	// mutations instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &SQLiteRepository{Queries: New(db), db: db}
	if err := r.refoldNameKeys(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// refoldNameKeys rewrites name_key wherever it differs from core.NameKey.
// Rows written before the column existed only carry an ASCII fold.
func (r *SQLiteRepository) refoldNameKeys(ctx context.Context) error {
	for _, table := range []string{"accounts", "categories"} {
		stale, err := r.staleNameKeys(ctx, table)
		if err != nil {
			return err
		}
		for id, key := range stale {
			if _, err := r.db.ExecContext(ctx, `UPDATE `+table+` SET name_key = ? WHERE id = ?`, key, id); err != nil {
				return fmt.Errorf("refold %s name %d: %w", table, id, err)
			}
		}
		if len(stale) > 0 {
			slog.InfoContext(ctx, "Refolded name keys", "table", table, "count", len(stale))
		}
	}
	return nil
}

func (r *SQLiteRepository) staleNameKeys(ctx context.Context, table string) (map[int64]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, name_key FROM `+table)
	if err != nil {
		return nil, fmt.Errorf("scan %s name keys: %w", table, err)
	}
	defer rows.Close()

	stale := map[int64]string{}
	for rows.Next() {
		var (
			id        int64
			name, key string
		)
		if err := rows.Scan(&id, &name, &key); err != nil {
			return nil, fmt.Errorf("scan %s name key: %w", table, err)
		}
		if want := core.NameKey(name); want != key {
			stale[id] = want
		}
	}
	return stale, rows.Err()
}
