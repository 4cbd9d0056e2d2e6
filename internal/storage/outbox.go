package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

func (q *Queries) EnqueueEvent(ctx context.Context, ev core.LedgerEvent) error {
	payload, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	now := toMillis(q.now())
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO ledger_events (event_id, event_type, payload, status, attempts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		ev.ID, string(ev.Type), string(payload), ledger.OutboxPending, now, now)
	if err != nil {
		return fmt.Errorf("enqueue event %s: %w", ev.ID, err)
	}
	return nil
}

func (q *Queries) PendingEvents(ctx context.Context, limit int) ([]ledger.OutboxItem, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, payload, status, attempts, last_error, created_at FROM ledger_events
		 WHERE status = ? ORDER BY id LIMIT ?`, ledger.OutboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()

	var out []ledger.OutboxItem
	for rows.Next() {
		var (
			item    ledger.OutboxItem
			payload string
			lastErr sql.NullString
			created int64
		)
		if err := rows.Scan(&item.ID, &payload, &item.Status, &item.Attempts, &lastErr, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := core.UnmarshalLedgerEvent([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", item.ID, err)
		}
		item.Event = ev
		item.LastError = lastErr.String
		item.CreatedAt = fromMillis(created)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (q *Queries) MarkEventPublished(ctx context.Context, id int64) error {
	return q.setEventStatus(ctx, id, ledger.OutboxPublished, "", false)
}

func (q *Queries) MarkEventRetry(ctx context.Context, id int64, errMsg string) error {
	return q.setEventStatus(ctx, id, ledger.OutboxPending, errMsg, true)
}

func (q *Queries) MarkEventFailed(ctx context.Context, id int64, errMsg string) error {
	return q.setEventStatus(ctx, id, ledger.OutboxFailed, errMsg, true)
}

func (q *Queries) setEventStatus(ctx context.Context, id int64, status, errMsg string, attempt bool) error {
	inc := 0
	if attempt {
		inc = 1
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE ledger_events SET status = ?, last_error = ?, attempts = attempts + ?, updated_at = ? WHERE id = ?`,
		status, nullString(errMsg), inc, toMillis(q.now()), id)
	if err != nil {
		return fmt.Errorf("mark event %d %s: %w", id, status, err)
	}
	return requireAffected(res, "event", id)
}

func (q *Queries) CleanupPublishedEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM ledger_events WHERE status = ? AND updated_at < ?`, ledger.OutboxPublished, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("cleanup published events: %w", err)
	}
	return res.RowsAffected()
}
