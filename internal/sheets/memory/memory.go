// Package memory is an in-process TransactionExporter used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"saldo/internal/core"
	ports "saldo/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	loc  *time.Location
	rows [][]any
	ids  map[int64]int
}

var _ ports.TransactionExporter = (*Exporter)(nil)

func New(loc *time.Location) *Exporter {
	return &Exporter{loc: loc, ids: make(map[int64]int)}
}

// AppendTransaction stores the rendered row and returns a synthetic row
// reference. A transaction already exported is replaced in place.
func (e *Exporter) AppendTransaction(_ context.Context, t core.TransactionDetails) (string, error) {
	if t.ID <= 0 {
		return "", fmt.Errorf("transaction id required")
	}
	row := ports.TransactionRow(t, e.loc)

	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.ids[t.ID]; ok {
		e.rows[i] = row
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	e.rows = append(e.rows, row)
	e.ids[t.ID] = len(e.rows) - 1
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of the exported rows in insertion order.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows))
	for i, r := range e.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
