package memory

import (
	"context"
	"sort"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

func (s *Store) checkRefs(accountID, categoryID int64) error {
	if _, ok := s.st.accounts[accountID]; !ok {
		return core.NewConstraintError("referenced record does not exist or is still in use")
	}
	if _, ok := s.st.categories[categoryID]; !ok {
		return core.NewConstraintError("referenced record does not exist or is still in use")
	}
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, in core.NewTransaction) (core.Transaction, error) {
	defer s.lockWrite()()
	if err := s.checkRefs(in.AccountID, in.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	now := core.NormalizeTime(s.now()).UTC()
	s.st.nextTransaction++
	t := core.Transaction{
		ID:          s.st.nextTransaction,
		Type:        in.Type,
		Amount:      in.Amount,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Date:        core.NormalizeTime(in.Date).UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.st.transactions[t.ID] = t
	return t, nil
}

func (s *Store) GetTransactionByID(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.st.transactions[id]
	if !ok {
		return core.Transaction{}, core.NewNotFoundError("transaction", id)
	}
	return t, nil
}

func (s *Store) GetTransactionDetails(_ context.Context, id int64) (core.TransactionDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.st.transactions[id]
	if !ok {
		return core.TransactionDetails{}, core.NewNotFoundError("transaction", id)
	}
	return s.details(t), nil
}

func (s *Store) details(t core.Transaction) core.TransactionDetails {
	d := core.TransactionDetails{Transaction: t}
	if a, ok := s.st.accounts[t.AccountID]; ok {
		d.AccountName = a.Name
	}
	if c, ok := s.st.categories[t.CategoryID]; ok {
		d.CategoryName = c.Name
		d.CategoryIcon = c.Icon
		d.CategoryColor = c.Color
	}
	return d
}

func (s *Store) UpdateTransactionRecord(_ context.Context, id int64, p core.TransactionPatch) (core.Transaction, error) {
	defer s.lockWrite()()
	t, ok := s.st.transactions[id]
	if !ok {
		return core.Transaction{}, core.NewNotFoundError("transaction", id)
	}
	merged := p.Apply(t)
	if err := s.checkRefs(merged.AccountID, merged.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	merged.Date = merged.Date.UTC()
	merged.UpdatedAt = core.NormalizeTime(s.now()).UTC()
	s.st.transactions[id] = merged
	return merged, nil
}

func (s *Store) DeleteTransactionRecord(_ context.Context, id int64) error {
	defer s.lockWrite()()
	if _, ok := s.st.transactions[id]; !ok {
		return core.NewNotFoundError("transaction", id)
	}
	delete(s.st.transactions, id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, f core.TransactionFilter) ([]core.TransactionDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []core.Transaction
	for _, t := range s.st.transactions {
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		if f.CategoryID != 0 && t.CategoryID != f.CategoryID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.After(matched[j].Date)
		}
		return matched[i].ID > matched[j].ID
	})
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	out := make([]core.TransactionDetails, 0, len(matched))
	for _, t := range matched {
		out = append(out, s.details(t))
	}
	return out, nil
}

func (s *Store) inRange(start, end time.Time, keep func(core.Transaction) bool) []core.Transaction {
	p := core.Period{Start: start, End: end}
	var out []core.Transaction
	for _, t := range s.st.transactions {
		if p.Contains(t.Date) && keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) QueryTransactionsByDateRange(_ context.Context, start, end time.Time) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inRange(start, end, func(core.Transaction) bool { return true }), nil
}

func (s *Store) QueryCategoryTotals(_ context.Context, start, end time.Time, typ core.TransactionType) ([]core.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byCategory := map[int64]*core.CategoryTotal{}
	var order []int64
	for _, t := range s.inRange(start, end, func(t core.Transaction) bool { return t.Type == typ }) {
		ct, ok := byCategory[t.CategoryID]
		if !ok {
			ct = &core.CategoryTotal{CategoryID: t.CategoryID}
			byCategory[t.CategoryID] = ct
			order = append(order, t.CategoryID)
		}
		ct.TotalAmount += t.Amount
		ct.TransactionCount++
	}
	out := make([]core.CategoryTotal, 0, len(order))
	for _, id := range order {
		out = append(out, *byCategory[id])
	}
	return out, nil
}

// Outbox

func (s *Store) EnqueueEvent(_ context.Context, ev core.LedgerEvent) error {
	defer s.lockWrite()()
	s.st.nextEvent++
	s.st.events = append(s.st.events, ledger.OutboxItem{
		ID:        s.st.nextEvent,
		Event:     ev,
		Status:    ledger.OutboxPending,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *Store) PendingEvents(_ context.Context, limit int) ([]ledger.OutboxItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.OutboxItem
	for _, item := range s.st.events {
		if item.Status != ledger.OutboxPending {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkEventPublished(_ context.Context, id int64) error {
	return s.setEventStatus(id, ledger.OutboxPublished, "", false)
}

func (s *Store) MarkEventRetry(_ context.Context, id int64, errMsg string) error {
	return s.setEventStatus(id, ledger.OutboxPending, errMsg, true)
}

func (s *Store) MarkEventFailed(_ context.Context, id int64, errMsg string) error {
	return s.setEventStatus(id, ledger.OutboxFailed, errMsg, true)
}

func (s *Store) setEventStatus(id int64, status, errMsg string, attempt bool) error {
	defer s.lockWrite()()
	for i := range s.st.events {
		if s.st.events[i].ID != id {
			continue
		}
		s.st.events[i].Status = status
		s.st.events[i].LastError = errMsg
		if attempt {
			s.st.events[i].Attempts++
		}
		return nil
	}
	return core.NewNotFoundError("event", id)
}

func (s *Store) CleanupPublishedEvents(_ context.Context, before time.Time) (int64, error) {
	defer s.lockWrite()()
	kept := s.st.events[:0]
	var removed int64
	for _, item := range s.st.events {
		if item.Status == ledger.OutboxPublished && item.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	s.st.events = kept
	return removed, nil
}
