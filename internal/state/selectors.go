package state

import "saldo/internal/core"

func (s *Store) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Account(nil), s.accounts...)
}

func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Category(nil), s.categories...)
}

func (s *Store) Transactions() []core.TransactionDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.TransactionDetails(nil), s.transactions...)
}

// TotalBalance sums the cached account balances.
func (s *Store) TotalBalance() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, a := range s.accounts {
		total += a.Balance
	}
	return total
}

func (s *Store) AccountByID(id int64) (core.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return core.Account{}, false
}

func (s *Store) CategoryByID(id int64) (core.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Store) CategoriesByType(t core.TransactionType) []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// RecentTransactions returns up to n of the newest cached transactions.
func (s *Store) RecentTransactions(n int) []core.TransactionDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.transactions) {
		n = len(s.transactions)
	}
	return append([]core.TransactionDetails(nil), s.transactions[:n]...)
}

func (s *Store) TransactionsByAccount(id int64) []core.TransactionDetails {
	return s.filterTransactions(func(t core.TransactionDetails) bool { return t.AccountID == id })
}

func (s *Store) TransactionsByCategory(id int64) []core.TransactionDetails {
	return s.filterTransactions(func(t core.TransactionDetails) bool { return t.CategoryID == id })
}

func (s *Store) TransactionsByType(typ core.TransactionType) []core.TransactionDetails {
	return s.filterTransactions(func(t core.TransactionDetails) bool { return t.Type == typ })
}

func (s *Store) filterTransactions(keep func(core.TransactionDetails) bool) []core.TransactionDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.TransactionDetails
	for _, t := range s.transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
