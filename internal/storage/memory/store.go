// Package memory is an in-process ledger backend. It enforces the same
// uniqueness and reference rules as the SQLite schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

type state struct {
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	events       []ledger.OutboxItem

	nextAccount, nextCategory, nextTransaction, nextEvent int64
}

func (s *state) clone() *state {
	c := &state{
		accounts:        make(map[int64]core.Account, len(s.accounts)),
		categories:      make(map[int64]core.Category, len(s.categories)),
		transactions:    make(map[int64]core.Transaction, len(s.transactions)),
		events:          append([]ledger.OutboxItem(nil), s.events...),
		nextAccount:     s.nextAccount,
		nextCategory:    s.nextCategory,
		nextTransaction: s.nextTransaction,
		nextEvent:       s.nextEvent,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	return c
}

type Store struct {
	// writeMu serializes writers. Atomic holds it for the whole block so a
	// direct write cannot land on state that is about to be replaced. It is
	// nil on the view handed to an Atomic fn. mu guards st.
	writeMu *sync.Mutex
	mu      sync.RWMutex
	st      *state
	now     func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			accounts:     map[int64]core.Account{},
			categories:   map[int64]core.Category{},
			transactions: map[int64]core.Transaction{},
		},
		writeMu: &sync.Mutex{},
		now:     time.Now,
	}
}

// Atomic runs fn against a private copy of the state and publishes the
// copy only when fn succeeds. Readers never see a partial block.
func (s *Store) Atomic(_ context.Context, fn func(q ledger.Queries) error) error {
	if s.writeMu == nil {
		return fn(s)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	tx := &Store{st: s.st.clone(), now: s.now}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = tx.st
	s.mu.Unlock()
	return nil
}

// lockWrite takes the writer locks and returns their release.
func (s *Store) lockWrite() func() {
	if s.writeMu != nil {
		s.writeMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if s.writeMu != nil {
			s.writeMu.Unlock()
		}
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

// Accounts

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Account, 0, len(s.st.accounts))
	for _, a := range s.st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := core.NameKey(out[i].Name), core.NameKey(out[j].Name)
		if li != lj {
			return li < lj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetAccountByID(_ context.Context, id int64) (core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.st.accounts[id]
	if !ok {
		return core.Account{}, core.NewNotFoundError("account", id)
	}
	return a, nil
}

func (s *Store) AccountNameExists(_ context.Context, name string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountNameTaken(name, excludeID), nil
}

func (s *Store) accountNameTaken(name string, excludeID int64) bool {
	key := core.NameKey(name)
	for id, a := range s.st.accounts {
		if id != excludeID && core.NameKey(a.Name) == key {
			return true
		}
	}
	return false
}

func (s *Store) InsertAccount(_ context.Context, in core.NewAccount) (core.Account, error) {
	defer s.lockWrite()()
	if s.accountNameTaken(in.Name, 0) {
		return core.Account{}, core.ErrDuplicateAccount
	}
	s.st.nextAccount++
	a := core.Account{
		ID:             s.st.nextAccount,
		Name:           in.Name,
		Balance:        in.Balance,
		OpeningBalance: in.Balance,
		CreatedAt:      core.NormalizeTime(s.now()).UTC(),
	}
	s.st.accounts[a.ID] = a
	return a, nil
}

func (s *Store) RenameAccount(_ context.Context, id int64, name string) (core.Account, error) {
	defer s.lockWrite()()
	a, ok := s.st.accounts[id]
	if !ok {
		return core.Account{}, core.NewNotFoundError("account", id)
	}
	if s.accountNameTaken(name, id) {
		return core.Account{}, core.ErrDuplicateAccount
	}
	a.Name = name
	s.st.accounts[id] = a
	return a, nil
}

func (s *Store) UpdateAccountBalance(_ context.Context, id int64, newBalance int64) (core.Account, error) {
	defer s.lockWrite()()
	a, ok := s.st.accounts[id]
	if !ok {
		return core.Account{}, core.NewNotFoundError("account", id)
	}
	a.Balance = newBalance
	s.st.accounts[id] = a
	return a, nil
}

func (s *Store) UpdateAccountOpeningBalance(_ context.Context, id int64, opening int64) error {
	defer s.lockWrite()()
	a, ok := s.st.accounts[id]
	if !ok {
		return core.NewNotFoundError("account", id)
	}
	a.OpeningBalance = opening
	s.st.accounts[id] = a
	return nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	defer s.lockWrite()()
	if _, ok := s.st.accounts[id]; !ok {
		return core.NewNotFoundError("account", id)
	}
	delete(s.st.accounts, id)
	for tid, t := range s.st.transactions {
		if t.AccountID == id {
			delete(s.st.transactions, tid)
		}
	}
	return nil
}

func (s *Store) SumAccountBalances(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, a := range s.st.accounts {
		total += a.Balance
	}
	return total, nil
}

func (s *Store) LedgerSum(_ context.Context, accountID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum int64
	for _, t := range s.st.transactions {
		if t.AccountID == accountID {
			sum += t.Delta()
		}
	}
	return sum, nil
}

// Categories

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	return s.categoriesWhere(func(core.Category) bool { return true }), nil
}

func (s *Store) ListCategoriesByType(_ context.Context, t core.TransactionType) ([]core.Category, error) {
	return s.categoriesWhere(func(c core.Category) bool { return c.Type == t }), nil
}

func (s *Store) categoriesWhere(keep func(core.Category) bool) []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.st.categories {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		li, lj := core.NameKey(out[i].Name), core.NameKey(out[j].Name)
		if li != lj {
			return li < lj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) GetCategoryByID(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.st.categories[id]
	if !ok {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	return c, nil
}

func (s *Store) CategoryNameExists(_ context.Context, t core.TransactionType, name string, excludeID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoryNameTaken(t, name, excludeID), nil
}

func (s *Store) categoryNameTaken(t core.TransactionType, name string, excludeID int64) bool {
	key := core.NameKey(name)
	for id, c := range s.st.categories {
		if id != excludeID && c.Type == t && core.NameKey(c.Name) == key {
			return true
		}
	}
	return false
}

func (s *Store) InsertCategory(_ context.Context, in core.NewCategory) (core.Category, error) {
	in = in.WithDefaults()
	defer s.lockWrite()()
	if s.categoryNameTaken(in.Type, in.Name, 0) {
		return core.Category{}, core.ErrDuplicateCategory
	}
	s.st.nextCategory++
	c := core.Category{
		ID:       s.st.nextCategory,
		Name:     in.Name,
		Type:     in.Type,
		Icon:     in.Icon,
		Color:    in.Color,
		IsSystem: in.IsSystem,
	}
	s.st.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, id int64, p core.CategoryPatch) (core.Category, error) {
	defer s.lockWrite()()
	c, ok := s.st.categories[id]
	if !ok {
		return core.Category{}, core.NewNotFoundError("category", id)
	}
	merged := p.Apply(c)
	if s.categoryNameTaken(merged.Type, merged.Name, id) {
		return core.Category{}, core.ErrDuplicateCategory
	}
	s.st.categories[id] = merged
	return merged, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	defer s.lockWrite()()
	if _, ok := s.st.categories[id]; !ok {
		return core.NewNotFoundError("category", id)
	}
	for _, t := range s.st.transactions {
		if t.CategoryID == id {
			return core.NewConstraintError("referenced record does not exist or is still in use")
		}
	}
	delete(s.st.categories, id)
	return nil
}

func (s *Store) CountCategories(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.st.categories)), nil
}

func (s *Store) CountTransactionsByCategory(_ context.Context, categoryID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, t := range s.st.transactions {
		if t.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}
