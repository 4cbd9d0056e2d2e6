package core

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	MaxAccountNameLength  = 100
	MaxCategoryNameLength = 50
	MaxDescriptionLength  = 500

	DefaultCategoryIcon  = "📦"
	DefaultCategoryColor = "#6b7280"
)

type (
	// TransactionType is shared by transactions and categories: a transaction
	// may only reference a category of the same type.
	TransactionType string

	Account struct {
		ID      int64
		Name    string
		Balance int64 // minor units
		// OpeningBalance is the user-supplied starting value; the stored
		// balance always equals OpeningBalance plus the signed ledger sum.
		OpeningBalance int64
		CreatedAt      time.Time
	}

	NewAccount struct {
		Name    string
		Balance int64
	}

	AccountPatch struct {
		Name *string
	}

	Category struct {
		ID       int64
		Name     string
		Type     TransactionType
		Icon     string
		Color    string
		IsSystem bool
	}

	NewCategory struct {
		Name     string
		Type     TransactionType
		Icon     string
		Color    string
		IsSystem bool
	}

	CategoryPatch struct {
		Name  *string
		Type  *TransactionType
		Icon  *string
		Color *string
	}

	Transaction struct {
		ID          int64
		Type        TransactionType
		Amount      int64 // always positive, sign comes from Type
		AccountID   int64
		CategoryID  int64
		Description string
		Date        time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	NewTransaction struct {
		Type        TransactionType
		Amount      int64
		AccountID   int64
		CategoryID  int64
		Description string
		Date        time.Time
	}

	TransactionPatch struct {
		Type        *TransactionType
		Amount      *int64
		AccountID   *int64
		CategoryID  *int64
		Description *string
		Date        *time.Time
	}

	// TransactionDetails is a transaction joined with the names needed to
	// display it.
	TransactionDetails struct {
		Transaction
		AccountName   string
		CategoryName  string
		CategoryIcon  string
		CategoryColor string
	}

	// TransactionFilter narrows transaction listings. Zero values mean "any".
	TransactionFilter struct {
		AccountID  int64
		CategoryID int64
		Type       TransactionType
		Limit      int
	}
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", NewValidationError("type", "Invalid transaction type")
	}
	return t, nil
}

// SignedAmount returns the balance delta a transaction of type t and the
// given amount contributes to its account.
func (t TransactionType) SignedAmount(amount int64) int64 {
	if t == Income {
		return amount
	}
	return -amount
}

// Delta is the signed balance change this transaction applies to its account.
func (t Transaction) Delta() int64 {
	return t.Type.SignedAmount(t.Amount)
}

// Delta is the signed balance change the new transaction will apply.
func (n NewTransaction) Delta() int64 {
	return n.Type.SignedAmount(n.Amount)
}

// TouchesLedger reports whether applying the patch can change the balance
// contribution of the transaction or its category/type pairing.
func (p TransactionPatch) TouchesLedger() bool {
	return p.Amount != nil || p.Type != nil || p.AccountID != nil || p.CategoryID != nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return !p.TouchesLedger() && p.Description == nil && p.Date == nil
}

// Apply returns a copy of t with the patch merged in. t is not modified.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	merged := t
	if p.Type != nil {
		merged.Type = *p.Type
	}
	if p.Amount != nil {
		merged.Amount = *p.Amount
	}
	if p.AccountID != nil {
		merged.AccountID = *p.AccountID
	}
	if p.CategoryID != nil {
		merged.CategoryID = *p.CategoryID
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Date != nil {
		merged.Date = NormalizeTime(*p.Date)
	}
	return merged
}

// AsNew converts a stored transaction back into creation input, used to
// re-validate merged update data.
func (t Transaction) AsNew() NewTransaction {
	return NewTransaction{
		Type:        t.Type,
		Amount:      t.Amount,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Description: t.Description,
		Date:        t.Date,
	}
}

// Apply returns a copy of c with the patch merged in.
func (p CategoryPatch) Apply(c Category) Category {
	merged := c
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Type != nil {
		merged.Type = *p.Type
	}
	if p.Icon != nil {
		merged.Icon = *p.Icon
	}
	if p.Color != nil {
		merged.Color = *p.Color
	}
	return merged
}

// WithDefaults fills in the icon and color used when none is supplied.
func (n NewCategory) WithDefaults() NewCategory {
	if strings.TrimSpace(n.Icon) == "" {
		n.Icon = DefaultCategoryIcon
	}
	if strings.TrimSpace(n.Color) == "" {
		n.Color = DefaultCategoryColor
	}
	return n
}

// NormalizeTime truncates t to the millisecond precision the ledger stores.
func NormalizeTime(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).In(t.Location())
}

// NameKey is the comparison form of an account or category name. Names are
// unique per key, so "Café" and "CAFÉ" collide.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
