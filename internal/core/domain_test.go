package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignedAmount(t *testing.T) {
	if got := Income.SignedAmount(500); got != 500 {
		t.Fatalf("income delta = %d, want 500", got)
	}
	if got := Expense.SignedAmount(500); got != -500 {
		t.Fatalf("expense delta = %d, want -500", got)
	}
	tx := Transaction{Type: Expense, Amount: 2000}
	if tx.Delta() != -2000 {
		t.Fatalf("transaction delta = %d", tx.Delta())
	}
}

func TestParseTransactionType(t *testing.T) {
	for _, in := range []string{"income", "EXPENSE", " Income "} {
		if _, err := ParseTransactionType(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseTransactionType("transfer"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransactionPatchApply(t *testing.T) {
	orig := Transaction{ID: 1, Type: Expense, Amount: 500, AccountID: 1, CategoryID: 2, Description: "lunch"}
	amount := int64(800)
	desc := "dinner"
	p := TransactionPatch{Amount: &amount, Description: &desc}

	merged := p.Apply(orig)
	if merged.Amount != 800 || merged.Description != "dinner" {
		t.Fatalf("unexpected merge result %+v", merged)
	}
	if merged.AccountID != 1 || merged.CategoryID != 2 || merged.Type != Expense {
		t.Fatalf("untouched fields changed: %+v", merged)
	}
	if orig.Amount != 500 {
		t.Fatalf("original mutated")
	}
	if !p.TouchesLedger() {
		t.Fatalf("amount change should touch ledger")
	}
	if (TransactionPatch{Description: &desc}).TouchesLedger() {
		t.Fatalf("description-only change should not touch ledger")
	}
	if !(TransactionPatch{}).IsEmpty() {
		t.Fatalf("zero patch should be empty")
	}
}

func TestNewTransactionValidate(t *testing.T) {
	date := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	good := NewTransaction{Type: Expense, Amount: 100, AccountID: 1, CategoryID: 1, Date: date}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewTransaction{
		{Type: Expense, Amount: 0, Date: date},
		{Type: Expense, Amount: -5, Date: date},
		{Type: "transfer", Amount: 100, Date: date},
		{Type: Income, Amount: 100},
		{Type: Income, Amount: 100, Date: date, Description: strings.Repeat("x", MaxDescriptionLength+1)},
	}
	for i, n := range bads {
		if err := n.Validate(); !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestValidateNames(t *testing.T) {
	if name, err := ValidateAccountName("  Checking  "); err != nil || name != "Checking" {
		t.Fatalf("got %q, %v", name, err)
	}
	if _, err := ValidateAccountName("   "); !IsValidation(err) {
		t.Fatalf("blank name should fail, got %v", err)
	}
	if _, err := ValidateAccountName(strings.Repeat("a", MaxAccountNameLength+1)); !IsValidation(err) {
		t.Fatalf("long account name should fail")
	}
	if _, err := ValidateCategoryName(strings.Repeat("a", MaxCategoryNameLength)); err != nil {
		t.Fatalf("max length category name should pass, got %v", err)
	}
	if _, err := ValidateCategoryName(strings.Repeat("a", MaxCategoryNameLength+1)); !IsValidation(err) {
		t.Fatalf("long category name should fail")
	}
}

func TestNewCategoryDefaults(t *testing.T) {
	c, err := NewCategory{Name: " Pets ", Type: Expense}.Validate()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if c.Name != "Pets" || c.Icon != DefaultCategoryIcon || c.Color != DefaultCategoryColor {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestCheckCategoryMatch(t *testing.T) {
	salary := Category{ID: 1, Name: "Salary", Type: Income}
	if err := CheckCategoryMatch(Income, salary); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	err := CheckCategoryMatch(Expense, salary)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "type" {
		t.Fatalf("expected type validation error, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsNotFound(NewNotFoundError("account", 7)) {
		t.Fatalf("not found error not classified")
	}
	if !IsConstraint(ErrSystemCategory) {
		t.Fatalf("constraint error not classified")
	}
	wrapped := errors.Join(errors.New("ctx"), ErrInsufficientFunds)
	if !IsValidation(wrapped) {
		t.Fatalf("wrapped validation error not classified")
	}
	if IsNotFound(ErrInvalidAmount) {
		t.Fatalf("validation error misclassified as not found")
	}
}

func TestNormalizeTime(t *testing.T) {
	in := time.Date(2024, 1, 31, 23, 59, 59, 999_999_999, time.UTC)
	got := NormalizeTime(in)
	if got.Nanosecond() != 999_000_000 {
		t.Fatalf("expected millisecond truncation, got %d", got.Nanosecond())
	}
}

func TestNameKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"Savings", "SAVINGS", true},
		{"Épargne", "épargne", true},
		{"Café", "CAFÉ", true},
		{" Rent ", "rent", true},
		{"Cafe", "Café", false},
	}
	for _, tt := range tests {
		if got := NameKey(tt.a) == NameKey(tt.b); got != tt.same {
			t.Errorf("NameKey(%q) == NameKey(%q) is %t, want %t", tt.a, tt.b, got, tt.same)
		}
	}
}
