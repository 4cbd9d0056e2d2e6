package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateAmount checks that a minor-unit amount is strictly positive.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return NewValidationError("description",
			fmt.Sprintf("Description must be at most %d characters", MaxDescriptionLength))
	}
	return nil
}

// ValidateAccountName checks presence and length and returns the trimmed name.
func ValidateAccountName(name string) (string, error) {
	return validateName(name, MaxAccountNameLength, "Account name")
}

// ValidateCategoryName checks presence and length and returns the trimmed name.
func ValidateCategoryName(name string) (string, error) {
	return validateName(name, MaxCategoryNameLength, "Category name")
}

func validateName(name string, max int, label string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", NewValidationError("name", label+" is required")
	}
	if utf8.RuneCountInString(trimmed) > max {
		return "", NewValidationError("name", fmt.Sprintf("%s must be at most %d characters", label, max))
	}
	return trimmed, nil
}

// Validate checks the fields of a transaction that do not need storage
// lookups. Reference checks (account, category, type pairing) live in the
// service layer.
func (n NewTransaction) Validate() error {
	if err := ValidateAmount(n.Amount); err != nil {
		return err
	}
	if !n.Type.Valid() {
		return NewValidationError("type", "Invalid transaction type")
	}
	if n.Date.IsZero() {
		return ErrDateRequired
	}
	return ValidateDescription(n.Description)
}

// Validate checks and normalizes a new category.
func (n NewCategory) Validate() (NewCategory, error) {
	name, err := ValidateCategoryName(n.Name)
	if err != nil {
		return n, err
	}
	if !n.Type.Valid() {
		return n, NewValidationError("type", "Invalid category type")
	}
	n.Name = name
	return n.WithDefaults(), nil
}

// CheckCategoryMatch verifies that a transaction of type t may reference c.
func CheckCategoryMatch(t TransactionType, c Category) error {
	if c.Type != t {
		return NewValidationError("type",
			fmt.Sprintf("Category type (%s) does not match transaction type (%s)", c.Type, t))
	}
	return nil
}
