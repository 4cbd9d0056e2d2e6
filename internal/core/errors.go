package core

import (
	"errors"
	"fmt"
)

// Sentinels for classification with errors.Is. The concrete error types
// below match them through their Is methods.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConstraint = errors.New("constraint violation")
)

var (
	ErrInvalidAmount      = NewValidationError("amount", "Amount must be greater than 0")
	ErrInsufficientFunds  = NewValidationError("balance", "Insufficient funds in the account")
	ErrSystemCategory     = NewConstraintError("System categories cannot be modified or deleted")
	ErrInvalidMonth       = NewValidationError("month", "Month must be between 1 and 12")
	ErrDateRequired       = NewValidationError("date", "Date is required")
	ErrDuplicateAccount   = NewValidationError("name", "Account with this name already exists")
	ErrDuplicateCategory  = NewValidationError("name", "Category with this name already exists for this type")
	ErrCategoryTypeLocked = NewConstraintError("Category type cannot be changed while transactions reference it")
)

// ValidationError reports input that was rejected before anything was written.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func NewNotFoundError(entity string, id int64) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConstraintError reports an operation refused because of data it would
// orphan or protect (system categories, referenced categories).
type ConstraintError struct {
	Message string
}

func NewConstraintError(message string) *ConstraintError {
	return &ConstraintError{Message: message}
}

func (e *ConstraintError) Error() string {
	return e.Message
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConstraint(err error) bool { return errors.Is(err, ErrConstraint) }
