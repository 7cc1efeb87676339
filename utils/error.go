package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError covers malformed input: non-positive amounts, missing
// required fields, bad denomination entries. Always recoverable by the caller
// re-submitting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field string, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StateConflictError is returned when a caller tries to resolve an
// already-resolved transfer/adjustment/reconciliation, or to edit a record
// that is no longer pending. Never silently ignored.
type StateConflictError struct {
	Resource string
	Id       int
	Status   string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s %d is not pending (status=%s)", e.Resource, e.Id, e.Status)
}

func NewStateConflictError(resource string, id int, status string) error {
	return &StateConflictError{Resource: resource, Id: id, Status: status}
}

// AuthorizationError is surfaced before any mutation is attempted.
type AuthorizationError struct {
	Role   string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("role %s is not permitted to %s", e.Role, e.Action)
}

func NewAuthorizationError(role string, action string) error {
	return &AuthorizationError{Role: role, Action: action}
}

// InsufficientBalanceError carries the current balance so the caller can show
// it alongside the failure.
type InsufficientBalanceError struct {
	Pool      string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: requested %s, available %s",
		e.Pool, e.Requested.String(), e.Available.String())
}

func NewInsufficientBalanceError(pool string, requested, available decimal.Decimal) error {
	return &InsufficientBalanceError{Pool: pool, Requested: requested, Available: available}
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
