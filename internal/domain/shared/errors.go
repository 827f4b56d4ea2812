package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound               = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists          = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput           = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict    = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState           = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock      = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrPersistenceFailure     = NewDomainError("PERSISTENCE_FAILURE", "Storage operation failed")
	ErrReconciliationRequired = NewDomainError("RECONCILIATION_REQUIRED", "Stock state requires manual reconciliation")
)

// DetailedError is implemented by error kinds that carry structured context
// suitable for API responses.
type DetailedError interface {
	error
	Details() map[string]any
}

// InvalidArgumentError reports a rejected input field.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

// NewInvalidArgument creates an InvalidArgumentError for field.
func NewInvalidArgument(field, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Field: field, Reason: reason}
}

func (e *InvalidArgumentError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid argument: %s", e.Field)
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidInput }

// Details returns the offending field.
func (e *InvalidArgumentError) Details() map[string]any {
	return map[string]any{"field": e.Field}
}

// InvalidStateError reports an operation rejected by the aggregate's current state.
type InvalidStateError struct {
	Message string
}

// NewInvalidState creates an InvalidStateError.
func NewInvalidState(format string, args ...any) *InvalidStateError {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

func (e *InvalidStateError) Error() string { return e.Message }

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// Details returns no extra context.
func (e *InvalidStateError) Details() map[string]any { return nil }

// PersistenceError wraps a storage failure (unreachable store, constraint violation).
// It matches both ErrPersistenceFailure and the underlying driver error.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err as a persistence failure of op.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailure, e.Err}
}

// Details returns the failing operation.
func (e *PersistenceError) Details() map[string]any {
	return map[string]any{"operation": e.Op}
}

// ConcurrencyConflictError reports a lost optimistic-lock race or a lock wait
// that gave up. Callers may retry.
type ConcurrencyConflictError struct {
	Resource string
	Err      error
}

// NewConcurrencyConflict creates a ConcurrencyConflictError.
func NewConcurrencyConflict(resource string, err error) *ConcurrencyConflictError {
	return &ConcurrencyConflictError{Resource: resource, Err: err}
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s was modified by another process", e.Resource)
	}
	return fmt.Sprintf("%s was modified by another process: %v", e.Resource, e.Err)
}

func (e *ConcurrencyConflictError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConcurrencyConflict}
	}
	return []error{ErrConcurrencyConflict, e.Err}
}

// Details returns the contended resource.
func (e *ConcurrencyConflictError) Details() map[string]any {
	return map[string]any{"resource": e.Resource}
}

// IsRetryable reports whether err is worth retrying as a whole unit of work.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
