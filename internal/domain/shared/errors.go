package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every bounded context. The HTTP layer maps them to
// status codes; callers branch on them with the Is* predicates.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeConflict            = "CONFLICT"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInvalidState        = "INVALID_STATE"
	CodeTransient           = "TRANSIENT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code, so
// errors.Is(err, ErrNotFound) matches any not-found error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of e carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
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
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrTransient           = NewDomainError(CodeTransient, "Storage temporarily unavailable")
)

// NewValidationError reports malformed input
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing entity of the given kind
func NewNotFoundError(entity, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %q not found", entity, id)).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewConflictError reports a request that conflicts with already committed
// state. winner, when non-nil, is the outcome the client should reconcile
// against.
func NewConflictError(message string, winner any) *DomainError {
	err := NewDomainError(CodeConflict, message)
	if winner != nil {
		err = err.WithDetail("winner", winner)
	}
	return err
}

// NewIdempotencyConflictError reports reuse of an idempotency key for a
// different request.
func NewIdempotencyConflictError(key string, winner any) *DomainError {
	err := NewDomainError(CodeIdempotencyConflict,
		fmt.Sprintf("idempotency key %q was already used for a different request", key)).
		WithDetail("idempotency_key", key)
	if winner != nil {
		err = err.WithDetail("winner", winner)
	}
	return err
}

// NewInvalidStateError reports an illegal state transition
func NewInvalidStateError(format string, args ...any) *DomainError {
	return NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// NewTransientError wraps a retryable storage failure
func NewTransientError(op string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeTransient,
		Message: op + " failed transiently",
		cause:   cause,
	}
}

// NewConcurrencyError reports a failed conditional write
func NewConcurrencyError(format string, args ...any) *DomainError {
	return NewDomainError(CodeConcurrencyConflict, fmt.Sprintf(format, args...))
}

// CodeOf returns the domain code carried by err, or "" for foreign errors
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

func IsAlreadyExists(err error) bool { return CodeOf(err) == CodeAlreadyExists }

// IsConflict matches both plain and idempotency conflicts
func IsConflict(err error) bool {
	code := CodeOf(err)
	return code == CodeConflict || code == CodeIdempotencyConflict
}

func IsConcurrencyConflict(err error) bool { return CodeOf(err) == CodeConcurrencyConflict }

func IsInvalidState(err error) bool { return CodeOf(err) == CodeInvalidState }

func IsTransient(err error) bool { return CodeOf(err) == CodeTransient }

// IsRetryable reports whether re-running the whole operation against fresh
// state may succeed.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTransient, CodeConcurrencyConflict, CodeAlreadyExists:
		return true
	}
	return false
}
