// Package apperr classifies the failures surfaced by the investment engine.
package apperr

import (
	"errors"   // Chain inspection
	"net/http" // Status mapping
)

// Kind groups errors by how callers should react to them.
type Kind int

const (
	KindValidation  Kind = iota + 1 // malformed input, fix and resend
	KindNotFound                    // entity absent
	KindConflict                    // business rule rejected the operation
	KindConcurrency                 // could not serialize, safe to retry
	KindStore                       // persistence failure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConcurrency:
		return "concurrency"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Two errors match with errors.Is when their codes match,
// so a sentinel keeps matching after With or Wrap.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy carrying a more specific message.
func (e *Error) With(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// Wrap returns a copy carrying the underlying cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidID     = newError(KindValidation, "invalid_id", "identifier has an invalid format")
	ErrInvalidAmount = newError(KindValidation, "invalid_amount", "amount must be greater than 0")
	ErrInvalidField  = newError(KindValidation, "invalid_field", "invalid field")

	ErrUserNotFound       = newError(KindNotFound, "user_not_found", "user not found")
	ErrProjectNotFound    = newError(KindNotFound, "project_not_found", "project not found")
	ErrInvestmentNotFound = newError(KindNotFound, "investment_not_found", "investment not found")

	ErrProjectNotOpen        = newError(KindConflict, "project_not_open", "project is not open for investment")
	ErrBelowMinimum          = newError(KindConflict, "below_minimum", "amount is below the minimum investment")
	ErrCapacityExceeded      = newError(KindConflict, "capacity_exceeded", "amount exceeds the remaining project capacity")
	ErrInsufficientFunds     = newError(KindConflict, "insufficient_funds", "insufficient wallet balance")
	ErrForbidden             = newError(KindConflict, "forbidden", "operation not allowed for this user")
	ErrInvalidWithdrawAmount = newError(KindConflict, "invalid_withdraw_amount", "withdrawal amount exceeds the allowed limit")
	ErrDuplicate             = newError(KindConflict, "duplicate", "entity already exists")
	ErrProjectHasInvestments = newError(KindConflict, "project_has_investments", "project still holds invested capital")

	ErrConcurrency = newError(KindConcurrency, "concurrency", "operation conflicted with a concurrent request")
	ErrStore       = newError(KindStore, "store", "storage failure")
)

// KindOf returns the kind of the first classified error in the chain,
// treating unclassified errors as store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Retryable reports whether the operation may succeed if attempted again.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindConcurrency
}

// HTTPStatus maps an error to the status code returned to API clients.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindConcurrency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to API clients. Store and
// concurrency failures never expose their cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	switch e.Kind {
	case KindConcurrency:
		return "the request conflicted with another operation, please retry"
	case KindStore:
		return "internal server error"
	default:
		return e.Message
	}
}

// CodeOf returns the machine readable code of err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStore {
		return e.Code
	}
	return ErrStore.Code
}
