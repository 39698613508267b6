// Package errs provides the error type shared by every DataLink component.
//
// Stores wrap driver and transport failures into *errs.Error before
// returning them. Callers branch on the kind through the Is* predicates
// and never inspect driver-specific errors directly.
//
//	if errs.IsNotFound(err) {
//	    api.WriteError(w, http.StatusNotFound, err.Error(), "not_found")
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error independently of the backend that produced it.
type ErrKind int

const (
	ErrKindUnknown            ErrKind = iota
	ErrKindNotFound                   // id lookup missed
	ErrKindValidation                 // bad input from the caller
	ErrKindNoActiveConnection         // execution requested with nothing connected
	ErrKindEmptyQuery                 // blank SQL text
	ErrKindOperationFailed            // storage or transport failure
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindValidation:
		return "validation"
	case ErrKindNoActiveConnection:
		return "no_active_connection"
	case ErrKindEmptyQuery:
		return "empty_query"
	case ErrKindOperationFailed:
		return "operation_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by DataLink services and stores.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // underlying failure, kept for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// NotFound reports a missing entity, e.g. NotFound("connection", "42").
func NotFound(entity, id string) *Error {
	return &Error{Kind: ErrKindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// Validation reports invalid caller input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// OperationFailed wraps a storage or transport failure. A nil cause yields nil
// so it can wrap the result of a call directly.
func OperationFailed(msg string, cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return &Error{Kind: ErrKindOperationFailed, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a missed id lookup.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsValidation reports whether err was caused by bad input from the caller.
func IsValidation(err error) bool {
	return KindOf(err) == ErrKindValidation
}

// IsNoActiveConnection reports whether err was raised because no connection is active.
func IsNoActiveConnection(err error) bool {
	return KindOf(err) == ErrKindNoActiveConnection
}

// IsEmptyQuery reports whether err was raised for blank SQL text.
func IsEmptyQuery(err error) bool {
	return KindOf(err) == ErrKindEmptyQuery
}

// IsOperationFailed reports whether err is a storage or transport failure.
func IsOperationFailed(err error) bool {
	return KindOf(err) == ErrKindOperationFailed
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
