// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer middleware
// automatically maps them to appropriate HTTP status codes. The CLI wrapper
// maps the same kinds to process exit codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindValidation indicates invalid input data (bad ZIP, bad assumption enum).
	KindValidation
	// KindSourceUnreadable indicates the uploaded PDF cannot be processed
	// (encrypted, invalid header, zero pages, too many pages).
	KindSourceUnreadable
	// KindScaleConflict indicates an attempt to rewrite the locked run scale.
	// This is a programmer error, not a data error.
	KindScaleConflict
	// KindTimedOut indicates the run deadline elapsed before completion.
	KindTimedOut
	// KindNotFound indicates a resource was not found (run id, blob ref).
	KindNotFound
	// KindInternal indicates an unexpected internal error or broken invariant.
	KindInternal
)

// Exit codes for the CLI wrapper.
const (
	ExitOK               = 0
	ExitNeedsInput       = 2
	ExitSourceUnreadable = 3
	ExitTimedOut         = 4
	ExitInternal         = 5
)

// Error is a domain error with a typed Kind for HTTP and exit-code mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindSourceUnreadable:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindTimedOut:
		return http.StatusGatewayTimeout
	case KindScaleConflict, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// ExitCode returns the CLI exit code for this error kind.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindSourceUnreadable:
		return ExitSourceUnreadable
	case KindTimedOut:
		return ExitTimedOut
	default:
		return ExitInternal
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// SourceUnreadable creates a source-unreadable error.
func SourceUnreadable(message string) *Error {
	return New(KindSourceUnreadable, message)
}

// ScaleConflict creates a scale-conflict error.
func ScaleConflict(message string) *Error {
	return New(KindScaleConflict, message)
}

// TimedOut creates a timed-out error.
func TimedOut(message string) *Error {
	return New(KindTimedOut, message)
}

// NotFound creates a not-found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Internal creates an internal error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
