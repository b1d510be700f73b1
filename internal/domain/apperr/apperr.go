// Package apperr is the error taxonomy shared by services, integrations and
// the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindState       Kind = "state"
	KindForbidden   Kind = "forbidden"
	KindTransaction Kind = "transaction"
	KindIntegration Kind = "integration"
	KindInternal    Kind = "internal"
)

// Error carries a Kind, a caller-facing message and an optional cause
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrState       = &Error{Kind: KindState}
	ErrForbidden   = &Error{Kind: KindForbidden}
	ErrTransaction = &Error{Kind: KindTransaction}
)

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds "<what> <id> not found"
func NotFound(what string, id int64) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", what, id)}
}

func State(format string, args ...interface{}) error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Transaction wraps a failure that caused a rollback
func Transaction(op string, err error) error {
	return &Error{Kind: KindTransaction, Message: op + " failed and was rolled back", Err: err}
}

// Integration wraps a failure inside an event handler
func Integration(handler string, err error) error {
	return &Error{Kind: KindIntegration, Message: handler, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of the first *Error in the chain
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// IsClientError reports whether err should be surfaced as a client mistake
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotFound, KindState, KindForbidden:
		return true
	}
	return false
}
