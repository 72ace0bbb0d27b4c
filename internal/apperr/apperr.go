// Package apperr defines the error-kind taxonomy shared by every subsystem
// (spec §7): validation, not-found, rate-limited, timeout, external-service,
// integrity and fatal failures. Handlers compare kinds with errors.As, never
// by string matching, and the module executor always recovers handler
// errors into a ModuleResult instead of letting them propagate.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy from spec.md §7.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindRateLimited     Kind = "rate_limited"
	KindQueueFull       Kind = "queue_full"
	KindTimeout         Kind = "timeout"
	KindExternalService Kind = "external_service"
	KindIntegrity       Kind = "integrity"
	KindFatal           Kind = "fatal"
)

// Error is a kind-tagged application error. Field is set for validation
// errors to name the offending input field.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, apperr.ErrNotFound) style checks: it matches any
// *Error of the same Kind, so the Kind-only sentinels declared below work
// as errors.Is targets.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Field(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Field: field, Message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or "" if err is not (or does not wrap)
// an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Sentinels used with errors.Is against a matching Kind (see Error.Is).
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrQueueFull       = &Error{Kind: KindQueueFull}
	ErrTimeout         = &Error{Kind: KindTimeout}
	ErrExternalService = &Error{Kind: KindExternalService}
	ErrIntegrity       = &Error{Kind: KindIntegrity}
	ErrFatal           = &Error{Kind: KindFatal}
)
