// Package errs defines the structured error returned by the note services.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind string

const (
	NotFound         Kind = "not_found"
	PermissionDenied Kind = "permission_denied"
	Conflict         Kind = "conflict"
	AlreadyExists    Kind = "already_exists"
	ValidationError  Kind = "validation_error"
)

// Error is a domain failure. Err optionally carries the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error

	// opaque keeps Err out of Error() while leaving it on the chain.
	opaque bool
}

func (e *Error) Error() string {
	if e.Err != nil && !e.opaque {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind that keeps err on the chain.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithDetail sets a detail key and returns e.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// KindOf reports the kind of the outermost domain error in err's chain.
func KindOf(err error) (Kind, bool) {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return "", false
	}
	return domainErr.Kind, true
}

// Is reports whether the outermost domain error in err's chain has kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsDomain reports whether err carries a domain error.
func IsDomain(err error) bool {
	_, ok := KindOf(err)
	return ok
}

// HideOwnership turns PermissionDenied into NotFound so a foreign caller
// cannot tell whether the resource exists. The original error stays wrapped
// for errors.Is and errors.As but is left out of the message.
func HideOwnership(err error) error {
	if !Is(err, PermissionDenied) {
		return err
	}
	var domainErr *Error
	errors.As(err, &domainErr)
	return &Error{Kind: NotFound, Message: domainErr.Message, Err: err, opaque: true}
}
