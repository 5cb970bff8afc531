// Package service implements the authentication and user-management use
// cases on top of the repository stores.  Every operation returns either
// a value or an *Error tagged with a Kind; only the HTTP layer turns
// kinds into status codes.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/role-auth/internal/repository"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error is the tagged error returned by every service operation.  Message
// is safe to show to callers; Err holds the internal cause, if any.
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

func (e *Error) Unwrap() error { return e.Err }

func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }

// Internal wraps an unexpected failure.  The cause is never shown to callers.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err; errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// storeErr translates repository sentinels.  what names the entity for
// the not-found message, e.g. "user".
func storeErr(err error, what string) error {
	var e *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &e):
		return e
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(what + " not found")
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: what + " already exists", Err: err}
	case errors.Is(err, repository.ErrVersionConflict):
		return &Error{Kind: KindConflict, Message: what + " was modified concurrently, retry", Err: err}
	default:
		return Internal(err)
	}
}
