package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindPermissionDenied
	KindStorageInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindPermissionDenied:
		return "permission_denied"
	case KindStorageInconsistency:
		return "storage_inconsistency"
	default:
		return "unknown"
	}
}

// Error carries a kind alongside the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

// Error returns the bare message; the kind travels separately so that it
// can map to a response status without leaking into user-facing text.
func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

func PermissionDenied(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermissionDenied, Err: fmt.Errorf(format, args...)}
}

func StorageInconsistency(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStorageInconsistency, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus returns the status code for err, defaulting to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
