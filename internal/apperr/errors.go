// Package apperr provides a small code-tagged error type used across the
// registry so the HTTP layer can translate a failure into the right status
// code without string-matching error messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for the purpose of choosing an HTTP status and a
// stable machine-readable error identifier.
type Code string

const (
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeInternal   Code = "internal"
)

// Error is a code-tagged error. It wraps an underlying cause when one is
// available so callers can still errors.Is/errors.As through it.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New constructs an *Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs an *Error carrying cause as its underlying error. Wrapping
// a nil cause is a programmer error and panics, mirroring the standard
// library's fmt.Errorf("%w", nil) footgun rather than hiding it.
func Wrap(cause error, code Code, message string) *Error {
	if cause == nil {
		panic("apperr: Wrap called with nil cause")
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err is, or wraps, an *Error carrying code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the Code from err, defaulting to CodeInternal for errors
// that were never tagged.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a Code to the status the HTTP layer should write.
// Unrecognized codes default to 500, matching the "unknown failure" case.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
