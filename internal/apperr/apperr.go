package apperr

import (
	"errors"
	"net/http"
)

// Code is a stable machine-readable error code for client branching.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeDuplicateIdentity  Code = "DUPLICATE_IDENTITY"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeAuthTokenMissing   Code = "AUTH_TOKEN_MISSING"
	CodeInvalidToken       Code = "INVALID_TOKEN"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidIdentifier  Code = "INVALID_IDENTIFIER"
	CodeServer             Code = "SERVER_ERROR"
)

// HTTPStatus maps a code to its HTTP response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeDuplicateIdentity, CodeInvalidCredentials, CodeInvalidIdentifier:
		return http.StatusBadRequest
	case CodeAuthTokenMissing, CodeInvalidToken, CodeTokenExpired, CodeUserNotFound:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error type carrying a code, a human-readable message
// and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// ErrNotFound is a sentinel for errors.Is checks; matching is by code, so it
// matches any NOT_FOUND error regardless of message.
var ErrNotFound = New(CodeNotFound, "not found")

// From normalizes any error into a domain error. Errors outside the taxonomy
// become SERVER_ERROR with a generic message so internals never leak.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(CodeServer, "internal server error", err)
}
