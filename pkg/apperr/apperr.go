// Package apperr carries client-safe HTTP errors from handlers and middleware to
// the echo error handler, which renders them as {message, code?}.
package apperr

import (
	"errors"
	"net/http"
)

// Rejection codes emitted by the auth gate.
const (
	CodeTokenMissing        = "TOKEN_MISSING"
	CodeInvalidTokenFormat  = "INVALID_TOKEN_FORMAT"
	CodeNoRefreshTokenFound = "NO_REFRESH_TOKEN_FOUND"
	CodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
	CodeTokenDecodeError    = "TOKEN_DECODE_ERROR"
	CodeAuthError           = "AUTH_ERROR"
)

// Error is returned by handlers. Cause is logged, never rendered.
type Error struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.Cause = cause
	return &cp
}

func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func Unauthenticated(code, msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Message: msg}
}

// Conflict uses 400 for duplicate signups and 409 elsewhere; the caller picks.
func Conflict(status int, msg string) *Error {
	return &Error{Status: status, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

func TooManyRequests(msg string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: msg}
}

func BadGateway(msg string) *Error {
	return &Error{Status: http.StatusBadGateway, Message: msg}
}

func Internal(cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Internal server error", Cause: cause}
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
