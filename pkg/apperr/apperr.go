// Package apperr defines the error taxonomy surfaced by the core to the HTTP
// boundary. Every error carries a machine-readable Code and a message; handlers
// map the code to a status with Code.HTTPStatus.
//
//	if errors.Is(err, apperr.ErrConflict) { ... }
//
//	var appErr *apperr.Error
//	if errors.As(err, &appErr) {
//	    c.JSON(appErr.HTTPStatus(), appErr)
//	}
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation       Code = "VALIDATION"
	CodeConflict         Code = "CONFLICT"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidCode      Code = "INVALID_CONFIRMATION_CODE"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL"
)

// HTTPStatus returns the status the boundary reports for the code. Conflicts
// and rejected code exchanges are client errors, reported as 400.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeConflict, CodeInvalidCode:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
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

// Is matches any *Error with the same Code, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

var (
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict        = &Error{Code: CodeConflict, Message: "conflict"}
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "authentication credentials were not provided"}
	ErrForbidden       = &Error{Code: CodeForbidden, Message: "you do not have permission to perform this action"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidCode     = &Error{Code: CodeInvalidCode, Message: "invalid username or confirmation code"}
	ErrInternal        = &Error{Code: CodeInternal, Message: "internal error"}
)

func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidCode reports a rejected code exchange. The message is fixed so the
// caller cannot tell a wrong code from a stale one.
func InvalidCode() *Error {
	return &Error{Code: CodeInvalidCode, Message: ErrInvalidCode.Message}
}

func MethodNotAllowed(method string) *Error {
	return &Error{Code: CodeMethodNotAllowed, Message: fmt.Sprintf("method %q not allowed", method)}
}

func RateLimited() *Error {
	return &Error{Code: CodeRateLimited, Message: "too many requests, try again later"}
}

func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
