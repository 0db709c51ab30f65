package apperrors

import (
	"errors"
	"net/http"
)

// Error is the single error type crossing the service/handler boundary.
// Status and Code drive the HTTP translation; Message is safe to show to
// clients. Err, when set, carries the internal cause and is only logged.
type Error struct {
	Status  int
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string, details ...string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

func Authentication(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "AUTHENTICATION_ERROR", Message: message}
}

func Authorization(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "AUTHORIZATION_ERROR", Message: message}
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message}
}

func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: "CONFLICT", Message: message}
}

func NotImplemented(message string) *Error {
	return &Error{Status: http.StatusNotImplemented, Code: "NOT_IMPLEMENTED", Message: message}
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "Internal server error", Err: err}
}

// From extracts an *Error from err, wrapping unknown errors as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
