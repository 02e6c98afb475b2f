// Package apperr carries the HTTP status and response code of an error from
// the layer that knows what went wrong to the middleware that writes it.
package apperr

import (
	"errors"
	"net/http"
)

const (
	CodeBadRequest      = 40000
	CodeUnauthorized    = 40100
	CodeNotFound        = 40400
	CodeMealNotFound    = 40401
	CodeInternalServer  = 50000
	CodeUpstreamFailure = 50200
	CodeUpstreamTimeout = 50400
)

type Error struct {
	Status  int
	Code    int
	Message string
	Err     error
}

func New(status, code int, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap attaches a status to err while keeping it inspectable with errors.Is.
func Wrap(err error, status, code int, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// From resolves the status, code and client-facing message for err. Errors
// that carry no status are internal failures and get a generic message.
func From(err error) (status, code int, message string) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, CodeInternalServer, "internal server error"
}
