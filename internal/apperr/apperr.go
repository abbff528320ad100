// Package apperr holds the application's error taxonomy. Operational errors
// carry an HTTP status and a message that is safe to show to clients;
// everything else is treated as a programming error and hidden in production.
package apperr

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// AppError is an error with an HTTP status attached.
type AppError struct {
	StatusCode  int    `json:"statusCode"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Operational bool   `json:"isOperational"`
	Err         error  `json:"-"`
	Stack       string `json:"-"`
}

// New builds an operational error. 4xx codes get status "fail", the rest "error".
func New(code int, msg string) *AppError {
	return &AppError{
		StatusCode:  code,
		Status:      statusFor(code),
		Message:     msg,
		Operational: true,
		Stack:       callers(3),
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func BadRequest(msg string) *AppError   { return New(http.StatusBadRequest, msg) }
func Unauthorized(msg string) *AppError { return New(http.StatusUnauthorized, msg) }
func Forbidden(msg string) *AppError    { return New(http.StatusForbidden, msg) }
func NotFound(msg string) *AppError     { return New(http.StatusNotFound, msg) }

// Internal wraps an unexpected error. It is not operational, so production
// responses replace the message with a generic one.
func Internal(err error) *AppError {
	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Status:     "error",
		Message:    err.Error(),
		Err:        err,
		Stack:      callers(3),
	}
}

// ServerError is an operational 500, used when the failure is expected and
// the message is safe (e.g. the mail outbox is down).
func ServerError(msg string, err error) *AppError {
	e := New(http.StatusInternalServerError, msg)
	e.Err = err
	return e
}

// CastError reports a value that could not be converted to the type of the
// field it targets, e.g. a non-numeric id.
type CastError struct {
	Path  string
	Value string
	Err   error
}

func (e *CastError) Error() string { return fmt.Sprintf("Invalid %s: %s", e.Path, e.Value) }
func (e *CastError) Unwrap() error { return e.Err }

func statusFor(code int) string {
	if code >= 400 && code < 500 {
		return "fail"
	}
	return "error"
}

func callers(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var b strings.Builder
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}
