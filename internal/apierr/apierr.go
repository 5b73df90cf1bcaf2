// Package apierr defines the error kinds the service surfaces to HTTP
// clients and how they map onto status codes and response bodies.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the category of a request/job failure, per the error
// handling design in the spec.
type Kind string

const (
	Validation   Kind = "validation"
	Unauthorized Kind = "unauthorized"
	RateLimited  Kind = "rate-limited"
	Admission    Kind = "admission"
	Engine       Kind = "engine"
	Canceled     Kind = "canceled"
	NotFound     Kind = "not-found"
	Storage      Kind = "storage"
)

// Error is a request-facing error: a kind, an HTTP status, and a single
// sanitized message. It never carries the underlying cause in its
// public message — that goes to the log only.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Wrap attaches a Kind/status/message to an underlying error for
// logging while keeping the client-facing message terse.
func Wrap(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, cause: cause}
}

func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func Unauthorizedf() *Error {
	return New(Unauthorized, http.StatusUnauthorized, "unauthorized")
}

func RateLimitedf() *Error {
	return New(RateLimited, http.StatusTooManyRequests, "too many requests")
}

func Admissionf(msg string) *Error {
	return New(Admission, http.StatusTooManyRequests, msg)
}

func Enginef(cause error) *Error {
	return Wrap(Engine, http.StatusInternalServerError, "benchmark engine error", cause)
}

func NotFoundf(msg string) *Error {
	return New(NotFound, http.StatusNotFound, msg)
}

func Storagef(cause error) *Error {
	return Wrap(Storage, http.StatusInternalServerError, "storage unavailable", cause)
}

// As extracts an *Error from err, returning ok=false if err isn't one.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
