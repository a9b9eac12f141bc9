// Package apperr defines the error kinds the API exposes to clients and the
// HTTP status each one maps to.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the client.
type Kind int

const (
	Unavailable Kind = iota
	InvalidInput
	AddressNotFound
	EmailInUse
	InvalidFileType
	FileTooLarge
	NotFound
	Unauthorized
	Forbidden
	AuthenticationFailed
	TooManyRequests
	TransactionFailed
)

var kindNames = map[Kind]string{
	Unavailable:          "unavailable",
	InvalidInput:         "invalid input",
	AddressNotFound:      "address not found",
	EmailInUse:           "email in use",
	InvalidFileType:      "invalid file type",
	FileTooLarge:         "file too large",
	NotFound:             "not found",
	Unauthorized:         "unauthorized",
	Forbidden:            "forbidden",
	AuthenticationFailed: "authentication failed",
	TooManyRequests:      "too many requests",
	TransactionFailed:    "transaction failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case InvalidInput, AddressNotFound, EmailInUse, InvalidFileType:
		return http.StatusUnprocessableEntity
	case FileTooLarge:
		return http.StatusRequestEntityTooLarge
	case NotFound:
		return http.StatusNotFound
	case Unauthorized, Forbidden:
		// Ownership failures answer 401 like token failures do.
		return http.StatusUnauthorized
	case AuthenticationFailed:
		return http.StatusForbidden
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is an error with a client-safe message. Err keeps the cause for logs
// and is never sent to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status is shorthand for e.Kind.Status().
func (e *Error) Status() int { return e.Kind.Status() }

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
