// Package apperrors defines the error taxonomy shared by services and
// handlers.  Services return *Error values carrying a Kind; the HTTP layer
// maps the Kind to a status code and never inspects message text.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies a failure so callers branch on it instead of on messages.
type Kind int

const (
	Internal Kind = iota
	InvalidInput
	Conflict
	Unauthorized
	InvalidCredentials
	NoPassword
	Forbidden
	NotFound
	UpstreamUnavailable
)

// CodeNoPassword lets the client offer "continue with Google" instead of a
// generic credentials error.
const CodeNoPassword = "ACCOUNT_HAS_NO_PASSWORD"

// Error is a classified application error.  Message is safe to show to
// clients; Err holds the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches a kind and public message to an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NewInvalidInput(msg string) *Error       { return New(InvalidInput, msg) }
func NewConflict(msg string) *Error           { return New(Conflict, msg) }
func NewUnauthorized(msg string) *Error       { return New(Unauthorized, msg) }
func NewInvalidCredentials(msg string) *Error { return New(InvalidCredentials, msg) }
func NewNoPassword(msg string) *Error         { return New(NoPassword, msg) }
func NewForbidden(msg string) *Error          { return New(Forbidden, msg) }
func NewNotFound(msg string) *Error           { return New(NotFound, msg) }

// NewInternal hides err behind a generic message.
func NewInternal(err error) *Error { return Wrap(Internal, "internal server error", err) }

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// HTTPStatus maps a Kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case Unauthorized, InvalidCredentials:
		return http.StatusUnauthorized
	case NoPassword, Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case UpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable code for kinds the client branches on.
func Code(kind Kind) string {
	if kind == NoPassword {
		return CodeNoPassword
	}
	return ""
}

// PublicMessage returns the message for err that is safe to send to a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "internal server error"
}
