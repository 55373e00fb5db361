// Package apperr is the error taxonomy shared by the services and the HTTP
// layer. Each error carries a kind that maps to one response status.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
)

// Error is a message tagged with one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Is(target error) bool { return target == e.Kind }

// ValidationError aggregates per-field messages collected before any mutation.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Add(msg string) {
	e.Messages = append(e.Messages, msg)
}

// Err returns nil when no message was collected.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Messages) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func Invalid(messages ...string) error {
	return &ValidationError{Messages: messages}
}

// StoreError wraps a storage failure so callers only see the Internal kind.
type StoreError struct {
	Op  string
	Err error
}

func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrInternal }

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Messages returns what may be shown to a caller. Internal errors collapse
// into a generic message.
func Messages(err error) (string, []string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ErrInvalidInput.Error(), verr.Messages
	}
	if Status(err) == http.StatusInternalServerError {
		return ErrInternal.Error(), nil
	}
	return err.Error(), nil
}
