package core

import (
	pkgerrors "github.com/pkg/errors"
)

// ErrIncompleteMessage rejects an upstream message missing required fields.
// The message is dropped without retry; the sender owns redelivery.
var ErrIncompleteMessage = pkgerrors.New("incomplete message")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := pkgerrors.Cause(err).(*shutdown)
	return ok
}
