package core

import (
	"fmt"

	"github.com/pkg/errors"
)

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
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// InvalidValueError is raised when a submitted value does not have the shape expected by its target.
type InvalidValueError struct {
	Value  interface{}
	Reason string
}

func NewInvalidValueError(value interface{}, reason string, args ...interface{}) error {
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	return &InvalidValueError{Value: value, Reason: reason}
}

func (err InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %v: %s", err.Value, err.Reason)
}

func IsInvalidValue(err error) bool {
	_, ok := errors.Cause(err).(*InvalidValueError)
	return ok
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
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
