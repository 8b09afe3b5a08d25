package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrTransientIO marks persistence and log failures. These are logged
	// and never returned from a mutation.
	ErrTransientIO = errors.New("transient io error")
)

// Error carries a human-readable message on top of one of the kinds above.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds an ErrNotFound for the named resource.
func NotFound(resource, id string) *Error {
	return &Error{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// InvalidInput builds an ErrInvalidInput.
func InvalidInput(message string) *Error {
	return &Error{Err: ErrInvalidInput, Message: message}
}

// PayloadTooLarge builds an ErrPayloadTooLarge for a ceiling in bytes.
func PayloadTooLarge(limit int64) *Error {
	return &Error{
		Err:     ErrPayloadTooLarge,
		Message: fmt.Sprintf("upload exceeds the %d bytes limit", limit),
	}
}

// TransientIO wraps a persistence or logging failure.
func TransientIO(op string, err error) *Error {
	return &Error{
		Err:     errors.Join(ErrTransientIO, err),
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}
