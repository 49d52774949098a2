package envexec

import (
	"errors"
	"fmt"
)

// Error is returned by environment operations that failed for a reason the
// submission is responsible for, or that the environment could not recover from
type Error struct {
	Status  Status
	Message string
}

// NewError creates an Error with formatted message
func NewError(s Status, format string, v ...any) *Error {
	return &Error{Status: s, Message: fmt.Sprintf(format, v...)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Message
}

// StatusOf returns the status carried by err.
// Errors not created by this package count as internal errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusAccepted
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return StatusInternalError
}

// MessageOf returns the bare message carried by err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
