// Package apperr defines the error taxonomy shared by the folder engine and its surfaces.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation marks a rejected operation that left state untouched.
	ErrValidation = errors.New("validation failed")
	// ErrParse marks malformed input such as an unreadable import payload.
	ErrParse = errors.New("parse error")
)

// Validation subtypes. Each one also matches ErrValidation under errors.Is.
var (
	ErrProtected  = &validationError{msg: "protected folder"}
	ErrDepthLimit = &validationError{msg: "folder depth limit reached"}
	ErrCycle      = &validationError{msg: "folder cannot be moved into itself or its descendants"}
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool {
	return target == ErrValidation || target == e
}

// IsUserFacing reports whether err belongs to the classes surfaced to users
// as notifications (validation and parse errors).
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrParse)
}
