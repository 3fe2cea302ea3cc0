package state

import "errors"

var (
	// ErrInvalidPath is returned for empty keys or keys containing a dot.
	ErrInvalidPath = errors.New("invalid state path")

	// ErrNilListener is returned when subscribing a nil callback.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrInvalidSnapshot is returned when a snapshot fails validation.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrValidation is returned when a value violates a validation rule.
	ErrValidation = errors.New("state validation failed")
)
