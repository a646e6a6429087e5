package store

import "errors"

// Common store errors.
var (
	// ErrNotFound is returned when a field or coordinate is not stored.
	ErrNotFound = errors.New("field not found")

	// ErrDimMismatch is returned when data does not line up with the
	// declared dimensions of a field.
	ErrDimMismatch = errors.New("dimension mismatch")
)
