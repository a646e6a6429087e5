package skeleton

import "errors"

// Common skeleton errors.
var (
	// ErrComponentUnset is returned when a magnitude or direction is set or
	// read while its Cartesian components have never been written.
	ErrComponentUnset = errors.New("paired component variables are unset")

	// ErrNotSettable is returned when writing a field that only accepts
	// derived values, such as a coordinate or an opposite mask.
	ErrNotSettable = errors.New("field is not settable")
)
