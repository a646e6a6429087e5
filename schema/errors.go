package schema

import "fmt"

// DuplicateFieldError is returned when a registration reuses a name that is
// already taken by any entity kind, including a mask's opposite.
type DuplicateFieldError struct {
	Name string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("field %q is already registered", e.Name)
}

// UnknownCoordinateError is returned when a coordinate, field or coordinate
// group cannot be resolved against the registry.
type UnknownCoordinateError struct {
	Name string
}

func (e *UnknownCoordinateError) Error() string {
	return fmt.Sprintf("unknown coordinate or field %q", e.Name)
}

// InvalidRangeError is returned when a trigger range does not have exactly
// two bounds, or its inclusivity flags are malformed.
type InvalidRangeError struct {
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid trigger range: %s", e.Reason)
}

// InvalidDirectionTypeError is returned for a direction convention outside
// math, to and from.
type InvalidDirectionTypeError struct {
	DirType string
}

func (e *InvalidDirectionTypeError) Error() string {
	return fmt.Sprintf("invalid direction type %q: must be math, to or from", e.DirType)
}
