package reshape

import "fmt"

// ShapeMismatchError is returned when incoming data cannot be reconciled
// with a field's expected shape by any of the coercion strategies.
type ShapeMismatchError struct {
	Got  []int
	Want []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("data shape %v cannot be coerced to expected shape %v", e.Got, e.Want)
}
