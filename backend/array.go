// Package backend provides the numeric array engine used by the rest of
// gridskel. It exposes a small capability interface (Backend) with an eager
// and a lazy implementation, selected explicitly by configuration rather than
// inferred from the data. All arrays are dense row-major float64.
package backend

import "fmt"

// Array is a dense N-dimensional row-major float64 array.
// A zero-rank Array holds a single scalar value.
type Array struct {
	shape []int
	data  []float64
}

// NewArray creates an array with the given shape and data.
// The data length must match the product of the shape.
func NewArray(shape []int, data []float64) (*Array, error) {
	if len(data) != sizeOf(shape) {
		return nil, fmt.Errorf("array data length %d does not match shape %v", len(data), shape)
	}
	return &Array{shape: cloneInts(shape), data: data}, nil
}

// FromSlice creates a one-dimensional array from a slice of values.
func FromSlice(values []float64) *Array {
	data := make([]float64, len(values))
	copy(data, values)
	return &Array{shape: []int{len(values)}, data: data}
}

// Scalar creates a zero-rank array holding a single value.
func Scalar(value float64) *Array {
	return &Array{shape: nil, data: []float64{value}}
}

// FullArray creates an array of the given shape with every element set to value.
func FullArray(shape []int, value float64) *Array {
	data := make([]float64, sizeOf(shape))
	for i := range data {
		data[i] = value
	}
	return &Array{shape: cloneInts(shape), data: data}
}

// Shape returns a copy of the array's shape.
func (a *Array) Shape() []int { return cloneInts(a.shape) }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// Size returns the total number of elements.
func (a *Array) Size() int { return len(a.data) }

// Values returns a copy of the underlying data in row-major order.
func (a *Array) Values() []float64 {
	out := make([]float64, len(a.data))
	copy(out, a.data)
	return out
}

// Bools reinterprets the data as booleans: zero is false, anything else true.
func (a *Array) Bools() []bool {
	out := make([]bool, len(a.data))
	for i, v := range a.data {
		out[i] = v != 0
	}
	return out
}

// At returns the element at the given multi-index.
func (a *Array) At(idx ...int) (float64, error) {
	off, err := a.offset(idx)
	if err != nil {
		return 0, err
	}
	return a.data[off], nil
}

// Materialize implements Tensor. An Array is always fully evaluated.
func (a *Array) Materialize() (*Array, error) { return a, nil }

// IsScalar reports whether the array holds exactly one element.
func (a *Array) IsScalar() bool { return len(a.data) == 1 }

// Clone returns a deep copy of the array.
func (a *Array) Clone() *Array {
	return &Array{shape: cloneInts(a.shape), data: a.Values()}
}

func (a *Array) offset(idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("index rank %d does not match array rank %d", len(idx), len(a.shape))
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= a.shape[d] {
			return 0, fmt.Errorf("index %d out of range for dimension %d (length %d)", i, d, a.shape[d])
		}
		off = off*a.shape[d] + i
	}
	return off, nil
}

func sizeOf(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func cloneInts(s []int) []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(s))
	copy(out, s)
	return out
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
