// Package store holds labeled N-dimensional arrays in memory. Every stored
// field carries the ordered names of its dimensions, and every dimension is
// backed by a coordinate value vector whose length fixes the axis length.
package store

import (
	"fmt"
	"sync"

	"github.com/c360studio/gridskel/backend"
)

// Entry is one stored field: a tensor plus the ordered dimension names its
// axes correspond to.
type Entry struct {
	Dims []string
	Data backend.Tensor
}

// Store is an in-memory labeled array store. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	coords     map[string][]float64
	coordOrder []string

	fields     map[string]Entry
	fieldOrder []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		coords: make(map[string][]float64),
		fields: make(map[string]Entry),
	}
}

// SetCoord installs the value vector of a coordinate axis. The vector length
// becomes the axis length for every field spanning that dimension.
func (s *Store) SetCoord(name string, values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("coordinate %q: value vector must not be empty", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.coords[name]; !ok {
		s.coordOrder = append(s.coordOrder, name)
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	s.coords[name] = cp
	return nil
}

// CoordValues returns a copy of the value vector of a coordinate axis.
func (s *Store) CoordValues(name string) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.coords[name]
	if !ok {
		return nil, fmt.Errorf("coordinate %q: %w", name, ErrNotFound)
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	return cp, nil
}

// CoordLength returns the axis length of a coordinate.
func (s *Store) CoordLength(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.coords[name]
	if !ok {
		return 0, fmt.Errorf("coordinate %q: %w", name, ErrNotFound)
	}
	return len(values), nil
}

// CoordIndex returns the position of value along the named coordinate axis.
func (s *Store) CoordIndex(name string, value float64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.coords[name]
	if !ok {
		return 0, fmt.Errorf("coordinate %q: %w", name, ErrNotFound)
	}
	for i, v := range values {
		if v == value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("coordinate %q has no value %v: %w", name, value, ErrNotFound)
}

// Lengths resolves the axis lengths of the named coordinates, in order.
func (s *Store) Lengths(names []string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		n, err := s.CoordLength(name)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// SetField stores a tensor under name with the given dimension names. The
// tensor shape must match the coordinate lengths axis by axis.
func (s *Store) SetField(name string, dims []string, data backend.Tensor) error {
	want, err := s.Lengths(dims)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	shape := data.Shape()
	if len(shape) != len(want) {
		return fmt.Errorf("field %q: %d axes for %d dimensions: %w", name, len(shape), len(want), ErrDimMismatch)
	}
	for i, n := range want {
		if shape[i] != n {
			return fmt.Errorf("field %q: axis %d (%s) has length %d, coordinate has %d: %w",
				name, i, dims[i], shape[i], n, ErrDimMismatch)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fields[name]; !ok {
		s.fieldOrder = append(s.fieldOrder, name)
	}
	cp := make([]string, len(dims))
	copy(cp, dims)
	s.fields[name] = Entry{Dims: cp, Data: data}
	return nil
}

// Field returns the stored tensor and its dimension names.
func (s *Store) Field(name string) (backend.Tensor, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.fields[name]
	if !ok {
		return nil, nil, fmt.Errorf("field %q: %w", name, ErrNotFound)
	}
	dims := make([]string, len(entry.Dims))
	copy(dims, entry.Dims)
	return entry.Data, dims, nil
}

// Has reports whether a field is stored.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.fields[name]
	return ok
}

// Names returns the stored field names in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.fieldOrder))
	copy(out, s.fieldOrder)
	return out
}

// Slice extracts the hyperslab of a field at one index along a named
// dimension. The result drops that axis.
func (s *Store) Slice(name, dim string, index int) (*backend.Array, error) {
	s.mu.RLock()
	entry, ok := s.fields[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("field %q: %w", name, ErrNotFound)
	}

	axis := dimAxis(entry.Dims, dim)
	if axis < 0 {
		return nil, fmt.Errorf("field %q has no dimension %q: %w", name, dim, ErrDimMismatch)
	}

	arr, err := entry.Data.Materialize()
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return sliceAxis(arr, axis, index)
}

// WriteSlab replaces the hyperslab of a field at one index along a named
// dimension. The slab shape must match the field shape with that axis dropped.
// The stored tensor is copied before mutation, so earlier reads stay valid.
func (s *Store) WriteSlab(name, dim string, index int, slab *backend.Array) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.fields[name]
	if !ok {
		return fmt.Errorf("field %q: %w", name, ErrNotFound)
	}

	axis := dimAxis(entry.Dims, dim)
	if axis < 0 {
		return fmt.Errorf("field %q has no dimension %q: %w", name, dim, ErrDimMismatch)
	}

	arr, err := entry.Data.Materialize()
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	updated, err := writeSlabAxis(arr, axis, index, slab)
	if err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	entry.Data = updated
	s.fields[name] = entry
	return nil
}

// Clone returns a deep copy of the store. Stored tensors are shared, which is
// safe because WriteSlab replaces a tensor instead of mutating it in place.
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := New()
	for _, name := range s.coordOrder {
		values := s.coords[name]
		cp := make([]float64, len(values))
		copy(cp, values)
		out.coords[name] = cp
		out.coordOrder = append(out.coordOrder, name)
	}
	for _, name := range s.fieldOrder {
		entry := s.fields[name]
		dims := make([]string, len(entry.Dims))
		copy(dims, entry.Dims)
		out.fields[name] = Entry{Dims: dims, Data: entry.Data}
		out.fieldOrder = append(out.fieldOrder, name)
	}
	return out
}

func dimAxis(dims []string, dim string) int {
	for i, d := range dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// sliceAxis copies out the values at one index along axis, dropping the axis.
func sliceAxis(arr *backend.Array, axis, index int) (*backend.Array, error) {
	shape := arr.Shape()
	if index < 0 || index >= shape[axis] {
		return nil, fmt.Errorf("index %d out of range for axis of length %d", index, shape[axis])
	}

	outShape := make([]int, 0, len(shape)-1)
	outShape = append(outShape, shape[:axis]...)
	outShape = append(outShape, shape[axis+1:]...)

	outer := 1
	for _, n := range shape[:axis] {
		outer *= n
	}
	inner := 1
	for _, n := range shape[axis+1:] {
		inner *= n
	}

	src := arr.Values()
	dst := make([]float64, outer*inner)
	for o := 0; o < outer; o++ {
		base := (o*shape[axis] + index) * inner
		copy(dst[o*inner:(o+1)*inner], src[base:base+inner])
	}
	return backend.NewArray(outShape, dst)
}

// writeSlabAxis returns a copy of arr with the slab written at one index
// along axis.
func writeSlabAxis(arr *backend.Array, axis, index int, slab *backend.Array) (*backend.Array, error) {
	shape := arr.Shape()
	if index < 0 || index >= shape[axis] {
		return nil, fmt.Errorf("index %d out of range for axis of length %d", index, shape[axis])
	}

	wantShape := make([]int, 0, len(shape)-1)
	wantShape = append(wantShape, shape[:axis]...)
	wantShape = append(wantShape, shape[axis+1:]...)
	got := slab.Shape()
	if len(got) != len(wantShape) {
		return nil, fmt.Errorf("slab has %d axes, want %d: %w", len(got), len(wantShape), ErrDimMismatch)
	}
	for i, n := range wantShape {
		if got[i] != n {
			return nil, fmt.Errorf("slab axis %d has length %d, want %d: %w", i, got[i], n, ErrDimMismatch)
		}
	}

	outer := 1
	for _, n := range shape[:axis] {
		outer *= n
	}
	inner := 1
	for _, n := range shape[axis+1:] {
		inner *= n
	}

	dst := arr.Values()
	src := slab.Values()
	for o := 0; o < outer; o++ {
		base := (o*shape[axis] + index) * inner
		copy(dst[base:base+inner], src[o*inner:(o+1)*inner])
	}
	return backend.NewArray(shape, dst)
}
