package skeleton

import (
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/gridskel/backend"
	"github.com/c360studio/gridskel/reshape"
	"github.com/c360studio/gridskel/schema"
	"github.com/c360studio/gridskel/store"
)

// GetOption configures one Get call.
type GetOption func(*getOptions)

type getOptions struct {
	empty     bool
	noSqueeze bool
	dirType   schema.DirType
}

// Empty makes Get return a default-filled array when the field has never
// been written, instead of failing.
func Empty() GetOption {
	return func(o *getOptions) { o.empty = true }
}

// NoSqueeze returns the field over its full coordinate list, keeping
// trivial axes.
func NoSqueeze() GetOption {
	return func(o *getOptions) { o.noSqueeze = true }
}

// InConvention reads a direction in the given convention instead of the
// one it was declared with.
func InConvention(dirType schema.DirType) GetOption {
	return func(o *getOptions) { o.dirType = dirType }
}

// Get reads a field. Magnitudes and directions are recomposed from their
// stored Cartesian components on every read. Trivial axes are squeezed out
// unless NoSqueeze is given, with the spatial axes protected so a
// single-point result never collapses to a bare scalar. Reading an unset
// field fails with store.ErrNotFound unless Empty is given.
func (s *Skeleton) Get(name string, opts ...GetOption) (arr *backend.Array, dims []string, err error) {
	start := time.Now()
	defer func() { s.m.ObserveOp("get", time.Since(start), err) }()

	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}

	entity := s.reg.Lookup(name)
	if entity == nil {
		return nil, nil, &schema.UnknownCoordinateError{Name: name}
	}

	if c, ok := entity.(*schema.Coordinate); ok {
		values, err := s.store.CoordValues(c.Name)
		if err != nil {
			return nil, nil, err
		}
		return backend.FromSlice(values), []string{c.Name}, nil
	}

	coords, want, err := s.fieldLayout(name)
	if err != nil {
		return nil, nil, err
	}

	tensor, err := s.fieldTensor(entity, coords, want, o)
	if err != nil {
		return nil, nil, err
	}
	dims = coords

	if !o.noSqueeze {
		spatial, err := s.reg.Coords(schema.GroupSpatial)
		if err != nil {
			return nil, nil, err
		}
		tensor, dims = reshape.SmartSqueeze(s.b, tensor, dims, spatial)
	}

	arr, err = tensor.Materialize()
	if err != nil {
		return nil, nil, fmt.Errorf("get %q: %w", name, err)
	}
	return arr, dims, nil
}

// Mask reads a mask field as booleans.
func (s *Skeleton) Mask(name string, opts ...GetOption) ([]bool, []string, error) {
	if _, ok := s.reg.Lookup(name).(*schema.GridMask); !ok {
		return nil, nil, fmt.Errorf("%q is not a mask", name)
	}
	arr, dims, err := s.Get(name, opts...)
	if err != nil {
		return nil, nil, err
	}
	return arr.Bools(), dims, nil
}

func (s *Skeleton) fieldTensor(entity schema.Entity, coords []string, want []int, o getOptions) (backend.Tensor, error) {
	switch e := entity.(type) {
	case *schema.DataVar, *schema.GridMask:
		tensor, _, err := s.store.Field(entity.EntityName())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) && o.empty {
				def, derr := s.reg.DefaultValue(entity.EntityName())
				if derr != nil {
					return nil, derr
				}
				return s.b.Full(want, def), nil
			}
			return nil, err
		}
		return tensor, nil

	case *schema.Magnitude:
		x, y, err := s.readComponents(e.X, e.Y, want, o)
		if err != nil {
			return nil, fmt.Errorf("get %q: %w", e.Name, err)
		}
		return s.engine.Magnitude(x, y), nil

	case *schema.Direction:
		x, y, err := s.readComponents(e.X, e.Y, want, o)
		if err != nil {
			return nil, fmt.Errorf("get %q: %w", e.Name, err)
		}
		dirType := e.DirType
		if o.dirType != "" {
			dirType = o.dirType
		}
		return s.engine.Direction(x, y, dirType)

	default:
		return nil, fmt.Errorf("field %q (%s) cannot be read", entity.EntityName(), entity.Kind())
	}
}

// readComponents is componentTensors with the Empty policy applied: a pair
// with neither component written becomes a pair of default-filled arrays
// when the caller asked for an empty read. A half-set pair still errors,
// so stored data is never mixed with defaults.
func (s *Skeleton) readComponents(xName, yName string, want []int, o getOptions) (x, y backend.Tensor, err error) {
	if !o.empty || s.store.Has(xName) || s.store.Has(yName) {
		return s.componentTensors(xName, yName)
	}

	xDef, err := s.reg.DefaultValue(xName)
	if err != nil {
		return nil, nil, err
	}
	yDef, err := s.reg.DefaultValue(yName)
	if err != nil {
		return nil, nil, err
	}
	return s.b.Full(want, xDef), s.b.Full(want, yDef), nil
}

// EmptyVars lists the declared data variables that have never been written.
func (s *Skeleton) EmptyVars() []string {
	return s.unsetOf(schema.KindDataVar)
}

// EmptyMasks lists the declared masks that have never been written.
func (s *Skeleton) EmptyMasks() []string {
	return s.unsetOf(schema.KindMask)
}

func (s *Skeleton) unsetOf(kind schema.Kind) []string {
	var out []string
	for _, name := range s.reg.ByKind(kind) {
		if !s.store.Has(name) {
			out = append(out, name)
		}
	}
	return out
}
