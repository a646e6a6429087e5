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

// SetOption configures one Set call.
type SetOption func(*setOptions)

type setOptions struct {
	dims []string
}

// WithDims labels the axes of the incoming data so coercion can reorder
// them into the field's canonical dimension order.
func WithDims(dims ...string) SetOption {
	return func(o *setOptions) { o.dims = dims }
}

// stagedWrite is one store mutation computed during Set, committed only
// after every write of the call has validated.
type stagedWrite struct {
	name string
	dims []string
	data backend.Tensor
}

// Set writes a field. The value is coerced into the field's resolved shape;
// magnitudes and directions are decomposed into their Cartesian components
// and never stored directly; mask triggers registered against any written
// variable fire in registration order, one level deep. Either every write
// of the call reaches the store or none does.
func (s *Skeleton) Set(name string, data backend.Tensor, opts ...SetOption) (err error) {
	start := time.Now()
	defer func() { s.m.ObserveOp("set", time.Since(start), err) }()

	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	entity := s.reg.Lookup(name)
	if entity == nil {
		return &schema.UnknownCoordinateError{Name: name}
	}
	if !s.reg.IsSettable(name) {
		return fmt.Errorf("%q: %w", name, ErrNotSettable)
	}

	coords, want, err := s.fieldLayout(name)
	if err != nil {
		return err
	}
	coerced, err := reshape.Coerce(s.b, data, o.dims, want, coords)
	if err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}

	writes, err := s.stageWrites(entity, coords, coerced)
	if err != nil {
		return err
	}
	triggered, err := s.stageTriggers(writes)
	if err != nil {
		return err
	}
	writes = append(writes, triggered...)

	// Preflight every write so the commit loop cannot fail halfway.
	for _, w := range writes {
		lengths, err := s.store.Lengths(w.dims)
		if err != nil {
			return err
		}
		shape := w.data.Shape()
		if len(shape) != len(lengths) {
			return &reshape.ShapeMismatchError{Got: shape, Want: lengths}
		}
		for i, n := range lengths {
			if shape[i] != n {
				return &reshape.ShapeMismatchError{Got: shape, Want: lengths}
			}
		}
	}
	for _, w := range writes {
		if err := s.store.SetField(w.name, w.dims, w.data); err != nil {
			return err
		}
	}

	s.logger.Debug("set field", "name", name, "shape", want, "writes", len(writes))
	return nil
}

// stageWrites turns one coerced value into the store mutations it implies
// for the entity kind.
func (s *Skeleton) stageWrites(entity schema.Entity, coords []string, data backend.Tensor) ([]stagedWrite, error) {
	switch e := entity.(type) {
	case *schema.DataVar:
		return []stagedWrite{{e.Name, coords, data}}, nil

	case *schema.GridMask:
		// Stored masks are 0/1; any nonzero input counts as set.
		ones := s.b.Not(s.b.Not(data))
		writes := []stagedWrite{{e.Name, coords, ones}}
		if e.Opposite != "" {
			writes = append(writes, stagedWrite{e.Opposite, coords, s.b.Not(ones)})
		}
		return writes, nil

	case *schema.Magnitude:
		x, y, err := s.componentTensors(e.X, e.Y)
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", e.Name, err)
		}
		// Preserve the current direction, scale to the new magnitude.
		dir, err := s.engine.Direction(x, y, schema.DirMath)
		if err != nil {
			return nil, err
		}
		nx, ny, err := s.engine.Decompose(data, dir, schema.DirMath)
		if err != nil {
			return nil, err
		}
		return []stagedWrite{{e.X, coords, nx}, {e.Y, coords, ny}}, nil

	case *schema.Direction:
		x, y, err := s.componentTensors(e.X, e.Y)
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", e.Name, err)
		}
		// Preserve the current magnitude, rotate to the new direction.
		nx, ny, err := s.engine.Decompose(s.engine.Magnitude(x, y), data, e.DirType)
		if err != nil {
			return nil, err
		}
		return []stagedWrite{{e.X, coords, nx}, {e.Y, coords, ny}}, nil

	default:
		return nil, fmt.Errorf("%q: %w", entity.EntityName(), ErrNotSettable)
	}
}

// stageTriggers computes the mask writes fired by the staged variable
// writes. Each computed mask is coerced into the mask's own coordinate
// group, so a trigger variable over a wider group fails the whole Set
// rather than committing a mask with the variable's shape. Triggered masks
// never fire further triggers.
func (s *Skeleton) stageTriggers(writes []stagedWrite) ([]stagedWrite, error) {
	var out []stagedWrite
	for _, w := range writes {
		for _, tr := range s.reg.Triggers(w.name) {
			coords, want, err := s.fieldLayout(tr.MaskName)
			if err != nil {
				return nil, err
			}
			mask, err := reshape.Coerce(s.b, s.maskFromRange(w.data, tr), w.dims, want, coords)
			if err != nil {
				return nil, fmt.Errorf("trigger %q on write of %q: %w", tr.MaskName, w.name, err)
			}
			out = append(out, stagedWrite{tr.MaskName, coords, mask})
			if m, ok := s.reg.Lookup(tr.MaskName).(*schema.GridMask); ok && m.Opposite != "" {
				out = append(out, stagedWrite{m.Opposite, coords, s.b.Not(mask)})
			}
			s.m.TriggerFired()
			s.logger.Debug("mask trigger fired", "variable", w.name, "mask", tr.MaskName)
		}
	}
	return out, nil
}

func (s *Skeleton) maskFromRange(data backend.Tensor, tr schema.Trigger) backend.Tensor {
	var low, high backend.Tensor
	if tr.RangeInclusive[0] {
		low = s.b.Ge(data, tr.ValidRange[0])
	} else {
		low = s.b.Gt(data, tr.ValidRange[0])
	}
	if tr.RangeInclusive[1] {
		high = s.b.Le(data, tr.ValidRange[1])
	} else {
		high = s.b.Lt(data, tr.ValidRange[1])
	}
	return s.b.And(low, high)
}

// componentTensors fetches the stored Cartesian components of a vector
// pair. Both must have been written at least once.
func (s *Skeleton) componentTensors(xName, yName string) (x, y backend.Tensor, err error) {
	x, _, err = s.store.Field(xName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("component %q: %w", xName, ErrComponentUnset)
		}
		return nil, nil, err
	}
	y, _, err = s.store.Field(yName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("component %q: %w", yName, ErrComponentUnset)
		}
		return nil, nil, err
	}
	return x, y, nil
}
