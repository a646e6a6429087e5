// Package vector converts between the Cartesian components of a vector
// field and its polar magnitude/direction form. Directions are handled in
// degrees under three conventions: math (counter-clockwise from the +x
// axis), to (compass bearing the vector points toward) and from (compass
// bearing it originates from).
package vector

import (
	"math"

	"github.com/c360studio/gridskel/backend"
	"github.com/c360studio/gridskel/schema"
)

const (
	degPerRad = 180 / math.Pi
	radPerDeg = math.Pi / 180
)

// Engine performs the conversions on a numeric backend, so the work is
// deferred when the backend is lazy.
type Engine struct {
	b backend.Backend
}

// New creates an engine on the given backend.
func New(b backend.Backend) *Engine {
	return &Engine{b: b}
}

// ToMath converts an angle in degrees from dirType to the math convention.
// The compass conversions are their own inverses, so FromMath is the same
// transformation.
func (e *Engine) ToMath(angle backend.Tensor, dirType schema.DirType) (backend.Tensor, error) {
	switch dirType {
	case schema.DirMath:
		return angle, nil
	case schema.DirTo:
		// (90 - angle) mod 360
		return e.b.Mod(e.b.Shift(e.b.Scale(angle, -1), 90), 360), nil
	case schema.DirFrom:
		// (90 - angle + 180) mod 360
		return e.b.Mod(e.b.Shift(e.b.Scale(angle, -1), 270), 360), nil
	default:
		return nil, &schema.InvalidDirectionTypeError{DirType: string(dirType)}
	}
}

// FromMath converts an angle in degrees from the math convention to dirType.
func (e *Engine) FromMath(angle backend.Tensor, dirType schema.DirType) (backend.Tensor, error) {
	return e.ToMath(angle, dirType)
}

// Decompose splits a magnitude and a direction (in dirType degrees) into
// Cartesian x and y components.
func (e *Engine) Decompose(mag, dir backend.Tensor, dirType schema.DirType) (x, y backend.Tensor, err error) {
	mathDeg, err := e.ToMath(dir, dirType)
	if err != nil {
		return nil, nil, err
	}
	rad := e.b.Scale(mathDeg, radPerDeg)
	x = e.b.Mul(mag, e.b.Cos(rad))
	y = e.b.Mul(mag, e.b.Sin(rad))
	return x, y, nil
}

// Magnitude computes sqrt(x² + y²).
func (e *Engine) Magnitude(x, y backend.Tensor) backend.Tensor {
	return e.b.Sqrt(e.b.Add(e.b.Mul(x, x), e.b.Mul(y, y)))
}

// Direction computes the angle of (x, y) in dirType degrees, normalized
// to [0, 360).
func (e *Engine) Direction(x, y backend.Tensor, dirType schema.DirType) (backend.Tensor, error) {
	deg := e.b.Mod(e.b.Scale(e.b.Atan2(y, x), degPerRad), 360)
	return e.FromMath(deg, dirType)
}
