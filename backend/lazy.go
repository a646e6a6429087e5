package backend

import (
	"math"
	"sync"
)

// Lazy defers every operation until Materialize is called on the result.
// Each node in the resulting computation graph is evaluated at most once.
type Lazy struct{}

// NewLazy returns the lazy backend.
func NewLazy() Lazy { return Lazy{} }

// thunk is a deferred tensor. The shape is known up front; the value is
// computed on first materialization and memoized.
type thunk struct {
	shape []int
	eval  func() (*Array, error)

	once sync.Once
	out  *Array
	err  error
}

func (t *thunk) Shape() []int { return cloneInts(t.shape) }

func (t *thunk) Materialize() (*Array, error) {
	t.once.Do(func() { t.out, t.err = t.eval() })
	return t.out, t.err
}

// Full creates a deferred filled tensor.
func (Lazy) Full(shape []int, value float64) Tensor {
	return &thunk{
		shape: cloneInts(shape),
		eval:  func() (*Array, error) { return FullArray(shape, value), nil },
	}
}

// Lift wraps an evaluated array; materialization is a no-op.
func (Lazy) Lift(a *Array) Tensor { return a }

func (Lazy) Sin(t Tensor) Tensor  { return lazyUnary(t, math.Sin) }
func (Lazy) Cos(t Tensor) Tensor  { return lazyUnary(t, math.Cos) }
func (Lazy) Sqrt(t Tensor) Tensor { return lazyUnary(t, math.Sqrt) }
func (Lazy) Not(t Tensor) Tensor  { return lazyUnary(t, notVal) }

func (Lazy) Mul(a, b Tensor) Tensor   { return lazyBinary(a, b, func(x, y float64) float64 { return x * y }) }
func (Lazy) Add(a, b Tensor) Tensor   { return lazyBinary(a, b, func(x, y float64) float64 { return x + y }) }
func (Lazy) Atan2(y, x Tensor) Tensor { return lazyBinary(y, x, math.Atan2) }
func (Lazy) And(a, b Tensor) Tensor   { return lazyBinary(a, b, andVal) }

func (Lazy) Scale(t Tensor, k float64) Tensor {
	return lazyUnary(t, func(v float64) float64 { return v * k })
}

func (Lazy) Shift(t Tensor, k float64) Tensor {
	return lazyUnary(t, func(v float64) float64 { return v + k })
}

func (Lazy) Mod(t Tensor, m float64) Tensor {
	return lazyUnary(t, func(v float64) float64 { return modVal(v, m) })
}

func (Lazy) Ge(t Tensor, v float64) Tensor {
	return lazyUnary(t, func(x float64) float64 { return boolVal(x >= v) })
}

func (Lazy) Gt(t Tensor, v float64) Tensor {
	return lazyUnary(t, func(x float64) float64 { return boolVal(x > v) })
}

func (Lazy) Le(t Tensor, v float64) Tensor {
	return lazyUnary(t, func(x float64) float64 { return boolVal(x <= v) })
}

func (Lazy) Lt(t Tensor, v float64) Tensor {
	return lazyUnary(t, func(x float64) float64 { return boolVal(x < v) })
}

func (Lazy) Reshape(t Tensor, shape []int) Tensor {
	return &thunk{
		shape: cloneInts(shape),
		eval: func() (*Array, error) {
			a, err := t.Materialize()
			if err != nil {
				return nil, err
			}
			return reshapeArray(a, shape)
		},
	}
}

func (Lazy) Transpose(t Tensor, perm []int) Tensor {
	in := t.Shape()
	out := make([]int, len(perm))
	for d, p := range perm {
		if p < 0 || p >= len(in) {
			return Errorf("invalid transpose permutation %v for shape %v", perm, in)
		}
		out[d] = in[p]
	}
	return &thunk{
		shape: out,
		eval: func() (*Array, error) {
			a, err := t.Materialize()
			if err != nil {
				return nil, err
			}
			return transposeArray(a, perm)
		},
	}
}

func lazyUnary(t Tensor, f func(float64) float64) Tensor {
	return &thunk{
		shape: t.Shape(),
		eval: func() (*Array, error) {
			a, err := t.Materialize()
			if err != nil {
				return nil, err
			}
			return unaryArray(a, f), nil
		},
	}
}

func lazyBinary(a, b Tensor, f func(x, y float64) float64) Tensor {
	// The broadcast shape is the non-scalar operand's shape.
	shape := a.Shape()
	if sizeOf(shape) == 1 && sizeOf(b.Shape()) > 1 {
		shape = b.Shape()
	}
	return &thunk{
		shape: shape,
		eval: func() (*Array, error) {
			aa, err := a.Materialize()
			if err != nil {
				return nil, err
			}
			bb, err := b.Materialize()
			if err != nil {
				return nil, err
			}
			return binaryArray(aa, bb, f)
		},
	}
}
