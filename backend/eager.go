package backend

import "math"

// Eager evaluates every operation immediately and returns concrete arrays.
// It is the default backend.
type Eager struct{}

// NewEager returns the eager backend.
func NewEager() Eager { return Eager{} }

// Full creates a filled array.
func (Eager) Full(shape []int, value float64) Tensor { return FullArray(shape, value) }

// Lift returns the array unchanged; arrays are already eager tensors.
func (Eager) Lift(a *Array) Tensor { return a }

func (Eager) Sin(t Tensor) Tensor  { return eagerUnary(t, math.Sin) }
func (Eager) Cos(t Tensor) Tensor  { return eagerUnary(t, math.Cos) }
func (Eager) Sqrt(t Tensor) Tensor { return eagerUnary(t, math.Sqrt) }
func (Eager) Not(t Tensor) Tensor  { return eagerUnary(t, notVal) }

func (Eager) Mul(a, b Tensor) Tensor   { return eagerBinary(a, b, func(x, y float64) float64 { return x * y }) }
func (Eager) Add(a, b Tensor) Tensor   { return eagerBinary(a, b, func(x, y float64) float64 { return x + y }) }
func (Eager) Atan2(y, x Tensor) Tensor { return eagerBinary(y, x, math.Atan2) }
func (Eager) And(a, b Tensor) Tensor   { return eagerBinary(a, b, andVal) }

func (Eager) Scale(t Tensor, k float64) Tensor {
	return eagerUnary(t, func(v float64) float64 { return v * k })
}

func (Eager) Shift(t Tensor, k float64) Tensor {
	return eagerUnary(t, func(v float64) float64 { return v + k })
}

func (Eager) Mod(t Tensor, m float64) Tensor {
	return eagerUnary(t, func(v float64) float64 { return modVal(v, m) })
}

func (Eager) Ge(t Tensor, v float64) Tensor {
	return eagerUnary(t, func(x float64) float64 { return boolVal(x >= v) })
}

func (Eager) Gt(t Tensor, v float64) Tensor {
	return eagerUnary(t, func(x float64) float64 { return boolVal(x > v) })
}

func (Eager) Le(t Tensor, v float64) Tensor {
	return eagerUnary(t, func(x float64) float64 { return boolVal(x <= v) })
}

func (Eager) Lt(t Tensor, v float64) Tensor {
	return eagerUnary(t, func(x float64) float64 { return boolVal(x < v) })
}

func (Eager) Reshape(t Tensor, shape []int) Tensor {
	a, err := t.Materialize()
	if err != nil {
		return errTensor{err: err}
	}
	out, err := reshapeArray(a, shape)
	if err != nil {
		return errTensor{err: err}
	}
	return out
}

func (Eager) Transpose(t Tensor, perm []int) Tensor {
	a, err := t.Materialize()
	if err != nil {
		return errTensor{err: err}
	}
	out, err := transposeArray(a, perm)
	if err != nil {
		return errTensor{err: err}
	}
	return out
}

func eagerUnary(t Tensor, f func(float64) float64) Tensor {
	a, err := t.Materialize()
	if err != nil {
		return errTensor{err: err}
	}
	return unaryArray(a, f)
}

func eagerBinary(a, b Tensor, f func(x, y float64) float64) Tensor {
	aa, err := a.Materialize()
	if err != nil {
		return errTensor{err: err}
	}
	bb, err := b.Materialize()
	if err != nil {
		return errTensor{err: err}
	}
	out, err := binaryArray(aa, bb, f)
	if err != nil {
		return errTensor{err: err}
	}
	return out
}
