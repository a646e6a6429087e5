package backend

import (
	"fmt"
	"math"
)

// Tensor is a value produced by a Backend. An eager backend returns fully
// evaluated tensors; a lazy backend returns deferred computations that are
// only evaluated when Materialize is called. Errors raised inside a deferred
// computation surface at materialization time.
type Tensor interface {
	// Shape returns the shape the tensor will have once materialized.
	Shape() []int

	// Materialize evaluates the tensor into a concrete Array.
	Materialize() (*Array, error)
}

// Backend is the numeric capability interface consumed by the shape and
// vector engines. Implementations must be safe to share across instances;
// they hold no per-call state.
type Backend interface {
	// Full creates a tensor of the given shape filled with value.
	Full(shape []int, value float64) Tensor

	// Lift wraps an already-evaluated array as a tensor of this backend.
	Lift(a *Array) Tensor

	// Elementwise unary operations.
	Sin(t Tensor) Tensor
	Cos(t Tensor) Tensor
	Sqrt(t Tensor) Tensor
	Not(t Tensor) Tensor

	// Elementwise binary operations. Operands must have equal shapes, or
	// one of them must be a single-element tensor, which is broadcast.
	Mul(a, b Tensor) Tensor
	Add(a, b Tensor) Tensor
	Atan2(y, x Tensor) Tensor
	And(a, b Tensor) Tensor

	// Scalar operations.
	Scale(t Tensor, k float64) Tensor
	Shift(t Tensor, k float64) Tensor
	Mod(t Tensor, m float64) Tensor

	// Comparisons against a bound, producing 0/1 tensors.
	Ge(t Tensor, v float64) Tensor
	Gt(t Tensor, v float64) Tensor
	Le(t Tensor, v float64) Tensor
	Lt(t Tensor, v float64) Tensor

	// Structural operations. Reshape requires the element count to match;
	// Transpose permutes dimensions by perm.
	Reshape(t Tensor, shape []int) Tensor
	Transpose(t Tensor, perm []int) Tensor
}

// errTensor carries an error through a chain of tensor operations so callers
// only need to check once, at materialization.
type errTensor struct{ err error }

func (e errTensor) Shape() []int                { return nil }
func (e errTensor) Materialize() (*Array, error) { return nil, e.err }

// Errorf creates a tensor that fails with the given error on materialization.
func Errorf(format string, args ...any) Tensor {
	return errTensor{err: fmt.Errorf(format, args...)}
}

// unaryArray applies f elementwise.
func unaryArray(a *Array, f func(float64) float64) *Array {
	out := make([]float64, len(a.data))
	for i, v := range a.data {
		out[i] = f(v)
	}
	return &Array{shape: cloneInts(a.shape), data: out}
}

// binaryArray applies f elementwise with single-element broadcast.
func binaryArray(a, b *Array, f func(x, y float64) float64) (*Array, error) {
	switch {
	case shapesEqual(a.shape, b.shape):
		out := make([]float64, len(a.data))
		for i := range a.data {
			out[i] = f(a.data[i], b.data[i])
		}
		return &Array{shape: cloneInts(a.shape), data: out}, nil
	case b.IsScalar():
		v := b.data[0]
		return unaryArray(a, func(x float64) float64 { return f(x, v) }), nil
	case a.IsScalar():
		v := a.data[0]
		return unaryArray(b, func(y float64) float64 { return f(v, y) }), nil
	default:
		return nil, fmt.Errorf("shape mismatch in elementwise operation: %v vs %v", a.shape, b.shape)
	}
}

func reshapeArray(a *Array, shape []int) (*Array, error) {
	if sizeOf(shape) != len(a.data) {
		return nil, fmt.Errorf("cannot reshape %v (%d elements) to %v (%d elements)",
			a.shape, len(a.data), shape, sizeOf(shape))
	}
	// Row-major data is unchanged by a pure reshape.
	return &Array{shape: cloneInts(shape), data: a.Values()}, nil
}

func transposeArray(a *Array, perm []int) (*Array, error) {
	if len(perm) != len(a.shape) {
		return nil, fmt.Errorf("transpose permutation %v does not match rank %d", perm, len(a.shape))
	}
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("invalid transpose permutation %v", perm)
		}
		seen[p] = true
	}

	newShape := make([]int, len(perm))
	for d, p := range perm {
		newShape[d] = a.shape[p]
	}

	oldStrides := strides(a.shape)
	out := make([]float64, len(a.data))
	idx := make([]int, len(newShape))
	for i := range out {
		// idx is the multi-index in the transposed array; map back to the
		// source offset through the permutation.
		src := 0
		for d, p := range perm {
			src += idx[d] * oldStrides[p]
		}
		out[i] = a.data[src]
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < newShape[d] {
				break
			}
			idx[d] = 0
		}
	}
	return &Array{shape: newShape, data: out}, nil
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for d := len(shape) - 1; d >= 0; d-- {
		s[d] = acc
		acc *= shape[d]
	}
	return s
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func notVal(v float64) float64 {
	if v == 0 {
		return 1
	}
	return 0
}

func andVal(a, b float64) float64 { return boolVal(a != 0 && b != 0) }

func modVal(v, m float64) float64 {
	r := math.Mod(v, m)
	if r < 0 {
		r += m
	}
	return r
}
