// Package reshape resolves field shapes from coordinate lists and coerces
// arbitrary input data into them. Coercion tries a fixed ladder of
// strategies (scalar broadcast, labeled reorder, squeeze, unsqueeze, one
// transpose) and fails with a ShapeMismatchError when none applies.
package reshape

import (
	"fmt"

	"github.com/c360studio/gridskel/backend"
)

// LengthFunc resolves a coordinate name to its current axis length.
type LengthFunc func(name string) (int, error)

// Shape maps an ordered coordinate list through a length lookup.
func Shape(coords []string, length LengthFunc) ([]int, error) {
	out := make([]int, len(coords))
	for i, name := range coords {
		n, err := length(name)
		if err != nil {
			return nil, fmt.Errorf("resolve shape: %w", err)
		}
		out[i] = n
	}
	return out, nil
}

// Coerce reconciles data with the expected shape. Strategies, in order:
//
//  1. A scalar is broadcast-filled over the expected shape.
//  2. If dataDims labels the data's axes, the non-trivial axes are reordered
//     to match the expected dimension order.
//  3. An exact shape match passes through unchanged.
//  4. Trivial axes are squeezed out or reinstated when the non-trivial core
//     already matches.
//  5. A two-dimensional core that matches the target transposed gets one
//     transpose.
//
// wantDims names the axes of want and is only consulted for strategy 2.
func Coerce(b backend.Backend, data backend.Tensor, dataDims []string, want []int, wantDims []string) (backend.Tensor, error) {
	got := data.Shape()

	if len(got) == 0 {
		arr, err := data.Materialize()
		if err != nil {
			return nil, fmt.Errorf("coerce scalar: %w", err)
		}
		v, err := arr.At()
		if err != nil {
			return nil, fmt.Errorf("coerce scalar: %w", err)
		}
		return b.Full(want, v), nil
	}

	if len(dataDims) > 0 {
		return reorderLabeled(b, data, dataDims, want, wantDims)
	}

	if shapesEqual(got, want) {
		return data, nil
	}

	gotCore := squeezeShape(got)
	wantCore := squeezeShape(want)

	// Squeeze and unsqueeze are pure reshapes in row-major order.
	if shapesEqual(gotCore, wantCore) {
		return b.Reshape(data, want), nil
	}

	// One transpose, only for a genuinely two-dimensional core.
	if len(gotCore) == 2 && len(wantCore) == 2 &&
		gotCore[0] == wantCore[1] && gotCore[1] == wantCore[0] {
		t := b.Reshape(data, gotCore)
		t = b.Transpose(t, []int{1, 0})
		return b.Reshape(t, want), nil
	}

	return nil, &ShapeMismatchError{Got: got, Want: want}
}

// reorderLabeled aligns labeled data with the expected dimension order. The
// non-trivial axes shared by the data and the target fix a permutation; the
// rest is a reshape.
func reorderLabeled(b backend.Backend, data backend.Tensor, dataDims []string, want []int, wantDims []string) (backend.Tensor, error) {
	got := data.Shape()
	if len(dataDims) != len(got) {
		return nil, fmt.Errorf("coerce: %d dimension labels for %d axes", len(dataDims), len(got))
	}

	// Non-trivial axes of the target, in target order.
	var order []string
	wantLen := make(map[string]int, len(wantDims))
	for i, d := range wantDims {
		wantLen[d] = want[i]
		if want[i] > 1 {
			order = append(order, d)
		}
	}

	// Non-trivial axes of the data, by label.
	axisOf := make(map[string]int, len(dataDims))
	var core []string
	for i, d := range dataDims {
		if got[i] > 1 {
			axisOf[d] = i
			core = append(core, d)
		}
	}

	if len(core) != len(order) {
		return nil, &ShapeMismatchError{Got: got, Want: want}
	}
	for _, d := range core {
		n, ok := wantLen[d]
		if !ok || n != got[axisOf[d]] {
			return nil, &ShapeMismatchError{Got: got, Want: want}
		}
	}

	// Squeeze to the core axes, permute into target order, expand to want.
	coreShape := make([]int, len(core))
	for i, d := range core {
		coreShape[i] = got[axisOf[d]]
	}
	t := b.Reshape(data, coreShape)

	perm := make([]int, len(order))
	for i, d := range order {
		perm[i] = indexOf(core, d)
	}
	if !isIdentity(perm) {
		t = b.Transpose(t, perm)
	}
	return b.Reshape(t, want), nil
}

// SmartSqueeze drops trivial axes from a field but never all of them: if
// every axis is trivial, the spatial axes are retained so a single-point
// result stays identifiable. It returns the squeezed tensor and the names
// of the remaining axes.
func SmartSqueeze(b backend.Backend, data backend.Tensor, dims []string, spatial []string) (backend.Tensor, []string) {
	shape := data.Shape()

	keep := make([]bool, len(dims))
	kept := 0
	for i := range dims {
		if shape[i] > 1 {
			keep[i] = true
			kept++
		}
	}

	// All axes trivial: protect the spatial ones.
	if kept == 0 {
		for i, d := range dims {
			if contains(spatial, d) {
				keep[i] = true
				kept++
			}
		}
	}
	if kept == len(dims) {
		return data, cloneStrings(dims)
	}

	outShape := make([]int, 0, kept)
	outDims := make([]string, 0, kept)
	for i, d := range dims {
		if keep[i] {
			outShape = append(outShape, shape[i])
			outDims = append(outDims, d)
		}
	}
	return b.Reshape(data, outShape), outDims
}

func squeezeShape(shape []int) []int {
	out := make([]int, 0, len(shape))
	for _, n := range shape {
		if n > 1 {
			out = append(out, n)
		}
	}
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

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func contains(s []string, v string) bool {
	return indexOf(s, v) >= 0
}

func isIdentity(perm []int) bool {
	for i, p := range perm {
		if p != i {
			return false
		}
	}
	return true
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
