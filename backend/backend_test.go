package backend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends() map[string]Backend {
	return map[string]Backend{
		"eager": NewEager(),
		"lazy":  NewLazy(),
	}
}

func TestFull(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			out, err := b.Full([]int{2, 3}, 1.5).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []int{2, 3}, out.Shape())
			for _, v := range out.Values() {
				assert.Equal(t, 1.5, v)
			}
		})
	}
}

func TestElementwise(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			x := FromSlice([]float64{3, 0})
			y := FromSlice([]float64{4, 5})

			mag := b.Sqrt(b.Add(b.Mul(b.Lift(x), b.Lift(x)), b.Mul(b.Lift(y), b.Lift(y))))
			out, err := mag.Materialize()
			require.NoError(t, err)
			assert.InDeltaSlice(t, []float64{5, 5}, out.Values(), 1e-12)

			dirs, err := b.Atan2(b.Lift(y), b.Lift(x)).Materialize()
			require.NoError(t, err)
			assert.InDelta(t, math.Atan2(4, 3), dirs.Values()[0], 1e-12)
			assert.InDelta(t, math.Pi/2, dirs.Values()[1], 1e-12)
		})
	}
}

func TestScalarBroadcast(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			a := FromSlice([]float64{1, 2, 3})
			out, err := b.Mul(b.Lift(a), b.Lift(Scalar(2))).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []float64{2, 4, 6}, out.Values())
			assert.Equal(t, []int{3}, out.Shape())
		})
	}
}

func TestMod(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			// Mod must wrap negative angles into [0, 360).
			out, err := b.Mod(b.Lift(FromSlice([]float64{-90, 450, 0})), 360).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []float64{270, 90, 0}, out.Values())
		})
	}
}

func TestComparisons(t *testing.T) {
	data := FromSlice([]float64{-1, 0, 1})

	tests := []struct {
		name string
		op   func(b Backend, t Tensor) Tensor
		want []float64
	}{
		{"ge", func(b Backend, t Tensor) Tensor { return b.Ge(t, 0) }, []float64{0, 1, 1}},
		{"gt", func(b Backend, t Tensor) Tensor { return b.Gt(t, 0) }, []float64{0, 0, 1}},
		{"le", func(b Backend, t Tensor) Tensor { return b.Le(t, 0) }, []float64{1, 1, 0}},
		{"lt", func(b Backend, t Tensor) Tensor { return b.Lt(t, 0) }, []float64{1, 0, 0}},
	}

	for name, b := range backends() {
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				out, err := tt.op(b, b.Lift(data)).Materialize()
				require.NoError(t, err)
				assert.Equal(t, tt.want, out.Values())
			})
		}
	}
}

func TestLogical(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			low := FromSlice([]float64{1, 1, 0})
			high := FromSlice([]float64{1, 0, 0})

			and, err := b.And(b.Lift(low), b.Lift(high)).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 0, 0}, and.Values())

			not, err := b.Not(b.Lift(low)).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 0, 1}, not.Values())
		})
	}
}

func TestReshape(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			a, err := NewArray([]int{1, 4}, []float64{1, 2, 3, 4})
			require.NoError(t, err)

			out, err := b.Reshape(b.Lift(a), []int{4}).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []int{4}, out.Shape())
			assert.Equal(t, []float64{1, 2, 3, 4}, out.Values())

			_, err = b.Reshape(b.Lift(a), []int{5}).Materialize()
			assert.Error(t, err)
		})
	}
}

func TestTranspose(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			a, err := NewArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
			require.NoError(t, err)

			out, err := b.Transpose(b.Lift(a), []int{1, 0}).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []int{3, 2}, out.Shape())
			assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, out.Values())
		})
	}
}

func TestTransposeThreeDims(t *testing.T) {
	for name, b := range backends() {
		t.Run(name, func(t *testing.T) {
			a, err := NewArray([]int{2, 1, 3}, []float64{1, 2, 3, 4, 5, 6})
			require.NoError(t, err)

			out, err := b.Transpose(b.Lift(a), []int{2, 0, 1}).Materialize()
			require.NoError(t, err)
			assert.Equal(t, []int{3, 2, 1}, out.Shape())
			assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, out.Values())
		})
	}
}

func TestLazyDefersEvaluation(t *testing.T) {
	b := NewLazy()

	// A shape mismatch must not surface until materialization.
	bad := b.Add(b.Lift(FromSlice([]float64{1, 2})), b.Lift(FromSlice([]float64{1, 2, 3})))
	assert.NotNil(t, bad)

	_, err := bad.Materialize()
	assert.Error(t, err)
}

func TestLazyMemoizes(t *testing.T) {
	b := NewLazy()
	out := b.Scale(b.Lift(FromSlice([]float64{1, 2})), 3)

	first, err := out.Materialize()
	require.NoError(t, err)
	second, err := out.Materialize()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestArrayBools(t *testing.T) {
	a := FromSlice([]float64{0, 1, 2})
	assert.Equal(t, []bool{false, true, true}, a.Bools())
}

func TestArrayAt(t *testing.T) {
	a, err := NewArray([]int{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	v, err := a.At(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	_, err = a.At(2, 0)
	assert.Error(t, err)
}
