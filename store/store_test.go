package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/gridskel/backend"
)

func TestCoordRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("lon", []float64{0, 1, 2}))

	values, err := s.CoordValues("lon")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, values)

	n, err := s.CoordLength("lon")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The stored vector must not alias the caller's slice.
	values[0] = 99
	again, err := s.CoordValues("lon")
	require.NoError(t, err)
	assert.Equal(t, float64(0), again[0])
}

func TestCoordNotFound(t *testing.T) {
	s := New()
	_, err := s.CoordValues("lat")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CoordLength("lat")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCoordRejectsEmptyVector(t *testing.T) {
	s := New()
	assert.Error(t, s.SetCoord("lon", nil))
}

func TestCoordIndex(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("z", []float64{10, 20, 30}))

	idx, err := s.CoordIndex("z", 20)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = s.CoordIndex("z", 25)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetFieldChecksShape(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("lat", []float64{0, 1}))
	require.NoError(t, s.SetCoord("lon", []float64{0, 1, 2}))

	good, err := backend.NewArray([]int{2, 3}, make([]float64, 6))
	require.NoError(t, err)
	require.NoError(t, s.SetField("hs", []string{"lat", "lon"}, good))

	bad, err := backend.NewArray([]int{3, 2}, make([]float64, 6))
	require.NoError(t, err)
	err = s.SetField("hs2", []string{"lat", "lon"}, bad)
	assert.ErrorIs(t, err, ErrDimMismatch)
	assert.False(t, s.Has("hs2"))

	flat := backend.FromSlice(make([]float64, 6))
	err = s.SetField("hs3", []string{"lat", "lon"}, flat)
	assert.ErrorIs(t, err, ErrDimMismatch)
}

func TestFieldRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("inds", []float64{0, 1, 2, 3}))

	data := backend.FromSlice([]float64{1, 2, 3, 4})
	require.NoError(t, s.SetField("hs", []string{"inds"}, data))

	got, dims, err := s.Field("hs")
	require.NoError(t, err)
	assert.Equal(t, []string{"inds"}, dims)

	arr, err := got.Materialize()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, arr.Values())

	_, _, err = s.Field("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"hs"}, s.Names())
}

func TestSlice(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("lat", []float64{0, 1}))
	require.NoError(t, s.SetCoord("lon", []float64{0, 1, 2}))

	data, err := backend.NewArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, s.SetField("hs", []string{"lat", "lon"}, data))

	row, err := s.Slice("hs", "lat", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, row.Shape())
	assert.Equal(t, []float64{4, 5, 6}, row.Values())

	col, err := s.Slice("hs", "lon", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, col.Shape())
	assert.Equal(t, []float64{1, 4}, col.Values())

	_, err = s.Slice("hs", "time", 0)
	assert.ErrorIs(t, err, ErrDimMismatch)

	_, err = s.Slice("hs", "lat", 5)
	assert.Error(t, err)
}

func TestWriteSlab(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("lat", []float64{0, 1}))
	require.NoError(t, s.SetCoord("lon", []float64{0, 1, 2}))

	data, err := backend.NewArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, s.SetField("hs", []string{"lat", "lon"}, data))

	require.NoError(t, s.WriteSlab("hs", "lat", 0, backend.FromSlice([]float64{7, 8, 9})))

	got, _, err := s.Field("hs")
	require.NoError(t, err)
	arr, err := got.Materialize()
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8, 9, 4, 5, 6}, arr.Values())

	// The original tensor must be untouched.
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, data.Values())

	err = s.WriteSlab("hs", "lat", 0, backend.FromSlice([]float64{1, 2}))
	assert.ErrorIs(t, err, ErrDimMismatch)
}

func TestWriteSlabAlongInnerAxis(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("lat", []float64{0, 1}))
	require.NoError(t, s.SetCoord("lon", []float64{0, 1, 2}))

	data, err := backend.NewArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, s.SetField("hs", []string{"lat", "lon"}, data))

	require.NoError(t, s.WriteSlab("hs", "lon", 2, backend.FromSlice([]float64{30, 60})))

	got, _, err := s.Field("hs")
	require.NoError(t, err)
	arr, err := got.Materialize()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 30, 4, 5, 60}, arr.Values())
}

func TestCloneIndependence(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCoord("inds", []float64{0, 1}))
	require.NoError(t, s.SetField("hs", []string{"inds"}, backend.FromSlice([]float64{1, 2})))

	clone := s.Clone()
	require.NoError(t, clone.SetCoord("z", []float64{5}))
	require.NoError(t, clone.WriteSlab("hs", "inds", 0, backend.Scalar(9)))

	// Writes to the clone must not reach the original.
	if _, err := s.CoordValues("z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("coordinate added to clone leaked into original: %v", err)
	}
	got, _, err := s.Field("hs")
	require.NoError(t, err)
	arr, err := got.Materialize()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, arr.Values())
}
