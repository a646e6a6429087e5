package skeleton

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/gridskel/backend"
	"github.com/c360studio/gridskel/reshape"
	"github.com/c360studio/gridskel/schema"
	"github.com/c360studio/gridskel/store"
)

// waveRegistry declares a spherical wave grid: a significant wave height
// variable, a topography variable with a sea/land mask trigger, and a wind
// vector exposed as magnitude plus direction.
func waveRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r := schema.MustNew(schema.Spherical)

	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "hs", CoordGroup: schema.GroupAll}))
	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "topo", CoordGroup: schema.GroupGrid, DefaultValue: 999}))

	_, _, err := r.AddMask(schema.MaskSpec{
		Name:           "sea",
		CoordGroup:     schema.GroupGrid,
		DefaultValue:   1,
		OppositeName:   "land",
		TriggeredBy:    "topo",
		ValidRange:     []*float64{schema.Bound(0), nil},
		RangeInclusive: []bool{true, false},
	})
	require.NoError(t, err)

	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "u", CoordGroup: schema.GroupAll}))
	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "v", CoordGroup: schema.GroupAll}))
	require.NoError(t, r.AddDirection("wind_dir", "u", "v", schema.DirFrom, ""))
	require.NoError(t, r.AddMagnitude("wind", "u", "v", "wind_dir"))

	return r
}

func waveGrid(t *testing.T, opts ...Option) *Skeleton {
	t.Helper()
	opts = append([]Option{
		WithName("test-grid"),
		WithLonLat([]float64{0, 1, 2, 3}, []float64{10, 11, 12}),
	}, opts...)
	s, err := New(waveRegistry(t), opts...)
	require.NoError(t, err)
	return s
}

func TestNewRequiresCoordValues(t *testing.T) {
	r := schema.MustNew(schema.Spherical)
	require.NoError(t, r.AddCoordinate("z", schema.GroupGrid))

	_, err := New(r, WithLonLat([]float64{0}, []float64{0}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"z"`)

	_, err = New(r, WithLonLat([]float64{0}, []float64{0}), WithCoord("z", []float64{1, 2}))
	assert.NoError(t, err)
}

func TestNewRejectsUndeclaredCoord(t *testing.T) {
	r := schema.MustNew(schema.Spherical)
	_, err := New(r, WithLonLat([]float64{0}, []float64{0}), WithCoord("depth", []float64{1}))
	assert.Error(t, err)
}

func TestNewSwitchesSpatialPair(t *testing.T) {
	// The registry is spherical; the instance asks for Cartesian axes.
	s, err := New(waveRegistry(t), WithXY([]float64{0, 1}, []float64{0, 1, 2}))
	require.NoError(t, err)

	spatial, err := s.Coords(schema.GroupSpatial)
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, spatial)

	nx, err := s.NX()
	require.NoError(t, err)
	assert.Equal(t, 2, nx)
}

func TestScalarBroadcast(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.Set("hs", backend.Scalar(1)))

	arr, dims, err := s.Get("hs")
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, dims)
	assert.Equal(t, []int{3, 4}, arr.Shape())
	for _, v := range arr.Values() {
		assert.Equal(t, 1.0, v)
	}
}

func TestShapeReconciliation(t *testing.T) {
	s, err := New(waveRegistry(t), WithLonLat([]float64{0, 1, 2, 3}, []float64{10}))
	require.NoError(t, err)
	// hs resolves to (1, 4).

	require.NoError(t, s.Set("hs", backend.FromSlice([]float64{1, 2, 3, 4})))

	in, err := backend.NewArray([]int{4, 1, 1}, []float64{5, 6, 7, 8})
	require.NoError(t, err)
	require.NoError(t, s.Set("hs", in))

	err = s.Set("hs", backend.FromSlice([]float64{1, 2, 3, 4, 5}))
	var mismatch *reshape.ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []int{5}, mismatch.Got)
	assert.Equal(t, []int{1, 4}, mismatch.Want)
}

func TestSetFailsBeforeAnyWrite(t *testing.T) {
	s := waveGrid(t)

	err := s.Set("hs", backend.FromSlice([]float64{1, 2}))
	require.Error(t, err)

	_, _, err = s.Get("hs")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetUnknownAndUnsettableFields(t *testing.T) {
	s := waveGrid(t)

	var unknown *schema.UnknownCoordinateError
	err := s.Set("missing", backend.Scalar(0))
	assert.True(t, errors.As(err, &unknown))

	// Opposite masks and coordinates only accept derived values.
	assert.ErrorIs(t, s.Set("land_mask", backend.Scalar(0)), ErrNotSettable)
	assert.ErrorIs(t, s.Set("lat", backend.Scalar(0)), ErrNotSettable)
}

func TestMaskTriggerBoundarySemantics(t *testing.T) {
	r := schema.MustNew(schema.PointSet)
	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "topo", CoordGroup: schema.GroupAll}))
	_, _, err := r.AddMask(schema.MaskSpec{
		Name:           "sea",
		CoordGroup:     schema.GroupAll,
		DefaultValue:   1,
		OppositeName:   "land",
		TriggeredBy:    "topo",
		ValidRange:     []*float64{schema.Bound(0), nil},
		RangeInclusive: []bool{true, false},
	})
	require.NoError(t, err)

	s, err := New(r, WithPoints(3))
	require.NoError(t, err)

	require.NoError(t, s.Set("topo", backend.FromSlice([]float64{-1, 0, 1})))

	sea, _, err := s.Mask("sea_mask")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, sea)

	land, _, err := s.Mask("land_mask")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, land)
}

func TestDirectMaskWriteUpdatesOpposite(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.Set("sea_mask", backend.Scalar(1)))

	land, _, err := s.Mask("land_mask")
	require.NoError(t, err)
	for _, v := range land {
		assert.False(t, v)
	}
}

func TestDirectMaskWriteStoresZeroOne(t *testing.T) {
	s := waveGrid(t)

	// Any nonzero value counts as set; stored masks are 0/1.
	require.NoError(t, s.Set("sea_mask", backend.Scalar(7)))

	sea, _, err := s.Get("sea_mask", NoSqueeze())
	require.NoError(t, err)
	for _, v := range sea.Values() {
		assert.Equal(t, 1.0, v)
	}

	require.NoError(t, s.Set("sea_mask", backend.Scalar(-0.5)))
	land, _, err := s.Get("land_mask", NoSqueeze())
	require.NoError(t, err)
	for _, v := range land.Values() {
		assert.Equal(t, 0.0, v)
	}
}

func TestTriggeredMaskCoercedToOwnGroup(t *testing.T) {
	build := func(t *testing.T, freq []float64) *Skeleton {
		t.Helper()
		r := schema.MustNew(schema.Spherical)
		require.NoError(t, r.AddCoordinate("freq", schema.GroupGridpoint))
		require.NoError(t, r.AddDataVar(schema.DataVar{Name: "topo", CoordGroup: schema.GroupAll}))
		_, _, err := r.AddMask(schema.MaskSpec{
			Name:           "sea",
			CoordGroup:     schema.GroupGrid,
			OppositeName:   "land",
			TriggeredBy:    "topo",
			ValidRange:     []*float64{schema.Bound(0), nil},
			RangeInclusive: []bool{true, false},
		})
		require.NoError(t, err)

		s, err := New(r,
			WithLonLat([]float64{0, 1}, []float64{10, 11}),
			WithCoord("freq", freq),
		)
		require.NoError(t, err)
		return s
	}

	t.Run("trivial extra axis collapses to the mask shape", func(t *testing.T) {
		s := build(t, []float64{0.1})

		require.NoError(t, s.Set("topo", backend.Scalar(1)))

		sea, dims, err := s.Mask("sea_mask", NoSqueeze())
		require.NoError(t, err)
		assert.Equal(t, []string{"lat", "lon"}, dims)
		assert.Equal(t, []bool{true, true, true, true}, sea)
	})

	t.Run("irreconcilable extra axis fails the whole write", func(t *testing.T) {
		s := build(t, []float64{0.1, 0.2})

		err := s.Set("topo", backend.Scalar(1))
		var mismatch *reshape.ShapeMismatchError
		require.ErrorAs(t, err, &mismatch)

		assert.Contains(t, s.EmptyVars(), "topo")
		assert.Contains(t, s.EmptyMasks(), "sea_mask")
	})
}

func TestMagnitudeDirectionRoundTrip(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.Set("u", backend.Scalar(0)))
	require.NoError(t, s.Set("v", backend.Scalar(5)))

	mag, _, err := s.Get("wind")
	require.NoError(t, err)
	assert.InDelta(t, 5, mag.Values()[0], 1e-9)

	dir, _, err := s.Get("wind_dir", InConvention(schema.DirMath))
	require.NoError(t, err)
	assert.InDelta(t, 90, dir.Values()[0], 1e-9)

	// Declared convention is "from": math 90 reads back as 180.
	dir, _, err = s.Get("wind_dir")
	require.NoError(t, err)
	assert.InDelta(t, 180, dir.Values()[0], 1e-9)
}

func TestSetMagnitudePreservesDirection(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.Set("u", backend.Scalar(0)))
	require.NoError(t, s.Set("v", backend.Scalar(5)))
	require.NoError(t, s.Set("wind", backend.Scalar(10)))

	u, _, err := s.Get("u")
	require.NoError(t, err)
	v, _, err := s.Get("v")
	require.NoError(t, err)
	assert.InDelta(t, 0, u.Values()[0], 1e-9)
	assert.InDelta(t, 10, v.Values()[0], 1e-9)
}

func TestSetDirectionPreservesMagnitude(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.Set("u", backend.Scalar(0)))
	require.NoError(t, s.Set("v", backend.Scalar(5)))

	// "from" 270 is math 0: the vector rotates onto +x.
	require.NoError(t, s.Set("wind_dir", backend.Scalar(270)))

	u, _, err := s.Get("u")
	require.NoError(t, err)
	v, _, err := s.Get("v")
	require.NoError(t, err)
	assert.InDelta(t, 5, u.Values()[0], 1e-9)
	assert.InDelta(t, 0, v.Values()[0], 1e-9)

	mag, _, err := s.Get("wind")
	require.NoError(t, err)
	assert.InDelta(t, 5, mag.Values()[0], 1e-9)
}

func TestVectorWithUnsetComponents(t *testing.T) {
	s := waveGrid(t)

	assert.ErrorIs(t, s.Set("wind", backend.Scalar(5)), ErrComponentUnset)
	assert.ErrorIs(t, s.Set("wind_dir", backend.Scalar(90)), ErrComponentUnset)

	// Nothing may have been written by the failed calls.
	assert.Contains(t, s.EmptyVars(), "u")
	assert.Contains(t, s.EmptyVars(), "v")

	_, _, err := s.Get("wind")
	assert.ErrorIs(t, err, ErrComponentUnset)

	// An empty read composes from the component defaults.
	mag, _, err := s.Get("wind", Empty())
	require.NoError(t, err)
	assert.Equal(t, 0.0, mag.Values()[0])
}

func TestHalfSetVectorEmptyReadErrors(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.Set("u", backend.Scalar(3)))

	// Empty only stands in for a pair with neither component written;
	// a half-set pair must not mix stored data with defaults.
	_, _, err := s.Get("wind", Empty())
	assert.ErrorIs(t, err, ErrComponentUnset)

	_, _, err = s.Get("wind_dir", Empty())
	assert.ErrorIs(t, err, ErrComponentUnset)

	u, _, err := s.Get("u")
	require.NoError(t, err)
	assert.Equal(t, 3.0, u.Values()[0])
}

func TestGetEmpty(t *testing.T) {
	s := waveGrid(t)

	_, _, err := s.Get("topo")
	assert.ErrorIs(t, err, store.ErrNotFound)

	arr, _, err := s.Get("topo", Empty())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, arr.Shape())
	assert.Equal(t, 999.0, arr.Values()[0])
}

func TestGetSqueezesTrivialAxes(t *testing.T) {
	r := schema.MustNew(schema.Spherical)
	require.NoError(t, r.AddCoordinate("time", schema.GroupGrid))
	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "hs", CoordGroup: schema.GroupAll}))

	s, err := New(r,
		WithLonLat([]float64{0, 1, 2}, []float64{10, 11}),
		WithCoord("time", []float64{0}))
	require.NoError(t, err)

	require.NoError(t, s.Set("hs", backend.Scalar(1)))

	arr, dims, err := s.Get("hs")
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon"}, dims)
	assert.Equal(t, []int{2, 3}, arr.Shape())

	arr, dims, err = s.Get("hs", NoSqueeze())
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "lat", "lon"}, dims)
	assert.Equal(t, []int{1, 2, 3}, arr.Shape())
}

func TestGetCoordinate(t *testing.T) {
	s := waveGrid(t)

	arr, dims, err := s.Get("lon")
	require.NoError(t, err)
	assert.Equal(t, []string{"lon"}, dims)
	assert.Equal(t, []float64{0, 1, 2, 3}, arr.Values())
}

func TestSetWithExplicitDims(t *testing.T) {
	s := waveGrid(t)

	// Data arrives transposed as (lon, lat), labeled.
	in, err := backend.NewArray([]int{4, 3}, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	})
	require.NoError(t, err)
	require.NoError(t, s.Set("hs", in, WithDims("lon", "lat")))

	arr, _, err := s.Get("hs")
	require.NoError(t, err)
	v, err := arr.At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
	v, err = arr.At(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestInsert(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.Set("topo", backend.Scalar(0)))
	require.NoError(t, s.Insert("topo", backend.FromSlice([]float64{5, 6, 7, 8}), "lat", 11))

	arr, _, err := s.Get("topo")
	require.NoError(t, err)
	v, err := arr.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
	v, err = arr.At(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestIndexInsertInitializesEmptyField(t *testing.T) {
	s := waveGrid(t)

	require.NoError(t, s.IndexInsert("topo", backend.FromSlice([]float64{1, 2, 3, 4}), "lat", 0))

	arr, _, err := s.Get("topo")
	require.NoError(t, err)
	v, err := arr.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	// Untouched rows hold the default fill.
	v, err = arr.At(2, 0)
	require.NoError(t, err)
	assert.Equal(t, 999.0, v)
}

func TestEmptyVarsAndMasks(t *testing.T) {
	s := waveGrid(t)

	assert.Equal(t, []string{"hs", "topo", "u", "v"}, s.EmptyVars())
	assert.Equal(t, []string{"sea_mask", "land_mask"}, s.EmptyMasks())

	require.NoError(t, s.Set("hs", backend.Scalar(1)))
	require.NoError(t, s.Set("topo", backend.Scalar(1)))

	assert.Equal(t, []string{"u", "v"}, s.EmptyVars())
	assert.Empty(t, s.EmptyMasks())
}

func TestGridGeometry(t *testing.T) {
	s := waveGrid(t)

	nx, err := s.NX()
	require.NoError(t, err)
	ny, err := s.NY()
	require.NoError(t, err)
	assert.Equal(t, 4, nx)
	assert.Equal(t, 3, ny)

	dx, err := s.DX()
	require.NoError(t, err)
	dy, err := s.DY()
	require.NoError(t, err)
	assert.Equal(t, 1.0, dx)
	assert.Equal(t, 1.0, dy)

	lo, hi, err := s.Edges("lon")
	require.NoError(t, err)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 3.0, hi)
}

func TestPointGeometry(t *testing.T) {
	r := schema.MustNew(schema.PointSet)
	s, err := New(r, WithPoints(5))
	require.NoError(t, err)

	nx, err := s.NX()
	require.NoError(t, err)
	ny, err := s.NY()
	require.NoError(t, err)
	assert.Equal(t, 5, nx)
	assert.Equal(t, 1, ny)

	_, err = s.DX()
	assert.Error(t, err)
}

func TestPointsWhere(t *testing.T) {
	s := waveGrid(t)

	topo, err := backend.NewArray([]int{3, 4}, []float64{
		-1, -1, -1, -1,
		-1, 2, 3, -1,
		-1, -1, -1, -1,
	})
	require.NoError(t, err)
	require.NoError(t, s.Set("topo", topo))

	xs, ys, err := s.PointsWhere("sea_mask")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, xs)
	assert.Equal(t, []float64{11, 11}, ys)
}

func TestPointsWhereOnPointSet(t *testing.T) {
	r := schema.MustNew(schema.PointSet)
	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "topo", CoordGroup: schema.GroupAll}))
	_, _, err := r.AddMask(schema.MaskSpec{
		Name:        "sea",
		CoordGroup:  schema.GroupAll,
		TriggeredBy: "topo",
		ValidRange:  []*float64{schema.Bound(0), nil},
	})
	require.NoError(t, err)

	s, err := New(r, WithPoints(4))
	require.NoError(t, err)
	require.NoError(t, s.Set("topo", backend.FromSlice([]float64{-1, 1, -1, 1})))

	xs, ys, err := s.PointsWhere("sea_mask")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, xs)
	assert.Nil(t, ys)
}

func TestLazyBackendMaterializes(t *testing.T) {
	s := waveGrid(t, WithLazy())

	require.NoError(t, s.Set("u", backend.Scalar(3)))
	require.NoError(t, s.Set("v", backend.Scalar(4)))
	require.NoError(t, s.Materialize())

	mag, _, err := s.Get("wind")
	require.NoError(t, err)
	assert.InDelta(t, 5, mag.Values()[0], 1e-9)
}

func TestLazyTriggerEvaluatesOnRead(t *testing.T) {
	r := schema.MustNew(schema.PointSet)
	require.NoError(t, r.AddDataVar(schema.DataVar{Name: "topo", CoordGroup: schema.GroupAll}))
	_, _, err := r.AddMask(schema.MaskSpec{
		Name:        "sea",
		CoordGroup:  schema.GroupAll,
		TriggeredBy: "topo",
		ValidRange:  []*float64{schema.Bound(0), nil},
	})
	require.NoError(t, err)

	s, err := New(r, WithPoints(3), WithLazy())
	require.NoError(t, err)
	require.NoError(t, s.Set("topo", backend.FromSlice([]float64{-1, 0, 1})))

	sea, _, err := s.Mask("sea_mask")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, sea)
}

func TestStringRendering(t *testing.T) {
	s := waveGrid(t)
	require.NoError(t, s.Set("hs", backend.Scalar(1)))

	out := s.String()
	assert.Contains(t, out, "test-grid")
	assert.Contains(t, out, "hs")
	assert.Contains(t, out, "sea_mask")
	assert.Contains(t, out, "wind_dir")
}
