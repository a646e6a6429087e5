package skeleton

import (
	"fmt"
	"strings"

	"github.com/c360studio/gridskel/backend"
	"github.com/c360studio/gridskel/schema"
)

// Insert writes a slab of data into a field at the position where the named
// coordinate equals value. The field is initialized to its default fill if
// it has never been written.
func (s *Skeleton) Insert(name string, slab *backend.Array, coord string, value float64) error {
	index, err := s.store.CoordIndex(coord, value)
	if err != nil {
		return err
	}
	return s.IndexInsert(name, slab, coord, index)
}

// IndexInsert writes a slab of data into a field at an index along the
// named coordinate.
func (s *Skeleton) IndexInsert(name string, slab *backend.Array, coord string, index int) error {
	if err := s.ensureField(name); err != nil {
		return err
	}
	if err := s.store.WriteSlab(name, coord, index, slab); err != nil {
		return err
	}
	s.logger.Debug("inserted slab", "name", name, "coord", coord, "index", index)
	return nil
}

// ensureField initializes an unwritten variable or mask to its default fill.
func (s *Skeleton) ensureField(name string) error {
	if s.store.Has(name) {
		return nil
	}
	coords, shape, err := s.fieldLayout(name)
	if err != nil {
		return err
	}
	def, err := s.reg.DefaultValue(name)
	if err != nil {
		return err
	}
	return s.store.SetField(name, coords, s.b.Full(shape, def))
}

// Edges returns the lowest and highest value of a coordinate axis.
func (s *Skeleton) Edges(coord string) (lo, hi float64, err error) {
	values, err := s.store.CoordValues(coord)
	if err != nil {
		return 0, 0, err
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, nil
}

// NX returns the length of the native x-like axis (x, lon, or inds).
func (s *Skeleton) NX() (int, error) {
	return s.store.CoordLength(s.xCoord())
}

// NY returns the length of the native y-like axis. Point collections have
// no second spatial axis and report 1.
func (s *Skeleton) NY() (int, error) {
	if s.reg.Mode() == schema.PointSet {
		return 1, nil
	}
	return s.store.CoordLength(s.yCoord())
}

// DX returns the mean spacing of the native x-like axis.
func (s *Skeleton) DX() (float64, error) {
	if s.reg.Mode() == schema.PointSet {
		return 0, fmt.Errorf("spacing is not defined for point collections")
	}
	return s.spacing(s.xCoord())
}

// DY returns the mean spacing of the native y-like axis.
func (s *Skeleton) DY() (float64, error) {
	if s.reg.Mode() == schema.PointSet {
		return 0, fmt.Errorf("spacing is not defined for point collections")
	}
	return s.spacing(s.yCoord())
}

func (s *Skeleton) spacing(coord string) (float64, error) {
	lo, hi, err := s.Edges(coord)
	if err != nil {
		return 0, err
	}
	n, err := s.store.CoordLength(coord)
	if err != nil {
		return 0, err
	}
	if n < 2 {
		return 0, nil
	}
	return (hi - lo) / float64(n-1), nil
}

func (s *Skeleton) xCoord() string {
	switch s.reg.Mode() {
	case schema.Cartesian:
		return "x"
	case schema.Spherical:
		return "lon"
	default:
		return "inds"
	}
}

func (s *Skeleton) yCoord() string {
	if s.reg.Mode() == schema.Cartesian {
		return "y"
	}
	return "lat"
}

// PointsWhere returns the native spatial coordinate values of every point
// where the mask is true: (x, y) pairs for grids, ind values for point
// collections (ys is nil). Non-spatial axes of the mask must be trivial.
func (s *Skeleton) PointsWhere(mask string) (xs, ys []float64, err error) {
	arr, dims, err := s.Mask(mask, NoSqueeze())
	if err != nil {
		return nil, nil, err
	}

	shape, err := s.Shape(mask)
	if err != nil {
		return nil, nil, err
	}
	spatial, err := s.reg.Coords(schema.GroupSpatial)
	if err != nil {
		return nil, nil, err
	}

	axes := make(map[string]int)
	for i, d := range dims {
		if contains(spatial, d) {
			axes[d] = i
		} else if shape[i] != 1 {
			return nil, nil, fmt.Errorf("mask %q varies over non-spatial coordinate %q", mask, d)
		}
	}

	xVals, err := s.store.CoordValues(s.xCoord())
	if err != nil {
		return nil, nil, err
	}
	var yVals []float64
	points := s.reg.Mode() == schema.PointSet
	if !points {
		yVals, err = s.store.CoordValues(s.yCoord())
		if err != nil {
			return nil, nil, err
		}
	}

	str := rowStrides(shape)
	xAxis, ok := axes[s.xCoord()]
	if !ok {
		return nil, nil, fmt.Errorf("mask %q does not span the spatial coordinates", mask)
	}
	yAxis := -1
	if !points {
		yAxis, ok = axes[s.yCoord()]
		if !ok {
			return nil, nil, fmt.Errorf("mask %q does not span the spatial coordinates", mask)
		}
	}
	for i, set := range arr {
		if !set {
			continue
		}
		xs = append(xs, xVals[(i/str[xAxis])%shape[xAxis]])
		if !points {
			ys = append(ys, yVals[(i/str[yAxis])%shape[yAxis]])
		}
	}
	return xs, ys, nil
}

// String renders the instance: its coordinate structure, which fields hold
// data and which are still empty.
func (s *Skeleton) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", s.name, s.reg.Mode())

	all, _ := s.reg.Coords(schema.GroupAll)
	b.WriteString("coordinates:\n")
	for _, c := range all {
		n, err := s.store.CoordLength(c)
		if err != nil {
			continue
		}
		lo, hi, _ := s.Edges(c)
		fmt.Fprintf(&b, "  %s: %d [%g, %g]\n", c, n, lo, hi)
	}

	writeFields := func(header string, kind schema.Kind) {
		names := s.reg.ByKind(kind)
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", header)
		for _, name := range names {
			state := "empty"
			if s.store.Has(name) {
				state = "set"
			}
			group, err := s.reg.CoordGroupOf(name)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "  %s (%s): %s\n", name, group, state)
		}
	}
	writeFields("variables", schema.KindDataVar)
	writeFields("masks", schema.KindMask)

	for _, kind := range []schema.Kind{schema.KindMagnitude, schema.KindDirection} {
		for _, name := range s.reg.ByKind(kind) {
			switch e := s.reg.Lookup(name).(type) {
			case *schema.Magnitude:
				fmt.Fprintf(&b, "magnitude %s over (%s, %s)\n", e.Name, e.X, e.Y)
			case *schema.Direction:
				fmt.Fprintf(&b, "direction %s over (%s, %s), %s convention\n", e.Name, e.X, e.Y, e.DirType)
			}
		}
	}
	return b.String()
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func rowStrides(shape []int) []int {
	out := make([]int, len(shape))
	acc := 1
	for d := len(shape) - 1; d >= 0; d-- {
		out[d] = acc
		acc *= shape[d]
	}
	return out
}
