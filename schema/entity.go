// Package schema holds the declarative model of a gridded dataset: which
// coordinates, data variables, masks, magnitudes and directions exist, their
// coordinate-group membership, default values and trigger rules. The registry
// performs no I/O and no numeric computation.
package schema

// Kind discriminates the five entity kinds a registry can hold.
type Kind int

// Entity kinds.
const (
	KindCoordinate Kind = iota
	KindDataVar
	KindMask
	KindMagnitude
	KindDirection
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindCoordinate:
		return "coordinate"
	case KindDataVar:
		return "variable"
	case KindMask:
		return "mask"
	case KindMagnitude:
		return "magnitude"
	case KindDirection:
		return "direction"
	default:
		return "unknown"
	}
}

// Group names a coordinate group: a subset of coordinate axes a field varies
// over. The five logical groups are a fixed closed set.
type Group string

// Coordinate groups.
const (
	GroupAll        Group = "all"
	GroupGrid       Group = "grid"
	GroupGridpoint  Group = "gridpoint"
	GroupSpatial    Group = "spatial"
	GroupNonspatial Group = "nonspatial"
)

// Valid reports whether g is one of the five logical groups.
func (g Group) Valid() bool {
	switch g {
	case GroupAll, GroupGrid, GroupGridpoint, GroupSpatial, GroupNonspatial:
		return true
	}
	return false
}

// DirType names a direction convention.
//
//	math: counter-clockwise angle from the positive x-axis
//	to:   compass bearing the vector points toward
//	from: compass bearing the vector originates from
type DirType string

// Direction conventions.
const (
	DirMath DirType = "math"
	DirTo   DirType = "to"
	DirFrom DirType = "from"
)

// Valid reports whether d is a supported direction convention.
func (d DirType) Valid() bool {
	return d == DirMath || d == DirTo || d == DirFrom
}

// Entity is the closed variant over the five registrable kinds. Lookup
// returns an Entity and callers switch exhaustively on the concrete type.
type Entity interface {
	// EntityName returns the unique field name.
	EntityName() string

	// Kind returns the entity kind.
	Kind() Kind
}

// Coordinate defines an axis along which other fields may vary.
type Coordinate struct {
	Name string

	// Grid is true for outer-dimension coordinates (e.g. z, time on a grid)
	// and false for inner gridpoint coordinates (e.g. frequency).
	Grid bool

	// Spatial marks the always-present spatial axes (x/y, lon/lat, inds).
	Spatial bool
}

func (c *Coordinate) EntityName() string { return c.Name }
func (c *Coordinate) Kind() Kind         { return KindCoordinate }

// DataVar is a stored data variable defined over a coordinate group.
type DataVar struct {
	Name         string
	CoordGroup   Group
	DefaultValue float64

	// DirType tags a variable that holds directional data; used only when
	// the variable is paired with a magnitude.
	DirType DirType
}

func (v *DataVar) EntityName() string { return v.Name }
func (v *DataVar) Kind() Kind         { return KindDataVar }

// GridMask is a boolean mask stored as 0/1 over a coordinate group. A mask
// may have an opposite that is always its logical complement, and may be
// recomputed automatically when a trigger variable is written.
type GridMask struct {
	Name         string
	CoordGroup   Group
	DefaultValue float64

	// Opposite names the complementary mask, if one was declared.
	Opposite string

	// OppositeOf is set on the complementary mask itself and names the
	// primary mask it mirrors. Opposite masks are not directly settable.
	OppositeOf string

	// TriggeredBy names the data variable whose writes recompute this mask.
	TriggeredBy string

	// ValidRange is the [lower, upper] value range of the trigger, with
	// unbounded ends stored as ±Inf.
	ValidRange [2]float64

	// RangeInclusive records, per bound, whether the comparison is >=/<=
	// rather than >/<.
	RangeInclusive [2]bool
}

func (m *GridMask) EntityName() string { return m.Name }
func (m *GridMask) Kind() Kind         { return KindMask }

// Magnitude is a derived vector length, computed on demand from its two
// Cartesian component variables and never stored directly.
type Magnitude struct {
	Name string
	X    string
	Y    string

	// Direction names the paired direction field, if any.
	Direction string
}

func (m *Magnitude) EntityName() string { return m.Name }
func (m *Magnitude) Kind() Kind         { return KindMagnitude }

// Direction is a derived vector angle, computed on demand from its two
// Cartesian component variables and never stored directly.
type Direction struct {
	Name    string
	X       string
	Y       string
	DirType DirType

	// Magnitude names the paired magnitude field, if any.
	Magnitude string
}

func (d *Direction) EntityName() string { return d.Name }
func (d *Direction) Kind() Kind         { return KindDirection }
