package schema

import (
	"fmt"
	"math"
)

// SpatialMode selects the native spatial coordinate pair of a registry.
// Exactly one of x/y or lon/lat is native for a given instance; point sets
// use a single inds axis.
type SpatialMode string

// Spatial modes.
const (
	Cartesian SpatialMode = "cartesian"
	Spherical SpatialMode = "spherical"
	PointSet  SpatialMode = "points"
)

// Valid reports whether m is a known spatial mode.
func (m SpatialMode) Valid() bool {
	return m == Cartesian || m == Spherical || m == PointSet
}

// Trigger is a rule that recomputes a mask whenever a specific variable is
// written, based on a value range.
type Trigger struct {
	MaskName       string
	ValidRange     [2]float64
	RangeInclusive [2]bool
}

// Registry owns the declarative schema of one class of gridded objects.
// It is built once during schema construction and cloned per instance; a
// clone shares no mutable state with its source.
type Registry struct {
	mode    SpatialMode
	spatial []string

	gridCoords      []string
	gridpointCoords []string

	entities map[string]Entity
	names    []string // registration order

	// triggers maps a variable name to the mask computations its writes fire.
	triggers map[string][]Trigger
}

// New creates an empty registry with the given native spatial pair already
// registered. Cartesian registers y/x, Spherical lat/lon, PointSet inds.
func New(mode SpatialMode) (*Registry, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown spatial mode %q", mode)
	}
	r := &Registry{
		entities: make(map[string]Entity),
		triggers: make(map[string][]Trigger),
	}
	r.setSpatial(mode)
	return r, nil
}

// MustNew is like New but panics on an invalid mode. For use in declarations.
func MustNew(mode SpatialMode) *Registry {
	r, err := New(mode)
	if err != nil {
		panic(err)
	}
	return r
}

// setSpatial installs the native spatial coordinates, removing any previous
// pair. Switching the pair is only meaningful before data is stored.
func (r *Registry) setSpatial(mode SpatialMode) {
	for _, name := range r.spatial {
		delete(r.entities, name)
		r.names = removeString(r.names, name)
	}

	r.mode = mode
	switch mode {
	case Cartesian:
		r.spatial = []string{"y", "x"}
	case Spherical:
		r.spatial = []string{"lat", "lon"}
	case PointSet:
		r.spatial = []string{"inds"}
	}
	for _, name := range r.spatial {
		r.entities[name] = &Coordinate{Name: name, Spatial: true}
		r.names = append(r.names, name)
	}
}

// WithSpatial returns a deep clone of the registry with the native spatial
// pair switched to mode. The receiver is never mutated.
func (r *Registry) WithSpatial(mode SpatialMode) (*Registry, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown spatial mode %q", mode)
	}
	clone := r.Clone()
	clone.setSpatial(mode)
	return clone, nil
}

// Mode returns the native spatial mode.
func (r *Registry) Mode() SpatialMode { return r.mode }

// AddCoordinate registers a coordinate axis. Group must be grid (outer
// dimension) or gridpoint (inner dimension of one grid point).
func (r *Registry) AddCoordinate(name string, group Group) error {
	if group != GroupGrid && group != GroupGridpoint {
		return fmt.Errorf("coordinate %q: group must be %q or %q, got %q", name, GroupGrid, GroupGridpoint, group)
	}
	if err := r.reserve(name); err != nil {
		return err
	}

	grid := group == GroupGrid
	r.entities[name] = &Coordinate{Name: name, Grid: grid}
	if grid {
		r.gridCoords = append(r.gridCoords, name)
	} else {
		r.gridpointCoords = append(r.gridpointCoords, name)
	}
	return nil
}

// AddDataVar registers a data variable over one of the five logical groups.
func (r *Registry) AddDataVar(v DataVar) error {
	if !v.CoordGroup.Valid() {
		return fmt.Errorf("variable %q: unknown coordinate group %q", v.Name, v.CoordGroup)
	}
	if v.DirType != "" && !v.DirType.Valid() {
		return &InvalidDirectionTypeError{DirType: string(v.DirType)}
	}
	if err := r.reserve(v.Name); err != nil {
		return err
	}
	cp := v
	r.entities[v.Name] = &cp
	return nil
}

// MaskSpec declares a mask. The registered field name carries a _mask suffix
// (mask "sea" becomes field "sea_mask"), as does the opposite.
type MaskSpec struct {
	Name         string
	CoordGroup   Group
	DefaultValue float64

	// OppositeName, when set, declares a second mask that is always the
	// logical complement and can never be written independently.
	OppositeName string

	// TriggeredBy names a data variable whose writes recompute the mask
	// from ValidRange and RangeInclusive.
	TriggeredBy string

	// ValidRange must hold exactly two bounds when TriggeredBy is set.
	// A nil bound is unbounded and normalized to ±Inf.
	ValidRange []*float64

	// RangeInclusive may hold one flag (applied to both bounds) or two.
	// Empty defaults to inclusive on both ends.
	RangeInclusive []bool
}

// Bound is a convenience for building MaskSpec ranges from literals.
func Bound(v float64) *float64 { return &v }

// AddMask registers a mask (and its opposite, if declared) and records the
// trigger rule against the triggering variable. It returns the stored field
// names of the mask and its opposite.
func (r *Registry) AddMask(spec MaskSpec) (name, opposite string, err error) {
	if !spec.CoordGroup.Valid() {
		return "", "", fmt.Errorf("mask %q: unknown coordinate group %q", spec.Name, spec.CoordGroup)
	}

	mask := &GridMask{
		Name:         spec.Name + "_mask",
		CoordGroup:   spec.CoordGroup,
		DefaultValue: spec.DefaultValue,
	}

	// Validate the trigger rule before claiming any names, so a failed
	// registration leaves the registry unchanged.
	if spec.TriggeredBy != "" {
		lo, hi, err := normalizeRange(spec.ValidRange)
		if err != nil {
			return "", "", err
		}
		incl, err := normalizeInclusive(spec.RangeInclusive)
		if err != nil {
			return "", "", err
		}
		mask.TriggeredBy = spec.TriggeredBy
		mask.ValidRange = [2]float64{lo, hi}
		mask.RangeInclusive = incl
	}

	name = mask.Name
	if err := r.reserve(name); err != nil {
		return "", "", err
	}

	if spec.OppositeName != "" {
		opposite = spec.OppositeName + "_mask"
		if err := r.reserve(opposite); err != nil {
			r.unreserve(name)
			return "", "", err
		}
		mask.Opposite = opposite
		r.entities[opposite] = &GridMask{
			Name:         opposite,
			CoordGroup:   spec.CoordGroup,
			DefaultValue: complement(spec.DefaultValue),
			OppositeOf:   name,
		}
	}

	if mask.TriggeredBy != "" {
		r.triggers[mask.TriggeredBy] = append(r.triggers[mask.TriggeredBy], Trigger{
			MaskName:       name,
			ValidRange:     mask.ValidRange,
			RangeInclusive: mask.RangeInclusive,
		})
	}

	r.entities[name] = mask
	return name, opposite, nil
}

func complement(v float64) float64 {
	if v == 0 {
		return 1
	}
	return 0
}

// AddMagnitude registers a derived magnitude over the component variables
// x and y, optionally paired with an already-registered direction.
func (r *Registry) AddMagnitude(name, x, y, direction string) error {
	if err := r.requireVar(x); err != nil {
		return err
	}
	if err := r.requireVar(y); err != nil {
		return err
	}
	if err := r.reserve(name); err != nil {
		return err
	}
	r.entities[name] = &Magnitude{Name: name, X: x, Y: y, Direction: direction}

	if direction != "" {
		if d, ok := r.entities[direction].(*Direction); ok {
			d.Magnitude = name
		}
	}
	return nil
}

// AddDirection registers a derived direction over the component variables
// x and y, optionally paired with an already-registered magnitude.
func (r *Registry) AddDirection(name, x, y string, dirType DirType, magnitude string) error {
	if !dirType.Valid() {
		return &InvalidDirectionTypeError{DirType: string(dirType)}
	}
	if err := r.requireVar(x); err != nil {
		return err
	}
	if err := r.requireVar(y); err != nil {
		return err
	}
	if err := r.reserve(name); err != nil {
		return err
	}
	r.entities[name] = &Direction{Name: name, X: x, Y: y, DirType: dirType, Magnitude: magnitude}

	if magnitude != "" {
		if m, ok := r.entities[magnitude].(*Magnitude); ok {
			m.Direction = name
		}
	}
	return nil
}

// Coords resolves a coordinate group into an ordered list of coordinate
// names: time first if present, then the native spatial pair (lat|y before
// lon|x, then inds), then added grid coordinates, then gridpoint coordinates.
func (r *Registry) Coords(group Group) ([]string, error) {
	switch group {
	case GroupSpatial:
		return moveTimeFront(cloneStrings(r.spatial)), nil
	case GroupGrid:
		return moveTimeFront(concat(r.spatial, r.gridCoords)), nil
	case GroupGridpoint:
		return moveTimeFront(cloneStrings(r.gridpointCoords)), nil
	case GroupAll:
		return moveTimeFront(concat(r.spatial, r.gridCoords, r.gridpointCoords)), nil
	case GroupNonspatial:
		return moveTimeFront(concat(r.gridCoords, r.gridpointCoords)), nil
	default:
		return nil, &UnknownCoordinateError{Name: string(group)}
	}
}

// Lookup returns the entity registered under name, or nil.
func (r *Registry) Lookup(name string) Entity {
	return r.entities[name]
}

// CoordGroupOf returns the coordinate group a stored field varies over.
// Coordinates vary only along themselves and have no group.
func (r *Registry) CoordGroupOf(name string) (Group, error) {
	switch e := r.entities[name].(type) {
	case *DataVar:
		return e.CoordGroup, nil
	case *GridMask:
		return e.CoordGroup, nil
	case *Magnitude:
		return r.CoordGroupOf(e.X)
	case *Direction:
		return r.CoordGroupOf(e.X)
	case nil:
		return "", &UnknownCoordinateError{Name: name}
	default:
		return "", fmt.Errorf("field %q (%s) has no coordinate group", name, e.Kind())
	}
}

// DefaultValue returns the default fill value of a variable or mask.
func (r *Registry) DefaultValue(name string) (float64, error) {
	switch e := r.entities[name].(type) {
	case *DataVar:
		return e.DefaultValue, nil
	case *GridMask:
		return e.DefaultValue, nil
	case nil:
		return 0, &UnknownCoordinateError{Name: name}
	default:
		return 0, fmt.Errorf("field %q (%s) has no default value", name, e.Kind())
	}
}

// Triggers returns the mask computations fired by writing the named variable.
func (r *Registry) Triggers(name string) []Trigger {
	specs := r.triggers[name]
	out := make([]Trigger, len(specs))
	copy(out, specs)
	return out
}

// IsSettable reports whether name accepts direct writes: data variables,
// magnitudes, directions and primary masks are settable; coordinates and
// opposite masks are not.
func (r *Registry) IsSettable(name string) bool {
	switch e := r.entities[name].(type) {
	case *DataVar, *Magnitude, *Direction:
		return true
	case *GridMask:
		return e.OppositeOf == ""
	default:
		return false
	}
}

// Names returns every registered field name in registration order.
func (r *Registry) Names() []string {
	return cloneStrings(r.names)
}

// ByKind returns the names of all entities of one kind, in registration order.
func (r *Registry) ByKind(kind Kind) []string {
	var out []string
	for _, name := range r.names {
		if r.entities[name].Kind() == kind {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns a deep copy with no shared mutable substructure, so the
// clone and the source can diverge safely.
func (r *Registry) Clone() *Registry {
	out := &Registry{
		mode:            r.mode,
		spatial:         cloneStrings(r.spatial),
		gridCoords:      cloneStrings(r.gridCoords),
		gridpointCoords: cloneStrings(r.gridpointCoords),
		entities:        make(map[string]Entity, len(r.entities)),
		names:           cloneStrings(r.names),
		triggers:        make(map[string][]Trigger, len(r.triggers)),
	}
	for name, e := range r.entities {
		out.entities[name] = cloneEntity(e)
	}
	for name, specs := range r.triggers {
		copied := make([]Trigger, len(specs))
		copy(copied, specs)
		out.triggers[name] = copied
	}
	return out
}

func cloneEntity(e Entity) Entity {
	switch v := e.(type) {
	case *Coordinate:
		cp := *v
		return &cp
	case *DataVar:
		cp := *v
		return &cp
	case *GridMask:
		cp := *v
		return &cp
	case *Magnitude:
		cp := *v
		return &cp
	case *Direction:
		cp := *v
		return &cp
	default:
		return e
	}
}

// reserve claims a name across every entity kind. Claimed names are tracked
// in registration order so a multi-name registration (mask plus opposite)
// detects collisions between its own names before committing.
func (r *Registry) reserve(name string) error {
	if name == "" {
		return fmt.Errorf("field name must not be empty")
	}
	for _, n := range r.names {
		if n == name {
			return &DuplicateFieldError{Name: name}
		}
	}
	r.names = append(r.names, name)
	return nil
}

func (r *Registry) unreserve(name string) {
	delete(r.entities, name)
	r.names = removeString(r.names, name)
}

func (r *Registry) requireVar(name string) error {
	if _, ok := r.entities[name].(*DataVar); !ok {
		return &UnknownCoordinateError{Name: name}
	}
	return nil
}

func normalizeRange(bounds []*float64) (lo, hi float64, err error) {
	if len(bounds) != 2 {
		return 0, 0, &InvalidRangeError{Reason: fmt.Sprintf("need exactly two bounds (lower, upper), got %d", len(bounds))}
	}
	lo, hi = math.Inf(-1), math.Inf(1)
	if bounds[0] != nil {
		lo = *bounds[0]
	}
	if bounds[1] != nil {
		hi = *bounds[1]
	}
	return lo, hi, nil
}

func normalizeInclusive(incl []bool) ([2]bool, error) {
	switch len(incl) {
	case 0:
		return [2]bool{true, true}, nil
	case 1:
		return [2]bool{incl[0], incl[0]}, nil
	case 2:
		return [2]bool{incl[0], incl[1]}, nil
	default:
		return [2]bool{}, &InvalidRangeError{Reason: fmt.Sprintf("range_inclusive needs one or two flags, got %d", len(incl))}
	}
}

func moveTimeFront(coords []string) []string {
	for i, c := range coords {
		if c == "time" {
			out := make([]string, 0, len(coords))
			out = append(out, "time")
			out = append(out, coords[:i]...)
			out = append(out, coords[i+1:]...)
			return out
		}
	}
	return coords
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
