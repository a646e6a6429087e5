// Package config provides declarative schema files for gridskel. A Schema
// is the YAML form of a registry declaration: coordinates, variables, masks
// and vector pairs. Build turns a validated Schema into a schema.Registry.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/gridskel/schema"
)

// Schema is a complete schema declaration.
type Schema struct {
	// Name identifies the declared grid class.
	Name string `yaml:"name"`
	// Spatial selects the native spatial pair: cartesian, spherical or points.
	Spatial string `yaml:"spatial"`

	Coordinates []Coordinate `yaml:"coordinates,omitempty"`
	Variables   []Variable   `yaml:"variables,omitempty"`
	Masks       []Mask       `yaml:"masks,omitempty"`
	Vectors     []VectorPair `yaml:"vectors,omitempty"`
}

// Coordinate declares a coordinate axis.
type Coordinate struct {
	Name string `yaml:"name"`
	// Group is grid or gridpoint.
	Group string `yaml:"group"`
}

// Variable declares a data variable.
type Variable struct {
	Name string `yaml:"name"`
	// Group is one of all, grid, gridpoint, spatial, nonspatial.
	Group   string  `yaml:"group"`
	Default float64 `yaml:"default,omitempty"`
}

// Mask declares a boolean mask, optionally with an opposite and a trigger.
type Mask struct {
	Name     string  `yaml:"name"`
	Group    string  `yaml:"group"`
	Default  float64 `yaml:"default,omitempty"`
	Opposite string  `yaml:"opposite,omitempty"`

	// TriggeredBy names the variable whose writes recompute the mask.
	TriggeredBy string `yaml:"triggered_by,omitempty"`
	// Range holds the two bounds; null means unbounded.
	Range []*float64 `yaml:"range,omitempty"`
	// RangeInclusive holds one flag for both bounds or one per bound.
	RangeInclusive []bool `yaml:"range_inclusive,omitempty"`
}

// VectorPair declares a magnitude/direction pair over two component
// variables.
type VectorPair struct {
	Magnitude string `yaml:"magnitude"`
	Direction string `yaml:"direction"`
	X         string `yaml:"x"`
	Y         string `yaml:"y"`
	// DirType is math, to or from. Defaults to math.
	DirType string `yaml:"dir_type,omitempty"`
}

// DefaultSchema returns an empty spherical declaration.
func DefaultSchema() *Schema {
	return &Schema{
		Name:    "grid",
		Spatial: string(schema.Spherical),
	}
}

// Validate checks that the declaration is internally consistent.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !schema.SpatialMode(s.Spatial).Valid() {
		return fmt.Errorf("spatial must be cartesian, spherical or points, got %q", s.Spatial)
	}

	declared := make(map[string]bool)
	for _, c := range s.Coordinates {
		if c.Name == "" {
			return fmt.Errorf("coordinate name is required")
		}
		g := schema.Group(c.Group)
		if g != schema.GroupGrid && g != schema.GroupGridpoint {
			return fmt.Errorf("coordinate %q: group must be grid or gridpoint, got %q", c.Name, c.Group)
		}
	}
	for _, v := range s.Variables {
		if v.Name == "" {
			return fmt.Errorf("variable name is required")
		}
		if !schema.Group(v.Group).Valid() {
			return fmt.Errorf("variable %q: unknown group %q", v.Name, v.Group)
		}
		declared[v.Name] = true
	}
	for _, m := range s.Masks {
		if m.Name == "" {
			return fmt.Errorf("mask name is required")
		}
		if !schema.Group(m.Group).Valid() {
			return fmt.Errorf("mask %q: unknown group %q", m.Name, m.Group)
		}
		if m.TriggeredBy != "" {
			if !declared[m.TriggeredBy] {
				return fmt.Errorf("mask %q: triggering variable %q is not declared", m.Name, m.TriggeredBy)
			}
			if len(m.Range) != 2 {
				return fmt.Errorf("mask %q: range needs exactly two bounds", m.Name)
			}
		}
	}
	for _, v := range s.Vectors {
		if v.Magnitude == "" && v.Direction == "" {
			return fmt.Errorf("vector pair needs a magnitude or a direction name")
		}
		if !declared[v.X] || !declared[v.Y] {
			return fmt.Errorf("vector %s/%s: components %q and %q must be declared variables",
				v.Magnitude, v.Direction, v.X, v.Y)
		}
		if v.DirType != "" && !schema.DirType(v.DirType).Valid() {
			return fmt.Errorf("vector %s/%s: unknown dir_type %q", v.Magnitude, v.Direction, v.DirType)
		}
	}
	return nil
}

// Build constructs a registry from the declaration.
func (s *Schema) Build() (*schema.Registry, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	r, err := schema.New(schema.SpatialMode(s.Spatial))
	if err != nil {
		return nil, err
	}

	for _, c := range s.Coordinates {
		if err := r.AddCoordinate(c.Name, schema.Group(c.Group)); err != nil {
			return nil, err
		}
	}
	for _, v := range s.Variables {
		err := r.AddDataVar(schema.DataVar{
			Name:         v.Name,
			CoordGroup:   schema.Group(v.Group),
			DefaultValue: v.Default,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, m := range s.Masks {
		_, _, err := r.AddMask(schema.MaskSpec{
			Name:           m.Name,
			CoordGroup:     schema.Group(m.Group),
			DefaultValue:   m.Default,
			OppositeName:   m.Opposite,
			TriggeredBy:    m.TriggeredBy,
			ValidRange:     m.Range,
			RangeInclusive: m.RangeInclusive,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, v := range s.Vectors {
		dirType := schema.DirType(v.DirType)
		if dirType == "" {
			dirType = schema.DirMath
		}
		if v.Direction != "" {
			if err := r.AddDirection(v.Direction, v.X, v.Y, dirType, ""); err != nil {
				return nil, err
			}
		}
		if v.Magnitude != "" {
			if err := r.AddMagnitude(v.Magnitude, v.X, v.Y, v.Direction); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Bounds returns the declared range of a mask as concrete floats, with
// unbounded ends mapped to ±Inf.
func (m *Mask) Bounds() (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	if len(m.Range) == 2 {
		if m.Range[0] != nil {
			lo = *m.Range[0]
		}
		if m.Range[1] != nil {
			hi = *m.Range[1]
		}
	}
	return lo, hi
}

// LoadFromFile loads a schema declaration from a YAML file.
func LoadFromFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	s := DefaultSchema()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}
	return s, nil
}

// SaveToFile saves the declaration to a YAML file.
func (s *Schema) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create schema directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}

// Merge merges another declaration into this one. Scalar fields from other
// take precedence when set; declared field lists are appended.
func (s *Schema) Merge(other *Schema) {
	if other == nil {
		return
	}
	if other.Name != "" {
		s.Name = other.Name
	}
	if other.Spatial != "" {
		s.Spatial = other.Spatial
	}
	s.Coordinates = append(s.Coordinates, other.Coordinates...)
	s.Variables = append(s.Variables, other.Variables...)
	s.Masks = append(s.Masks, other.Masks...)
	s.Vectors = append(s.Vectors, other.Vectors...)
}
