// Package skeleton is the host-facing object of gridskel. A Skeleton owns a
// private clone of a schema registry, a labeled array store and a numeric
// backend, and exposes Set and Get as the two steady-state entry points.
// Writes are staged: coercion, vector decomposition and mask triggers are all
// computed before the first store mutation, so a failed Set changes nothing.
package skeleton

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/c360studio/gridskel/backend"
	"github.com/c360studio/gridskel/metrics"
	"github.com/c360studio/gridskel/reshape"
	"github.com/c360studio/gridskel/schema"
	"github.com/c360studio/gridskel/store"
	"github.com/c360studio/gridskel/vector"
)

// Skeleton binds a registry clone to concrete coordinate values and stored
// field data. It is not safe for concurrent use; callers in a multi-threaded
// host must serialize access per instance.
type Skeleton struct {
	name   string
	logger *slog.Logger
	m      *metrics.Metrics

	reg    *schema.Registry
	store  *store.Store
	b      backend.Backend
	engine *vector.Engine
}

// Option configures a Skeleton during construction.
type Option func(*options)

type options struct {
	name    string
	logger  *slog.Logger
	metrics *metrics.Metrics
	lazy    bool

	mode    schema.SpatialMode
	modeSet bool

	coordOrder []string
	coords     map[string][]float64
}

// WithName sets the instance name. Unnamed instances get a generated UUID.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics attaches Prometheus instrumentation to the steady-state
// operations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLazy selects the lazy numeric backend: derived values and triggered
// masks are deferred until materialized.
func WithLazy() Option {
	return func(o *options) { o.lazy = true }
}

// WithXY sets Cartesian native coordinates with the given axis values.
func WithXY(x, y []float64) Option {
	return func(o *options) {
		o.mode, o.modeSet = schema.Cartesian, true
		o.setCoord("x", x)
		o.setCoord("y", y)
	}
}

// WithLonLat sets spherical native coordinates with the given axis values.
func WithLonLat(lon, lat []float64) Option {
	return func(o *options) {
		o.mode, o.modeSet = schema.Spherical, true
		o.setCoord("lon", lon)
		o.setCoord("lat", lat)
	}
}

// WithPoints sets an unstructured point collection of n points. The inds
// axis is numbered 0..n-1.
func WithPoints(n int) Option {
	return func(o *options) {
		o.mode, o.modeSet = schema.PointSet, true
		inds := make([]float64, n)
		for i := range inds {
			inds[i] = float64(i)
		}
		o.setCoord("inds", inds)
	}
}

// WithCoord supplies the value vector of a declared non-spatial coordinate.
func WithCoord(name string, values []float64) Option {
	return func(o *options) { o.setCoord(name, values) }
}

func (o *options) setCoord(name string, values []float64) {
	if _, ok := o.coords[name]; !ok {
		o.coordOrder = append(o.coordOrder, name)
	}
	o.coords[name] = values
}

// New builds a Skeleton over a private clone of reg. Every coordinate the
// registry declares must receive a value vector through options; the clone's
// native spatial pair follows the WithXY/WithLonLat/WithPoints option when
// one is given.
func New(reg *schema.Registry, opts ...Option) (*Skeleton, error) {
	o := options{
		logger: slog.Default(),
		coords: make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = uuid.New().String()
	}

	r := reg.Clone()
	if o.modeSet && o.mode != r.Mode() {
		switched, err := r.WithSpatial(o.mode)
		if err != nil {
			return nil, err
		}
		r = switched
	}

	st := store.New()
	for _, name := range o.coordOrder {
		if _, ok := r.Lookup(name).(*schema.Coordinate); !ok {
			return nil, fmt.Errorf("%q is not a declared coordinate", name)
		}
		if err := st.SetCoord(name, o.coords[name]); err != nil {
			return nil, err
		}
	}

	all, err := r.Coords(schema.GroupAll)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if _, err := st.CoordLength(c); err != nil {
			return nil, fmt.Errorf("coordinate %q has no values", c)
		}
	}

	var b backend.Backend
	if o.lazy {
		b = backend.NewLazy()
	} else {
		b = backend.NewEager()
	}

	s := &Skeleton{
		name:   o.name,
		logger: o.logger.With("skeleton", o.name),
		m:      o.metrics,
		reg:    r,
		store:  st,
		b:      b,
		engine: vector.New(b),
	}
	s.logger.Debug("initialized",
		"mode", string(r.Mode()),
		"coords", all,
		"lazy", o.lazy)
	return s, nil
}

// Name returns the instance name.
func (s *Skeleton) Name() string { return s.name }

// Registry returns the instance's registry clone for introspection. Mutating
// it after construction is not supported.
func (s *Skeleton) Registry() *schema.Registry { return s.reg }

// Coords resolves a coordinate group on the instance's registry.
func (s *Skeleton) Coords(group schema.Group) ([]string, error) {
	return s.reg.Coords(group)
}

// Shape returns the resolved shape of a field or coordinate group.
func (s *Skeleton) Shape(name string) ([]int, error) {
	if _, ok := s.reg.Lookup(name).(*schema.Coordinate); ok {
		n, err := s.store.CoordLength(name)
		if err != nil {
			return nil, err
		}
		return []int{n}, nil
	}
	_, shape, err := s.fieldLayout(name)
	return shape, err
}

// Size returns the element count of a field.
func (s *Skeleton) Size(name string) (int, error) {
	shape, err := s.Shape(name)
	if err != nil {
		return 0, err
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n, nil
}

// Lookup returns the schema entity registered under name, or nil.
func (s *Skeleton) Lookup(name string) schema.Entity {
	return s.reg.Lookup(name)
}

// Materialize forces evaluation of every stored field. With the eager
// backend this is a no-op; with the lazy backend it resolves all deferred
// computations and surfaces any deferred error.
func (s *Skeleton) Materialize() error {
	for _, name := range s.store.Names() {
		tensor, dims, err := s.store.Field(name)
		if err != nil {
			return err
		}
		arr, err := tensor.Materialize()
		if err != nil {
			return fmt.Errorf("materialize %q: %w", name, err)
		}
		if err := s.store.SetField(name, dims, arr); err != nil {
			return err
		}
	}
	return nil
}

// fieldLayout resolves the coordinate list and concrete shape of a field
// from its coordinate group and the store's coordinate lengths.
func (s *Skeleton) fieldLayout(name string) ([]string, []int, error) {
	group, err := s.reg.CoordGroupOf(name)
	if err != nil {
		return nil, nil, err
	}
	coords, err := s.reg.Coords(group)
	if err != nil {
		return nil, nil, err
	}
	shape, err := reshape.Shape(coords, s.store.CoordLength)
	if err != nil {
		return nil, nil, err
	}
	return coords, shape, nil
}
