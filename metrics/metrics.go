// Package metrics exposes Prometheus instrumentation for the steady-state
// field operations. All methods are safe on a nil receiver, so callers can
// instrument unconditionally and leave metrics off by default.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks set/get operations and trigger firings.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	triggers prometheus.Counter
}

// New registers the instrument set with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridskel",
			Subsystem: "fields",
			Name:      "operations_total",
			Help:      "Field operations by kind and outcome.",
		}, []string{"op", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridskel",
			Subsystem: "fields",
			Name:      "operation_duration_seconds",
			Help:      "Duration of field operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		triggers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gridskel",
			Subsystem: "fields",
			Name:      "mask_triggers_total",
			Help:      "Mask recomputations fired by variable writes.",
		}),
	}
}

// ObserveOp records one set/get operation with its duration and outcome.
func (m *Metrics) ObserveOp(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ops.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// TriggerFired records one mask recomputation.
func (m *Metrics) TriggerFired() {
	if m == nil {
		return
	}
	m.triggers.Inc()
}
