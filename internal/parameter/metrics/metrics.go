package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for parameter resolution.
type Metrics struct {
	Resolutions     *prometheus.CounterVec
	ResolveLatency  prometheus.Histogram
	StoreLatency    *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	MalformedValues *prometheus.CounterVec
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_parameter_resolutions_total",
			Help: "Parameter resolutions by winning level and outcome",
		}, []string{"level", "outcome"}), // outcome: "resolved", "locked", "not_found", "error"

		ResolveLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refunds_parameter_resolve_duration_seconds",
			Help:    "Duration of a full hierarchy walk",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "refunds_parameter_store_duration_seconds",
			Help:    "Duration of single-level parameter lookups",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"level"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_parameter_cache_lookups_total",
			Help: "Parameter cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"

		MalformedValues: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_parameter_malformed_values_total",
			Help: "Stored values that failed their declared type",
		}, []string{"name"}),
	}
}

func (m *Metrics) IncResolution(level, outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(level, outcome).Inc()
	}
}

func (m *Metrics) ObserveResolve(d time.Duration) {
	if m != nil {
		m.ResolveLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveStore(level string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(level).Observe(d.Seconds())
	}
}

func (m *Metrics) IncCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncMalformed(name string) {
	if m != nil {
		m.MalformedValues.WithLabelValues(name).Inc()
	}
}
