package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what happens to operational audit events.
type Metrics struct {
	Forwarded    prometheus.Counter
	Sampled      prometheus.Counter
	CircuitDrops prometheus.Counter
	Failures     prometheus.Counter
	CircuitState prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Forwarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "refunds_audit_ops_forwarded_total",
			Help: "Operational audit events handed to the sink",
		}),
		Sampled: factory.NewCounter(prometheus.CounterOpts{
			Name: "refunds_audit_ops_sampled_total",
			Help: "Operational audit events dropped by sampling",
		}),
		CircuitDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "refunds_audit_ops_circuit_dropped_total",
			Help: "Operational audit events dropped while the sink circuit was open",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "refunds_audit_ops_failures_total",
			Help: "Operational audit events the sink rejected",
		}),
		CircuitState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "refunds_audit_ops_circuit_state",
			Help: "Sink circuit state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incForwarded() {
	if m != nil {
		m.Forwarded.Inc()
	}
}

func (m *Metrics) incSampled() {
	if m != nil {
		m.Sampled.Inc()
	}
}

func (m *Metrics) incCircuitDrop() {
	if m != nil {
		m.CircuitDrops.Inc()
	}
}

func (m *Metrics) incFailure() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitState.Set(1)
	} else {
		m.CircuitState.Set(0)
	}
}
