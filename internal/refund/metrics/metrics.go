package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for refund-method decisions.
type Metrics struct {
	Validations       *prometheus.CounterVec
	ValidationLatency prometheus.Histogram
	Selections        *prometheus.CounterVec
	ApprovalRequests  *prometheus.CounterVec
	AuditEmitFailures prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_method_validations_total",
			Help: "Refund method validations by method, decision and reason",
		}, []string{"method", "decision", "reason"}),

		ValidationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refunds_method_validation_duration_seconds",
			Help:    "End-to-end duration of a refund method validation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		Selections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_method_selections_total",
			Help: "Refund method selections by chosen method",
		}, []string{"method"}), // method: "none" when nothing qualified

		ApprovalRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_approval_requests_total",
			Help: "Escalations to the approval workflow by outcome",
		}, []string{"outcome"}),

		AuditEmitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "refunds_audit_emit_failures_total",
			Help: "Decision audit events that could not be published",
		}),
	}
}

func (m *Metrics) IncValidation(method, decision, reason string) {
	if m != nil {
		m.Validations.WithLabelValues(method, decision, reason).Inc()
	}
}

func (m *Metrics) ObserveValidation(d time.Duration) {
	if m != nil {
		m.ValidationLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncSelection(method string) {
	if m != nil {
		m.Selections.WithLabelValues(method).Inc()
	}
}

func (m *Metrics) IncApproval(outcome string) {
	if m != nil {
		m.ApprovalRequests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncAuditFailure() {
	if m != nil {
		m.AuditEmitFailures.Inc()
	}
}
