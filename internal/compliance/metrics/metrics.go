package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for compliance evaluation.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	EvaluateLatency    prometheus.Histogram
	ProviderLatency    *prometheus.HistogramVec
	ProviderFailures   *prometheus.CounterVec
	Violations         *prometheus.CounterVec
	UnevaluableRules   *prometheus.CounterVec
	RulesPerEvaluation prometheus.Histogram
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_compliance_evaluations_total",
			Help: "Compliance evaluations by outcome",
		}, []string{"outcome"}), // outcome: "compliant", "violations", "error"

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refunds_compliance_evaluate_duration_seconds",
			Help:    "Duration of a full compliance evaluation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "refunds_compliance_provider_duration_seconds",
			Help:    "Duration of rule fetches per provider",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"provider"}),

		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_compliance_provider_failures_total",
			Help: "Rule provider failures by category",
		}, []string{"provider", "category"}),

		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_compliance_violations_total",
			Help: "Reported violations by provider and severity",
		}, []string{"provider", "severity"}),

		UnevaluableRules: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refunds_compliance_unevaluable_rules_total",
			Help: "Stored rules that could not be evaluated",
		}, []string{"rule_id"}),

		RulesPerEvaluation: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refunds_compliance_rules_per_evaluation",
			Help:    "Number of rules evaluated per request",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
	}
}

func (m *Metrics) IncEvaluation(outcome string) {
	if m != nil {
		m.Evaluations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveEvaluate(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveProvider(provider string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func (m *Metrics) IncProviderFailure(provider, category string) {
	if m != nil {
		m.ProviderFailures.WithLabelValues(provider, category).Inc()
	}
}

func (m *Metrics) IncViolation(provider, severity string) {
	if m != nil {
		m.Violations.WithLabelValues(provider, severity).Inc()
	}
}

func (m *Metrics) IncUnevaluable(ruleID string) {
	if m != nil {
		m.UnevaluableRules.WithLabelValues(ruleID).Inc()
	}
}

func (m *Metrics) ObserveRules(n int) {
	if m != nil {
		m.RulesPerEvaluation.Observe(float64(n))
	}
}
