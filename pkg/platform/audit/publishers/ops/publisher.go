// Package ops guards the audit sink from operational event volume.
//
// Compliance-category events always pass straight through. Operational events
// are sampled and, while the sink keeps failing, dropped behind a circuit
// breaker so they cannot crowd out compliance writes.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "refunds/pkg/platform/audit"
	"refunds/pkg/platform/circuit"
)

// Publisher wraps another audit.Publisher.
type Publisher struct {
	next    audit.Publisher
	sampler *Sampler
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		if s != nil {
			p.sampler = s
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New keeps every operational event and opens after five straight failures
// unless overridden.
func New(next audit.Publisher, opts ...Option) *Publisher {
	p := &Publisher{
		next:    next,
		sampler: NewSampler(1),
		breaker: circuit.New("audit_ops",
			circuit.WithFailureThreshold(5),
			circuit.WithCooldown(time.Minute),
		),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit forwards compliance events unconditionally. Operational events that
// are sampled out or hit an open circuit are dropped with a nil error.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action.Category() == audit.CategoryCompliance {
		return p.next.Emit(ctx, event)
	}
	if !p.sampler.Keep(event.Action) {
		p.metrics.incSampled()
		return nil
	}
	if !p.breaker.Allow() {
		p.metrics.incCircuitDrop()
		return nil
	}

	if err := p.next.Emit(ctx, event); err != nil {
		p.metrics.incFailure()
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.metrics.setCircuitOpen(true)
			p.logger.WarnContext(ctx, "operational audit circuit opened", "error", err)
		}
		return nil
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.setCircuitOpen(false)
		p.logger.InfoContext(ctx, "operational audit circuit closed")
	}
	p.metrics.incForwarded()
	return nil
}
