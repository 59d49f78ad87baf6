// Package compliance provides a synchronous audit publisher backed by an audit.Store.
//
// Emit blocks until the store write succeeds or fails. Whether a failed write
// aborts the business operation is the caller's decision.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "refunds/pkg/platform/audit"
)

// Publisher writes audit events to a store synchronously.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a store-backed publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates and persists an event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.MerchantID == "" {
		return fmt.Errorf("audit event requires MerchantID")
	}
	event.Normalize(p.now())

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"merchant_id", event.MerchantID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}
