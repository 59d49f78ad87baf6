package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"refunds/internal/compliance/models"
	"refunds/internal/platform/logger"
	"refunds/pkg/platform/circuit"
)

// Guarded wraps a Provider with a circuit breaker. An open circuit fails fast
// with a retryable ProviderError instead of waiting on a dependency known to
// be down.
type Guarded struct {
	next    Provider
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next Provider, breaker *circuit.Breaker, log *slog.Logger) *Guarded {
	if log == nil {
		log = logger.Discard()
	}
	return &Guarded{next: next, breaker: breaker, logger: log}
}

func (g *Guarded) Type() models.ProviderType {
	return g.next.Type()
}

func (g *Guarded) FetchApplicableRules(ctx context.Context, c *models.Context, asOf time.Time) ([]*models.Rule, error) {
	if !g.breaker.Allow() {
		return nil, NewProviderError(ErrorCircuitOpen, g.next.Type(), "circuit open", nil)
	}

	rules, err := g.next.FetchApplicableRules(ctx, c, asOf)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Canceled by the caller, not a dependency failure.
			return nil, err
		}
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "compliance provider circuit opened",
				"provider", g.next.Type(),
				"breaker", g.breaker.Name(),
				"error", err,
			)
		}
		return nil, err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "compliance provider circuit closed",
			"provider", g.next.Type(),
			"breaker", g.breaker.Name(),
		)
	}
	return rules, nil
}
