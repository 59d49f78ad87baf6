// Package engine evaluates a refund against every applicable compliance rule.
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"refunds/internal/compliance/evaluator"
	"refunds/internal/compliance/metrics"
	"refunds/internal/compliance/models"
	"refunds/internal/compliance/providers"
	"refunds/internal/platform/logger"
	dErrors "refunds/pkg/domain-errors"
	"refunds/pkg/requestcontext"
)

const (
	defaultProviderTimeout   = 2 * time.Second
	defaultEvaluationTimeout = 5 * time.Second
)

var tracer = otel.Tracer("refunds/compliance")

// Engine fans out to every rule provider, evaluates each returned rule and
// aggregates the violations. A provider failure fails the whole evaluation.
type Engine struct {
	providers         []providers.Provider
	providerTimeout   time.Duration
	evaluationTimeout time.Duration
	logger            *slog.Logger
	metrics           *metrics.Metrics
	newID             func() string
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithProviderTimeout bounds each provider's rule fetch.
func WithProviderTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.providerTimeout = d
		}
	}
}

// WithEvaluationTimeout bounds the whole fan-out.
func WithEvaluationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.evaluationTimeout = d
		}
	}
}

// WithIDGenerator overrides how evaluation ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New builds an Engine. Each provider type may be registered once.
func New(ps []providers.Provider, opts ...Option) (*Engine, error) {
	if len(ps) == 0 {
		return nil, errors.New("at least one rule provider is required")
	}
	seen := make(map[models.ProviderType]bool, len(ps))
	for _, p := range ps {
		if p == nil {
			return nil, errors.New("rule provider is nil")
		}
		if !p.Type().IsValid() {
			return nil, fmt.Errorf("unknown provider type %q", p.Type())
		}
		if seen[p.Type()] {
			return nil, fmt.Errorf("provider %s registered twice", p.Type())
		}
		seen[p.Type()] = true
	}

	e := &Engine{
		providers:         slices.Clone(ps),
		providerTimeout:   defaultProviderTimeout,
		evaluationTimeout: defaultEvaluationTimeout,
		newID:             uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Discard()
	}
	return e, nil
}

// fetched holds one provider's rules.
type fetched struct {
	provider models.ProviderType
	rules    []*models.Rule
}

// Evaluate returns every violation c incurs. Infrastructure failures are
// returned as errors carrying dErrors.CodeUnavailable and never as a partial
// result.
func (e *Engine) Evaluate(ctx context.Context, c *models.Context) (*models.Result, error) {
	if err := validateContext(c); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "compliance.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("merchant.id", c.MerchantID),
		attribute.String("refund.method", string(c.RefundMethod)),
	)

	start := time.Now()
	defer func() { e.metrics.ObserveEvaluate(time.Since(start)) }()

	now := requestcontext.Now(ctx)
	batches, err := e.gatherRules(ctx, c, now)
	if err != nil {
		e.metrics.IncEvaluation("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := e.evaluateRules(ctx, batches, c, now)
	result.EvaluationID = e.newID()

	outcome := "compliant"
	if !result.Compliant {
		outcome = "violations"
	}
	e.metrics.IncEvaluation(outcome)
	e.metrics.ObserveRules(result.RulesEvaluated)
	span.SetAttributes(
		attribute.Bool("compliance.compliant", result.Compliant),
		attribute.Int("compliance.violations", len(result.Violations)),
		attribute.Int("compliance.rules", result.RulesEvaluated),
	)

	e.logger.InfoContext(ctx, "compliance evaluated",
		"evaluation_id", result.EvaluationID,
		"merchant_id", c.MerchantID,
		"refund_method", c.RefundMethod,
		"compliant", result.Compliant,
		"violations", strings.Join(result.Codes(), ","),
		"rules", result.RulesEvaluated,
		"request_id", requestcontext.RequestID(ctx),
	)
	return result, nil
}

// gatherRules fetches from every provider concurrently. The first failure
// cancels the others.
func (e *Engine) gatherRules(ctx context.Context, c *models.Context, asOf time.Time) ([]fetched, error) {
	ctx, cancel := context.WithTimeout(ctx, e.evaluationTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	batches := make([]fetched, len(e.providers))

	for i, p := range e.providers {
		g.Go(func() error {
			rules, err := e.fetch(ctx, p, c, asOf)
			if err != nil {
				return err
			}
			batches[i] = fetched{provider: p.Type(), rules: rules}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

func (e *Engine) fetch(ctx context.Context, p providers.Provider, c *models.Context, asOf time.Time) ([]*models.Rule, error) {
	ctx, cancel := context.WithTimeout(ctx, e.providerTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "compliance.FetchRules")
	defer span.End()
	span.SetAttributes(attribute.String("compliance.provider", string(p.Type())))

	start := time.Now()
	rules, err := p.FetchApplicableRules(ctx, c, asOf)
	e.metrics.ObserveProvider(string(p.Type()), time.Since(start))
	if err == nil {
		span.SetAttributes(attribute.Int("compliance.rules", len(rules)))
		return rules, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	pe := providers.Classify(p.Type(), err)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && pe.Category != providers.ErrorTimeout {
		pe = providers.NewProviderError(providers.ErrorTimeout, p.Type(), "rule fetch timed out", err)
	}
	e.metrics.IncProviderFailure(string(p.Type()), string(pe.Category))
	e.logger.WarnContext(ctx, "compliance provider failed",
		"provider", p.Type(),
		"category", pe.Category,
		"retryable", pe.Retryable,
		"merchant_id", c.MerchantID,
		"error", err,
	)
	return nil, dErrors.Wrap(pe, dErrors.CodeUnavailable,
		fmt.Sprintf("compliance provider %s unavailable", p.Type()))
}

func (e *Engine) evaluateRules(ctx context.Context, batches []fetched, c *models.Context, now time.Time) *models.Result {
	subject := evaluator.NewSubject(c, now)
	result := &models.Result{
		Violations:      []models.Violation{},
		EvaluatedAt:     now,
		RulesByProvider: make(map[models.ProviderType]int, len(batches)),
	}

	for _, batch := range batches {
		result.RulesByProvider[batch.provider] += len(batch.rules)
		for _, rule := range batch.rules {
			result.RulesEvaluated++
			v := evaluator.Evaluate(rule, subject)
			if v == nil {
				continue
			}
			if v.ProviderType == "" {
				v.ProviderType = batch.provider
			}
			if evaluator.IsUnevaluable(*v) {
				e.metrics.IncUnevaluable(rule.RuleID)
				e.logger.ErrorContext(ctx, "compliance rule could not be evaluated",
					"rule_id", rule.RuleID,
					"rule_type", rule.RuleType,
					"provider", batch.provider,
					"message", v.Message,
				)
			}
			e.metrics.IncViolation(string(v.ProviderType), string(v.Severity))
			result.Violations = append(result.Violations, *v)
		}
	}

	SortViolations(result.Violations)
	result.Compliant = len(result.Violations) == 0
	return result
}

// SortViolations orders by provider precedence, then rule id.
func SortViolations(vs []models.Violation) {
	slices.SortStableFunc(vs, func(a, b models.Violation) int {
		if c := cmp.Compare(a.ProviderType.Rank(), b.ProviderType.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(a.RuleID, b.RuleID)
	})
}

func validateContext(c *models.Context) error {
	if c == nil {
		return dErrors.New(dErrors.CodeBadRequest, "compliance context is required")
	}
	if strings.TrimSpace(c.MerchantID) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "merchant id is required")
	}
	if _, err := models.ParseRefundMethod(string(c.RefundMethod)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid refund method")
	}
	if c.Amount.IsNegative() {
		return dErrors.New(dErrors.CodeBadRequest, "refund amount must not be negative")
	}
	if c.Transaction.ProcessedAt.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "transaction processed date is required")
	}
	return nil
}
