// Package service resolves hierarchical, versioned parameters.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"refunds/internal/parameter/metrics"
	"refunds/internal/parameter/models"
	"refunds/internal/parameter/ports"
	"refunds/internal/platform/logger"
	dErrors "refunds/pkg/domain-errors"
	"refunds/pkg/platform/sentinel"
	"refunds/pkg/requestcontext"
)

// ErrParameterNotFound means no level of the hierarchy has an active value.
// Callers supply their own default.
var ErrParameterNotFound = errors.New("parameter not found")

var tracer = otel.Tracer("refunds/parameter")

// Type aliases for interfaces from ports package.
type (
	Store             = ports.Store
	MerchantDirectory = ports.MerchantDirectory
)

// Resolver walks MERCHANT → ORGANIZATION → PROGRAM → BANK → SYSTEM and returns
// the effective value of a parameter. It holds no mutable state.
type Resolver struct {
	store     Store
	directory MerchantDirectory
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithStoreTimeout bounds each single-level store lookup.
func WithStoreTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func New(store Store, directory MerchantDirectory, opts ...Option) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("parameter store is required")
	}
	if directory == nil {
		return nil, errors.New("merchant directory is required")
	}
	r := &Resolver{
		store:     store,
		directory: directory,
		timeout:   time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Discard()
	}
	return r, nil
}

// ResolveForMerchant looks up the merchant's ancestry and resolves name against it.
func (r *Resolver) ResolveForMerchant(ctx context.Context, name, merchantID string) (*models.Resolution, error) {
	if err := validateRequest(name, merchantID); err != nil {
		return nil, err
	}
	ancestry, err := r.directory.GetAncestry(ctx, merchantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "merchant not found")
		}
		return nil, fmt.Errorf("get ancestry for merchant %s: %w", merchantID, err)
	}
	return r.Resolve(ctx, name, models.Scope{MerchantID: merchantID, Ancestry: ancestry})
}

// Resolve returns the effective value of name for scope at the request time.
//
// The most specific active value wins, except that an ancestor whose active
// version is not overridable is authoritative over everything below it. When
// several ancestors are locked, the least specific one wins.
func (r *Resolver) Resolve(ctx context.Context, name string, scope models.Scope) (*models.Resolution, error) {
	if err := validateRequest(name, scope.MerchantID); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "parameter.Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("parameter.name", name),
		attribute.String("merchant.id", scope.MerchantID),
	)

	start := time.Now()
	defer func() { r.metrics.ObserveResolve(time.Since(start)) }()

	asOf := requestcontext.Now(ctx)
	res, err := r.walk(ctx, name, scope, asOf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrParameterNotFound) {
			r.metrics.IncResolution("none", "not_found")
		} else {
			r.metrics.IncResolution("none", "error")
		}
		return nil, err
	}

	value, err := res.Parameter.Decode()
	if err != nil {
		r.metrics.IncMalformed(name)
		r.metrics.IncResolution(string(res.Level), "error")
		r.logger.ErrorContext(ctx, "malformed parameter value",
			"parameter", name,
			"level", res.Level,
			"entity_id", res.Parameter.EntityID,
			"version", res.Parameter.Version,
			"data_type", res.Parameter.DataType,
			"error", err,
		)
		span.SetStatus(codes.Error, "malformed value")
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidConfig,
			fmt.Sprintf("parameter %s at %s v%d has a malformed value", name, res.Level, res.Parameter.Version))
	}
	res.Value = value

	outcome := "resolved"
	if res.Locked {
		outcome = "locked"
	}
	r.metrics.IncResolution(string(res.Level), outcome)
	span.SetAttributes(attribute.String("parameter.level", string(res.Level)))
	r.logger.DebugContext(ctx, "parameter resolved",
		"parameter", name,
		"merchant_id", scope.MerchantID,
		"level", res.Level,
		"version", res.Parameter.Version,
		"locked", res.Locked,
		"request_id", requestcontext.RequestID(ctx),
	)
	return res, nil
}

// walk goes from the least specific level down so that a locked ancestor ends
// the walk early. Otherwise the last (most specific) active value wins.
func (r *Resolver) walk(ctx context.Context, name string, scope models.Scope, asOf time.Time) (*models.Resolution, error) {
	res := &models.Resolution{Name: name, AsOf: asOf}

	for i := len(models.Precedence) - 1; i >= 0; i-- {
		level := models.Precedence[i]
		entityID := scope.EntityID(level)
		if level != models.EntitySystem && entityID == "" {
			continue
		}

		p, err := r.lookup(ctx, name, level, entityID, asOf)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}

		res.Candidates = append([]*models.Parameter{p}, res.Candidates...)
		res.Parameter = p
		res.Level = level

		if !p.Overridable && level != models.EntityMerchant {
			// More specific levels may still hold values; they are shadowed.
			shadowed := r.shadowed(ctx, name, scope, asOf, i)
			res.Locked = len(shadowed) > 0
			res.Candidates = append(shadowed, res.Candidates...)
			return res, nil
		}
	}

	if res.Parameter == nil {
		return nil, fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return res, nil
}

// shadowed returns the active versions at levels more specific than
// Precedence[idx], most specific first. Lookup failures here only affect the
// Locked flag and the candidate trace.
func (r *Resolver) shadowed(ctx context.Context, name string, scope models.Scope, asOf time.Time, idx int) []*models.Parameter {
	var found []*models.Parameter
	for j := 0; j < idx; j++ {
		level := models.Precedence[j]
		entityID := scope.EntityID(level)
		if entityID == "" {
			continue
		}
		p, err := r.lookup(ctx, name, level, entityID, asOf)
		if err != nil {
			r.logger.WarnContext(ctx, "shadowed parameter lookup failed",
				"parameter", name, "level", level, "error", err)
			continue
		}
		if p != nil {
			found = append(found, p)
		}
	}
	return found
}

func (r *Resolver) lookup(ctx context.Context, name string, level models.EntityType, entityID string, asOf time.Time) (*models.Parameter, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	p, err := r.store.FindActiveParameter(ctx, name, level, entityID, asOf)
	r.metrics.ObserveStore(string(level), time.Since(start))
	if err != nil {
		r.logger.WarnContext(ctx, "parameter store lookup failed",
			"parameter", name,
			"level", level,
			"entity_id", entityID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable,
			fmt.Sprintf("parameter store lookup for %s at %s", name, level))
	}
	if p != nil && !p.ActiveAt(asOf) {
		// Window is re-checked here; a store returning an expired version is treated as empty.
		return nil, nil
	}
	return p, nil
}

func validateRequest(name, merchantID string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "parameter name is required")
	}
	if strings.TrimSpace(merchantID) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "merchant id is required")
	}
	return nil
}
