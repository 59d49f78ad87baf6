// Package cache memoizes parameter resolutions for a short TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"refunds/internal/parameter/metrics"
	"refunds/internal/parameter/models"
	"refunds/internal/parameter/service"
	"refunds/internal/platform/logger"
	"refunds/pkg/requestcontext"
)

// ErrMiss is returned by a Backend when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend stores encoded resolutions.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry is the serialized form of a resolution. The value is re-decoded from
// the winning version on read.
type Entry struct {
	Name       string              `json:"name"`
	Level      models.EntityType   `json:"level"`
	Locked     bool                `json:"locked"`
	AsOf       time.Time           `json:"as_of"`
	Parameter  *models.Parameter   `json:"parameter"`
	Candidates []*models.Parameter `json:"candidates,omitempty"`
}

// Resolver wraps a Source and caches successful resolutions. Not-found and
// failed lookups always reach the wrapped Source.
type Resolver struct {
	next        service.Source
	backend     Backend
	ttl         time.Duration
	granularity time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
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

// WithGranularity sets how finely the request time partitions cache keys.
func WithGranularity(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.granularity = d
		}
	}
}

func New(next service.Source, backend Backend, ttl time.Duration, opts ...Option) (*Resolver, error) {
	if next == nil {
		return nil, errors.New("parameter source is required")
	}
	if backend == nil {
		return nil, errors.New("cache backend is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	r := &Resolver{
		next:        next,
		backend:     backend,
		ttl:         ttl,
		granularity: time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Discard()
	}
	return r, nil
}

func (r *Resolver) ResolveForMerchant(ctx context.Context, name, merchantID string) (*models.Resolution, error) {
	key := r.key(name, merchantID, requestcontext.Now(ctx))

	if res, ok := r.load(ctx, key); ok {
		r.metrics.IncCache("hit")
		return res, nil
	}
	r.metrics.IncCache("miss")

	res, err := r.next.ResolveForMerchant(ctx, name, merchantID)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, res)
	return res, nil
}

func (r *Resolver) key(name, merchantID string, asOf time.Time) string {
	bucket := asOf.Truncate(r.granularity).UnixMilli()
	return name + ":" + merchantID + ":" + strconv.FormatInt(bucket, 10)
}

func (r *Resolver) load(ctx context.Context, key string) (*models.Resolution, bool) {
	raw, err := r.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			r.metrics.IncCache("error")
			r.logger.WarnContext(ctx, "parameter cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Parameter == nil {
		r.logger.WarnContext(ctx, "discarding undecodable parameter cache entry", "key", key, "error", err)
		return nil, false
	}
	value, err := entry.Parameter.Decode()
	if err != nil {
		return nil, false
	}
	return &models.Resolution{
		Name:       entry.Name,
		Value:      value,
		Parameter:  entry.Parameter,
		Level:      entry.Level,
		Locked:     entry.Locked,
		Candidates: entry.Candidates,
		AsOf:       entry.AsOf,
	}, true
}

func (r *Resolver) store(ctx context.Context, key string, res *models.Resolution) {
	raw, err := json.Marshal(Entry{
		Name:       res.Name,
		Level:      res.Level,
		Locked:     res.Locked,
		AsOf:       res.AsOf,
		Parameter:  res.Parameter,
		Candidates: res.Candidates,
	})
	if err != nil {
		r.logger.WarnContext(ctx, "parameter cache encode failed", "key", key, "error", err)
		return
	}
	if err := r.backend.Set(ctx, key, raw, r.ttl); err != nil {
		r.metrics.IncCache("error")
		r.logger.WarnContext(ctx, "parameter cache write failed", "key", key, "error", err)
	}
}
