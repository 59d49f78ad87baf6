package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"refunds/internal/compliance/engine"
	compliancemetrics "refunds/internal/compliance/metrics"
	complianceports "refunds/internal/compliance/ports"
	"refunds/internal/compliance/providers"
	compliancestore "refunds/internal/compliance/store"
	"refunds/internal/parameter/cache"
	paramhandler "refunds/internal/parameter/handler"
	parammetrics "refunds/internal/parameter/metrics"
	paramservice "refunds/internal/parameter/service"
	paramstore "refunds/internal/parameter/store"
	"refunds/internal/platform/config"
	"refunds/internal/platform/database"
	"refunds/internal/platform/httpserver"
	"refunds/internal/platform/logger"
	httpmetrics "refunds/internal/platform/metrics"
	"refunds/internal/platform/middleware"
	"refunds/internal/platform/redis"
	"refunds/internal/refund/adapters"
	refundhandler "refunds/internal/refund/handler"
	refundmetrics "refunds/internal/refund/metrics"
	refundservice "refunds/internal/refund/service"
	"refunds/internal/seed"
	"refunds/pkg/platform/audit"
	"refunds/pkg/platform/audit/consumer"
	compliancepublisher "refunds/pkg/platform/audit/publishers/compliance"
	kafkapublisher "refunds/pkg/platform/audit/publishers/kafka"
	"refunds/pkg/platform/audit/publishers/ops"
	auditstore "refunds/pkg/platform/audit/store/memory"
	"refunds/pkg/platform/audit/store/sqlstore"
	"refunds/pkg/platform/audit/worker"
	"refunds/pkg/platform/circuit"
	"refunds/pkg/platform/httputil"
	"refunds/pkg/platform/middleware/metadata"
	"refunds/pkg/platform/middleware/requesttime"
	txcontext "refunds/pkg/platform/tx"
)

// main wires the stores, resolver, compliance engine and refund validator
// behind one HTTP router. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type closer func()

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cleanup []closer
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	checks := map[string]func(context.Context) error{}
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		cleanup = append(cleanup, func() { _ = db.Close() })
		checks["database"] = db.PingContext
	}
	paramStore, ruleStore, err := buildStores(ctx, db, log)
	if err != nil {
		return err
	}

	merchants := adapters.NewMerchantDirectory()
	if cfg.SeedFile != "" {
		if err := loadSeed(ctx, db, cfg.SeedFile, &seed.Loader{
			Parameters: paramStore,
			Rules:      ruleStore,
			Merchants:  merchants,
			CreatedBy:  "seed",
		}, log); err != nil {
			return err
		}
	}

	pm := parammetrics.New()
	resolver, err := paramservice.New(paramStore, merchants,
		paramservice.WithLogger(log),
		paramservice.WithMetrics(pm),
	)
	if err != nil {
		return err
	}
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var backend cache.Backend = cache.NewMemory()
	if redisClient != nil {
		cleanup = append(cleanup, func() { _ = redisClient.Close() })
		checks["redis"] = redisClient.Health
		backend = cache.NewRedis(redisClient.Client)
		log.Info("using redis parameter cache")
	}
	params, err := cache.New(resolver, backend, cfg.Parameters.CacheTTL,
		cache.WithLogger(log),
		cache.WithMetrics(pm),
		cache.WithGranularity(cfg.Parameters.CacheGranularity),
	)
	if err != nil {
		return err
	}

	eng, err := engine.New(guardedProviders(ruleStore, log),
		engine.WithLogger(log),
		engine.WithMetrics(compliancemetrics.New()),
		engine.WithProviderTimeout(cfg.Compliance.ProviderTimeout),
		engine.WithEvaluationTimeout(cfg.Compliance.EvaluationTimeout),
	)
	if err != nil {
		return err
	}

	sink, closeSink, err := buildAuditSink(ctx, cfg.Kafka, db, log)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeSink)
	if db != nil && len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.ConsumerGroup != "" {
		stopConsumer, err := startAuditConsumer(ctx, cfg.Kafka, db, log)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, stopConsumer)
	}
	guarded := ops.New(sink,
		ops.WithSampler(ops.NewSampler(cfg.Audit.OpsSampleRate)),
		ops.WithMetrics(ops.NewMetrics()),
		ops.WithLogger(log),
	)
	publisher := worker.NewWorker(guarded, worker.WithBuffer(cfg.Audit.Buffer), worker.WithLogger(log))
	cleanup = append(cleanup, runInBackground(ctx, "audit worker", publisher.Run, log))

	validator, err := refundservice.New(params, eng, merchants, merchants,
		refundservice.WithLogger(log),
		refundservice.WithMetrics(refundmetrics.New()),
		refundservice.WithApprovalRequester(adapters.NewApprovalQueue(adapters.WithApprovalLogger(log))),
		refundservice.WithAuditPublisher(publisher),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		metadata.ClientMetadata,
		requesttime.Middleware,
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.Metrics(httpmetrics.New()),
	)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(checks))
	paramhandler.New(params, log).Register(router)
	refundhandler.New(validator, log).Register(router)

	srv := httpserver.New(cfg.Addr, otelhttp.NewHandler(router, "refunds"))
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting refunds server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

type parameterStore interface {
	paramservice.Store
	seed.ParameterWriter
}

type ruleStore interface {
	complianceports.RuleStore
	seed.RuleWriter
}

// buildStores selects the SQL stores when a database is configured.
func buildStores(ctx context.Context, db *sql.DB, log *slog.Logger) (parameterStore, ruleStore, error) {
	if db == nil {
		log.Info("using in-memory parameter and rule stores")
		return paramstore.NewInMemoryStore(), compliancestore.NewInMemoryStore(), nil
	}
	ps := paramstore.NewSQL(db)
	if err := ps.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate parameters: %w", err)
	}
	rs := compliancestore.NewSQL(db)
	if err := rs.Migrate(ctx); err != nil {
		return nil, nil, fmt.Errorf("migrate compliance rules: %w", err)
	}
	log.Info("using postgres parameter and rule stores")
	return ps, rs, nil
}

// healthz reports 503 with the failing dependencies when any check fails.
func healthz(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		failing := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failing[name] = err.Error()
			}
		}
		if len(failing) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failing": failing})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// guardedProviders wraps each rule provider in its own circuit breaker.
func guardedProviders(rules complianceports.RuleStore, log *slog.Logger) []providers.Provider {
	base := []providers.Provider{
		providers.NewCardNetwork(rules),
		providers.NewRegulatory(rules),
		providers.NewMerchant(rules),
	}
	out := make([]providers.Provider, len(base))
	for i, p := range base {
		breaker := circuit.New(string(p.Type()),
			circuit.WithFailureThreshold(5),
			circuit.WithCooldown(30*time.Second),
		)
		out[i] = providers.NewGuarded(p, breaker, log)
	}
	return out
}

// loadSeed applies the seed file. With a database every parameter and rule
// insert shares one transaction so a bad file leaves no partial state.
func loadSeed(ctx context.Context, db *sql.DB, path string, loader *seed.Loader, log *slog.Logger) error {
	var stats seed.Stats
	load := func(ctx context.Context) error {
		var err error
		stats, err = loader.LoadFile(ctx, path)
		return err
	}
	var err error
	if db == nil {
		err = load(ctx)
	} else {
		err = txcontext.Run(ctx, db, func(ctx context.Context, _ *sql.Tx) error { return load(ctx) })
	}
	if err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	log.Info("seed data loaded",
		"file", path,
		"merchants", stats.Merchants,
		"parameters", stats.Parameters,
		"rules", stats.Rules,
	)
	return nil
}

// runInBackground starts fn and returns a closer that cancels it and waits.
func runInBackground(ctx context.Context, name string, fn func(context.Context) error, log *slog.Logger) closer {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := fn(ctx); err != nil {
			log.Error("background task stopped", "task", name, "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// buildAuditSink picks where audit events end up: Kafka when brokers are
// configured, the audit table when only a database is, memory otherwise.
func buildAuditSink(ctx context.Context, cfg config.KafkaConfig, db *sql.DB, log *slog.Logger) (audit.Publisher, closer, error) {
	if len(cfg.Brokers) == 0 {
		if db != nil {
			store, err := migratedAuditStore(ctx, db)
			if err != nil {
				return nil, nil, err
			}
			log.Info("writing audit events to the database")
			return compliancepublisher.New(store, compliancepublisher.WithLogger(log)), func() {}, nil
		}
		log.Info("using in-memory audit store")
		return compliancepublisher.New(auditstore.NewInMemoryStore(), compliancepublisher.WithLogger(log)), func() {}, nil
	}
	p, err := kafkapublisher.New(cfg.Brokers, cfg.AuditTopic, kafkapublisher.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("audit publisher: %w", err)
	}
	if err := p.EnsureTopic(ctx, 3, 1); err != nil {
		log.Warn("could not ensure audit topic", "topic", cfg.AuditTopic, "error", err)
	}
	log.Info("publishing audit events to kafka", "topic", cfg.AuditTopic)
	return p, p.Close, nil
}

// startAuditConsumer reads the audit topic back into the audit table.
func startAuditConsumer(ctx context.Context, cfg config.KafkaConfig, db *sql.DB, log *slog.Logger) (closer, error) {
	store, err := migratedAuditStore(ctx, db)
	if err != nil {
		return nil, err
	}
	router := consumer.NewRouter(log, nil)
	router.Register(audit.CategoryCompliance, consumer.NewStoreHandler(store, log))
	router.Register(audit.CategoryOperations, consumer.NewLogHandler(log))
	c, err := consumer.New(cfg.Brokers, cfg.ConsumerGroup, cfg.AuditTopic, router, consumer.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("audit consumer: %w", err)
	}
	log.Info("materializing audit topic", "topic", cfg.AuditTopic, "group", cfg.ConsumerGroup)
	stop := runInBackground(ctx, "audit consumer", c.Run, log)
	return func() {
		stop()
		c.Close()
	}, nil
}

func migratedAuditStore(ctx context.Context, db *sql.DB) (*sqlstore.Store, error) {
	store := sqlstore.New(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate audit events: %w", err)
	}
	return store, nil
}
