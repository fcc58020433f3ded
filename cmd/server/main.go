package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"marketgate/internal/compliance/cpi"
	"marketgate/internal/compliance/gate"
	"marketgate/internal/compliance/handler"
	"marketgate/internal/compliance/marketpack"
	"marketgate/internal/compliance/metrics"
	"marketgate/internal/compliance/service"
	"marketgate/internal/compliance/store"
	"marketgate/internal/platform/config"
	"marketgate/internal/platform/httpserver"
	"marketgate/internal/platform/kafka"
	kafkaconsumer "marketgate/internal/platform/kafka/consumer"
	"marketgate/internal/platform/logger"
	"marketgate/internal/platform/middleware"
	"marketgate/internal/platform/otel"
	"marketgate/internal/platform/postgres"
	"marketgate/internal/platform/redis"
	"marketgate/pkg/platform/audit"
	auditconsumer "marketgate/pkg/platform/audit/consumer"
	complianceaudit "marketgate/pkg/platform/audit/publishers/compliance"
	opsaudit "marketgate/pkg/platform/audit/publishers/ops"
	auditmemory "marketgate/pkg/platform/audit/store/memory"
	auditpostgres "marketgate/pkg/platform/audit/store/postgres"
	"marketgate/pkg/platform/audit/worker"
	"marketgate/pkg/platform/circuit"
	"marketgate/pkg/platform/tx"
)

// main wires the gate engine, the decision service and the audit pipeline,
// then serves HTTP until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("marketgate stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, "marketgate", cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	reg := prometheus.DefaultRegisterer
	gateMetrics := metrics.New(reg)

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		return err
	}

	provider, closeCache, err := buildCPIProvider(ctx, cfg, log, gateMetrics)
	if err != nil {
		return err
	}
	defer closeCache()

	engine, err := gate.New(registry,
		gate.WithCPIProvider(provider),
		gate.WithLogger(log),
		gate.WithMetrics(gateMetrics),
	)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	stores := buildStores(db, cfg)
	publisher := complianceaudit.New(stores.audit,
		complianceaudit.WithLogger(log),
		complianceaudit.WithMetrics(complianceaudit.NewMetrics(reg)),
	)
	tracker := opsaudit.New(stores.audit,
		opsaudit.WithSampler(opsaudit.NewSampler(cfg.OpsSampleRate)),
		opsaudit.WithMetrics(opsaudit.NewMetrics(reg)),
		opsaudit.WithLogger(log),
	)

	svc, err := service.New(engine, stores.decisions, publisher,
		service.WithOpsTracker(tracker),
		service.WithTxRunner(stores.tx),
		service.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	handler.New(svc, log, middleware.NewHTTPMetrics(reg)).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	if err := startAuditPipeline(gctx, g, cfg, log, db, stores); err != nil {
		return err
	}

	g.Go(func() error {
		log.Info("starting marketgate", "addr", cfg.Addr, "markets", len(registry.Markets()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildRegistry(cfg config.Server, log *slog.Logger) (*marketpack.Registry, error) {
	registry, err := marketpack.NewBuiltinRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.MarketPackDir == "" {
		return registry, nil
	}
	overrides, err := marketpack.LoadDir(cfg.MarketPackDir)
	if err != nil {
		return nil, err
	}
	log.Info("loaded market pack overrides", "dir", cfg.MarketPackDir, "count", len(overrides))
	return registry.WithOverrides(overrides...)
}

// buildCPIProvider returns the provider rent-increase gates consult. With no
// CPI URL it is a static source when a static percent is configured, and nil
// otherwise so every evaluation uses the pack fallback value.
func buildCPIProvider(ctx context.Context, cfg config.Server, log *slog.Logger, m *metrics.Metrics) (cpi.Provider, func(), error) {
	noop := func() {}
	if cfg.CPI.URL == "" {
		if cfg.CPI.StaticPercent > 0 {
			log.Info("using static CPI source", "percent", cfg.CPI.StaticPercent)
			return cpi.StaticSource{Percent: cfg.CPI.StaticPercent}, noop, nil
		}
		log.Warn("no CPI source configured, rent increases use pack fallback CPI")
		return nil, noop, nil
	}

	var cache cpi.Cache = cpi.NewMemoryCache()
	closeCache := noop
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, noop, err
	}
	if rc != nil {
		cache = cpi.NewRedisCache(rc.Client, cfg.CPI.CacheTTL)
		closeCache = func() { _ = rc.Close() }
	}

	provider, err := cpi.NewFallbackProvider(
		cpi.NewHTTPSource(cfg.CPI.URL, &http.Client{Timeout: cfg.CPI.Timeout}),
		cpi.WithTimeout(cfg.CPI.Timeout),
		cpi.WithCache(cache),
		cpi.WithBreaker(circuit.New("cpi",
			circuit.WithFailureThreshold(cfg.CPI.FailureThreshold),
			circuit.WithSuccessThreshold(cfg.CPI.SuccessThreshold),
		)),
		cpi.WithLogger(log),
		cpi.WithMetrics(m),
	)
	if err != nil {
		closeCache()
		return nil, noop, err
	}
	return provider, closeCache, nil
}

type storeSet struct {
	decisions service.DecisionStore
	audit     audit.Store
	outbox    *auditpostgres.Store
	tx        service.TxRunner
}

func buildStores(db *sql.DB, cfg config.Server) storeSet {
	if db == nil {
		return storeSet{
			decisions: store.NewInMemoryStore(),
			audit:     auditmemory.NewInMemoryStore(),
			tx:        memoryTx{},
		}
	}
	outbox := auditpostgres.New(db)
	return storeSet{
		decisions: store.NewPostgres(db),
		audit:     outbox,
		outbox:    outbox,
		tx:        newCompliancePostgresTx(db, cfg.Postgres.TxTimeout),
	}
}

// startAuditPipeline relays outbox rows to Kafka and, when enabled,
// materializes compliance events back into Postgres. It is a no-op without
// both Postgres and brokers.
func startAuditPipeline(ctx context.Context, g *errgroup.Group, cfg config.Server, log *slog.Logger, db *sql.DB, stores storeSet) error {
	if stores.outbox == nil || len(cfg.Kafka.Brokers) == 0 {
		log.Info("audit relay disabled")
		return nil
	}

	client, err := kafka.NewClient(cfg.Kafka.Brokers, kgo.ClientID("marketgate-relay"))
	if err != nil {
		return err
	}
	if err := kafka.EnsureTopics(ctx, client, cfg.Kafka.ComplianceTopic, cfg.Kafka.OpsTopic); err != nil {
		client.Close()
		return err
	}

	relay := worker.NewRelay(stores.outbox, kafka.NewProducer(client),
		cfg.Kafka.ComplianceTopic, cfg.Kafka.OpsTopic,
		worker.WithInterval(cfg.Kafka.RelayInterval),
		worker.WithBatchSize(cfg.Kafka.RelayBatchSize),
		worker.WithLogger(log),
		worker.WithTxRunner(func(ctx context.Context, fn func(ctx context.Context) error) error {
			return tx.Run(ctx, db, fn)
		}),
	)
	g.Go(func() error {
		defer client.Close()
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if !cfg.Kafka.Materialize {
		return nil
	}
	router := auditconsumer.NewRouter(log, nil)
	router.Register(cfg.Kafka.ComplianceTopic, auditconsumer.NewComplianceHandler(stores.outbox, log))
	c, err := kafkaconsumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, router.Topics(), router, log)
	if err != nil {
		return err
	}
	g.Go(func() error {
		defer c.Close()
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return nil
}
