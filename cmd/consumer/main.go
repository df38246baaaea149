package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/app/replication"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/config/fileloader"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/eventbus/jetstream"
	inboxStore "github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage/inbox/postgres"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/logger"
	"github.com/RnD-Experts-Team/AuditApp-sub000/pkg/common/otel"
)

const serviceType = "identity-replicator"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

	var logg *logger.Logger

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}

			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n",
				r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("%s-%s", serviceType, hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	logg = logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logEvents, metadata)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := fileloader.NewFileLoader(configPath).Load(ctx)
	if err != nil {
		logg.Error(ctx, "failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}

	prob, err := strconv.ParseFloat(os.Getenv("OTEL_SAMPLING_RATIO"), 64)
	if err != nil {
		prob = 1.0
	}
	tp, telemetryTeardown, err := otel.InitTelemetry(logg, otel.Config{
		ServiceName:      svcName,
		ExporterEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ExcludedRoutes: map[string]struct{}{
			"/v1/health":    {},
			"/v1/readiness": {},
		},
		Probability: prob,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"host.name":        hostname,
		},
		InsecureExporter: true,
	})
	if err != nil {
		logg.Error(ctx, "failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryTeardown(ctx)

	tracer := tp.Tracer(svcName)

	ready := &atomic.Bool{}
	healthServer := common.NewHealthServer(ready)
	defer func() {
		if err := healthServer.Server().Shutdown(ctx); err != nil {
			logg.Error(ctx, "Error shutting down health server", "error", err)
		}
	}()

	go func() {
		if err := common.RunMetricsServer(":9090"); err != nil {
			logg.Error(ctx, "metrics server failed", "error", err)
		}
	}()

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN)
	if err != nil {
		logg.Error(ctx, "failed to parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MinConns = 2
	poolCfg.MaxConns = 10
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logg.Error(ctx, "failed to open db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := runMigrations(ctx, pool); err != nil {
		logg.Error(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}

	logg.Info(ctx, "Migrations applied successfully. Starting consumer...")

	client, err := jetstream.ConnectWithRetry(cfg.NATS.URL, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	mp, err := otel.NewMeterProvider(svcName)
	if err != nil {
		logg.Error(ctx, "failed to create meter provider", "error", err)
		os.Exit(1)
	}
	metricCollector, err := replication.NewConsumerMetrics(mp)
	if err != nil {
		logg.Error(ctx, "failed to create metrics collector", "error", err)
		os.Exit(1)
	}

	gate := inboxStore.NewGate(pool, tracer)
	router := replication.NewRouter(replication.NewHandlers(logg))
	processor := replication.NewProcessor(gate, router, logg, metricCollector)

	bindings := make([]events.StreamBinding, 0, len(cfg.Streams))
	for _, s := range cfg.Streams {
		bindings = append(bindings, events.StreamBinding{
			Stream:        s.Stream,
			Durable:       s.Durable,
			FilterSubject: s.FilterSubject,
		})
	}

	poller := replication.NewPoller(client, processor, bindings, replication.PollerConfig{
		BatchSize:     cfg.Poller.BatchSize,
		PullWait:      cfg.Poller.PullWait,
		SweepInterval: cfg.Poller.SweepInterval,
	}, logg, metricCollector)

	logg.Info(ctx, "Consumer initialized")
	ready.Store(true)

	errCh := make(chan error, 1)
	go func() { errCh <- poller.Run(ctx) }()

	select {
	case sig := <-sigCh:
		logg.Info(ctx, "Received shutdown signal", "signal", sig)
		ready.Store(false)
		cancel()

		// Run returns only after the in-flight message has settled, so the
		// deferred pool and broker teardown never race a live transaction.
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "Poller error during shutdown", "error", err)
		}

	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "Poller error", "error", err)
			os.Exit(1)
		}
	}
}

// runMigrations uses golang-migrate to apply all up migrations from
// "db/migrations". It acquires a single pgx connection from the pool, runs
// migrations, and then releases the connection back to the pool.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("could not acquire connection: %w", err)
	}
	defer conn.Release()

	db := stdlib.OpenDBFromPool(pool)

	driver, err := pgx.WithInstance(db, &pgx.Config{})
	if err != nil {
		return fmt.Errorf("could not create pgx driver: %w", err)
	}

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "file://db/migrations"
	}
	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	return nil
}
