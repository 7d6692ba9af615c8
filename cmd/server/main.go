package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "github.com/finanzas/backend/internal/application/audit"
	baselineapp "github.com/finanzas/backend/internal/application/baseline"
	handoffapp "github.com/finanzas/backend/internal/application/handoff"
	projectapp "github.com/finanzas/backend/internal/application/project"
	"github.com/finanzas/backend/internal/application/retry"
	rubroapp "github.com/finanzas/backend/internal/application/rubro"
	"github.com/finanzas/backend/internal/domain/rubro"
	"github.com/finanzas/backend/internal/infrastructure/cache"
	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/infrastructure/migration"
	"github.com/finanzas/backend/internal/infrastructure/persistence"
	"github.com/finanzas/backend/internal/infrastructure/scheduler"
	"github.com/finanzas/backend/internal/infrastructure/storage"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/finanzas/backend/internal/infrastructure/taxonomy"
	"github.com/finanzas/backend/internal/infrastructure/telemetry"
	"github.com/finanzas/backend/internal/interfaces/http/handler"
	"github.com/finanzas/backend/internal/interfaces/http/middleware"
	"github.com/finanzas/backend/internal/interfaces/http/router"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	_ "github.com/finanzas/backend/docs"
)

//	@title			Finanzas API
//	@version		1.0
//	@description	Baseline handoff, rubro materialization and audit trail for the Finanzas SD module.

//	@host		localhost:8080
//	@BasePath	/api/v1

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// Telemetry
	signals, err := telemetry.Start(ctx, telemetry.Settings{
		ServiceName:     serviceName,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		Traces:          cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		Metrics:         cfg.Telemetry.Enabled,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		Logs:            cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		Profiling:       cfg.Telemetry.Profiling.Enabled,
		ProfilerAddress: cfg.Telemetry.Profiling.ServerAddress,
		SpanProfiles:    cfg.Telemetry.Profiling.SpanProfiles,
	}, log)
	if err != nil {
		return err
	}
	defer shutdown(log, "telemetry", signals.Shutdown)
	log = signals.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	financeMetrics, err := telemetry.NewFinanceMetrics(signals.Meter("finanzas"))
	if err != nil {
		return err
	}

	log.Info("Starting Finanzas backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.SQLLevel))
	if cfg.Telemetry.SlowQuery > 0 {
		gormLog = gormLog.SlowAfter(cfg.Telemetry.SlowQuery)
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		SlowQueryThresh: cfg.Telemetry.SlowQuery,
		DBSystem:        cfg.Database.Driver,
	}, log); err != nil {
		return err
	}
	if err := prepareSchema(db, cfg.Database, log); err != nil {
		return err
	}
	log.Info("Database ready", zap.String("driver", db.Driver))
	if signals.MetricsEnabled() {
		if _, err := telemetry.ObserveDBPool(signals.Meter("finanzas.db"), db.PoolStats); err != nil {
			return err
		}
	}

	gormStore := store.NewGormStore(db.DB)
	entities := store.WithTimeout(gormStore, cfg.Store.OperationTimeout)

	idem, err := cache.NewIdempotencyStoreFactory(cfg.Idempotency, cfg.Redis, entities,
		cache.WithLogger(log),
		cache.WithStoreFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = idem.Close() }()

	purgers := store.Purgers{gormStore}
	if p, ok := idem.(store.Purger); ok {
		purgers = append(purgers, p)
	}
	sweeper, err := scheduler.NewSweeper(purgers, scheduler.SweeperConfig{
		Enabled:  cfg.Idempotency.SweepInterval > 0,
		Interval: cfg.Idempotency.SweepInterval,
		Timeout:  time.Minute,
	}, log.Named("sweeper"))
	if err != nil {
		return err
	}
	if err := sweeper.Start(context.Background()); err != nil {
		return err
	}
	defer shutdown(log, "sweeper", sweeper.Stop)

	var catalog rubro.Taxonomy = taxonomy.Default()
	if cfg.Taxonomy.CatalogPath != "" {
		c, err := taxonomy.Load(cfg.Taxonomy.CatalogPath)
		if err != nil {
			return err
		}
		log.Info("Loaded rubro catalog", zap.String("path", cfg.Taxonomy.CatalogPath), zap.Int("entries", c.Len()))
		catalog = c
	}

	recorderOpts := []auditapp.Option{auditapp.WithLogger(log)}
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3AuditArchive(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return err
		}
		log.Info("Audit archive enabled", zap.String("bucket", archive.Bucket()))
		recorderOpts = append(recorderOpts, auditapp.WithExporter(archive))
	}

	// Repositories and services
	projects := persistence.NewStoreProjectRepository(entities)
	handoffs := persistence.NewStoreHandoffRepository(entities)
	baselines := persistence.NewStoreBaselineRepository(entities)
	rubros := persistence.NewStoreRubroRepository(entities)
	recorder := auditapp.NewRecorder(persistence.NewStoreAuditRepository(entities), recorderOpts...)

	policy := retry.Policy{
		Attempts: cfg.Store.RetryAttempts,
		Initial:  cfg.Store.RetryInitial,
		Max:      cfg.Store.RetryMax,
	}

	projectService := projectapp.NewService(projectapp.Config{
		Projects: projects,
		Handoffs: handoffs,
		Recorder: recorder,
		Retry:    policy,
		Logger:   log,
	})
	baselineService := baselineapp.NewService(baselineapp.Config{
		Baselines:   baselines,
		Idempotency: idem,
		Recorder:    recorder,
		Metrics:     financeMetrics,
		Retention:   cfg.Idempotency.Retention,
		Logger:      log,
	})
	handoffService := handoffapp.NewService(handoffapp.Config{
		Projects:    projects,
		Handoffs:    handoffs,
		Baselines:   baselines,
		Idempotency: idem,
		Recorder:    recorder,
		Metrics:     financeMetrics,
		Retry:       policy,
		Retention:   cfg.Idempotency.Retention,
		Logger:      log,
	})
	materializer := rubroapp.NewMaterializer(rubroapp.MaterializerConfig{
		Projects:  projects,
		Baselines: baselines,
		Rubros:    rubros,
		Taxonomy:  catalog,
		Recorder:  recorder,
		Metrics:   financeMetrics,
		Retry:     policy,
		Logger:    log,
	})

	checks := map[string]handler.ReadinessCheck{"database": db.Ping}
	if p, ok := idem.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = p.Ping
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.Env == "production"

	var httpMeter metric.Meter
	if signals.MetricsEnabled() {
		httpMeter = signals.Meter("http.server")
	}
	engine, err := router.New(router.Options{
		Logger:         log,
		ServiceName:    serviceName,
		Production:     cfg.App.Env == "production",
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           cors,
		Security:       security,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Tracing:        signals.TracingEnabled(),
		Meter:          httpMeter,
		Profiling:      signals.ProfilingEnabled(),
		Swagger: middleware.SwaggerConfig{
			Enabled:    cfg.HTTP.SwaggerEnabled,
			AllowedIPs: cfg.HTTP.SwaggerAllowedIPs,
		},
	}, router.Handlers{
		Projects:  handler.NewProjectHandler(projectService),
		Handoffs:  handler.NewHandoffHandler(handoffService),
		Baselines: handler.NewBaselineHandler(baselineService),
		Rubros:    handler.NewRubroHandler(materializer, rubroapp.NewQueryService(projects, rubros), projectService),
		System:    handler.NewSystemHandler(cfg.App.Name, version, checks),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server exited gracefully")
	return nil
}

// prepareSchema brings postgres to the embedded migration head and creates
// the sqlite table directly when auto-migrate is on. Migrations run on their
// own connection since closing the migrator closes its database.
func prepareSchema(db *persistence.Database, cfg config.DatabaseConfig, log *zap.Logger) error {
	if !cfg.AutoMigrate {
		return nil
	}
	if db.Driver == "sqlite" {
		return db.AutoMigrate()
	}
	conn, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(conn, migration.Config{}, log)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("Error shutting down component", zap.String("component", name), zap.Error(err))
	}
}
