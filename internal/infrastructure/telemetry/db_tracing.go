package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound query variables in spans
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // postgres or sqlite
}

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm on db plus callbacks that flag slow
// statements and record errors on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(db *gorm.DB) { annotateSpan(db, cfg.SlowQueryThresh) }

	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("finz_timing:before_create", before),
		cb.Query().Before("gorm:query").Register("finz_timing:before_query", before),
		cb.Update().Before("gorm:update").Register("finz_timing:before_update", before),
		cb.Raw().Before("gorm:raw").Register("finz_timing:before_raw", before),
		cb.Create().After("gorm:create").Register("finz_timing:after_create", after),
		cb.Query().After("gorm:query").Register("finz_timing:after_query", after),
		cb.Update().After("gorm:update").Register("finz_timing:after_update", after),
		cb.Raw().After("gorm:raw").Register("finz_timing:after_raw", after),
	}
	if err := errors.Join(registrations...); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", cfg.DBSystem),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

// annotateSpan marks errors and slow statements on the span in db's context.
// gorm.ErrRecordNotFound is an expected miss, not a failure.
func annotateSpan(db *gorm.DB, threshold time.Duration) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
