package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/finanzas/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is an open gorm handle plus the driver it was opened with
type Database struct {
	DB     *gorm.DB
	Driver string
	pool   *sql.DB
}

var dialectors = map[string]func(dsn string) gorm.Dialector{
	"postgres": postgres.Open,
	"sqlite":   sqlite.Open,
}

// NewDatabase opens the configured database with SQL logging off
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, gormlogger.Default.LogMode(gormlogger.Silent))
}

// NewDatabaseWithLogger opens cfg.Driver (postgres when empty), sizes the
// pool and pings once.
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, log gormlogger.Interface) (*Database, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	open, ok := dialectors[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(open(cfg.DSN()), &gorm.Config{
		Logger:                 log,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	pool, err := db.DB()
	if err != nil {
		return nil, err
	}
	sizePool(pool, driver, cfg)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &Database{DB: db, Driver: driver, pool: pool}, nil
}

func sizePool(pool *sql.DB, driver string, cfg *config.DatabaseConfig) {
	if driver == "sqlite" {
		// one writer at a time, or SQLITE_BUSY
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// AutoMigrate creates entity_items on development databases. PostgreSQL
// schemas are versioned by cmd/migrate.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(&models.EntityItemModel{})
}

func (d *Database) Close() error { return d.pool.Close() }

// Ping backs the readiness probe
func (d *Database) Ping(ctx context.Context) error { return d.pool.PingContext(ctx) }

// PoolStats reports connection pool usage for the pool gauges
func (d *Database) PoolStats() sql.DBStats { return d.pool.Stats() }
