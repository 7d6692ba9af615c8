package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/finanzas/backend/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator versions the entity_items schema on PostgreSQL. sqlite
// development databases are not versioned and use AutoMigrate instead.
type Migrator struct {
	m      *migrate.Migrate
	logger *zap.Logger
}

// Config selects the migration source. An empty MigrationsPath reads the
// SQL embedded in the binary.
type Config struct {
	MigrationsPath  string
	MigrationsTable string // default schema_migrations
}

// New opens a Migrator on db
func New(db *sql.DB, cfg Config, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	var (
		m      *migrate.Migrate
		source string
	)
	if cfg.MigrationsPath == "" {
		source = "embedded"
		src, serr := iofs.New(migrations.FS, ".")
		if serr != nil {
			return nil, fmt.Errorf("embedded migrations: %w", serr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
	} else {
		source = "file://" + cfg.MigrationsPath
		m, err = migrate.NewWithDatabaseInstance(source, "postgres", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate from %s: %w", source, err)
	}

	log := logger.Named("migrate").With(zap.String("source", source))
	m.Log = migrateLog{log.Sugar()}
	return &Migrator{m: m, logger: log}, nil
}

// EmbeddedVersions lists the versions shipped in the binary, ascending
func EmbeddedVersions() ([]string, error) {
	return listUpFiles(migrations.FS)
}

// apply runs one golang-migrate operation. ErrNoChange is success.
func (mg *Migrator) apply(op string, fn func() error) error {
	err := fn()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		mg.logger.Info("Schema unchanged", zap.String("op", op))
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", op, err)
	}
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	mg.logger.Info("Schema migrated", zap.String("op", op), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Up applies every pending migration
func (mg *Migrator) Up() error { return mg.apply("up", mg.m.Up) }

// Down reverts every applied migration
func (mg *Migrator) Down() error { return mg.apply("down", mg.m.Down) }

// Steps moves n migrations, up when positive and down when negative
func (mg *Migrator) Steps(n int) error {
	return mg.apply(fmt.Sprintf("steps %+d", n), func() error { return mg.m.Steps(n) })
}

// GoTo moves to version in whichever direction is needed
func (mg *Migrator) GoTo(version uint) error {
	return mg.apply(fmt.Sprintf("goto %d", version), func() error { return mg.m.Migrate(version) })
}

// Version is the applied version, zero when nothing has run
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. Used to clear
// the dirty flag once a failed migration has been repaired by hand.
func (mg *Migrator) Force(version int) error {
	mg.logger.Warn("Forcing schema version", zap.Int("version", version))
	return mg.m.Force(version)
}

// Drop removes every table in the schema
func (mg *Migrator) Drop() error {
	mg.logger.Warn("Dropping schema, finance records will be lost")
	return mg.m.Drop()
}

func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// migrateLog adapts zap to migrate.Logger
type migrateLog struct {
	s *zap.SugaredLogger
}

func (l migrateLog) Printf(format string, v ...any) { l.s.Debugf(format, v...) }
func (l migrateLog) Verbose() bool                  { return l.s.Desugar().Core().Enabled(zap.DebugLevel) }
