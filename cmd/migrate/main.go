package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/infrastructure/migration"
	"github.com/finanzas/backend/internal/infrastructure/persistence"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

var errUsage = errors.New("usage")

// options are the global flags shared by every command
type options struct {
	path   string
	config string
	log    *zap.Logger
}

// dbCommand runs against an open PostgreSQL migrator
type dbCommand struct {
	usage string
	run   func(m *migration.Migrator, args []string, log *zap.Logger) error
}

var dbCommands = map[string]dbCommand{
	"up":   {"up", func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() }},
	"down": {"down", func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() }},
	"step": {"step <n>", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step count %q: %w", args[0], err)
		}
		return m.Steps(n)
	}},
	"goto": {"goto <version>", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("version %q: %w", args[0], err)
		}
		return m.GoTo(uint(v))
	}},
	"force": {"force <version>", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version %q: %w", args[0], err)
		}
		return m.Force(v)
	}},
	"version": {"version", func(m *migration.Migrator, _ []string, log *zap.Logger) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	}},
	"drop": {"drop -confirm", func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		if !slices.Contains(args, "-confirm") && !slices.Contains(args, "--confirm") {
			return errors.New("drop needs -confirm")
		}
		return m.Drop()
	}},
}

// argsNeeded is how many positional arguments a command usage declares
func argsNeeded(usage string) int {
	n := 0
	for _, r := range usage {
		if r == '<' {
			n++
		}
	}
	return n
}

func main() {
	var opts options
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.path, "path", "", "Migrations directory (default: SQL embedded in the binary)")
	flag.StringVar(&opts.config, "config", "", "Config file (default: config.toml lookup)")
	flag.Usage = printUsage
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	opts.log = log

	err = run(opts, flag.Args())
	_ = log.Sync()
	switch {
	case errors.Is(err, errUsage):
		printUsage()
		os.Exit(2)
	case err != nil:
		log.Error("Migration command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(opts options, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	command, rest := args[0], args[1:]

	// create and list work on files only
	switch command {
	case "create":
		return create(opts, rest)
	case "list":
		return list(opts)
	}

	cmd, ok := dbCommands[command]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if len(rest) < argsNeeded(cmd.usage) {
		return fmt.Errorf("%w: migrate %s", errUsage, cmd.usage)
	}

	cfg, err := loadConfig(opts.config)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		return sqliteUp(opts.log, cfg, command)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, migration.Config{MigrationsPath: opts.path}, opts.log)
	if err != nil {
		return err
	}
	defer m.Close()
	return cmd.run(m, rest, opts.log)
}

func create(opts options, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: migrate create <name> [description]", errUsage)
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}
	dir := opts.path
	if dir == "" {
		dir = defaultMigrationsDir
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	opts.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(opts options) error {
	var (
		names []string
		err   error
	)
	if opts.path == "" {
		names, err = migration.EmbeddedVersions()
	} else {
		names, err = migration.ListMigrations(opts.path)
	}
	if err != nil {
		return err
	}
	opts.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, n := range names {
		fmt.Println("  -", n)
	}
	return nil
}

// sqliteUp brings a development database up to date; sqlite is unversioned
func sqliteUp(log *zap.Logger, cfg *config.Config, command string) error {
	if command != "up" {
		return fmt.Errorf("sqlite databases only support up, got %q", command)
	}
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Info("sqlite schema is up to date", zap.String("path", cfg.Database.SQLitePath))
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Finanzas schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Force set migration version
  drop -confirm         Drop all database objects
  create <name> [desc]  Create a new migration file pair in -path
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: embedded SQL)
  -config string        Config file path
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  FINZ_DATABASE_DRIVER, FINZ_DATABASE_HOST, FINZ_DATABASE_PORT,
  FINZ_DATABASE_USER, FINZ_DATABASE_PASSWORD, FINZ_DATABASE_DBNAME,
  FINZ_DATABASE_SSLMODE, FINZ_DATABASE_SQLITE_PATH`)
}
