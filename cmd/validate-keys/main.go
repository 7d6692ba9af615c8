// Command validate-keys scans the entity store and reports project, baseline
// index and link records that disagree about baseline ownership. It exits 1
// when any inconsistency is found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/finanzas/backend/internal/application/integrity"
	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/infrastructure/persistence"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		logLevel   string
		asJSON     bool
		timeout    time.Duration
	)
	flag.StringVar(&configPath, "config", "", "Config file (default: config.toml lookup)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&asJSON, "json", false, "Print the report as JSON")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Abort the scan after this long")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := integrity.NewValidator(store.NewGormStore(db.DB), log).Run(ctx)
	if err != nil {
		log.Fatal("Validation failed", zap.Error(err))
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	} else {
		printReport(report)
	}
	if !report.OK() {
		_ = log.Sync()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func printReport(r *integrity.Report) {
	fmt.Printf("Scanned %d projects, %d baselines, %d index entries, %d links, %d handoffs\n",
		r.Projects, r.Baselines, r.Indexes, r.Links, r.Handoffs)
	if r.OK() {
		fmt.Println("No key inconsistencies found.")
		return
	}
	fmt.Printf("%d inconsistencies:\n", len(r.Findings))
	for _, f := range r.Findings {
		fmt.Printf("  [%s] pk=%s sk=%s: %s\n", f.Check, f.PK, f.SK, f.Message)
	}
}
