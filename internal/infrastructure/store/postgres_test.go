package store

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/infrastructure/migration"
	"github.com/finanzas/backend/internal/infrastructure/persistence/models"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// containersEnv opts the contract suite into a real PostgreSQL backend
const containersEnv = "FINZ_TEST_CONTAINERS"

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error
)

// sharedPostgres starts one container per test binary and applies the
// embedded migrations to it. Each factory call truncates the table.
func sharedPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	pgOnce.Do(func() {
		ctx := context.Background()
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("finanzas_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			pgErr = err
			return
		}
		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			pgErr = err
			return
		}

		conn, err := sql.Open("pgx", dsn)
		if err != nil {
			pgErr = err
			return
		}
		m, err := migration.New(conn, migration.Config{}, nil)
		if err != nil {
			_ = conn.Close()
			pgErr = err
			return
		}
		if err := m.Up(); err != nil {
			_ = m.Close()
			pgErr = err
			return
		}
		_ = m.Close()

		pgDB, pgErr = gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
	})
	require.NoError(t, pgErr, "failed to start PostgreSQL container")
	require.NoError(t, pgDB.Exec("TRUNCATE TABLE "+models.EntityItemModel{}.TableName()).Error)
	return pgDB
}

func init() {
	if os.Getenv(containersEnv) == "" {
		return
	}
	extraBackends["gorm-postgres"] = func(t *testing.T, clock *testClock) EntityStore {
		if testing.Short() {
			t.Skip("container backend skipped in short mode")
		}
		s := NewGormStore(sharedPostgres(t))
		s.now = clock.Now
		return s
	}
}
