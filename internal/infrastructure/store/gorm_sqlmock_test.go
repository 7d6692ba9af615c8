package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockGormStore(t *testing.T) (*GormStore, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormStore(gormDB), mock, mockDB
}

var entityColumns = []string{"pk", "sk", "kind", "project_id", "baseline_id", "version", "data", "expires_at", "created_at", "updated_at"}

func TestGormStore_Get_Postgres(t *testing.T) {
	s, mock, mockDB := newMockGormStore(t)
	defer mockDB.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "entity_items" WHERE pk = \$1 AND sk = \$2`).
		WillReturnRows(sqlmock.NewRows(entityColumns).
			AddRow("PROJECT#P-1", "METADATA", "project", "P-1", "base_1", 3, []byte(`{"id":"P-1"}`), nil, now, now))

	got, err := s.Get(context.Background(), "PROJECT#P-1", "METADATA")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, "base_1", got.BaselineID)
	assert.JSONEq(t, `{"id":"P-1"}`, string(got.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Get_NotFound(t *testing.T) {
	s, mock, mockDB := newMockGormStore(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "entity_items" WHERE pk = \$1 AND sk = \$2`).
		WillReturnRows(sqlmock.NewRows(entityColumns))

	_, err := s.Get(context.Background(), "PROJECT#P-404", "METADATA")
	assert.True(t, shared.IsNotFound(err))
}

func TestGormStore_VersionGuardedUpdate(t *testing.T) {
	t.Run("stale version reports a condition failure", func(t *testing.T) {
		s, mock, mockDB := newMockGormStore(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "entity_items" SET .* WHERE .*pk = \$\d+ AND sk = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		it, err := NewItem("PROJECT#P-1", "METADATA", KindProject, map[string]string{})
		require.NoError(t, err)
		it.Version = 5
		err = s.Put(context.Background(), Put{Item: it, Condition: IfVersion(4)})
		assert.ErrorIs(t, err, ErrConditionFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matching version succeeds", func(t *testing.T) {
		s, mock, mockDB := newMockGormStore(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "entity_items" SET .* WHERE .*pk = \$\d+ AND sk = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		it, err := NewItem("PROJECT#P-1", "METADATA", KindProject, map[string]string{})
		require.NoError(t, err)
		it.Version = 5
		assert.NoError(t, s.Put(context.Background(), Put{Item: it, Condition: IfVersion(4)}))
	})

	t.Run("serialization failure is transient", func(t *testing.T) {
		s, mock, mockDB := newMockGormStore(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "entity_items"`).
			WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})

		it, err := NewItem("PROJECT#P-1", "METADATA", KindProject, map[string]string{})
		require.NoError(t, err)
		err = s.Put(context.Background(), Put{Item: it, Condition: IfVersion(1)})
		assert.True(t, shared.IsTransient(err))
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		s, mock, mockDB := newMockGormStore(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "entity_items"`).
			WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})

		it, err := NewItem("PROJECT#P-1", "METADATA", KindProject, map[string]string{})
		require.NoError(t, err)
		assert.True(t, shared.IsTransient(s.Put(context.Background(), Put{Item: it, Condition: IfVersion(1)})))
	})
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.True(t, shared.IsNotFound(classify("op", gorm.ErrRecordNotFound)))
	assert.ErrorIs(t, classify("op", &pgconn.PgError{Code: "23505"}), ErrConditionFailed)
	assert.True(t, shared.IsTransient(classify("op", context.DeadlineExceeded)))
	assert.True(t, shared.IsTransient(classify("op", sql.ErrConnDone)))

	plain := classify("op", assert.AnError)
	assert.ErrorIs(t, plain, assert.AnError)
	assert.Empty(t, shared.CodeOf(plain))
}
