package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// transientSQLStates are postgres error codes worth retrying
var transientSQLStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"53300": {}, // too_many_connections
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled
	"57P01": {}, // admin_shutdown
}

// classify maps driver errors onto the domain error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConditionFailed
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return shared.NewTransientError(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return shared.NewTransientError(op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrConditionFailed
		}
		if _, ok := transientSQLStates[pgErr.Code]; ok || strings.HasPrefix(pgErr.Code, "08") {
			return shared.NewTransientError(op, err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return shared.NewTransientError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
