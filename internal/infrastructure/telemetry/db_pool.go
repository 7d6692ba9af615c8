package telemetry

import (
	"context"
	"database/sql"
	"errors"

	"go.opentelemetry.io/otel/metric"
)

// ObserveDBPool reports the connection pool through asynchronous gauges
// read from stats at each collection.
func ObserveDBPool(meter metric.Meter, stats func() sql.DBStats) (metric.Registration, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	open, err1 := meter.Int64ObservableGauge("db_pool_open_connections",
		metric.WithDescription("Established connections, in use and idle"), metric.WithUnit("{connection}"))
	inUse, err2 := meter.Int64ObservableGauge("db_pool_in_use_connections",
		metric.WithDescription("Connections currently checked out"), metric.WithUnit("{connection}"))
	idle, err3 := meter.Int64ObservableGauge("db_pool_idle_connections",
		metric.WithDescription("Idle connections"), metric.WithUnit("{connection}"))
	waits, err4 := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Times a caller waited for a free connection"), metric.WithUnit("{wait}"))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(open, int64(s.OpenConnections))
		o.ObserveInt64(inUse, int64(s.InUse))
		o.ObserveInt64(idle, int64(s.Idle))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, open, inUse, idle, waits)
}
