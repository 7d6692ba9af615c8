package telemetry_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/finanzas/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func gaugeValue(agg metricdata.Aggregation) int64 {
	g, ok := agg.(metricdata.Gauge[int64])
	if !ok || len(g.DataPoints) == 0 {
		return -1
	}
	return g.DataPoints[0].Value
}

func TestObserveDBPool(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	stats := sql.DBStats{OpenConnections: 4, InUse: 3, Idle: 1, WaitCount: 7}
	reg, err := telemetry.ObserveDBPool(provider.Meter("finz.db"), func() sql.DBStats { return stats })
	require.NoError(t, err)

	data := collect(t, reader)
	assert.Equal(t, int64(4), gaugeValue(data["db_pool_open_connections"]))
	assert.Equal(t, int64(3), gaugeValue(data["db_pool_in_use_connections"]))
	assert.Equal(t, int64(1), gaugeValue(data["db_pool_idle_connections"]))
	assert.Equal(t, int64(7), sumOf(data["db_pool_wait_total"]))

	require.NoError(t, reg.Unregister())
	stats.InUse = 0
	data = collect(t, reader)
	assert.NotContains(t, data, "db_pool_in_use_connections")

	_, err = telemetry.ObserveDBPool(nil, nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}
