package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_DisabledWithoutMeter(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/test", nil).Code)
}

func TestHTTPMetrics_RoutePatternLabels(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetrics(mp.Meter("http.server")))
	router.POST("/api/v1/projects/:id/handoff", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"handoff_id": "ho_1"})
	})

	for _, id := range []string{"P1", "P2", "P3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+id+"/handoff", strings.NewReader(`{"baseline_id":"base_1"}`))
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	total := findMetric(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum, ok := total.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1, "project ids must not become labels")
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
	route, _ := sum.DataPoints[0].Attributes.Value(AttrHTTPRoute)
	assert.Equal(t, "/api/v1/projects/:id/handoff", route.AsString())
	class, _ := sum.DataPoints[0].Attributes.Value(AttrHTTPStatus)
	assert.Equal(t, "2xx", class.AsString())

	assert.NotNil(t, findMetric(t, reader, "http_server_request_duration_seconds"))
	assert.NotNil(t, findMetric(t, reader, "http_server_request_size_bytes"))
	assert.NotNil(t, findMetric(t, reader, "http_server_response_size_bytes"))

	active := findMetric(t, reader, "http_server_active_requests")
	require.NotNil(t, active)
	activeSum, ok := active.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(0), activeSum.DataPoints[0].Value)
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := gin.New()
	router.Use(HTTPMetrics(mp.Meter("http.server")))

	serve(router, http.MethodGet, "/nope/123", nil)

	total := findMetric(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	sum := total.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.True(t, sum.DataPoints[0].Attributes.HasValue(AttrHTTPRoute))
	route, _ := sum.DataPoints[0].Attributes.Value(attribute.Key("http.route"))
	assert.Equal(t, "unknown", route.AsString())
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(http.StatusCreated))
	assert.Equal(t, "3xx", StatusClass(http.StatusFound))
	assert.Equal(t, "4xx", StatusClass(http.StatusConflict))
	assert.Equal(t, "5xx", StatusClass(http.StatusServiceUnavailable))
	assert.Equal(t, "other", StatusClass(100))
}
