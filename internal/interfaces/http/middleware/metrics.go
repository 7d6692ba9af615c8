package middleware

import (
	"context"
	"time"

	"github.com/finanzas/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTP metric attribute keys
var (
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPStatus     = attribute.Key("http.status_class")
)

type httpMetrics struct {
	requests     metric.Int64Counter
	latency      metric.Float64Histogram
	requestSize  metric.Float64Histogram
	responseSize metric.Float64Histogram
	inFlight     metric.Int64UpDownCounter
}

var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 2000000}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	in := telemetry.NewInstruments(meter)
	m := &httpMetrics{
		requests:     in.Counter("http_server_request_total", "Total number of HTTP requests", "{request}"),
		latency:      in.Histogram("http_server_request_duration_seconds", "HTTP request latency distribution in seconds", "s", telemetry.LatencyBuckets...),
		requestSize:  in.Histogram("http_server_request_size_bytes", "HTTP request body size distribution in bytes", "By", sizeBuckets...),
		responseSize: in.Histogram("http_server_response_size_bytes", "HTTP response body size distribution in bytes", "By", sizeBuckets...),
		inFlight:     in.Gauge("http_server_active_requests", "Number of currently active HTTP requests", "{request}"),
	}
	return m, in.Err()
}

// HTTPMetrics collects request count, latency, body sizes and in-flight
// requests per route pattern. A nil meter disables it.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return passThrough
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return passThrough
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)

		c.Next()

		m.inFlight.Add(ctx, -1)
		m.record(ctx, c.Request.Method, routePattern(c), c.Writer.Status(),
			time.Since(start), c.Request.ContentLength, c.Writer.Size())
	}
}

func (m *httpMetrics) record(ctx context.Context, method, route string, status int, d time.Duration, reqSize int64, respSize int) {
	byRoute := metric.WithAttributes(AttrHTTPMethod.String(method), AttrHTTPRoute.String(route))
	m.requests.Add(ctx, 1, metric.WithAttributes(
		AttrHTTPMethod.String(method),
		AttrHTTPRoute.String(route),
		AttrHTTPStatusCode.Int(status),
		AttrHTTPStatus.String(StatusClass(status)),
	))
	m.latency.Record(ctx, d.Seconds(), byRoute)
	if reqSize > 0 {
		m.requestSize.Record(ctx, float64(reqSize), byRoute)
	}
	if respSize > 0 {
		m.responseSize.Record(ctx, float64(respSize), byRoute)
	}
}

// routePattern keeps metric cardinality bounded: ids never become labels
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// StatusClass groups status codes as 2xx, 3xx, 4xx or 5xx
func StatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	}
	return "other"
}

func passThrough(c *gin.Context) {
	c.Next()
}
