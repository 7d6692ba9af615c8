package middleware

import (
	"net/http"

	"github.com/finanzas/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{ServiceName: "finanzas-backend", Enabled: true}
}

// Tracing returns the handlers that open and annotate one server span per
// request. The span is named "METHOD route", e.g.
// "POST /api/v1/projects/:id/handoff". Mount it after RequestID and Actor.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return []gin.HandlerFunc{passThrough}
	}
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName), annotateServerSpan}
}

// annotateServerSpan tags the span with the caller and target project, then
// records the outcome. 5xx fails the span; 4xx is the caller's fault and
// only sets the status code.
func annotateServerSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}

	var attrs []attribute.KeyValue
	if id := GetRequestID(c); id != "" {
		attrs = append(attrs, telemetry.SpanAttrRequestID.String(id))
	}
	if actor := GetActor(c); actor != "" {
		attrs = append(attrs, telemetry.SpanAttrActor.String(actor))
	}
	if id := c.Param("id"); id != "" && controllerFromRoute(c.FullPath()) == "projects" {
		attrs = append(attrs, telemetry.SpanAttrProjectID.String(id))
	}
	span.SetAttributes(attrs...)

	c.Next()

	status := c.Writer.Status()
	if status < http.StatusBadRequest {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
