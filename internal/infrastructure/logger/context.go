package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Correlation ties a log entry to the request and the project it concerns
type Correlation struct {
	RequestID string
	Actor     string
	ProjectID string
}

type correlationKey struct{}

// CorrelationFrom returns the correlation carried by ctx, zero if none
func CorrelationFrom(ctx context.Context) Correlation {
	c, _ := ctx.Value(correlationKey{}).(Correlation)
	return c
}

func withCorrelation(ctx context.Context, set func(*Correlation)) context.Context {
	c := CorrelationFrom(ctx)
	set(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *Correlation) { c.RequestID = id })
}

// WithActor records the principal acting on the request, a user email or a
// system identity
func WithActor(ctx context.Context, actor string) context.Context {
	return withCorrelation(ctx, func(c *Correlation) { c.Actor = actor })
}

func WithProjectID(ctx context.Context, projectID string) context.Context {
	return withCorrelation(ctx, func(c *Correlation) { c.ProjectID = projectID })
}

// GetRequestID is CorrelationFrom(ctx).RequestID
func GetRequestID(ctx context.Context) string {
	return CorrelationFrom(ctx).RequestID
}

// Fields renders the active span and the correlation of ctx. Empty values
// are left out.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	c := CorrelationFrom(ctx)
	for _, kv := range [...]struct{ key, value string }{
		{"request_id", c.RequestID},
		{"actor", c.Actor},
		{"project_id", c.ProjectID},
	} {
		if kv.value != "" {
			fields = append(fields, zap.String(kv.key, kv.value))
		}
	}
	return fields
}

// For returns base annotated with Fields(ctx)
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
