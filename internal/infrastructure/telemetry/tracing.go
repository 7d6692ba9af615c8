package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of service spans
const TracerName = "finanzas-backend"

// Span attribute keys
const (
	SpanAttrProjectID      = attribute.Key("finz.project_id")
	SpanAttrBaselineID     = attribute.Key("finz.baseline_id")
	SpanAttrHandoffID      = attribute.Key("finz.handoff_id")
	SpanAttrIdempotencyKey = attribute.Key("finz.idempotency_key")
	SpanAttrActor          = attribute.Key("finz.actor")
	SpanAttrRubroCount     = attribute.Key("finz.rubro_count")
	SpanAttrUnmapped       = attribute.Key("finz.unmapped_count")
	SpanAttrOutcome        = attribute.Key("finz.outcome")
	SpanAttrReplayed       = attribute.Key("finz.replayed")
	SpanAttrRequestID      = attribute.Key("finz.request_id")
)

// StartServiceSpan starts an internal span named {service}.{method}. The
// caller ends it, usually through Finish.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "handoff", "CreateOrUpdateHandoff",
//	    telemetry.SpanAttrBaselineID.String(req.BaselineID))
//	defer func() { telemetry.Finish(span, err) }()
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, service+"."+method, opts...)
}

// Annotate adds attributes to a span that may be nil
func Annotate(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}

// RecordError marks the span failed with err
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Finish sets the span status from err and ends it
func Finish(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		RecordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddEvent records a named event on the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// TraceID returns the active trace id, or "" without a sampled span
func TraceID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

// SpanID returns the active span id, or ""
func SpanID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).SpanID(); id.IsValid() {
		return id.String()
	}
	return ""
}
