package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Metric attribute keys
var (
	AttrOutcome   = attribute.Key("outcome")
	AttrScope     = attribute.Key("idempotency.scope")
	AttrLineKind  = attribute.Key("line_kind")
	AttrMapped    = attribute.Key("mapped")
	AttrErrorCode = attribute.Key("error.code")
	AttrOperation = attribute.Key("operation")
)

// Handoff outcomes
const (
	OutcomeCreated  = "created"  // new project minted
	OutcomeAttached = "attached" // existing project received the baseline
	OutcomeReplayed = "replayed" // idempotency record answered the request
	OutcomeFailed   = "failed"
)

// FinanceMetrics counts handoffs, materialized rubros and retries. A nil
// *FinanceMetrics records nothing.
type FinanceMetrics struct {
	handoffs       metric.Int64Counter
	handoffLatency metric.Float64Histogram
	rubros         metric.Int64Counter
	replays        metric.Int64Counter
	retries        metric.Int64Counter
}

// NewFinanceMetrics registers the instruments on meter
func NewFinanceMetrics(meter metric.Meter) (*FinanceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	in := NewInstruments(meter)
	m := &FinanceMetrics{
		handoffs:       in.Counter("finz_handoff_total", "Baseline handoffs by outcome", "{handoffs}"),
		handoffLatency: in.Histogram("finz_handoff_duration_seconds", "End-to-end handoff latency", "s", LatencyBuckets...),
		rubros:         in.Counter("finz_rubros_materialized_total", "Rubros written by materialization", "{rubros}"),
		replays:        in.Counter("finz_idempotency_replay_total", "Requests answered from an idempotency record", "{requests}"),
		retries:        in.Counter("finz_retry_total", "Retries of transient or conflicting writes", "{retries}"),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordHandoff records one handoff attempt. code is the error code on failure.
func (m *FinanceMetrics) RecordHandoff(ctx context.Context, outcome, code string, d time.Duration) {
	if m == nil {
		return
	}
	outcomeAttr := AttrOutcome.String(outcome)
	if code == "" {
		m.handoffs.Add(ctx, 1, metric.WithAttributes(outcomeAttr))
	} else {
		m.handoffs.Add(ctx, 1, metric.WithAttributes(outcomeAttr, AttrErrorCode.String(code)))
	}
	m.handoffLatency.Record(ctx, d.Seconds(), metric.WithAttributes(outcomeAttr))
}

// RecordRubros counts n rubros of one line kind
func (m *FinanceMetrics) RecordRubros(ctx context.Context, lineKind string, mapped bool, n int) {
	if m == nil || n == 0 {
		return
	}
	m.rubros.Add(ctx, int64(n), metric.WithAttributes(AttrLineKind.String(lineKind), AttrMapped.Bool(mapped)))
}

// RecordReplay counts a request served from the idempotency store
func (m *FinanceMetrics) RecordReplay(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	m.replays.Add(ctx, 1, metric.WithAttributes(AttrScope.String(scope)))
}

// RecordRetry counts one retry of operation
func (m *FinanceMetrics) RecordRetry(ctx context.Context, operation, code string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(operation), AttrErrorCode.String(code)))
}
