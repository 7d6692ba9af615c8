// Package audit records before/after snapshots of every mutation.
package audit

import (
	"context"
	"time"

	"github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Input describes one mutation to record
type Input struct {
	EntityType audit.EntityType
	EntityID   string
	Action     audit.Action
	Before     map[string]any
	After      map[string]any
	Actor      string
	// DedupeKey makes the entry id deterministic so a retried operation
	// records its mutation once.
	DedupeKey string
}

// Recorder appends audit entries and forwards them to an optional archive
type Recorder struct {
	repo     audit.Repository
	exporter audit.Exporter
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Recorder
type Option func(*Recorder)

// WithExporter ships every newly appended entry to e. Export failures are
// logged and never fail the mutation.
func WithExporter(e audit.Exporter) Option {
	return func(r *Recorder) { r.exporter = e }
}

// WithLogger sets the recorder logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder on repo
func NewRecorder(repo audit.Repository, opts ...Option) *Recorder {
	r := &Recorder{repo: repo, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends the entry described by in. An entry already stored under
// the same dedupe key counts as recorded.
func (r *Recorder) Record(ctx context.Context, in Input) (audit.Entry, error) {
	e := audit.Entry{
		ID:         audit.NewEntryID(in.DedupeKey),
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Action:     in.Action,
		Before:     in.Before,
		After:      in.After,
		Actor:      in.Actor,
		Timestamp:  r.now().UTC(),
	}
	err := r.repo.Append(ctx, e)
	if shared.IsAlreadyExists(err) && in.DedupeKey != "" {
		logger.For(ctx, r.logger).Debug("audit entry already recorded", zap.String("audit_id", e.ID))
		return e, nil
	}
	if err != nil {
		return audit.Entry{}, err
	}

	if r.exporter != nil {
		if err := r.exporter.Export(ctx, e); err != nil {
			logger.For(ctx, r.logger).Warn("audit export failed",
				zap.String("audit_id", e.ID),
				zap.String("entity_id", e.EntityID),
				zap.Error(err))
		}
	}
	return e, nil
}

// List returns the trail of one entity, oldest first
func (r *Recorder) List(ctx context.Context, entityType audit.EntityType, entityID string) ([]audit.Entry, error) {
	if entityID == "" {
		return nil, shared.NewValidationError("entity id is required")
	}
	return r.repo.ListByEntity(ctx, entityType, entityID)
}
