// Package baseline registers signed estimates as immutable baselines.
package baseline

import (
	"context"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/application/audit"
	domainaudit "github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CreateInput is one estimator submission
type CreateInput struct {
	Draft          baseline.Draft
	Actor          string
	IdempotencyKey string
}

// CreateResult is the stored baseline and whether an earlier submission
// with the same key produced it
type CreateResult struct {
	Baseline *baseline.Baseline
	Replayed bool
}

// Service creates and reads baselines
type Service struct {
	baselines   baseline.Repository
	idempotency shared.IdempotencyStore
	recorder    *audit.Recorder
	metrics     *telemetry.FinanceMetrics
	retention   time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// Config holds the collaborators of a Service
type Config struct {
	Baselines   baseline.Repository
	Idempotency shared.IdempotencyStore
	Recorder    *audit.Recorder
	Metrics     *telemetry.FinanceMetrics
	Retention   time.Duration
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewService creates a baseline Service
func NewService(cfg Config) *Service {
	s := &Service{
		baselines:   cfg.Baselines,
		idempotency: cfg.Idempotency,
		recorder:    cfg.Recorder,
		metrics:     cfg.Metrics,
		retention:   cfg.Retention,
		logger:      cfg.Logger,
		now:         cfg.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.retention <= 0 {
		s.retention = shared.DefaultIdempotencyConfig().TTL
	}
	return s
}

// Create validates the draft and stores a new baseline. With an
// idempotency key, resubmitting the same estimate returns the stored
// baseline; a different estimate under the same key is a conflict.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "baseline", "Create",
		telemetry.SpanAttrActor.String(in.Actor))

	res, err := s.create(ctx, in)
	if err != nil {
		telemetry.Finish(span, err)
		return nil, err
	}
	telemetry.Annotate(span,
		telemetry.SpanAttrBaselineID.String(res.Baseline.ID),
		telemetry.SpanAttrReplayed.Bool(res.Replayed))
	telemetry.Finish(span, nil)
	return res, nil
}

func (s *Service) create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	now := s.now().UTC()
	b, err := baseline.NewBaseline(in.Draft, strings.TrimSpace(in.Actor), now)
	if err != nil {
		return nil, err
	}
	log := logger.For(ctx, s.logger)

	if key != "" {
		rec, err := s.idempotency.Get(ctx, shared.ScopeBaseline, key)
		switch {
		case err == nil:
			return s.replay(ctx, key, rec, b.SignatureHash)
		case !shared.IsNotFound(err):
			return nil, err
		}
		b.ID = baseline.DeriveID(key)
	}

	err = s.baselines.Create(ctx, b)
	switch {
	case err == nil:
	case key != "" && shared.IsAlreadyExists(err):
		// an earlier attempt stored it but never committed the key
		stored, ferr := s.baselines.FindByID(ctx, b.ID)
		if ferr != nil {
			return nil, ferr
		}
		if stored.SignatureHash != b.SignatureHash {
			return nil, shared.NewIdempotencyConflictError(key, map[string]string{"baseline_id": stored.ID})
		}
		b = stored
	default:
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, audit.Input{
		EntityType: domainaudit.EntityBaseline,
		EntityID:   b.ID,
		Action:     domainaudit.ActionBaselineCreated,
		After: map[string]any{
			"baseline_id":    b.ID,
			"project_name":   b.ProjectName,
			"signature_hash": b.SignatureHash,
			"lines":          len(b.Lines),
		},
		Actor:     b.CreatedBy,
		DedupeKey: "baseline|" + b.ID,
	}); err != nil {
		return nil, err
	}

	if key != "" {
		stored, _, err := s.idempotency.PutIfAbsent(ctx, shared.IdempotencyRecord{
			Key:         key,
			Scope:       shared.ScopeBaseline,
			BaselineID:  b.ID,
			RequestHash: b.SignatureHash,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.retention),
		})
		if err != nil {
			return nil, err
		}
		if stored.BaselineID != b.ID {
			return s.replay(ctx, key, &stored, b.SignatureHash)
		}
	}

	log.Info("baseline created",
		zap.String("baseline_id", b.ID),
		zap.Int("lines", len(b.Lines)),
		zap.String("signature_hash", b.SignatureHash))
	return &CreateResult{Baseline: b}, nil
}

func (s *Service) replay(ctx context.Context, key string, rec *shared.IdempotencyRecord, signature string) (*CreateResult, error) {
	if rec.RequestHash != signature {
		return nil, shared.NewIdempotencyConflictError(key, map[string]string{"baseline_id": rec.BaselineID})
	}
	b, err := s.baselines.FindByID(ctx, rec.BaselineID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReplay(ctx, shared.ScopeBaseline)
	return &CreateResult{Baseline: b, Replayed: true}, nil
}

// Get returns a stored baseline
func (s *Service) Get(ctx context.Context, id string) (*baseline.Baseline, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewValidationError("baseline id is required")
	}
	return s.baselines.FindByID(ctx, id)
}

// History returns the audit trail of a baseline
func (s *Service) History(ctx context.Context, id string) ([]domainaudit.Entry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.recorder.List(ctx, domainaudit.EntityBaseline, id)
}
