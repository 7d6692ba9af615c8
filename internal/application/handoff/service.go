package handoff

import (
	"context"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/application/audit"
	"github.com/finanzas/backend/internal/application/retry"
	domainaudit "github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Request is one handoff of a baseline to a project
type Request struct {
	BaselineID     string
	ProjectID      string
	Terms          project.HandoffTerms
	IdempotencyKey string
	Actor          string
}

// Outcome is the committed tuple plus how it was reached
type Outcome struct {
	project.HandoffResult
	// Created is true when the handoff minted or created the project
	Created bool
	// Replayed is true when an earlier request with the same key answered
	Replayed bool
}

// Service orchestrates resolve → hydrate → project write → handoff write →
// audit → idempotency commit. The idempotency record is written last so a
// retry after any partial failure reaches the same outcome.
type Service struct {
	resolver    *Resolver
	hydrator    *Hydrator
	projects    project.Repository
	handoffs    project.HandoffRepository
	baselines   baseline.Repository
	idempotency shared.IdempotencyStore
	recorder    *audit.Recorder
	metrics     *telemetry.FinanceMetrics
	policy      retry.Policy
	retention   time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// Config holds the collaborators of a Service
type Config struct {
	Projects    project.Repository
	Handoffs    project.HandoffRepository
	Baselines   baseline.Repository
	Idempotency shared.IdempotencyStore
	Recorder    *audit.Recorder
	Metrics     *telemetry.FinanceMetrics
	Retry       retry.Policy
	// Retention is how long idempotency records stay authoritative
	Retention time.Duration
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewService creates a handoff Service
func NewService(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = shared.DefaultIdempotencyConfig().TTL
	}
	return &Service{
		resolver:    NewResolver(cfg.Projects, cfg.Idempotency, log),
		hydrator:    NewHydrator(),
		projects:    cfg.Projects,
		handoffs:    cfg.Handoffs,
		baselines:   cfg.Baselines,
		idempotency: cfg.Idempotency,
		recorder:    cfg.Recorder,
		metrics:     cfg.Metrics,
		policy:      cfg.Retry,
		retention:   retention,
		logger:      log,
		now:         now,
	}
}

// CreateOrUpdateHandoff hands req.BaselineID off to the resolved project.
// Retryable failures are retried under the configured policy.
func (s *Service) CreateOrUpdateHandoff(ctx context.Context, req Request) (*Outcome, error) {
	start := s.now()
	ctx, span := telemetry.StartServiceSpan(ctx, "handoff", "CreateOrUpdateHandoff",
		telemetry.SpanAttrBaselineID.String(req.BaselineID),
		telemetry.SpanAttrProjectID.String(req.ProjectID),
		telemetry.SpanAttrActor.String(req.Actor))

	out, err := s.createOrUpdate(ctx, req)
	if err != nil {
		telemetry.Finish(span, err)
		s.metrics.RecordHandoff(ctx, telemetry.OutcomeFailed, shared.CodeOf(err), s.now().Sub(start))
		return nil, err
	}

	outcome := telemetry.OutcomeAttached
	switch {
	case out.Replayed:
		outcome = telemetry.OutcomeReplayed
		s.metrics.RecordReplay(ctx, shared.ScopeHandoff)
	case out.Created:
		outcome = telemetry.OutcomeCreated
	}
	s.metrics.RecordHandoff(ctx, outcome, "", s.now().Sub(start))
	telemetry.Annotate(span,
		telemetry.SpanAttrHandoffID.String(out.HandoffID),
		telemetry.SpanAttrProjectID.String(out.ProjectID),
		telemetry.SpanAttrOutcome.String(outcome))
	telemetry.Finish(span, nil)
	return out, nil
}

func (s *Service) createOrUpdate(ctx context.Context, req Request) (*Outcome, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}
	ctx = logger.WithActor(ctx, req.Actor)

	b, err := s.baselines.FindByID(ctx, req.BaselineID)
	if err != nil {
		return nil, err
	}
	req.Terms = withBaselineDefaults(req.Terms, b)
	if err := req.Terms.Validate(); err != nil {
		return nil, err
	}

	// fixed for the whole call so retried attempts rewrite the same record
	handoffID := project.DeriveHandoffID(req.IdempotencyKey, req.BaselineID)
	var progress writes

	return retry.Do(ctx, s.policy, func(ctx context.Context) (*Outcome, error) {
		return s.attempt(ctx, req, handoffID, &progress)
	}, func(err error, wait time.Duration) {
		s.metrics.RecordRetry(ctx, "handoff", shared.CodeOf(err))
		logger.For(ctx, s.logger).Warn("retrying handoff",
			zap.String("baseline_id", req.BaselineID),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}

func (s *Service) validate(req *Request) error {
	req.BaselineID = strings.TrimSpace(req.BaselineID)
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.Actor = strings.TrimSpace(req.Actor)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	switch {
	case req.BaselineID == "":
		return shared.NewValidationError("baseline_id is required")
	case req.ProjectID == "":
		return shared.NewValidationError("project id is required")
	case req.Actor == "":
		return shared.NewValidationError("actor is required")
	}
	return nil
}

// writes remembers what this call committed across retried attempts
type writes struct {
	project bool
	handoff bool
}

func (s *Service) attempt(ctx context.Context, req Request, handoffID string, done *writes) (*Outcome, error) {
	res, err := s.resolver.Resolve(ctx, req.BaselineID, req.ProjectID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if res.Replay != nil {
		return &Outcome{HandoffResult: *res.Replay, Replayed: true}, nil
	}
	ctx = logger.WithProjectID(ctx, res.ProjectID)
	now := s.now().UTC()

	owner := s.hydrator.Hydrate(res.ProjectID, res.ExistingMetadata(), IncomingContext{
		Actor:     req.Actor,
		At:        now,
		OwnerName: req.Terms.OwnerName,
	})

	var before map[string]any
	var p *project.Project
	if res.IsNewProject {
		p, err = project.NewProject(res.ProjectID, req.Terms.ProjectName, req.Terms.Code, req.Terms.ClientName, owner)
		if err != nil {
			return nil, err
		}
	} else {
		before = res.Project.Snapshot()
		p = res.Project.Clone()
		p.Ownership = owner
		p.FillDescriptors(req.Terms.ProjectName, req.Terms.Code, req.Terms.ClientName)
	}
	if err := p.MarkHandedOff(req.BaselineID, req.Actor, now); err != nil {
		return nil, err
	}

	if res.IsNewProject {
		err = s.projects.Create(ctx, p)
	} else {
		err = s.projects.Update(ctx, p, res.Project.Version)
	}
	if err != nil {
		return nil, err
	}
	done.project = done.project || res.IsNewProject

	h := &project.Handoff{
		ID:         handoffID,
		ProjectID:  p.ID,
		BaselineID: req.BaselineID,
		Terms:      req.Terms,
		Actor:      req.Actor,
		CreatedAt:  now,
	}
	switch err := s.handoffs.Create(ctx, h); {
	case err == nil:
		done.handoff = true
	case shared.IsAlreadyExists(err):
		stored, ferr := s.handoffs.FindByID(ctx, p.ID, handoffID)
		if ferr != nil {
			return nil, ferr
		}
		h = stored
	default:
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, audit.Input{
		EntityType: domainaudit.EntityProject,
		EntityID:   p.ID,
		Action:     domainaudit.ActionHandoff,
		Before:     before,
		After:      p.Snapshot(),
		Actor:      req.Actor,
		DedupeKey:  "handoff|" + h.ID,
	}); err != nil {
		return nil, err
	}

	result := h.Result()
	if req.IdempotencyKey != "" {
		committed, err := s.commit(ctx, req, result, now)
		if err != nil {
			return nil, err
		}
		if committed != result {
			return &Outcome{HandoffResult: committed, Replayed: true}, nil
		}
	}

	// a handoff record this call did not write was left by an earlier call
	// with the same key that failed before its idempotency commit
	recovered := !done.handoff
	logger.For(ctx, s.logger).Info("baseline handed off",
		zap.String("handoff_id", result.HandoffID),
		zap.String("baseline_id", result.BaselineID),
		zap.Bool("new_project", done.project),
		zap.Bool("recovered", recovered))
	return &Outcome{HandoffResult: result, Created: done.project, Replayed: recovered}, nil
}

// commit stores the idempotency record. Losing the race to a concurrent
// request with the same key yields the winner's tuple.
func (s *Service) commit(ctx context.Context, req Request, result project.HandoffResult, now time.Time) (project.HandoffResult, error) {
	stored, _, err := s.idempotency.PutIfAbsent(ctx, shared.IdempotencyRecord{
		Key:         req.IdempotencyKey,
		Scope:       shared.ScopeHandoff,
		ProjectID:   result.ProjectID,
		BaselineID:  result.BaselineID,
		HandoffID:   result.HandoffID,
		RequestHash: result.BaselineID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.retention),
	})
	if err != nil {
		return project.HandoffResult{}, err
	}
	winner := project.HandoffResult{HandoffID: stored.HandoffID, ProjectID: stored.ProjectID, BaselineID: stored.BaselineID}
	if stored.BaselineID != req.BaselineID {
		return project.HandoffResult{}, shared.NewIdempotencyConflictError(req.IdempotencyKey, winner)
	}
	return winner, nil
}

// withBaselineDefaults fills descriptive terms the client left out from
// the baseline itself.
func withBaselineDefaults(t project.HandoffTerms, b *baseline.Baseline) project.HandoffTerms {
	if strings.TrimSpace(t.ProjectName) == "" {
		t.ProjectName = b.ProjectName
	}
	if strings.TrimSpace(t.ClientName) == "" {
		t.ClientName = b.ClientName
	}
	if t.Currency == "" {
		t.Currency = b.Currency
	}
	return t
}
