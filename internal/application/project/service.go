// Package project manages project records and the human accept/reject
// decision on a handed-off baseline.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/application/audit"
	"github.com/finanzas/backend/internal/application/retry"
	domainaudit "github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"go.uber.org/zap"
)

// CreateInput describes a new pending project
type CreateInput struct {
	ProjectID string // optional; minted when empty
	Name      string
	Code      string
	Client    string
	OwnerName string
	Actor     string
}

// DecisionInput is a human accept or reject of the current baseline
type DecisionInput struct {
	ProjectID  string
	BaselineID string
	Comment    string
	Actor      string
}

// Service handles project lifecycle outside the handoff path
type Service struct {
	projects project.Repository
	handoffs project.HandoffRepository
	recorder *audit.Recorder
	policy   retry.Policy
	logger   *zap.Logger
	now      func() time.Time
}

// Config holds the collaborators of a Service
type Config struct {
	Projects project.Repository
	Handoffs project.HandoffRepository
	Recorder *audit.Recorder
	Retry    retry.Policy
	Logger   *zap.Logger
	Clock    func() time.Time
}

// NewService creates a project Service
func NewService(cfg Config) *Service {
	s := &Service{
		projects: cfg.Projects,
		handoffs: cfg.Handoffs,
		recorder: cfg.Recorder,
		policy:   cfg.Retry,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create inserts a pending project; an existing id is never overwritten
func (s *Service) Create(ctx context.Context, in CreateInput) (*project.Project, error) {
	actor := strings.TrimSpace(in.Actor)
	id := strings.TrimSpace(in.ProjectID)
	if id == "" {
		id = project.NewID()
	}
	p, err := project.NewProject(id, in.Name, in.Code, in.Client, project.Ownership{
		CreatedBy: actor,
		CreatedAt: s.now().UTC(),
		OwnerName: strings.TrimSpace(in.OwnerName),
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, shared.NewValidationError("name is required")
	}

	if err := s.projects.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "project already exists").WithDetail("project_id", id)
		}
		return nil, err
	}
	if _, err := s.recorder.Record(ctx, audit.Input{
		EntityType: domainaudit.EntityProject,
		EntityID:   p.ID,
		Action:     domainaudit.ActionProjectCreated,
		After:      p.Snapshot(),
		Actor:      actor,
		DedupeKey:  "project.created|" + p.ID,
	}); err != nil {
		return nil, err
	}
	logger.For(ctx, s.logger).Info("project created", zap.String("project_id", p.ID))
	return p, nil
}

// Get returns one project
func (s *Service) Get(ctx context.Context, id string) (*project.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewValidationError("project id is required")
	}
	return s.projects.FindByID(ctx, id)
}

// List returns all projects ordered by id
func (s *Service) List(ctx context.Context) ([]*project.Project, error) {
	return s.projects.List(ctx)
}

// Handoffs returns the handoff history of a project, oldest first
func (s *Service) Handoffs(ctx context.Context, id string) ([]project.Handoff, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.handoffs.ListByProject(ctx, id)
}

// History returns the audit trail of a project
func (s *Service) History(ctx context.Context, id string) ([]domainaudit.Entry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.recorder.List(ctx, domainaudit.EntityProject, id)
}

// AcceptBaseline records the delivery owner's acceptance
func (s *Service) AcceptBaseline(ctx context.Context, in DecisionInput) (*project.Project, error) {
	return s.decide(ctx, in, domainaudit.ActionBaselineAccepted, (*project.Project).Accept)
}

// RejectBaseline records the delivery owner's rejection. The baseline is
// left as is; a replacement is handed off to a new project.
func (s *Service) RejectBaseline(ctx context.Context, in DecisionInput) (*project.Project, error) {
	return s.decide(ctx, in, domainaudit.ActionBaselineRejected, (*project.Project).Reject)
}

type decideFunc func(p *project.Project, baselineID, actor, comment string, at time.Time) error

func (s *Service) decide(ctx context.Context, in DecisionInput, action domainaudit.Action, apply decideFunc) (*project.Project, error) {
	if strings.TrimSpace(in.BaselineID) == "" {
		return nil, shared.NewValidationError("baseline_id is required")
	}
	ctx = logger.WithProjectID(logger.WithActor(ctx, in.Actor), in.ProjectID)

	type change struct{ before, after *project.Project }

	// a concurrent write moves the version; reload and reapply
	c, err := retry.Do(ctx, s.policy, func(ctx context.Context) (change, error) {
		current, err := s.Get(ctx, in.ProjectID)
		if err != nil {
			return change{}, err
		}
		next := current.Clone()
		if err := apply(next, in.BaselineID, strings.TrimSpace(in.Actor), in.Comment, s.now()); err != nil {
			return change{}, err
		}
		if err := s.projects.Update(ctx, next, current.Version); err != nil {
			return change{}, err
		}
		return change{before: current, after: next}, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, audit.Input{
		EntityType: domainaudit.EntityProject,
		EntityID:   c.after.ID,
		Action:     action,
		Before:     c.before.Snapshot(),
		After:      c.after.Snapshot(),
		Actor:      c.after.Decision.By,
		DedupeKey:  fmt.Sprintf("%s|%s|%d", action, c.after.ID, c.after.Version),
	}); err != nil {
		return nil, err
	}
	logger.For(ctx, s.logger).Info("baseline decision recorded",
		zap.String("baseline_id", in.BaselineID),
		zap.String("status", string(c.after.BaselineStatus)))
	return c.after, nil
}
