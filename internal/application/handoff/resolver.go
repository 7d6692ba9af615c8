// Package handoff transfers a signed baseline to the project that will
// deliver it, without ever redirecting the write into an unrelated project.
package handoff

import (
	"context"
	"strings"

	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Resolution is the project a handoff must target
type Resolution struct {
	ProjectID string
	// Project is the stored project, nil when IsNewProject
	Project      *project.Project
	IsNewProject bool
	// Replay is set when an idempotency record already answered the
	// request; nothing else in the resolution is meaningful then.
	Replay *project.HandoffResult
}

// ExistingMetadata returns the stored ownership, or nil for a new project
func (r Resolution) ExistingMetadata() *project.Ownership {
	if r.Project == nil || r.Project.Ownership.IsZero() {
		return nil
	}
	o := r.Project.Ownership
	return &o
}

// Resolver decides which project a handoff updates. Baseline identity, not
// the requested path id, is the source of truth.
type Resolver struct {
	projects    project.Repository
	idempotency shared.IdempotencyStore
	logger      *zap.Logger
}

// NewResolver creates a Resolver
func NewResolver(projects project.Repository, idempotency shared.IdempotencyStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{projects: projects, idempotency: idempotency, logger: logger}
}

// Resolve picks the target project for baselineID:
//
//  1. a live idempotency record for key answers directly, or conflicts
//     when it was written for another baseline;
//  2. a missing requested project becomes a new project at that id,
//     unless another project already holds baselineID;
//  3. a requested project already carrying baselineID is reused;
//  4. a requested project without a baseline is claimed unless another
//     project already holds baselineID;
//  5. otherwise the project indexed for baselineID is used, or a fresh id
//     is minted.
func (r *Resolver) Resolve(ctx context.Context, baselineID, requestedProjectID, idempotencyKey string) (Resolution, error) {
	baselineID = strings.TrimSpace(baselineID)
	requestedProjectID = strings.TrimSpace(requestedProjectID)
	if baselineID == "" {
		return Resolution{}, shared.NewValidationError("baseline_id is required")
	}
	if requestedProjectID == "" {
		return Resolution{}, shared.NewValidationError("project id is required")
	}
	log := logger.For(ctx, r.logger).With(
		zap.String("baseline_id", baselineID),
		zap.String("requested_project_id", requestedProjectID),
	)

	if idempotencyKey != "" {
		rec, err := r.idempotency.Get(ctx, shared.ScopeHandoff, idempotencyKey)
		switch {
		case err == nil:
			winner := project.HandoffResult{HandoffID: rec.HandoffID, ProjectID: rec.ProjectID, BaselineID: rec.BaselineID}
			if rec.BaselineID != baselineID {
				return Resolution{}, shared.NewIdempotencyConflictError(idempotencyKey, winner)
			}
			log.Debug("handoff answered from idempotency record", zap.String("project_id", rec.ProjectID))
			return Resolution{ProjectID: rec.ProjectID, Replay: &winner}, nil
		case !shared.IsNotFound(err):
			return Resolution{}, err
		}
	}

	requested, err := r.projects.FindByID(ctx, requestedProjectID)
	if shared.IsNotFound(err) {
		holder, err := r.holder(ctx, baselineID)
		if err != nil {
			return Resolution{}, err
		}
		if holder != nil {
			log.Info("requested project is missing, baseline already held",
				zap.String("project_id", holder.ID))
			return Resolution{ProjectID: holder.ID, Project: holder}, nil
		}
		return Resolution{ProjectID: requestedProjectID, IsNewProject: true}, nil
	}
	if err != nil {
		return Resolution{}, err
	}

	if requested.BaselineID == baselineID {
		return Resolution{ProjectID: requested.ID, Project: requested}, nil
	}

	holder, err := r.holder(ctx, baselineID)
	if err != nil {
		return Resolution{}, err
	}
	if holder != nil {
		if holder.ID != requested.ID {
			log.Info("baseline already held by another project",
				zap.String("project_id", holder.ID),
				zap.String("path_baseline_id", requested.BaselineID))
		}
		return Resolution{ProjectID: holder.ID, Project: holder}, nil
	}

	if !requested.HasBaseline() {
		return Resolution{ProjectID: requested.ID, Project: requested}, nil
	}

	minted := project.DeriveID(idempotencyKey, baselineID)
	log.Info("requested project carries another baseline, minting a new project",
		zap.String("path_baseline_id", requested.BaselineID),
		zap.String("project_id", minted))
	return Resolution{ProjectID: minted, IsNewProject: true}, nil
}

// holder returns the project indexed for baselineID, or nil
func (r *Resolver) holder(ctx context.Context, baselineID string) (*project.Project, error) {
	p, err := r.projects.FindByBaseline(ctx, baselineID)
	if shared.IsNotFound(err) {
		return nil, nil
	}
	return p, err
}
