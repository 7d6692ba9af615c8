// Package rubro expands baselines into budget rows and serves them back.
package rubro

import (
	"context"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/application/audit"
	"github.com/finanzas/backend/internal/application/retry"
	domainaudit "github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/rubro"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/logger"
	"github.com/finanzas/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// MappingWarning reports a line the taxonomy could not classify. It is
// returned to the caller, never raised.
type MappingWarning struct {
	LineItemID  string            `json:"line_item_id"`
	LineKind    baseline.LineKind `json:"line_type"`
	Category    string            `json:"category"`
	Description string            `json:"description,omitempty"`
	Message     string            `json:"message"`
}

// Result counts what one materialization wrote
type Result struct {
	ProjectID  string           `json:"project_id"`
	BaselineID string           `json:"baseline_id"`
	Written    int              `json:"written"`
	Unmapped   int              `json:"unmapped"`
	Warnings   []MappingWarning `json:"warnings,omitempty"`
}

// Materializer upserts one rubro per baseline line
type Materializer struct {
	projects  project.Repository
	baselines baseline.Repository
	rubros    rubro.Repository
	taxonomy  rubro.Taxonomy
	recorder  *audit.Recorder
	metrics   *telemetry.FinanceMetrics
	policy    retry.Policy
	logger    *zap.Logger
	now       func() time.Time
}

// MaterializerConfig holds the collaborators of a Materializer
type MaterializerConfig struct {
	Projects  project.Repository
	Baselines baseline.Repository
	Rubros    rubro.Repository
	Taxonomy  rubro.Taxonomy
	Recorder  *audit.Recorder
	Metrics   *telemetry.FinanceMetrics
	Retry     retry.Policy
	Logger    *zap.Logger
	Clock     func() time.Time
}

// NewMaterializer creates a Materializer
func NewMaterializer(cfg MaterializerConfig) *Materializer {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Materializer{
		projects:  cfg.Projects,
		baselines: cfg.Baselines,
		rubros:    cfg.Rubros,
		taxonomy:  cfg.Taxonomy,
		recorder:  cfg.Recorder,
		metrics:   cfg.Metrics,
		policy:    cfg.Retry,
		logger:    log,
		now:       now,
	}
}

// MaterializeFromBaseline writes the rubros of baselineID under projectID.
// The project must currently carry that baseline. Every write is a keyed
// upsert, so repeated or concurrent runs converge on the same rows.
func (m *Materializer) MaterializeFromBaseline(ctx context.Context, projectID, baselineID, actor string) (_ *Result, err error) {
	projectID, baselineID, actor = strings.TrimSpace(projectID), strings.TrimSpace(baselineID), strings.TrimSpace(actor)
	if projectID == "" || baselineID == "" {
		return nil, shared.NewValidationError("project id and baseline_id are required")
	}
	if actor == "" {
		actor = "system"
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "rubro", "MaterializeFromBaseline",
		telemetry.SpanAttrProjectID.String(projectID),
		telemetry.SpanAttrBaselineID.String(baselineID))
	defer func() { telemetry.Finish(span, err) }()
	ctx = logger.WithProjectID(logger.WithActor(ctx, actor), projectID)
	log := logger.For(ctx, m.logger).With(zap.String("baseline_id", baselineID))

	p, err := m.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.BaselineID != baselineID {
		return nil, shared.NewConflictError("baseline is not the project's current baseline", map[string]string{
			"project_id":  p.ID,
			"baseline_id": p.BaselineID,
		})
	}
	b, err := m.baselines.FindByID(ctx, baselineID)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	res := &Result{ProjectID: projectID, BaselineID: baselineID}
	counts := map[baseline.LineKind][2]int{}
	for i, line := range b.Lines {
		r, mapped := rubro.FromLine(projectID, baselineID, i, line, m.taxonomy, now)
		if _, err := retry.Do(ctx, m.policy, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, m.rubros.Upsert(ctx, r)
		}, func(err error, wait time.Duration) {
			m.metrics.RecordRetry(ctx, "rubro_upsert", shared.CodeOf(err))
		}); err != nil {
			log.Error("rubro upsert failed", zap.String("line_item_id", r.LineItemID), zap.Error(err))
			return nil, err
		}

		res.Written++
		c := counts[r.LineKind]
		if mapped {
			c[0]++
		} else {
			c[1]++
			res.Unmapped++
			res.Warnings = append(res.Warnings, MappingWarning{
				LineItemID:  r.LineItemID,
				LineKind:    r.LineKind,
				Category:    r.Category,
				Description: r.Description,
				Message:     "no taxonomy entry matched; tagged " + rubro.Unmapped,
			})
			log.Warn("unmapped estimate line",
				zap.String("line_item_id", r.LineItemID),
				zap.String("category", r.Category),
				zap.String("description", r.Description))
		}
		counts[r.LineKind] = c
	}
	for kind, c := range counts {
		m.metrics.RecordRubros(ctx, string(kind), true, c[0])
		m.metrics.RecordRubros(ctx, string(kind), false, c[1])
	}

	if _, err := m.recorder.Record(ctx, audit.Input{
		EntityType: domainaudit.EntityProject,
		EntityID:   projectID,
		Action:     domainaudit.ActionRubrosMaterialized,
		After: map[string]any{
			"baseline_id": baselineID,
			"written":     res.Written,
			"unmapped":    res.Unmapped,
		},
		Actor: actor,
	}); err != nil {
		return nil, err
	}

	telemetry.Annotate(span,
		telemetry.SpanAttrRubroCount.Int(res.Written),
		telemetry.SpanAttrUnmapped.Int(res.Unmapped))
	log.Info("rubros materialized", zap.Int("written", res.Written), zap.Int("unmapped", res.Unmapped))
	return res, nil
}
