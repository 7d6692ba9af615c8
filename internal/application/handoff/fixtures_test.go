package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/application/audit"
	"github.com/finanzas/backend/internal/application/retry"
	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/infrastructure/cache"
	"github.com/finanzas/backend/internal/infrastructure/persistence"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/stretchr/testify/require"
)

// idempotency expiry is checked against the wall clock
var t0 = time.Now().UTC().Truncate(time.Second)

type env struct {
	store       *store.MemoryStore
	projects    *persistence.StoreProjectRepository
	handoffs    *persistence.StoreHandoffRepository
	baselines   *persistence.StoreBaselineRepository
	audits      *persistence.StoreAuditRepository
	idempotency *cache.EntityIdempotencyStore
	service     *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s := store.NewMemoryStore()
	e := &env{
		store:       s,
		projects:    persistence.NewStoreProjectRepository(s),
		handoffs:    persistence.NewStoreHandoffRepository(s),
		baselines:   persistence.NewStoreBaselineRepository(s),
		audits:      persistence.NewStoreAuditRepository(s),
		idempotency: cache.NewEntityIdempotencyStore(s),
	}
	e.service = NewService(Config{
		Projects:    e.projects,
		Handoffs:    e.handoffs,
		Baselines:   e.baselines,
		Idempotency: e.idempotency,
		Recorder:    audit.NewRecorder(e.audits),
		Retry:       retry.Policy{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond},
		Clock:       func() time.Time { return t0 },
	})
	return e
}

// seedBaseline stores a one-line baseline and returns its id
func (e *env) seedBaseline(t *testing.T, name string) string {
	t.Helper()
	b, err := baseline.NewBaseline(baseline.Draft{
		ProjectName:    name,
		ClientName:     "Banco Andino",
		Currency:       "USD",
		StartDate:      t0,
		DurationMonths: 12,
		Labor: []baseline.LineSnapshot{{
			Role: "Ingeniero de soporte", Quantity: "1", UnitCost: "1000",
			Recurring: true, StartPeriod: 1, EndPeriod: 12,
		}},
		SignedBy: "pmo@example.com",
	}, "pmo@example.com", t0)
	require.NoError(t, err)
	require.NoError(t, e.baselines.Create(context.Background(), b))
	return b.ID
}

// seedProject stores a project, optionally already handed the baseline
func (e *env) seedProject(t *testing.T, id, baselineID string) *project.Project {
	t.Helper()
	p, err := project.NewProject(id, "Proyecto "+id, "C-"+id, "Cliente", project.Ownership{
		CreatedBy: "owner@example.com",
		CreatedAt: t0.Add(-48 * time.Hour),
		OwnerName: "Delivery Manager",
	})
	require.NoError(t, err)
	if baselineID != "" {
		require.NoError(t, p.MarkHandedOff(baselineID, "owner@example.com", t0.Add(-24*time.Hour)))
	}
	require.NoError(t, e.projects.Create(context.Background(), p))
	return p
}

func (e *env) request(baselineID, projectID, key string) Request {
	return Request{
		BaselineID:     baselineID,
		ProjectID:      projectID,
		IdempotencyKey: key,
		Actor:          "scheduler@system",
	}
}
