package project

import (
	"context"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/application/audit"
	"github.com/finanzas/backend/internal/application/retry"
	domainaudit "github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/persistence"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 5, 2, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *persistence.StoreProjectRepository) {
	t.Helper()
	s := store.NewMemoryStore()
	repo := persistence.NewStoreProjectRepository(s)
	return NewService(Config{
		Projects: repo,
		Handoffs: persistence.NewStoreHandoffRepository(s),
		Recorder: audit.NewRecorder(persistence.NewStoreAuditRepository(s)),
		Retry:    retry.Policy{Attempts: 3, Initial: time.Millisecond},
		Clock:    func() time.Time { return now },
	}), repo
}

// handedOff stores a project that already carries baselineID
func handedOff(t *testing.T, repo *persistence.StoreProjectRepository, id, baselineID string) {
	t.Helper()
	p, err := project.NewProject(id, "Proyecto", "", "", project.Ownership{CreatedBy: "pmo@example.com", CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, p.MarkHandedOff(baselineID, "pmo@example.com", now))
	require.NoError(t, repo.Create(context.Background(), p))
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{ProjectID: "P1", Name: "Mesa de ayuda", Client: "Banco", OwnerName: "Ana", Actor: "sdm@example.com"})
	require.NoError(t, err)
	assert.Equal(t, project.StatusPending, p.BaselineStatus)
	assert.Equal(t, "sdm@example.com", p.CreatedBy)

	_, err = svc.Create(ctx, CreateInput{ProjectID: "P1", Name: "Otro", Actor: "intruder@example.com"})
	assert.True(t, shared.IsAlreadyExists(err))

	stored, err := svc.Get(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Mesa de ayuda", stored.Name)
	assert.Equal(t, "sdm@example.com", stored.CreatedBy)

	history, err := svc.History(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domainaudit.ActionProjectCreated, history[0].Action)
}

func TestCreate_MintsIDAndValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateInput{Name: "Sin id", Actor: "sdm@example.com"})
	require.NoError(t, err)
	assert.Contains(t, p.ID, project.IDPrefix)

	_, err = svc.Create(ctx, CreateInput{Name: "", Actor: "sdm@example.com"})
	assert.True(t, shared.IsValidation(err))
	_, err = svc.Create(ctx, CreateInput{Name: "x"})
	assert.True(t, shared.IsValidation(err))
}

func TestAcceptBaseline(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	handedOff(t, repo, "P1", "base_1")

	p, err := svc.AcceptBaseline(ctx, DecisionInput{ProjectID: "P1", BaselineID: "base_1", Actor: "sdm@example.com", Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, project.StatusAccepted, p.BaselineStatus)
	require.NotNil(t, p.Decision)
	assert.Equal(t, "sdm@example.com", p.Decision.By)
	assert.Equal(t, "pmo@example.com", p.CreatedBy)

	history, err := svc.History(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "handed_off", history[0].Before["baseline_status"])
	assert.Equal(t, "accepted", history[0].After["baseline_status"])

	_, err = svc.RejectBaseline(ctx, DecisionInput{ProjectID: "P1", BaselineID: "base_1", Actor: "sdm@example.com"})
	assert.True(t, shared.IsInvalidState(err))
}

func TestRejectBaseline_Guards(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	handedOff(t, repo, "P1", "base_1")

	_, err := svc.RejectBaseline(ctx, DecisionInput{ProjectID: "P1", BaselineID: "base_2", Actor: "sdm@example.com"})
	assert.True(t, shared.IsConflict(err))

	_, err = svc.RejectBaseline(ctx, DecisionInput{ProjectID: "P1", BaselineID: "", Actor: "sdm@example.com"})
	assert.True(t, shared.IsValidation(err))

	_, err = svc.RejectBaseline(ctx, DecisionInput{ProjectID: "P404", BaselineID: "base_1", Actor: "sdm@example.com"})
	assert.True(t, shared.IsNotFound(err))

	p, err := svc.RejectBaseline(ctx, DecisionInput{ProjectID: "P1", BaselineID: "base_1", Actor: "sdm@example.com", Comment: "fuera de alcance"})
	require.NoError(t, err)
	assert.Equal(t, project.StatusRejected, p.BaselineStatus)
	assert.Equal(t, "base_1", p.BaselineID)
	assert.Equal(t, "fuera de alcance", p.Decision.Comment)
}

func TestAcceptBaseline_PendingProjectHasNoBaseline(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{ProjectID: "P2", Name: "Pendiente", Actor: "sdm@example.com"})
	require.NoError(t, err)

	_, err = svc.AcceptBaseline(ctx, DecisionInput{ProjectID: "P2", BaselineID: "base_1", Actor: "sdm@example.com"})
	assert.True(t, shared.IsConflict(err))
}

func TestListAndHandoffs(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	handedOff(t, repo, "P2", "base_2")
	handedOff(t, repo, "P1", "base_1")

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "P1", all[0].ID)

	hs, err := svc.Handoffs(ctx, "P1")
	require.NoError(t, err)
	assert.Empty(t, hs)

	_, err = svc.Handoffs(ctx, "P404")
	assert.True(t, shared.IsNotFound(err))
}
