package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/infrastructure/persistence"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context, e audit.Entry) error {
	return m.Called(ctx, e).Error(0)
}

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newRecorder(opts ...Option) *Recorder {
	repo := persistence.NewStoreAuditRepository(store.NewMemoryStore())
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewRecorder(repo, opts...)
}

func handoffInput(dedupe string) Input {
	return Input{
		EntityType: audit.EntityProject,
		EntityID:   "P-1",
		Action:     audit.ActionHandoff,
		Before:     map[string]any{"baseline_status": "pending"},
		After:      map[string]any{"baseline_status": "handed_off"},
		Actor:      "pmo@example.com",
		DedupeKey:  dedupe,
	}
}

func TestRecorder_RecordAndList(t *testing.T) {
	r := newRecorder()
	ctx := context.Background()

	e, err := r.Record(ctx, handoffInput(""))
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, fixedNow, e.Timestamp)

	entries, err := r.List(ctx, audit.EntityProject, "P-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionHandoff, entries[0].Action)
	assert.Equal(t, "handed_off", entries[0].After["baseline_status"])
}

func TestRecorder_DedupeKeyRecordsOnce(t *testing.T) {
	exporter := new(MockExporter)
	exporter.On("Export", mock.Anything, mock.Anything).Return(nil).Once()
	r := newRecorder(WithExporter(exporter))
	ctx := context.Background()

	first, err := r.Record(ctx, handoffInput("handoff|ho_1"))
	require.NoError(t, err)
	second, err := r.Record(ctx, handoffInput("handoff|ho_1"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	entries, err := r.List(ctx, audit.EntityProject, "P-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	exporter.AssertExpectations(t)
}

func TestRecorder_ExportFailureDoesNotFail(t *testing.T) {
	exporter := new(MockExporter)
	exporter.On("Export", mock.Anything, mock.Anything).Return(errors.New("s3 down"))
	r := newRecorder(WithExporter(exporter))

	_, err := r.Record(context.Background(), handoffInput(""))
	assert.NoError(t, err)
	exporter.AssertNumberOfCalls(t, "Export", 1)
}

func TestRecorder_RejectsIncompleteEntry(t *testing.T) {
	r := newRecorder()
	in := handoffInput("")
	in.Actor = ""

	_, err := r.Record(context.Background(), in)
	assert.Error(t, err)
}

func TestRecorder_ListRequiresEntityID(t *testing.T) {
	_, err := newRecorder().List(context.Background(), audit.EntityProject, "")
	assert.Error(t, err)
}
