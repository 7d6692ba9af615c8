package persistence

import (
	"context"
	"errors"

	"github.com/finanzas/backend/internal/domain/project"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/store"
)

// StoreHandoffRepository implements project.HandoffRepository
type StoreHandoffRepository struct {
	store store.EntityStore
}

// NewStoreHandoffRepository creates a handoff repository
func NewStoreHandoffRepository(s store.EntityStore) *StoreHandoffRepository {
	return &StoreHandoffRepository{store: s}
}

var _ project.HandoffRepository = (*StoreHandoffRepository)(nil)

func (r *StoreHandoffRepository) Create(ctx context.Context, h *project.Handoff) error {
	item, err := store.NewItem(store.ProjectPK(h.ProjectID), store.HandoffSK(h.ID), store.KindHandoff, h)
	if err != nil {
		return err
	}
	item.ProjectID, item.BaselineID = h.ProjectID, h.BaselineID
	item.CreatedAt = h.CreatedAt

	err = r.store.Put(ctx, store.Put{Item: item, Condition: store.IfNotExists()})
	if errors.Is(err, store.ErrConditionFailed) {
		return shared.ErrAlreadyExists
	}
	return err
}

func (r *StoreHandoffRepository) FindByID(ctx context.Context, projectID, handoffID string) (*project.Handoff, error) {
	item, err := r.store.Get(ctx, store.ProjectPK(projectID), store.HandoffSK(handoffID))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("handoff", handoffID)
		}
		return nil, err
	}
	var h project.Handoff
	if err := item.Decode(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListByProject returns the handoff history of a project, oldest first
func (r *StoreHandoffRepository) ListByProject(ctx context.Context, projectID string) ([]project.Handoff, error) {
	items, err := r.store.Query(ctx, store.ProjectPK(projectID), store.HandoffPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]project.Handoff, 0, len(items))
	for _, item := range items {
		var h project.Handoff
		if err := item.Decode(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	sortByTime(out, func(h project.Handoff) int64 { return h.CreatedAt.UnixNano() })
	return out, nil
}
