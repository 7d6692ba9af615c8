package persistence

import (
	"context"
	"errors"

	"github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/store"
)

// StoreAuditRepository keeps audit entries in the owning entity's partition
type StoreAuditRepository struct {
	store store.EntityStore
}

// NewStoreAuditRepository creates an audit repository
func NewStoreAuditRepository(s store.EntityStore) *StoreAuditRepository {
	return &StoreAuditRepository{store: s}
}

var _ audit.Repository = (*StoreAuditRepository)(nil)

func (r *StoreAuditRepository) Append(ctx context.Context, e audit.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	pk := store.EntityPK(string(e.EntityType), e.EntityID)
	item, err := store.NewItem(pk, store.AuditSK(e.ID), store.KindAudit, e)
	if err != nil {
		return err
	}
	switch e.EntityType {
	case audit.EntityProject:
		item.ProjectID = e.EntityID
	case audit.EntityBaseline:
		item.BaselineID = e.EntityID
	}
	item.CreatedAt = e.Timestamp

	err = r.store.Put(ctx, store.Put{Item: item, Condition: store.IfNotExists()})
	if errors.Is(err, store.ErrConditionFailed) {
		return shared.ErrAlreadyExists
	}
	return err
}

func (r *StoreAuditRepository) ListByEntity(ctx context.Context, entityType audit.EntityType, entityID string) ([]audit.Entry, error) {
	items, err := r.store.Query(ctx, store.EntityPK(string(entityType), entityID), store.AuditPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]audit.Entry, 0, len(items))
	for _, item := range items {
		var e audit.Entry
		if err := item.Decode(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sortByTime(out, func(e audit.Entry) int64 { return e.Timestamp.UnixNano() })
	return out, nil
}
