package cache

import (
	"context"
	"errors"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/store"
)

// EntityIdempotencyStore keeps idempotency records in the entity store so
// they share durability with the projects they point at.
type EntityIdempotencyStore struct {
	store store.EntityStore
	now   func() time.Time
}

// NewEntityIdempotencyStore creates an entity-store backed idempotency store
func NewEntityIdempotencyStore(s store.EntityStore) *EntityIdempotencyStore {
	return &EntityIdempotencyStore{store: s, now: time.Now}
}

// Get returns the live record for (scope, key)
func (s *EntityIdempotencyStore) Get(ctx context.Context, scope, key string) (*shared.IdempotencyRecord, error) {
	item, err := s.store.Get(ctx, store.IdempotencyPK(scope), store.IdempotencySK(key))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("idempotency record", key)
		}
		return nil, err
	}
	if item.Expired(s.now()) {
		return nil, shared.NewNotFoundError("idempotency record", key)
	}
	var rec shared.IdempotencyRecord
	if err := item.Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutIfAbsent inserts rec unless a live record holds its key. Expired items
// are reclaimed by the store's insert-if-absent condition.
func (s *EntityIdempotencyStore) PutIfAbsent(ctx context.Context, rec shared.IdempotencyRecord) (shared.IdempotencyRecord, bool, error) {
	item, err := store.NewItem(store.IdempotencyPK(rec.Scope), store.IdempotencySK(rec.Key), store.KindIdempotency, rec)
	if err != nil {
		return shared.IdempotencyRecord{}, false, err
	}
	expiresAt := rec.ExpiresAt
	item.ExpiresAt = &expiresAt
	item.ProjectID, item.BaselineID = rec.ProjectID, rec.BaselineID
	item.CreatedAt = rec.CreatedAt

	err = s.store.Put(ctx, store.Put{Item: item, Condition: store.IfNotExists()})
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, store.ErrConditionFailed) {
		return shared.IdempotencyRecord{}, false, err
	}

	existing, err := s.Get(ctx, rec.Scope, rec.Key)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.IdempotencyRecord{}, false, shared.NewConcurrencyError("idempotency record %s expired during write", rec.Key)
		}
		return shared.IdempotencyRecord{}, false, err
	}
	return *existing, false, nil
}

// Close is a no-op; the entity store owns its connection
func (s *EntityIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*EntityIdempotencyStore)(nil)
