package cache

import (
	"context"
	"sync"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/store"
)

type recordKey struct {
	scope string
	key   string
}

// InMemoryIdempotencyStore keeps idempotency records in process memory.
// Records are neither shared across instances nor kept across restarts.
// Expired records stay invisible to readers until PurgeExpired drops them.
type InMemoryIdempotencyStore struct {
	mu      sync.RWMutex
	records map[recordKey]shared.IdempotencyRecord
	now     func() time.Time
}

// InMemoryOption configures an InMemoryIdempotencyStore
type InMemoryOption func(*InMemoryIdempotencyStore)

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryIdempotencyStore) { s.now = now }
}

func NewInMemoryIdempotencyStore(opts ...InMemoryOption) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		records: make(map[recordKey]shared.IdempotencyRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the live record for (scope, key)
func (s *InMemoryIdempotencyStore) Get(_ context.Context, scope, key string) (*shared.IdempotencyRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[recordKey{scope, key}]
	s.mu.RUnlock()

	if !ok || rec.Expired(s.now()) {
		return nil, shared.NewNotFoundError("idempotency record", key)
	}
	return &rec, nil
}

// PutIfAbsent stores rec unless a live record holds its key. An expired
// record is overwritten.
func (s *InMemoryIdempotencyStore) PutIfAbsent(ctx context.Context, rec shared.IdempotencyRecord) (shared.IdempotencyRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return shared.IdempotencyRecord{}, false, shared.NewTransientError("idempotency put", err)
	}
	k := recordKey{rec.Scope, rec.Key}

	s.mu.Lock()
	defer s.mu.Unlock()
	if held, ok := s.records[k]; ok && !held.Expired(s.now()) {
		return held, false, nil
	}
	s.records[k] = rec
	return rec, true, nil
}

// PurgeExpired drops every expired record and reports how many went
func (s *InMemoryIdempotencyStore) PurgeExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, shared.NewTransientError("idempotency purge", err)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

// Len counts held records, expired ones included
func (s *InMemoryIdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op; there is nothing to release
func (s *InMemoryIdempotencyStore) Close() error { return nil }

var (
	_ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
	_ store.Purger            = (*InMemoryIdempotencyStore)(nil)
)
