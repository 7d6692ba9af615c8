package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRecord(key, projectID string, now time.Time) shared.IdempotencyRecord {
	return shared.IdempotencyRecord{
		Key:        key,
		Scope:      shared.ScopeHandoff,
		ProjectID:  projectID,
		BaselineID: "base_1",
		HandoffID:  "ho_" + key,
		CreatedAt:  now,
		ExpiresAt:  now.Add(72 * time.Hour),
	}
}

func TestInMemoryIdempotencyStore_PutIfAbsent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewInMemoryIdempotencyStore(WithClock(clock.Now))
	ctx := context.Background()

	t.Run("first writer wins", func(t *testing.T) {
		rec, created, err := store.PutIfAbsent(ctx, newRecord("k1", "P-1", clock.Now()))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "P-1", rec.ProjectID)

		rec, created, err = store.PutIfAbsent(ctx, newRecord("k1", "P-2", clock.Now()))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "P-1", rec.ProjectID)
	})

	t.Run("scopes do not collide", func(t *testing.T) {
		other := newRecord("k1", "P-3", clock.Now())
		other.Scope = shared.ScopeBaseline
		_, created, err := store.PutIfAbsent(ctx, other)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("expired record is replaced", func(t *testing.T) {
		_, _, err := store.PutIfAbsent(ctx, newRecord("k2", "P-1", clock.Now()))
		require.NoError(t, err)

		clock.Advance(73 * time.Hour)
		_, err = store.Get(ctx, shared.ScopeHandoff, "k2")
		assert.True(t, shared.IsNotFound(err))

		rec, created, err := store.PutIfAbsent(ctx, newRecord("k2", "P-9", clock.Now()))
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "P-9", rec.ProjectID)
	})
}

func TestInMemoryIdempotencyStore_ConcurrentWriters(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := store.PutIfAbsent(ctx, newRecord("race", "P-x", time.Now()))
			assert.NoError(t, err)
			if created {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestInMemoryIdempotencyStore_PurgeExpired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := NewInMemoryIdempotencyStore(WithClock(clock.Now))
	ctx := context.Background()

	_, _, err := s.PutIfAbsent(ctx, newRecord("old", "P-1", clock.Now()))
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)
	_, _, err = s.PutIfAbsent(ctx, newRecord("young", "P-2", clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	clock.Advance(30 * time.Hour)
	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, s.Len())
	_, err = s.Get(ctx, shared.ScopeHandoff, "young")
	assert.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.PurgeExpired(cancelled)
	assert.True(t, shared.IsTransient(err))
}
