package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testClock is a settable clock shared by a store under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeFactory func(t *testing.T, clock *testClock) EntityStore

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.EntityItemModel{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// extraBackends holds opt-in backends registered by other test files
var extraBackends = map[string]storeFactory{}

func backends() map[string]storeFactory {
	all := map[string]storeFactory{
		"memory": func(t *testing.T, clock *testClock) EntityStore {
			return NewMemoryStore(WithClock(clock.Now))
		},
		"gorm-sqlite": func(t *testing.T, clock *testClock) EntityStore {
			s := NewGormStore(newSQLiteDB(t))
			s.now = clock.Now
			return s
		},
	}
	for name, f := range extraBackends {
		all[name] = f
	}
	return all
}

func item(t *testing.T, pk, sk, kind string, v any) Item {
	t.Helper()
	it, err := NewItem(pk, sk, kind, v)
	require.NoError(t, err)
	return it
}

func TestEntityStore_Contract(t *testing.T) {
	for name, factory := range backends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Run("get missing returns not found", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				_, err := s.Get(context.Background(), ProjectPK("P-1"), SKMetadata)
				assert.True(t, shared.IsNotFound(err))
			})

			t.Run("insert if absent", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				ctx := context.Background()
				first := item(t, ProjectPK("P-1"), SKMetadata, KindProject, map[string]string{"owner": "ana"})
				require.NoError(t, s.Put(ctx, Put{Item: first, Condition: IfNotExists()}))

				second := item(t, ProjectPK("P-1"), SKMetadata, KindProject, map[string]string{"owner": "eve"})
				err := s.Put(ctx, Put{Item: second, Condition: IfNotExists()})
				assert.ErrorIs(t, err, ErrConditionFailed)
				assert.True(t, shared.IsConcurrencyConflict(err))

				got, err := s.Get(ctx, ProjectPK("P-1"), SKMetadata)
				require.NoError(t, err)
				var data map[string]string
				require.NoError(t, got.Decode(&data))
				assert.Equal(t, "ana", data["owner"])
				assert.Equal(t, 1, got.Version)
			})

			t.Run("update if version matches", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				ctx := context.Background()
				it := item(t, ProjectPK("P-1"), SKMetadata, KindProject, map[string]int{"n": 1})
				require.NoError(t, s.Put(ctx, Put{Item: it, Condition: IfNotExists()}))

				it.Version = 2
				it.Data = json.RawMessage(`{"n":2}`)
				require.NoError(t, s.Put(ctx, Put{Item: it, Condition: IfVersion(1)}))

				it.Version = 3
				err := s.Put(ctx, Put{Item: it, Condition: IfVersion(1)})
				assert.ErrorIs(t, err, ErrConditionFailed)

				got, err := s.Get(ctx, ProjectPK("P-1"), SKMetadata)
				require.NoError(t, err)
				assert.Equal(t, 2, got.Version)
				assert.JSONEq(t, `{"n":2}`, string(got.Data))
			})

			t.Run("version guard on missing item fails", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				it := item(t, ProjectPK("P-404"), SKMetadata, KindProject, map[string]int{})
				err := s.Put(context.Background(), Put{Item: it, Condition: IfVersion(1)})
				assert.ErrorIs(t, err, ErrConditionFailed)
			})

			t.Run("unconditional put upserts", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				ctx := context.Background()
				sk := RubroSK("base_1", "labor", "ing-1")
				require.NoError(t, s.Put(ctx, Put{Item: item(t, ProjectPK("P-1"), sk, KindRubro, map[string]string{"total": "1"})}))
				require.NoError(t, s.Put(ctx, Put{Item: item(t, ProjectPK("P-1"), sk, KindRubro, map[string]string{"total": "2"})}))

				items, err := s.Query(ctx, ProjectPK("P-1"), RubroPrefix)
				require.NoError(t, err)
				require.Len(t, items, 1)
				assert.JSONEq(t, `{"total":"2"}`, string(items[0].Data))
			})

			t.Run("transact put is all or nothing", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				ctx := context.Background()
				require.NoError(t, s.Put(ctx, Put{
					Item:      item(t, BaselinePK("base_1"), SKBaselineIndex, KindBaselineIndex, map[string]string{"project_id": "P-1"}),
					Condition: IfNotExists(),
				}))

				err := s.TransactPut(ctx,
					Put{Item: item(t, ProjectPK("P-2"), SKMetadata, KindProject, map[string]string{}), Condition: IfNotExists()},
					Put{Item: item(t, BaselinePK("base_1"), SKBaselineIndex, KindBaselineIndex, map[string]string{"project_id": "P-2"}), Condition: IfNotExists()},
				)
				assert.ErrorIs(t, err, ErrConditionFailed)

				_, err = s.Get(ctx, ProjectPK("P-2"), SKMetadata)
				assert.True(t, shared.IsNotFound(err), "first write must be rolled back")
			})

			t.Run("query filters by prefix and orders by sort key", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				ctx := context.Background()
				pk := ProjectPK("P_1")
				for _, sk := range []string{HandoffSK("b"), HandoffSK("a"), SKMetadata, RubroSK("base_1", "labor", "x")} {
					require.NoError(t, s.Put(ctx, Put{Item: item(t, pk, sk, KindHandoff, map[string]string{})}))
				}
				require.NoError(t, s.Put(ctx, Put{Item: item(t, ProjectPK("PX1"), HandoffSK("z"), KindHandoff, map[string]string{})}))

				items, err := s.Query(ctx, pk, HandoffPrefix)
				require.NoError(t, err)
				require.Len(t, items, 2)
				assert.Equal(t, HandoffSK("a"), items[0].SK)
				assert.Equal(t, HandoffSK("b"), items[1].SK)
			})

			t.Run("expired items are invisible and reclaimable", func(t *testing.T) {
				clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
				s := factory(t, clock)
				ctx := context.Background()

				it := item(t, IdempotencyPK("handoff"), IdempotencySK("K1"), KindIdempotency, map[string]string{"b": "1"})
				expires := clock.Now().Add(time.Hour)
				it.ExpiresAt = &expires
				require.NoError(t, s.Put(ctx, Put{Item: it, Condition: IfNotExists()}))
				assert.ErrorIs(t, s.Put(ctx, Put{Item: it, Condition: IfNotExists()}), ErrConditionFailed)

				clock.Advance(2 * time.Hour)
				_, err := s.Get(ctx, it.PK, it.SK)
				assert.True(t, shared.IsNotFound(err))

				later := clock.Now().Add(time.Hour)
				it.ExpiresAt = &later
				it.Data = json.RawMessage(`{"b":"2"}`)
				require.NoError(t, s.Put(ctx, Put{Item: it, Condition: IfNotExists()}))
				got, err := s.Get(ctx, it.PK, it.SK)
				require.NoError(t, err)
				assert.JSONEq(t, `{"b":"2"}`, string(got.Data))
			})

			t.Run("purge removes only expired items", func(t *testing.T) {
				clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
				s := factory(t, clock)
				p, ok := s.(Purger)
				require.True(t, ok)
				ctx := context.Background()

				short := item(t, IdempotencyPK("handoff"), IdempotencySK("K1"), KindIdempotency, map[string]string{"b": "1"})
				soon := clock.Now().Add(time.Hour)
				short.ExpiresAt = &soon
				long := item(t, IdempotencyPK("handoff"), IdempotencySK("K2"), KindIdempotency, map[string]string{"b": "2"})
				later := clock.Now().Add(72 * time.Hour)
				long.ExpiresAt = &later
				keep := item(t, ProjectPK("P-1"), SKMetadata, KindProject, map[string]string{"owner": "ana"})
				require.NoError(t, s.TransactPut(ctx, []Put{{Item: short}, {Item: long}, {Item: keep}}...))

				n, err := p.PurgeExpired(ctx)
				require.NoError(t, err)
				assert.Zero(t, n)

				clock.Advance(2 * time.Hour)
				n, err = p.PurgeExpired(ctx)
				require.NoError(t, err)
				assert.Equal(t, int64(1), n)

				clock.Advance(-2 * time.Hour)
				_, err = s.Get(ctx, short.PK, short.SK)
				assert.True(t, shared.IsNotFound(err))
				_, err = s.Get(ctx, long.PK, long.SK)
				assert.NoError(t, err)
				_, err = s.Get(ctx, keep.PK, keep.SK)
				assert.NoError(t, err)
			})

			t.Run("scan visits items of a kind", func(t *testing.T) {
				s := factory(t, &testClock{now: time.Now()})
				ctx := context.Background()
				require.NoError(t, s.Put(ctx, Put{Item: item(t, ProjectPK("P-1"), SKMetadata, KindProject, map[string]string{})}))
				require.NoError(t, s.Put(ctx, Put{Item: item(t, ProjectPK("P-2"), SKMetadata, KindProject, map[string]string{})}))
				require.NoError(t, s.Put(ctx, Put{Item: item(t, BaselinePK("b"), SKMetadata, KindBaseline, map[string]string{})}))

				var seen []string
				require.NoError(t, s.Scan(ctx, KindProject, func(i Item) error {
					seen = append(seen, i.PK)
					return nil
				}))
				assert.Equal(t, []string{ProjectPK("P-1"), ProjectPK("P-2")}, seen)

				stop := errors.New("stop")
				assert.ErrorIs(t, s.Scan(ctx, "", func(Item) error { return stop }), stop)
			})
		})
	}
}

func TestMemoryStore_ConcurrentInsertIfAbsentHasOneWinner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it, _ := NewItem(ProjectPK("P-1"), SKMetadata, KindProject, map[string]int{"writer": i})
			if s.Put(ctx, Put{Item: it, Condition: IfNotExists()}) == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	it, _ := NewItem(ProjectPK("P-1"), SKMetadata, KindProject, map[string]string{"a": "b"})
	require.NoError(t, s.Put(ctx, Put{Item: it}))

	got, err := s.Get(ctx, it.PK, it.SK)
	require.NoError(t, err)
	got.Data[0] = 'X'

	again, err := s.Get(ctx, it.PK, it.SK)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(again.Data))
}

func TestMemoryStore_CanceledContextIsTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Get(ctx, "a", "b")
	assert.True(t, shared.IsTransient(err))
}
