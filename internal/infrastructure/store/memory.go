package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
)

// MemoryStore is an in-process EntityStore for tests and single-node
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]map[string]Item
	now   func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used for TTL checks
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]map[string]Item),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ EntityStore = (*MemoryStore)(nil)
	_ Purger      = (*MemoryStore)(nil)
)

func (s *MemoryStore) Get(ctx context.Context, pk, sk string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.NewTransientError("get item", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[pk][sk]
	if !ok || item.Expired(s.now()) {
		return nil, shared.ErrNotFound
	}
	out := cloneItem(item)
	return &out, nil
}

func (s *MemoryStore) Put(ctx context.Context, put Put) error {
	return s.TransactPut(ctx, put)
}

func (s *MemoryStore) TransactPut(ctx context.Context, puts ...Put) error {
	if err := ctx.Err(); err != nil {
		return shared.NewTransientError("put items", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, p := range puts {
		if err := s.check(p, now); err != nil {
			return err
		}
	}
	for _, p := range puts {
		item := cloneItem(p.Item)
		if existing, ok := s.items[item.PK][item.SK]; ok && !existing.Expired(now) && item.CreatedAt.IsZero() {
			item.CreatedAt = existing.CreatedAt
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.UpdatedAt.IsZero() {
			item.UpdatedAt = now
		}
		partition, ok := s.items[item.PK]
		if !ok {
			partition = make(map[string]Item)
			s.items[item.PK] = partition
		}
		partition[item.SK] = item
	}
	return nil
}

func (s *MemoryStore) check(p Put, now time.Time) error {
	existing, ok := s.items[p.Item.PK][p.Item.SK]
	live := ok && !existing.Expired(now)
	switch p.Condition.Kind {
	case CondNotExists:
		if live {
			return ErrConditionFailed
		}
	case CondVersion:
		if !live || existing.Version != p.Condition.Version {
			return ErrConditionFailed
		}
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.NewTransientError("query items", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []Item
	for sk, item := range s.items[pk] {
		if strings.HasPrefix(sk, skPrefix) && !item.Expired(now) {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SK < out[j].SK })
	return out, nil
}

func (s *MemoryStore) Scan(ctx context.Context, kind string, fn func(Item) error) error {
	s.mu.RLock()
	var matched []Item
	now := s.now()
	for _, partition := range s.items {
		for _, item := range partition {
			if (kind == "" || item.Kind == kind) && !item.Expired(now) {
				matched = append(matched, cloneItem(item))
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].PK != matched[j].PK {
			return matched[i].PK < matched[j].PK
		}
		return matched[i].SK < matched[j].SK
	})
	for _, item := range matched {
		if err := ctx.Err(); err != nil {
			return shared.NewTransientError("scan items", err)
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// PurgeExpired drops expired items
func (s *MemoryStore) PurgeExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, shared.NewTransientError("purge expired items", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for pk, partition := range s.items {
		for sk, item := range partition {
			if item.Expired(now) {
				delete(partition, sk)
				n++
			}
		}
		if len(partition) == 0 {
			delete(s.items, pk)
		}
	}
	return n, nil
}

func cloneItem(i Item) Item {
	out := i
	if i.Data != nil {
		out.Data = append([]byte(nil), i.Data...)
	}
	if i.ExpiresAt != nil {
		t := *i.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}
