package store

import (
	"context"
	"errors"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
)

// timeoutStore bounds every call on the wrapped store. A call cut off by
// its deadline surfaces as a transient error.
type timeoutStore struct {
	next    EntityStore
	timeout time.Duration
}

// WithTimeout wraps next so each Get/Put/TransactPut/Query runs under
// timeout. Scan is left unbounded. A non-positive timeout returns next.
func WithTimeout(next EntityStore, timeout time.Duration) EntityStore {
	if timeout <= 0 {
		return next
	}
	return &timeoutStore{next: next, timeout: timeout}
}

func (s *timeoutStore) Get(ctx context.Context, pk, sk string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	item, err := s.next.Get(ctx, pk, sk)
	return item, deadline(ctx, "get item", err)
}

func (s *timeoutStore) Put(ctx context.Context, put Put) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return deadline(ctx, "put item", s.next.Put(ctx, put))
}

func (s *timeoutStore) TransactPut(ctx context.Context, puts ...Put) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return deadline(ctx, "transact put", s.next.TransactPut(ctx, puts...))
}

func (s *timeoutStore) Query(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	items, err := s.next.Query(ctx, pk, skPrefix)
	return items, deadline(ctx, "query items", err)
}

func (s *timeoutStore) Scan(ctx context.Context, kind string, fn func(Item) error) error {
	return s.next.Scan(ctx, kind, fn)
}

func deadline(ctx context.Context, op string, err error) error {
	var de *shared.DomainError
	if err == nil || errors.As(err, &de) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return shared.NewTransientError(op, err)
	}
	return err
}
