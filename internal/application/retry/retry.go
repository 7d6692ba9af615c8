// Package retry re-runs application operations that failed with a
// retryable domain error.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/finanzas/backend/internal/domain/shared"
)

// Policy bounds how often and how fast an operation is retried
type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultPolicy is three attempts starting at 50ms
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Initial: 50 * time.Millisecond, Max: time.Second}
}

// NotifyFunc observes a failed attempt before the next one starts
type NotifyFunc func(err error, wait time.Duration)

// Do runs fn until it succeeds, fails with an error shared.IsRetryable
// rejects, the attempts run out or ctx is done. The last error is returned
// unwrapped.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), notify NotifyFunc) (T, error) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.Attempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(notify)))
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn(ctx)
		if err != nil && !shared.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}
