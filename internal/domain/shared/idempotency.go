package shared

import (
	"context"
	"time"
)

// Idempotency scopes partition the key space so a key reused across
// endpoints never collides.
const (
	ScopeHandoff  = "handoff"
	ScopeBaseline = "baseline"
)

// IdempotencyRecord remembers the outcome of the first request that used a
// client-supplied key.
type IdempotencyRecord struct {
	Key         string    `json:"key"`
	Scope       string    `json:"scope"`
	ProjectID   string    `json:"project_id,omitempty"`
	BaselineID  string    `json:"baseline_id"`
	HandoffID   string    `json:"handoff_id,omitempty"`
	RequestHash string    `json:"request_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the record is past its retention window
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// IdempotencyStore persists IdempotencyRecords with insert-if-absent
// semantics. Implementations must be safe for concurrent use.
type IdempotencyStore interface {
	// Get returns the live record for (scope, key) or an error matching ErrNotFound.
	Get(ctx context.Context, scope, key string) (*IdempotencyRecord, error)

	// PutIfAbsent stores rec unless a live record already exists for its
	// (scope, key). It returns the record that is stored after the call and
	// whether rec was the one written.
	PutIfAbsent(ctx context.Context, rec IdempotencyRecord) (IdempotencyRecord, bool, error)

	// Close releases any resources held by the store
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a record stays authoritative
	TTL time.Duration
	// Enabled toggles idempotency checking
	Enabled bool
}

// DefaultIdempotencyConfig returns the default configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}
