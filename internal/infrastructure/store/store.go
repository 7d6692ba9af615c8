// Package store is a single-table key-value store with conditional writes.
// Every entity lives under a partition key (PK) and a sort key (SK); see
// keys.go for the layout.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
)

// Item kinds
const (
	KindProject       = "project"
	KindBaseline      = "baseline"
	KindBaselineIndex = "baseline_index"
	KindProjectLink   = "project_link"
	KindHandoff       = "handoff"
	KindRubro         = "rubro"
	KindIdempotency   = "idempotency"
	KindAudit         = "audit"
)

// Item is one stored record.
type Item struct {
	PK         string
	SK         string
	Kind       string
	ProjectID  string
	BaselineID string
	Version    int
	Data       json.RawMessage
	ExpiresAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the item carries a TTL that has passed
func (i Item) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Decode unmarshals Data into v
func (i Item) Decode(v any) error {
	return json.Unmarshal(i.Data, v)
}

// NewItem builds an item whose Data is the JSON encoding of v
func NewItem(pk, sk, kind string, v any) (Item, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Item{}, err
	}
	return Item{PK: pk, SK: sk, Kind: kind, Version: 1, Data: data}, nil
}

// ConditionKind selects the guard applied to a Put
type ConditionKind int

const (
	// CondNone overwrites unconditionally (upsert)
	CondNone ConditionKind = iota
	// CondNotExists succeeds only if no live item has the same key
	CondNotExists
	// CondVersion succeeds only if the stored item has the expected version
	CondVersion
)

// Condition guards a Put
type Condition struct {
	Kind    ConditionKind
	Version int
}

// IfNotExists guards an insert-if-absent
func IfNotExists() Condition { return Condition{Kind: CondNotExists} }

// IfVersion guards an update-if-version-matches
func IfVersion(v int) Condition { return Condition{Kind: CondVersion, Version: v} }

// Put is one conditional write
type Put struct {
	Item      Item
	Condition Condition
}

// ErrConditionFailed is returned when a guarded write loses. It is a
// concurrency conflict: re-reading and retrying may succeed.
var ErrConditionFailed = shared.NewDomainError(shared.CodeConcurrencyConflict, "conditional write failed")

// EntityStore is the persistence port shared by all repositories.
// Implementations must be safe for concurrent use.
type EntityStore interface {
	// Get returns the live item at (pk, sk) or an error matching
	// shared.ErrNotFound.
	Get(ctx context.Context, pk, sk string) (*Item, error)

	// Put applies a single conditional write.
	Put(ctx context.Context, put Put) error

	// TransactPut applies all writes or none. Any failed condition aborts
	// the batch with ErrConditionFailed.
	TransactPut(ctx context.Context, puts ...Put) error

	// Query returns live items in partition pk whose SK starts with
	// skPrefix, ordered by SK.
	Query(ctx context.Context, pk, skPrefix string) ([]Item, error)

	// Scan calls fn for every live item of the given kind ("" for all).
	Scan(ctx context.Context, kind string, fn func(Item) error) error
}

// Purger removes items whose TTL has passed. Readers already skip expired
// items; purging only reclaims space on backends without native expiry.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Purgers purges each member in turn. The count is the total removed; a
// failing member does not stop the others.
type Purgers []Purger

func (ps Purgers) PurgeExpired(ctx context.Context) (int64, error) {
	var (
		total int64
		errs  []error
	)
	for _, p := range ps {
		n, err := p.PurgeExpired(ctx)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
