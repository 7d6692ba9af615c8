// Package audit defines the append-only mutation log.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EntityType names the kind of entity an entry describes
type EntityType string

const (
	EntityProject  EntityType = "project"
	EntityBaseline EntityType = "baseline"
)

// Action names the mutation being recorded
type Action string

const (
	ActionProjectCreated     Action = "project.created"
	ActionBaselineCreated    Action = "baseline.created"
	ActionHandoff            Action = "baseline.handoff"
	ActionBaselineAccepted   Action = "baseline.accepted"
	ActionBaselineRejected   Action = "baseline.rejected"
	ActionRubrosMaterialized Action = "rubros.materialized"
)

// Entry is created once and never updated or deleted.
type Entry struct {
	ID         string         `json:"audit_id"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     Action         `json:"action"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	Actor      string         `json:"actor"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Validate checks the fields every entry must carry
func (e Entry) Validate() error {
	switch {
	case e.EntityType == "":
		return shared.NewValidationError("audit entity type is required")
	case strings.TrimSpace(e.EntityID) == "":
		return shared.NewValidationError("audit entity id is required")
	case e.Action == "":
		return shared.NewValidationError("audit action is required")
	case strings.TrimSpace(e.Actor) == "":
		return shared.NewValidationError("audit actor is required")
	}
	return nil
}

// NewEntryID returns a random entry id, or one derived from dedupeKey when
// given so a retried operation cannot record the same mutation twice.
func NewEntryID(dedupeKey string) string {
	if dedupeKey == "" {
		return uuid.NewString()
	}
	sum := sha256.Sum256([]byte("audit|" + dedupeKey))
	return hex.EncodeToString(sum[:16])
}

// Repository stores entries. Append must not overwrite an existing entry.
type Repository interface {
	// Append inserts e; a duplicate ID returns ErrAlreadyExists
	Append(ctx context.Context, e Entry) error
	// ListByEntity returns the entity's entries ordered by timestamp
	ListByEntity(ctx context.Context, entityType EntityType, entityID string) ([]Entry, error)
}

// Exporter ships committed entries to long-term storage.
type Exporter interface {
	Export(ctx context.Context, e Entry) error
}
