// Package project holds the project aggregate that receives baseline
// handoffs, together with its ownership metadata and handoff history.
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// IDPrefix marks minted project identifiers
const IDPrefix = "P-"

// Ownership is the authorship metadata a system-initiated write must never
// change.
type Ownership struct {
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	OwnerName string    `json:"owner_name,omitempty"`
}

// IsZero reports whether no ownership has been recorded
func (o Ownership) IsZero() bool {
	return o.CreatedBy == "" && o.CreatedAt.IsZero() && o.OwnerName == ""
}

// Decision records the human accept/reject action
type Decision struct {
	Status     BaselineStatus `json:"status"`
	BaselineID string         `json:"baseline_id"`
	By         string         `json:"by"`
	At         time.Time      `json:"at"`
	Comment    string         `json:"comment,omitempty"`
}

// Project is the delivery-side record a baseline is handed off to
type Project struct {
	shared.Versioned
	ID             string
	BaselineID     string
	BaselineStatus BaselineStatus
	Ownership
	Name        string
	Code        string
	Client      string
	HandedOffBy string
	HandedOffAt *time.Time
	Decision    *Decision
	UpdatedAt   time.Time
}

// NewProject creates a pending project. owner must carry CreatedBy.
func NewProject(id, name, code, client string, owner Ownership) (*Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewValidationError("project id is required")
	}
	if owner.CreatedBy == "" {
		return nil, shared.NewValidationError("project creator is required")
	}
	if owner.CreatedAt.IsZero() {
		owner.CreatedAt = time.Now().UTC()
	}
	return &Project{
		Versioned:      shared.Versioned{Version: 1},
		ID:             id,
		BaselineStatus: StatusPending,
		Ownership:      owner,
		Name:           strings.TrimSpace(name),
		Code:           strings.TrimSpace(code),
		Client:         strings.TrimSpace(client),
		UpdatedAt:      owner.CreatedAt,
	}, nil
}

// NewID mints a random prefixed project identifier
func NewID() string {
	return IDPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

// DeriveID mints a project identifier that is stable for a given
// (idempotency key, baseline) pair so concurrent retries agree on it.
func DeriveID(idempotencyKey, baselineID string) string {
	if idempotencyKey == "" {
		return NewID()
	}
	sum := sha256.Sum256([]byte("project|" + idempotencyKey + "|" + baselineID))
	return IDPrefix + strings.ToUpper(hex.EncodeToString(sum[:])[:16])
}

// HasBaseline reports whether a baseline has been assigned
func (p *Project) HasBaseline() bool {
	return p.BaselineID != ""
}

// MarkHandedOff assigns baselineID and moves the project to handed_off.
// A project may only ever carry one baseline.
func (p *Project) MarkHandedOff(baselineID, actor string, at time.Time) error {
	if baselineID == "" {
		return shared.NewValidationError("baseline id is required")
	}
	if p.HasBaseline() && p.BaselineID != baselineID {
		return shared.NewConflictError("project already carries a different baseline", map[string]string{
			"project_id":  p.ID,
			"baseline_id": p.BaselineID,
		})
	}
	if !p.BaselineStatus.CanTransitionTo(StatusHandedOff) {
		return shared.NewInvalidStateError("cannot hand off project %s in status %s", p.ID, p.BaselineStatus)
	}
	p.BaselineID = baselineID
	p.BaselineStatus = StatusHandedOff
	p.HandedOffBy = actor
	handedOffAt := at.UTC()
	p.HandedOffAt = &handedOffAt
	p.UpdatedAt = handedOffAt
	return nil
}

// Accept records the human acceptance of the current baseline
func (p *Project) Accept(baselineID, actor, comment string, at time.Time) error {
	return p.decide(StatusAccepted, baselineID, actor, comment, at)
}

// Reject records the human rejection of the current baseline. The baseline
// itself is untouched; a replacement arrives on a new project lineage.
func (p *Project) Reject(baselineID, actor, comment string, at time.Time) error {
	return p.decide(StatusRejected, baselineID, actor, comment, at)
}

func (p *Project) decide(next BaselineStatus, baselineID, actor, comment string, at time.Time) error {
	if strings.TrimSpace(actor) == "" {
		return shared.NewValidationError("actor is required")
	}
	if baselineID == "" || baselineID != p.BaselineID {
		return shared.NewConflictError("baseline does not match the project's current baseline", map[string]string{
			"project_id":  p.ID,
			"baseline_id": p.BaselineID,
		})
	}
	if p.BaselineStatus != StatusHandedOff || !p.BaselineStatus.CanTransitionTo(next) {
		return shared.NewInvalidStateError("cannot move project %s from %s to %s", p.ID, p.BaselineStatus, next)
	}
	p.BaselineStatus = next
	p.Decision = &Decision{
		Status:     next,
		BaselineID: baselineID,
		By:         actor,
		At:         at.UTC(),
		Comment:    strings.TrimSpace(comment),
	}
	p.UpdatedAt = at.UTC()
	return nil
}

// FillDescriptors sets name, code and client where they are still empty
func (p *Project) FillDescriptors(name, code, client string) {
	if p.Name == "" {
		p.Name = strings.TrimSpace(name)
	}
	if p.Code == "" {
		p.Code = strings.TrimSpace(code)
	}
	if p.Client == "" {
		p.Client = strings.TrimSpace(client)
	}
}

// Clone returns a deep copy suitable for computing before/after snapshots
func (p *Project) Clone() *Project {
	c := *p
	if p.HandedOffAt != nil {
		t := *p.HandedOffAt
		c.HandedOffAt = &t
	}
	if p.Decision != nil {
		d := *p.Decision
		c.Decision = &d
	}
	return &c
}

// Snapshot renders the audit view of the project
func (p *Project) Snapshot() map[string]any {
	s := map[string]any{
		"project_id":      p.ID,
		"baseline_id":     p.BaselineID,
		"baseline_status": string(p.BaselineStatus),
		"created_by":      p.CreatedBy,
		"created_at":      p.CreatedAt,
		"owner_name":      p.OwnerName,
		"name":            p.Name,
		"code":            p.Code,
		"client":          p.Client,
		"version":         p.Version,
	}
	if p.Decision != nil {
		s["decision"] = *p.Decision
	}
	return s
}
