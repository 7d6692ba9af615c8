package handoff

import (
	"strings"
	"time"

	"github.com/finanzas/backend/internal/domain/project"
)

// IncomingContext is what the current request knows about authorship
type IncomingContext struct {
	Actor     string
	At        time.Time
	OwnerName string
}

// Hydrator settles ownership metadata for a resolved project
type Hydrator struct{}

// NewHydrator creates a Hydrator
func NewHydrator() *Hydrator { return &Hydrator{} }

// Hydrate returns the ownership to persist for projectID. Stored metadata
// always wins; incoming values are used only when nothing was stored
// before, so a system actor can never become a project's author.
func (h *Hydrator) Hydrate(projectID string, existing *project.Ownership, in IncomingContext) project.Ownership {
	if existing != nil {
		return *existing
	}
	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	return project.Ownership{
		CreatedBy: strings.TrimSpace(in.Actor),
		CreatedAt: at.UTC(),
		OwnerName: strings.TrimSpace(in.OwnerName),
	}
}
