package project

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// HandoffTerms are the normalized deal terms carried by a handoff
type HandoffTerms struct {
	ModTotal      decimal.Decimal      `json:"mod_total"`
	PctIngenieros *decimal.Decimal     `json:"pct_ingenieros,omitempty"`
	PctSDM        *decimal.Decimal     `json:"pct_sdm,omitempty"`
	ProjectName   string               `json:"project_name,omitempty"`
	ClientName    string               `json:"client_name,omitempty"`
	Code          string               `json:"code,omitempty"`
	OwnerName     string               `json:"owner_name,omitempty"`
	Currency      valueobject.Currency `json:"currency"`
}

// Validate checks amounts and percentage bounds
func (t HandoffTerms) Validate() error {
	if t.ModTotal.IsNegative() {
		return shared.NewValidationError("mod_total must not be negative")
	}
	sum := decimal.Zero
	for name, pct := range map[string]*decimal.Decimal{"pct_ingenieros": t.PctIngenieros, "pct_sdm": t.PctSDM} {
		if pct == nil {
			continue
		}
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return shared.NewValidationError("%s must be within 0..100", name)
		}
		sum = sum.Add(*pct)
	}
	if sum.GreaterThan(hundred) {
		return shared.NewValidationError("pct_ingenieros + pct_sdm must not exceed 100")
	}
	if t.Currency == "" {
		return shared.NewValidationError("currency is required")
	}
	return nil
}

// Handoff is an append-only record of one baseline handoff to a project
type Handoff struct {
	ID         string       `json:"handoff_id"`
	ProjectID  string       `json:"project_id"`
	BaselineID string       `json:"baseline_id"`
	Terms      HandoffTerms `json:"terms"`
	Actor      string       `json:"actor"`
	CreatedAt  time.Time    `json:"created_at"`
}

// HandoffResult is the tuple returned to clients and remembered under an
// idempotency key.
type HandoffResult struct {
	HandoffID  string `json:"handoff_id"`
	ProjectID  string `json:"project_id"`
	BaselineID string `json:"baseline_id"`
}

// Result returns the client-facing tuple for h
func (h Handoff) Result() HandoffResult {
	return HandoffResult{HandoffID: h.ID, ProjectID: h.ProjectID, BaselineID: h.BaselineID}
}

// HandoffIDPrefix marks handoff identifiers
const HandoffIDPrefix = "ho_"

// DeriveHandoffID returns a handoff id that is stable per (key, baseline)
// so a retry after a partial failure rewrites the same record. Without a
// key every call gets a fresh id.
func DeriveHandoffID(idempotencyKey, baselineID string) string {
	if idempotencyKey == "" {
		return HandoffIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	sum := sha256.Sum256([]byte("handoff|" + idempotencyKey + "|" + baselineID))
	return HandoffIDPrefix + hex.EncodeToString(sum[:])[:32]
}
