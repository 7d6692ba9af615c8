// Package baseline models the immutable cost estimate signed by the PMO.
package baseline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IDPrefix marks baseline identifiers
const IDPrefix = "base_"

// Baseline is immutable once created. New estimates produce a new ID.
type Baseline struct {
	ID             string
	ProjectName    string
	ClientName     string
	Currency       valueobject.Currency
	StartDate      time.Time
	DurationMonths int
	ContractValue  decimal.Decimal
	Lines          []EstimateLine
	Assumptions    []string
	SignedBy       string
	SignedRole     string
	SignedAt       time.Time
	CreatedBy      string
	CreatedAt      time.Time
	SignatureHash  string
}

// Draft is the unvalidated estimator payload
type Draft struct {
	ProjectName    string
	ClientName     string
	Currency       string
	StartDate      time.Time
	DurationMonths int
	ContractValue  string
	Labor          []LineSnapshot
	NonLabor       []LineSnapshot
	Assumptions    []string
	SignedBy       string
	SignedRole     string
	SignedAt       time.Time
}

// NewBaseline validates the draft and builds a baseline with a fresh ID and
// its signature hash. Labor lines precede non-labor lines, each group in
// payload order.
func NewBaseline(d Draft, actor string, now time.Time) (*Baseline, error) {
	if strings.TrimSpace(d.ProjectName) == "" {
		return nil, shared.NewValidationError("project_name is required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, shared.NewValidationError("actor is required")
	}
	if d.DurationMonths < 1 || d.DurationMonths > MaxPeriods {
		return nil, shared.NewValidationError("duration_months must be within 1..%d", MaxPeriods)
	}
	currency, err := valueobject.ParseCurrency(d.Currency)
	if err != nil {
		return nil, shared.NewValidationError("currency: %s", err.Error())
	}
	contractValue := decimal.Zero
	if strings.TrimSpace(d.ContractValue) != "" {
		if contractValue, err = decimal.NewFromString(strings.TrimSpace(d.ContractValue)); err != nil {
			return nil, shared.NewValidationError("contract_value is not a number")
		}
		if contractValue.IsNegative() {
			return nil, shared.NewValidationError("contract_value must not be negative")
		}
	}

	lines := make([]EstimateLine, 0, len(d.Labor)+len(d.NonLabor))
	for i, s := range d.Labor {
		s.Kind = KindLabor
		line, err := s.ToLine(fmt.Sprintf("labor_estimates[%d]", i), currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	for i, s := range d.NonLabor {
		s.Kind = KindNonLabor
		line, err := s.ToLine(fmt.Sprintf("non_labor_estimates[%d]", i), currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	for i, line := range lines {
		if line.Terms().EndPeriod > d.DurationMonths {
			return nil, shared.NewValidationError("line %d ends in period %d, after the %d-month duration",
				i, line.Terms().EndPeriod, d.DurationMonths)
		}
	}

	b := &Baseline{
		ID:             NewID(),
		ProjectName:    strings.TrimSpace(d.ProjectName),
		ClientName:     strings.TrimSpace(d.ClientName),
		Currency:       currency,
		StartDate:      d.StartDate.UTC(),
		DurationMonths: d.DurationMonths,
		ContractValue:  contractValue,
		Lines:          lines,
		Assumptions:    d.Assumptions,
		SignedBy:       strings.TrimSpace(d.SignedBy),
		SignedRole:     strings.TrimSpace(d.SignedRole),
		SignedAt:       d.SignedAt.UTC(),
		CreatedBy:      actor,
		CreatedAt:      now.UTC(),
	}
	b.SignatureHash = b.ComputeSignature()
	return b, nil
}

// NewID mints a prefixed opaque baseline identifier
func NewID() string {
	return IDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

// DeriveID returns an id that is stable for an idempotency key, so
// concurrent submissions under the same key race for one record.
func DeriveID(idempotencyKey string) string {
	if idempotencyKey == "" {
		return NewID()
	}
	sum := sha256.Sum256([]byte("baseline|" + idempotencyKey))
	return IDPrefix + hex.EncodeToString(sum[:])[:20]
}

// Snapshots returns the lines in their tagged form, in order
func (b *Baseline) Snapshots() []LineSnapshot {
	out := make([]LineSnapshot, len(b.Lines))
	for i, l := range b.Lines {
		out[i] = SnapshotOf(l)
	}
	return out
}

type canonicalPayload struct {
	ProjectName    string         `json:"project_name"`
	ClientName     string         `json:"client_name"`
	Currency       string         `json:"currency"`
	StartDate      string         `json:"start_date"`
	DurationMonths int            `json:"duration_months"`
	ContractValue  string         `json:"contract_value"`
	Lines          []LineSnapshot `json:"lines"`
	Assumptions    []string       `json:"assumptions"`
	SignedBy       string         `json:"signed_by"`
	SignedRole     string         `json:"signed_role"`
	SignedAt       string         `json:"signed_at"`
}

// ComputeSignature returns the SHA-256 of the canonical payload. Identity
// fields (ID, CreatedAt, CreatedBy) are excluded so that two submissions of
// the same estimate hash equal.
func (b *Baseline) ComputeSignature() string {
	payload := canonicalPayload{
		ProjectName:    b.ProjectName,
		ClientName:     b.ClientName,
		Currency:       string(b.Currency),
		StartDate:      b.StartDate.Format("2006-01-02"),
		DurationMonths: b.DurationMonths,
		ContractValue:  b.ContractValue.String(),
		Lines:          b.Snapshots(),
		Assumptions:    b.Assumptions,
		SignedBy:       b.SignedBy,
		SignedRole:     b.SignedRole,
		SignedAt:       b.SignedAt.Format(time.RFC3339),
	}
	// encoding/json emits struct fields in declaration order
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Repository persists baselines. Baselines are write-once.
type Repository interface {
	// Create stores b, failing with ErrAlreadyExists if the ID is taken
	Create(ctx context.Context, b *Baseline) error
	// FindByID returns the baseline or an error matching ErrNotFound
	FindByID(ctx context.Context, id string) (*Baseline, error)
}
