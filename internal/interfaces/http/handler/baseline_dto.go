package handler

import (
	"time"

	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/shopspring/decimal"
)

// LaborEstimateRequest is one headcount line of the estimator payload
type LaborEstimateRequest struct {
	Role        string           `json:"role" binding:"required,max=200" example:"Ingeniero soporte"`
	Level       string           `json:"level" binding:"max=100" example:"senior"`
	Country     string           `json:"country" binding:"max=100" example:"CO"`
	Quantity    *decimal.Decimal `json:"quantity" binding:"required" swaggertype:"string" example:"1"`
	UnitCost    *decimal.Decimal `json:"unit_cost" binding:"required" swaggertype:"string" example:"1000"`
	Currency    string           `json:"currency" binding:"omitempty,currency" example:"USD"`
	Recurring   *bool            `json:"recurring" example:"true"`
	StartPeriod int              `json:"start_period" binding:"required,min=1,max=60" example:"1"`
	EndPeriod   int              `json:"end_period" binding:"periodrange=StartPeriod" example:"12"`
}

// NonLaborEstimateRequest is one services, licence or travel line
type NonLaborEstimateRequest struct {
	Category    string           `json:"category" binding:"required,max=200" example:"Licencias"`
	Description string           `json:"description" binding:"max=500" example:"Jira Service Management"`
	Vendor      string           `json:"vendor" binding:"max=200" example:"Atlassian"`
	Quantity    *decimal.Decimal `json:"quantity" binding:"required" swaggertype:"string" example:"1"`
	UnitCost    *decimal.Decimal `json:"unit_cost" binding:"required" swaggertype:"string" example:"1500"`
	Currency    string           `json:"currency" binding:"omitempty,currency" example:"USD"`
	Recurring   *bool            `json:"recurring" example:"false"`
	StartPeriod int              `json:"start_period" binding:"required,min=1,max=60" example:"1"`
	EndPeriod   int              `json:"end_period" binding:"periodrange=StartPeriod" example:"1"`
}

// CreateBaselineRequest is the PMO estimator payload
// @Description Signed cost estimate that becomes an immutable baseline
type CreateBaselineRequest struct {
	ProjectName       string                    `json:"project_name" binding:"required,max=200" example:"Mesa de servicio Bancolombia"`
	ClientName        string                    `json:"client_name" binding:"max=200" example:"Bancolombia"`
	Currency          string                    `json:"currency" binding:"omitempty,currency" example:"USD"`
	StartDate         string                    `json:"start_date" binding:"omitempty,datetime=2006-01-02" example:"2025-01-01"`
	DurationMonths    int                       `json:"duration_months" binding:"required,min=1,max=60" example:"12"`
	ContractValue     *decimal.Decimal          `json:"contract_value" swaggertype:"string" example:"150000"`
	LaborEstimates    []LaborEstimateRequest    `json:"labor_estimates" binding:"dive"`
	NonLaborEstimates []NonLaborEstimateRequest `json:"non_labor_estimates" binding:"dive"`
	Assumptions       []string                  `json:"assumptions" binding:"dive,max=1000"`
	SignedBy          string                    `json:"signed_by" binding:"max=254" example:"pmo@example.com"`
	SignedRole        string                    `json:"signed_role" binding:"max=100" example:"PMO"`
	SignedAt          *time.Time                `json:"signed_at" example:"2025-01-01T10:00:00Z"`
	IdempotencyKey    string                    `json:"idempotency_key" binding:"max=200"`
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// draft converts the payload. Without an explicit flag labor lines recur
// monthly and non-labor lines are one-time purchases.
func (r CreateBaselineRequest) draft() baseline.Draft {
	d := baseline.Draft{
		ProjectName:    r.ProjectName,
		ClientName:     r.ClientName,
		Currency:       r.Currency,
		DurationMonths: r.DurationMonths,
		ContractValue:  decimalString(r.ContractValue),
		Assumptions:    r.Assumptions,
		SignedBy:       r.SignedBy,
		SignedRole:     r.SignedRole,
	}
	if r.StartDate != "" {
		// binding validated the layout
		d.StartDate, _ = time.Parse(time.DateOnly, r.StartDate)
	}
	if r.SignedAt != nil {
		d.SignedAt = *r.SignedAt
	}
	for _, l := range r.LaborEstimates {
		d.Labor = append(d.Labor, baseline.LineSnapshot{
			Kind:        baseline.KindLabor,
			Role:        l.Role,
			Level:       l.Level,
			Country:     l.Country,
			Quantity:    decimalString(l.Quantity),
			UnitCost:    decimalString(l.UnitCost),
			Currency:    l.Currency,
			Recurring:   l.Recurring == nil || *l.Recurring,
			StartPeriod: l.StartPeriod,
			EndPeriod:   l.EndPeriod,
		})
	}
	for _, l := range r.NonLaborEstimates {
		d.NonLabor = append(d.NonLabor, baseline.LineSnapshot{
			Kind:        baseline.KindNonLabor,
			Category:    l.Category,
			Description: l.Description,
			Vendor:      l.Vendor,
			Quantity:    decimalString(l.Quantity),
			UnitCost:    decimalString(l.UnitCost),
			Currency:    l.Currency,
			Recurring:   l.Recurring != nil && *l.Recurring,
			StartPeriod: l.StartPeriod,
			EndPeriod:   l.EndPeriod,
		})
	}
	return d
}

// BaselineResponse represents a stored baseline
// @Description Immutable baseline with its signature hash
type BaselineResponse struct {
	ID             string                  `json:"baseline_id" example:"base_8f2c51d0a4e9b7c3d1f0"`
	ProjectName    string                  `json:"project_name"`
	ClientName     string                  `json:"client_name,omitempty"`
	Currency       string                  `json:"currency" example:"USD"`
	StartDate      string                  `json:"start_date,omitempty" example:"2025-01-01"`
	DurationMonths int                     `json:"duration_months"`
	ContractValue  string                  `json:"contract_value" example:"150000"`
	Lines          []baseline.LineSnapshot `json:"lines"`
	Assumptions    []string                `json:"assumptions,omitempty"`
	SignedBy       string                  `json:"signed_by,omitempty"`
	SignedRole     string                  `json:"signed_role,omitempty"`
	SignedAt       *time.Time              `json:"signed_at,omitempty"`
	CreatedBy      string                  `json:"created_by"`
	CreatedAt      time.Time               `json:"created_at"`
	SignatureHash  string                  `json:"signature_hash"`
	Replayed       bool                    `json:"replayed,omitempty"`
}

func toBaselineResponse(b *baseline.Baseline) BaselineResponse {
	resp := BaselineResponse{
		ID:             b.ID,
		ProjectName:    b.ProjectName,
		ClientName:     b.ClientName,
		Currency:       string(b.Currency),
		DurationMonths: b.DurationMonths,
		ContractValue:  b.ContractValue.String(),
		Lines:          b.Snapshots(),
		Assumptions:    b.Assumptions,
		SignedBy:       b.SignedBy,
		SignedRole:     b.SignedRole,
		CreatedBy:      b.CreatedBy,
		CreatedAt:      b.CreatedAt,
		SignatureHash:  b.SignatureHash,
	}
	if !b.StartDate.IsZero() {
		resp.StartDate = b.StartDate.Format(time.DateOnly)
	}
	if !b.SignedAt.IsZero() {
		signedAt := b.SignedAt
		resp.SignedAt = &signedAt
	}
	return resp
}
