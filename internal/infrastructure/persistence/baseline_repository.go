package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

type baselineDoc struct {
	BaselineID     string                  `json:"baseline_id"`
	ProjectName    string                  `json:"project_name"`
	ClientName     string                  `json:"client_name,omitempty"`
	Currency       string                  `json:"currency"`
	StartDate      time.Time               `json:"start_date"`
	DurationMonths int                     `json:"duration_months"`
	ContractValue  decimal.Decimal         `json:"contract_value"`
	Lines          []baseline.LineSnapshot `json:"lines"`
	Assumptions    []string                `json:"assumptions,omitempty"`
	SignedBy       string                  `json:"signed_by"`
	SignedRole     string                  `json:"signed_role,omitempty"`
	SignedAt       time.Time               `json:"signed_at"`
	CreatedBy      string                  `json:"created_by"`
	CreatedAt      time.Time               `json:"created_at"`
	SignatureHash  string                  `json:"signature_hash"`
}

// StoreBaselineRepository implements baseline.Repository on the entity store
type StoreBaselineRepository struct {
	store store.EntityStore
}

// NewStoreBaselineRepository creates a baseline repository
func NewStoreBaselineRepository(s store.EntityStore) *StoreBaselineRepository {
	return &StoreBaselineRepository{store: s}
}

var _ baseline.Repository = (*StoreBaselineRepository)(nil)

func (r *StoreBaselineRepository) Create(ctx context.Context, b *baseline.Baseline) error {
	item, err := store.NewItem(store.BaselinePK(b.ID), store.SKMetadata, store.KindBaseline, baselineDoc{
		BaselineID:     b.ID,
		ProjectName:    b.ProjectName,
		ClientName:     b.ClientName,
		Currency:       string(b.Currency),
		StartDate:      b.StartDate,
		DurationMonths: b.DurationMonths,
		ContractValue:  b.ContractValue,
		Lines:          b.Snapshots(),
		Assumptions:    b.Assumptions,
		SignedBy:       b.SignedBy,
		SignedRole:     b.SignedRole,
		SignedAt:       b.SignedAt,
		CreatedBy:      b.CreatedBy,
		CreatedAt:      b.CreatedAt,
		SignatureHash:  b.SignatureHash,
	})
	if err != nil {
		return err
	}
	item.BaselineID = b.ID
	item.CreatedAt = b.CreatedAt

	err = r.store.Put(ctx, store.Put{Item: item, Condition: store.IfNotExists()})
	if errors.Is(err, store.ErrConditionFailed) {
		return shared.ErrAlreadyExists
	}
	return err
}

func (r *StoreBaselineRepository) FindByID(ctx context.Context, id string) (*baseline.Baseline, error) {
	item, err := r.store.Get(ctx, store.BaselinePK(id), store.SKMetadata)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewNotFoundError("baseline", id)
		}
		return nil, err
	}
	var doc baselineDoc
	if err := item.Decode(&doc); err != nil {
		return nil, err
	}

	currency, err := valueobject.ParseCurrency(doc.Currency)
	if err != nil {
		return nil, err
	}
	lines := make([]baseline.EstimateLine, 0, len(doc.Lines))
	for i, snap := range doc.Lines {
		line, err := snap.ToLine(lineField(i), currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return &baseline.Baseline{
		ID:             doc.BaselineID,
		ProjectName:    doc.ProjectName,
		ClientName:     doc.ClientName,
		Currency:       currency,
		StartDate:      doc.StartDate,
		DurationMonths: doc.DurationMonths,
		ContractValue:  doc.ContractValue,
		Lines:          lines,
		Assumptions:    doc.Assumptions,
		SignedBy:       doc.SignedBy,
		SignedRole:     doc.SignedRole,
		SignedAt:       doc.SignedAt,
		CreatedBy:      doc.CreatedBy,
		CreatedAt:      doc.CreatedAt,
		SignatureHash:  doc.SignatureHash,
	}, nil
}
