package persistence

import (
	"context"
	"time"

	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/rubro"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/finanzas/backend/internal/infrastructure/store"
	"github.com/shopspring/decimal"
)

type rubroDoc struct {
	ProjectID      string            `json:"project_id"`
	BaselineID     string            `json:"baseline_id"`
	LineItemID     string            `json:"line_item_id"`
	LineKind       baseline.LineKind `json:"line_type"`
	TaxonomyCode   string            `json:"rubro_id"`
	Category       string            `json:"category"`
	Description    string            `json:"description,omitempty"`
	Quantity       decimal.Decimal   `json:"quantity"`
	UnitCost       decimal.Decimal   `json:"unit_cost"`
	Currency       string            `json:"currency"`
	Recurring      bool              `json:"recurring"`
	StartPeriod    int               `json:"start_period"`
	EndPeriod      int               `json:"end_period"`
	TotalCost      decimal.Decimal   `json:"total_cost"`
	MaterializedAt time.Time         `json:"materialized_at"`
}

// StoreRubroRepository implements rubro.Repository on the entity store
type StoreRubroRepository struct {
	store store.EntityStore
}

// NewStoreRubroRepository creates a rubro repository
func NewStoreRubroRepository(s store.EntityStore) *StoreRubroRepository {
	return &StoreRubroRepository{store: s}
}

var _ rubro.Repository = (*StoreRubroRepository)(nil)

// Upsert overwrites the row keyed by (project, baseline, line type, line item)
func (r *StoreRubroRepository) Upsert(ctx context.Context, rb rubro.Rubro) error {
	sk := store.RubroSK(rb.BaselineID, string(rb.LineKind), rb.LineItemID)
	item, err := store.NewItem(store.ProjectPK(rb.ProjectID), sk, store.KindRubro, rubroDoc{
		ProjectID:      rb.ProjectID,
		BaselineID:     rb.BaselineID,
		LineItemID:     rb.LineItemID,
		LineKind:       rb.LineKind,
		TaxonomyCode:   rb.TaxonomyCode,
		Category:       rb.Category,
		Description:    rb.Description,
		Quantity:       rb.Quantity,
		UnitCost:       rb.UnitCost,
		Currency:       string(rb.Currency),
		Recurring:      rb.Recurring,
		StartPeriod:    rb.StartPeriod,
		EndPeriod:      rb.EndPeriod,
		TotalCost:      rb.TotalCost,
		MaterializedAt: rb.MaterializedAt,
	})
	if err != nil {
		return err
	}
	item.ProjectID, item.BaselineID = rb.ProjectID, rb.BaselineID
	return r.store.Put(ctx, store.Put{Item: item})
}

func (r *StoreRubroRepository) ListByProject(ctx context.Context, projectID string) ([]rubro.Rubro, error) {
	items, err := r.store.Query(ctx, store.ProjectPK(projectID), store.RubroPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]rubro.Rubro, 0, len(items))
	for _, item := range items {
		var doc rubroDoc
		if err := item.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, rubro.Rubro{
			ProjectID:      doc.ProjectID,
			BaselineID:     doc.BaselineID,
			LineItemID:     doc.LineItemID,
			LineKind:       doc.LineKind,
			TaxonomyCode:   doc.TaxonomyCode,
			Category:       doc.Category,
			Description:    doc.Description,
			Quantity:       doc.Quantity,
			UnitCost:       doc.UnitCost,
			Currency:       valueobject.Currency(doc.Currency),
			Recurring:      doc.Recurring,
			StartPeriod:    doc.StartPeriod,
			EndPeriod:      doc.EndPeriod,
			TotalCost:      doc.TotalCost,
			MaterializedAt: doc.MaterializedAt,
		})
	}
	return out, nil
}
