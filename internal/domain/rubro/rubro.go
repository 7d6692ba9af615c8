// Package rubro models budget rows materialized from a baseline.
package rubro

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/finanzas/backend/internal/domain/baseline"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Unmapped is the taxonomy code of a line no catalog entry matched
const Unmapped = "UNMAPPED"

// Rubro is one budget row. (ProjectID, BaselineID, LineItemID) is unique.
type Rubro struct {
	ProjectID      string
	BaselineID     string
	LineItemID     string
	LineKind       baseline.LineKind
	TaxonomyCode   string
	Category       string
	Description    string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	Currency       valueobject.Currency
	Recurring      bool
	StartPeriod    int
	EndPeriod      int
	TotalCost      decimal.Decimal
	MaterializedAt time.Time
}

// IsMapped reports whether the taxonomy lookup succeeded
func (r Rubro) IsMapped() bool {
	return r.TaxonomyCode != Unmapped
}

// TotalMoney returns TotalCost in the rubro currency
func (r Rubro) TotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.TotalCost, r.Currency)
	return m
}

// Taxonomy maps an estimate line's label and detail to a rubro code.
type Taxonomy interface {
	Lookup(kind baseline.LineKind, label, detail string) (code string, ok bool)
}

// maxSlugRunes bounds the readable part of a line item id
const maxSlugRunes = 40

// LineItemID derives the stable id of the index-th line of a baseline.
// Baselines are immutable, so the same line always yields the same id.
func LineItemID(kind baseline.LineKind, label string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", kind, NormalizeLabel(label), index)))
	slug := Slug(label)
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = strings.TrimRight(string(runes[:maxSlugRunes]), "-")
	}
	if slug == "" {
		slug = string(kind)
	}
	return slug + "-" + hex.EncodeToString(sum[:])[:8]
}

// ComputeTotal returns quantity × unitCost, multiplied by the number of
// active periods when recurring.
func ComputeTotal(t baseline.LineTerms) decimal.Decimal {
	total := t.Quantity.Mul(t.UnitCost)
	if t.Recurring {
		total = total.Mul(decimal.NewFromInt(int64(t.ActivePeriods())))
	}
	return total
}

// FromLine expands the index-th baseline line into a rubro. The second
// return value is false when the taxonomy had no match.
func FromLine(projectID, baselineID string, index int, line baseline.EstimateLine, tax Taxonomy, now time.Time) (Rubro, bool) {
	terms := line.Terms()
	code, ok := tax.Lookup(line.Kind(), line.Label(), line.Detail())
	if !ok || code == "" {
		code, ok = Unmapped, false
	}
	return Rubro{
		ProjectID:      projectID,
		BaselineID:     baselineID,
		LineItemID:     LineItemID(line.Kind(), line.Label(), index),
		LineKind:       line.Kind(),
		TaxonomyCode:   code,
		Category:       line.Label(),
		Description:    line.Detail(),
		Quantity:       terms.Quantity,
		UnitCost:       terms.UnitCost,
		Currency:       terms.Currency,
		Recurring:      terms.Recurring,
		StartPeriod:    terms.StartPeriod,
		EndPeriod:      terms.EndPeriod,
		TotalCost:      ComputeTotal(terms),
		MaterializedAt: now.UTC(),
	}, ok
}

// Repository persists rubros with keyed upserts.
type Repository interface {
	// Upsert writes r under its (project, baseline, line item) key,
	// replacing any previous materialization of the same line.
	Upsert(ctx context.Context, r Rubro) error
	// ListByProject returns all rubros of a project ordered by key
	ListByProject(ctx context.Context, projectID string) ([]Rubro, error)
}
