package baseline

import (
	"strings"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MaxPeriods is the budget horizon in monthly periods
const MaxPeriods = 60

// LineKind discriminates the estimate line variants
type LineKind string

const (
	KindLabor    LineKind = "labor"
	KindNonLabor LineKind = "non_labor"
)

// IsValid returns true for the two known kinds
func (k LineKind) IsValid() bool {
	return k == KindLabor || k == KindNonLabor
}

// LineTerms holds the cost terms common to every estimate line
type LineTerms struct {
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Currency    valueobject.Currency
	Recurring   bool
	StartPeriod int
	EndPeriod   int
}

// ActivePeriods returns the number of periods the line spans
func (t LineTerms) ActivePeriods() int {
	return t.EndPeriod - t.StartPeriod + 1
}

func (t LineTerms) validate(field string) error {
	if !t.Quantity.IsPositive() {
		return shared.NewValidationError("%s.quantity must be greater than 0", field)
	}
	if t.UnitCost.IsNegative() {
		return shared.NewValidationError("%s.unit_cost must not be negative", field)
	}
	if t.Currency == "" {
		return shared.NewValidationError("%s.currency is required", field)
	}
	if t.StartPeriod < 1 || t.StartPeriod > MaxPeriods {
		return shared.NewValidationError("%s.start_period must be within 1..%d", field, MaxPeriods)
	}
	if t.EndPeriod < t.StartPeriod || t.EndPeriod > MaxPeriods {
		return shared.NewValidationError("%s.end_period must be within %d..%d", field, t.StartPeriod, MaxPeriods)
	}
	if !t.Recurring && t.EndPeriod != t.StartPeriod {
		return shared.NewValidationError("%s is one-time and must start and end in the same period", field)
	}
	return nil
}

// EstimateLine is a closed variant: only LaborLine and NonLaborLine
// implement it.
type EstimateLine interface {
	Kind() LineKind
	Terms() LineTerms
	// Label is the human-readable role or category used for taxonomy
	// lookup and line id derivation.
	Label() string
	Detail() string
	isEstimateLine()
}

// LaborLine estimates headcount cost (MOD)
type LaborLine struct {
	Role    string
	Level   string
	Country string
	LineTerms
}

func (l LaborLine) Kind() LineKind   { return KindLabor }
func (l LaborLine) Terms() LineTerms { return l.LineTerms }
func (l LaborLine) Label() string    { return l.Role }
func (l LaborLine) Detail() string   { return l.Level }
func (LaborLine) isEstimateLine()    {}

// NonLaborLine estimates services, licences, infrastructure and travel
type NonLaborLine struct {
	Category    string
	Description string
	Vendor      string
	LineTerms
}

func (l NonLaborLine) Kind() LineKind   { return KindNonLabor }
func (l NonLaborLine) Terms() LineTerms { return l.LineTerms }
func (l NonLaborLine) Label() string    { return l.Category }
func (l NonLaborLine) Detail() string   { return l.Description }
func (NonLaborLine) isEstimateLine()    {}

// LineSnapshot is the flat, tagged wire form of an EstimateLine. It is the
// canonical representation used for hashing and persistence.
type LineSnapshot struct {
	Kind        LineKind `json:"kind"`
	Role        string   `json:"role,omitempty"`
	Level       string   `json:"level,omitempty"`
	Country     string   `json:"country,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Vendor      string   `json:"vendor,omitempty"`
	Quantity    string   `json:"quantity"`
	UnitCost    string   `json:"unit_cost"`
	Currency    string   `json:"currency"`
	Recurring   bool     `json:"recurring"`
	StartPeriod int      `json:"start_period"`
	EndPeriod   int      `json:"end_period"`
}

// SnapshotOf flattens a line into its tagged form
func SnapshotOf(line EstimateLine) LineSnapshot {
	t := line.Terms()
	s := LineSnapshot{
		Kind:        line.Kind(),
		Quantity:    t.Quantity.String(),
		UnitCost:    t.UnitCost.String(),
		Currency:    string(t.Currency),
		Recurring:   t.Recurring,
		StartPeriod: t.StartPeriod,
		EndPeriod:   t.EndPeriod,
	}
	switch l := line.(type) {
	case LaborLine:
		s.Role, s.Level, s.Country = l.Role, l.Level, l.Country
	case NonLaborLine:
		s.Category, s.Description, s.Vendor = l.Category, l.Description, l.Vendor
	}
	return s
}

// ToLine parses and validates the tagged form. field names the line in
// error messages, e.g. "labor_estimates[2]". A one-time line without an
// end period ends where it starts.
func (s LineSnapshot) ToLine(field string, fallback valueobject.Currency) (EstimateLine, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(s.Quantity))
	if err != nil {
		return nil, shared.NewValidationError("%s.quantity is not a number", field)
	}
	unitCost, err := decimal.NewFromString(strings.TrimSpace(s.UnitCost))
	if err != nil {
		return nil, shared.NewValidationError("%s.unit_cost is not a number", field)
	}
	currency := fallback
	if s.Currency != "" {
		if currency, err = valueobject.ParseCurrency(s.Currency); err != nil {
			return nil, shared.NewValidationError("%s.currency: %s", field, err.Error())
		}
	}
	end := s.EndPeriod
	if end == 0 && !s.Recurring {
		end = s.StartPeriod
	}
	terms := LineTerms{
		Quantity:    qty,
		UnitCost:    unitCost,
		Currency:    currency,
		Recurring:   s.Recurring,
		StartPeriod: s.StartPeriod,
		EndPeriod:   end,
	}
	if err := terms.validate(field); err != nil {
		return nil, err
	}

	switch s.Kind {
	case KindLabor:
		if strings.TrimSpace(s.Role) == "" {
			return nil, shared.NewValidationError("%s.role is required", field)
		}
		return LaborLine{
			Role:      strings.TrimSpace(s.Role),
			Level:     strings.TrimSpace(s.Level),
			Country:   strings.TrimSpace(s.Country),
			LineTerms: terms,
		}, nil
	case KindNonLabor:
		if strings.TrimSpace(s.Category) == "" {
			return nil, shared.NewValidationError("%s.category is required", field)
		}
		return NonLaborLine{
			Category:    strings.TrimSpace(s.Category),
			Description: strings.TrimSpace(s.Description),
			Vendor:      strings.TrimSpace(s.Vendor),
			LineTerms:   terms,
		}, nil
	default:
		return nil, shared.NewValidationError("%s.kind %q is not a known estimate line kind", field, s.Kind)
	}
}
