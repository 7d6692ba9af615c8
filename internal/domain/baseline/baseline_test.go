package baseline

import (
	"strings"
	"testing"
	"time"

	"github.com/finanzas/backend/internal/domain/shared"
	"github.com/finanzas/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDraft() Draft {
	return Draft{
		ProjectName:    "Mesa de ayuda Banco Andino",
		ClientName:     "Banco Andino",
		Currency:       "usd",
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DurationMonths: 12,
		ContractValue:  "250000",
		Labor: []LineSnapshot{
			{Role: "Ingeniero Senior", Level: "senior", Quantity: "2", UnitCost: "500", Recurring: true, StartPeriod: 1, EndPeriod: 12},
		},
		NonLabor: []LineSnapshot{
			{Category: "Licencias", Description: "Licencia monitoreo", Quantity: "1", UnitCost: "3000", StartPeriod: 3},
		},
		SignedBy: "pmo@example.com",
	}
}

func TestNewBaseline_OrdersLinesAndDefaults(t *testing.T) {
	b, err := NewBaseline(sampleDraft(), "pmo@example.com", time.Now())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(b.ID, IDPrefix))
	assert.Equal(t, valueobject.USD, b.Currency)
	require.Len(t, b.Lines, 2)
	assert.Equal(t, KindLabor, b.Lines[0].Kind())
	assert.Equal(t, KindNonLabor, b.Lines[1].Kind())

	oneTime := b.Lines[1].Terms()
	assert.Equal(t, 3, oneTime.StartPeriod)
	assert.Equal(t, 3, oneTime.EndPeriod)
	assert.Equal(t, valueobject.USD, oneTime.Currency)
	assert.Len(t, b.SignatureHash, 64)
}

func TestNewBaseline_SignatureIgnoresIdentity(t *testing.T) {
	a, err := NewBaseline(sampleDraft(), "pmo@example.com", time.Now())
	require.NoError(t, err)
	b, err := NewBaseline(sampleDraft(), "other@example.com", time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.SignatureHash, b.SignatureHash)

	changed := sampleDraft()
	changed.Labor[0].UnitCost = "501"
	c, err := NewBaseline(changed, "pmo@example.com", time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a.SignatureHash, c.SignatureHash)
}

func TestNewBaseline_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft)
	}{
		{"missing project name", func(d *Draft) { d.ProjectName = " " }},
		{"duration beyond horizon", func(d *Draft) { d.DurationMonths = 61 }},
		{"unknown currency", func(d *Draft) { d.Currency = "ARS" }},
		{"zero quantity", func(d *Draft) { d.Labor[0].Quantity = "0" }},
		{"negative unit cost", func(d *Draft) { d.Labor[0].UnitCost = "-1" }},
		{"end before start", func(d *Draft) { d.Labor[0].StartPeriod = 5; d.Labor[0].EndPeriod = 4 }},
		{"period zero", func(d *Draft) { d.Labor[0].StartPeriod = 0 }},
		{"one-time spanning periods", func(d *Draft) { d.NonLabor[0].EndPeriod = 6 }},
		{"line after duration", func(d *Draft) { d.DurationMonths = 6 }},
		{"missing role", func(d *Draft) { d.Labor[0].Role = "" }},
		{"missing category", func(d *Draft) { d.NonLabor[0].Category = "" }},
		{"bad number", func(d *Draft) { d.NonLabor[0].UnitCost = "abc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDraft()
			tt.mutate(&d)
			_, err := NewBaseline(d, "pmo@example.com", time.Now())
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), err.Error())
		})
	}
}

func TestLineSnapshot_RoundTripThroughVariant(t *testing.T) {
	line := NonLaborLine{
		Category:    "Viajes",
		Description: "Visita cliente",
		LineTerms: LineTerms{
			Quantity:    decimal.NewFromInt(2),
			UnitCost:    decimal.RequireFromString("750.50"),
			Currency:    valueobject.COP,
			StartPeriod: 4,
			EndPeriod:   4,
		},
	}
	back, err := SnapshotOf(line).ToLine("x", valueobject.USD)
	require.NoError(t, err)
	assert.Equal(t, KindNonLabor, back.Kind())
	assert.Equal(t, "Viajes", back.Label())
	assert.Equal(t, valueobject.COP, back.Terms().Currency)
	assert.True(t, back.Terms().UnitCost.Equal(line.UnitCost))
}

func TestLineSnapshot_UnknownKind(t *testing.T) {
	_, err := LineSnapshot{Kind: "capex", Quantity: "1", UnitCost: "1", StartPeriod: 1}.ToLine("x", valueobject.USD)
	assert.True(t, shared.IsValidation(err))
}

func TestActivePeriods(t *testing.T) {
	assert.Equal(t, 12, LineTerms{StartPeriod: 1, EndPeriod: 12}.ActivePeriods())
	assert.Equal(t, 1, LineTerms{StartPeriod: 7, EndPeriod: 7}.ActivePeriods())
}

func TestDeriveID(t *testing.T) {
	a := DeriveID("key-1")
	assert.Equal(t, a, DeriveID("key-1"))
	assert.NotEqual(t, a, DeriveID("key-2"))
	assert.True(t, strings.HasPrefix(a, IDPrefix))
	assert.NotEqual(t, DeriveID(""), DeriveID(""))
}
