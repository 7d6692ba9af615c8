package project

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

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *Project {
	t.Helper()
	p, err := NewProject("P-1", "Mesa de ayuda", "MDA-01", "Banco Andino",
		Ownership{CreatedBy: "pmo@example.com", CreatedAt: t0, OwnerName: "Ana"})
	require.NoError(t, err)
	return p
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusHandedOff))
	assert.False(t, StatusPending.CanTransitionTo(StatusAccepted))
	assert.True(t, StatusHandedOff.CanTransitionTo(StatusRejected))
	assert.False(t, StatusAccepted.CanTransitionTo(StatusHandedOff))
	assert.False(t, StatusRejected.CanTransitionTo(StatusAccepted))
	assert.True(t, StatusAccepted.IsTerminal())
	assert.False(t, BaselineStatus("archived").IsValid())
}

func TestNewProject(t *testing.T) {
	p := newPending(t)
	assert.Equal(t, StatusPending, p.BaselineStatus)
	assert.Equal(t, 1, p.Version)
	assert.False(t, p.HasBaseline())

	_, err := NewProject("P-2", "", "", "", Ownership{})
	assert.True(t, shared.IsValidation(err))
}

func TestMarkHandedOff(t *testing.T) {
	p := newPending(t)
	require.NoError(t, p.MarkHandedOff("base_1", "system", t0.Add(time.Hour)))
	assert.Equal(t, StatusHandedOff, p.BaselineStatus)
	assert.Equal(t, "base_1", p.BaselineID)
	assert.Equal(t, "pmo@example.com", p.CreatedBy)

	// same baseline again converges
	require.NoError(t, p.MarkHandedOff("base_1", "system", t0.Add(2*time.Hour)))

	err := p.MarkHandedOff("base_2", "system", t0)
	assert.True(t, shared.IsConflict(err))
}

func TestAcceptReject(t *testing.T) {
	p := newPending(t)
	err := p.Accept("base_1", "sdm@example.com", "", t0)
	assert.True(t, shared.IsConflict(err), "no baseline yet")

	require.NoError(t, p.MarkHandedOff("base_1", "system", t0))
	assert.True(t, shared.IsConflict(p.Reject("base_9", "sdm@example.com", "", t0)))

	require.NoError(t, p.Accept("base_1", "sdm@example.com", " ok ", t0.Add(time.Hour)))
	assert.Equal(t, StatusAccepted, p.BaselineStatus)
	require.NotNil(t, p.Decision)
	assert.Equal(t, "sdm@example.com", p.Decision.By)
	assert.Equal(t, "ok", p.Decision.Comment)

	assert.True(t, shared.IsInvalidState(p.Reject("base_1", "sdm@example.com", "", t0)))
	assert.True(t, shared.IsInvalidState(p.MarkHandedOff("base_1", "system", t0)))
}

func TestClone_IsDeep(t *testing.T) {
	p := newPending(t)
	require.NoError(t, p.MarkHandedOff("base_1", "system", t0))
	c := p.Clone()
	*c.HandedOffAt = t0.Add(time.Hour)
	assert.Equal(t, t0, *p.HandedOffAt)
}

func TestDeriveIDs(t *testing.T) {
	assert.Equal(t, DeriveID("K1", "B1"), DeriveID("K1", "B1"))
	assert.NotEqual(t, DeriveID("K1", "B1"), DeriveID("K1", "B2"))
	assert.True(t, strings.HasPrefix(DeriveID("", "B1"), IDPrefix))
	assert.NotEqual(t, DeriveID("", "B1"), DeriveID("", "B1"))

	assert.Equal(t, DeriveHandoffID("K1", "B1"), DeriveHandoffID("K1", "B1"))
	assert.NotEqual(t, DeriveHandoffID("", "B1"), DeriveHandoffID("", "B1"))
}

func TestHandoffTerms_Validate(t *testing.T) {
	pct := func(s string) *decimal.Decimal { d := decimal.RequireFromString(s); return &d }

	ok := HandoffTerms{ModTotal: decimal.NewFromInt(12000), PctIngenieros: pct("80"), PctSDM: pct("20"), Currency: valueobject.USD}
	assert.NoError(t, ok.Validate())

	over := ok
	over.PctSDM = pct("20.5")
	assert.True(t, shared.IsValidation(over.Validate()))

	negative := ok
	negative.ModTotal = decimal.NewFromInt(-1)
	assert.True(t, shared.IsValidation(negative.Validate()))

	outOfRange := HandoffTerms{PctIngenieros: pct("101"), Currency: valueobject.USD}
	assert.True(t, shared.IsValidation(outOfRange.Validate()))
}
