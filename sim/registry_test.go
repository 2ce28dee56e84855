package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddHandlerErrors(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)

	_, err := reg.AddHandler(nil, RankInactive, RankInactive, 100)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)

	// Discrete-only fake given a continuous rank: the phase is not implemented.
	_, err = reg.AddHandler(&fakeDiscrete{name: "d", mfp: 1}, RankInactive, 100, RankInactive)
	require.ErrorAs(t, err, &cfgErr)

	// Negative rank other than the inactive sentinel.
	_, err = reg.AddHandler(&fakeDiscrete{name: "d", mfp: 1}, RankInactive, RankInactive, -7)
	require.ErrorAs(t, err, &cfgErr)
}

func TestRegistry_NotApplicableSpecies(t *testing.T) {
	neutral := &Species{Name: "neutral", Charge: 0, Mass: 1, Lifetime: Forever}
	reg := NewRegistry(neutral, nil)

	charged := &chargedOnlyDiscrete{fakeDiscrete{name: "needs-charge", mfp: 1}}
	_, err := reg.AddHandler(charged, RankInactive, RankInactive, 100)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

type chargedOnlyDiscrete struct{ fakeDiscrete }

func (c *chargedOnlyDiscrete) IsApplicable(sp *Species) bool { return sp.Charge != 0 }

func TestRegistry_RankOrderWithInsertionTieBreak(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)

	a := &fakeDiscrete{name: "a", mfp: 1}
	b := &fakeDiscrete{name: "b", mfp: 1}
	c := &fakeDiscrete{name: "c", mfp: 1}
	d := &fakeDiscrete{name: "d", mfp: 1}

	mustAdd(t, reg, a, RankInactive, RankInactive, 200)
	mustAdd(t, reg, b, RankInactive, RankInactive, 100)
	mustAdd(t, reg, c, RankInactive, RankInactive, 200) // ties with a, added later
	mustAdd(t, reg, d, RankInactive, RankInactive, RankDefault)

	assert.Equal(t, []string{"b", "a", "c", "d"}, reg.QueryOrder(PhaseDiscrete))
}

func TestRegistry_OrderingDeterminism(t *testing.T) {
	build := func() *Registry {
		reg := NewRegistry(newTestSpecies(), nil)
		a := &fakeDiscrete{name: "a", mfp: 1}
		b := &fakeDiscrete{name: "b", mfp: 1}
		c := &fakeDiscrete{name: "c", mfp: 1}
		mustAdd(t, reg, a, RankInactive, RankInactive, 300)
		mustAdd(t, reg, b, RankInactive, RankInactive, 100)
		mustAdd(t, reg, c, RankInactive, RankInactive, 200)
		require.NoError(t, reg.SetOrdering(b, PhaseDiscrete, 400))
		require.NoError(t, reg.SetOrderingFirst(c, PhaseDiscrete))
		return reg
	}

	assert.Equal(t, build().QueryOrder(PhaseDiscrete), build().QueryOrder(PhaseDiscrete))
}

func TestRegistry_SetOrderingErrors(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	d := &fakeDiscrete{name: "d", mfp: 1}
	mustAdd(t, reg, d, RankInactive, RankInactive, 100)

	var cfgErr *ConfigError

	// Never added at all.
	err := reg.SetOrdering(&fakeDiscrete{name: "ghost", mfp: 1}, PhaseDiscrete, 10)
	require.ErrorAs(t, err, &cfgErr)

	// Added, but never registered for the at-rest phase.
	err = reg.SetOrdering(d, PhaseAtRest, 10)
	require.ErrorAs(t, err, &cfgErr)
}

// SetOrderingFirst/Last can be called repeatedly and the most recent call
// wins — a sharp-edged but long-standing contract that setup code depends on.
func TestRegistry_FirstLastLastCallWins(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	a := &fakeDiscrete{name: "a", mfp: 1}
	b := &fakeDiscrete{name: "b", mfp: 1}
	c := &fakeDiscrete{name: "c", mfp: 1}
	mustAdd(t, reg, a, RankInactive, RankInactive, RankDefault)
	mustAdd(t, reg, b, RankInactive, RankInactive, RankDefault)
	mustAdd(t, reg, c, RankInactive, RankInactive, RankDefault)

	require.NoError(t, reg.SetOrderingFirst(a, PhaseDiscrete))
	require.NoError(t, reg.SetOrderingFirst(b, PhaseDiscrete))
	assert.Equal(t, []string{"b", "a", "c"}, reg.QueryOrder(PhaseDiscrete),
		"most recent first-designation must win")

	reg2 := NewRegistry(newTestSpecies(), nil)
	a2 := &fakeDiscrete{name: "a", mfp: 1}
	b2 := &fakeDiscrete{name: "b", mfp: 1}
	c2 := &fakeDiscrete{name: "c", mfp: 1}
	mustAdd(t, reg2, a2, RankInactive, RankInactive, RankDefault)
	mustAdd(t, reg2, b2, RankInactive, RankInactive, RankDefault)
	mustAdd(t, reg2, c2, RankInactive, RankInactive, RankDefault)

	require.NoError(t, reg2.SetOrderingLast(b2, PhaseDiscrete))
	require.NoError(t, reg2.SetOrderingLast(a2, PhaseDiscrete))
	assert.Equal(t, []string{"c", "b", "a"}, reg2.QueryOrder(PhaseDiscrete),
		"most recent last-designation must win")
}

func TestRegistry_ActivationRoundTrip(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	a := &fakeDiscrete{name: "a", mfp: 1}
	b := &fakeDiscrete{name: "b", mfp: 1}
	mustAdd(t, reg, a, RankInactive, RankInactive, 100)
	mustAdd(t, reg, b, RankInactive, RankInactive, 200)

	orderBefore := reg.QueryOrder(PhaseDiscrete)
	rankBefore, err := reg.Rank(a, PhaseDiscrete)
	require.NoError(t, err)

	require.NoError(t, reg.SetActivation(a, false))
	active, err := reg.IsActive(a)
	require.NoError(t, err)
	assert.False(t, active)
	// Deactivation does not remove: position and rank are untouched.
	assert.Equal(t, orderBefore, reg.QueryOrder(PhaseDiscrete))

	require.NoError(t, reg.SetActivation(a, true))
	active, err = reg.IsActive(a)
	require.NoError(t, err)
	assert.True(t, active)

	rankAfter, err := reg.Rank(a, PhaseDiscrete)
	require.NoError(t, err)
	assert.Equal(t, rankBefore, rankAfter)
	assert.Equal(t, orderBefore, reg.QueryOrder(PhaseDiscrete))
}

func TestRegistry_ActivationByIndexAndMisses(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	a := &fakeDiscrete{name: "a", mfp: 1}
	slot := mustAdd(t, reg, a, RankInactive, RankInactive, 100)

	require.NoError(t, reg.SetActivationIndex(slot, false))
	active, err := reg.IsActive(a)
	require.NoError(t, err)
	assert.False(t, active)

	assert.ErrorIs(t, reg.SetActivationIndex(99, true), ErrNotFound)
	assert.ErrorIs(t, reg.SetActivation(&fakeDiscrete{name: "ghost"}, true), ErrNotFound)
}

func TestRegistry_Remove(t *testing.T) {
	sp := newTestSpecies()
	table := NewTable()
	reg := NewRegistry(sp, table)
	a := &fakeDiscrete{name: "a", mfp: 1}
	b := &fakeDiscrete{name: "b", mfp: 1}
	mustAdd(t, reg, a, RankInactive, RankInactive, 100)
	mustAdd(t, reg, b, RankInactive, RankInactive, 200)
	require.Equal(t, 2, table.Len())

	require.NoError(t, reg.Remove(a))

	assert.Equal(t, 1, reg.Size())
	assert.Equal(t, []string{"b"}, reg.QueryOrder(PhaseDiscrete))
	assert.Equal(t, 1, table.Len())
	assert.ErrorIs(t, reg.Remove(a), ErrNotFound)
}

func TestRegistry_SetOrderingInactiveWithdraws(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	a := &fakeDiscrete{name: "a", mfp: 1}
	b := &fakeDiscrete{name: "b", mfp: 1}
	mustAdd(t, reg, a, RankInactive, RankInactive, 100)
	mustAdd(t, reg, b, RankInactive, RankInactive, 200)

	require.NoError(t, reg.SetOrdering(a, PhaseDiscrete, RankInactive))
	assert.Equal(t, []string{"b"}, reg.QueryOrder(PhaseDiscrete))
	assert.Equal(t, 2, reg.Size(), "withdrawing from a phase must not remove from the master list")
}

func TestRegistry_DuplicateRankLastStillOrders(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	a := &fakeDiscrete{name: "a", mfp: 1}
	b := &fakeDiscrete{name: "b", mfp: 1}
	// Two RankLast holders is a caller error by contract; the registry
	// only warns and keeps a deterministic order.
	mustAdd(t, reg, a, RankInactive, RankInactive, RankLast)
	mustAdd(t, reg, b, RankInactive, RankInactive, RankLast)

	assert.Equal(t, []string{"a", "b"}, reg.QueryOrder(PhaseDiscrete))
}

func mustAdd(t *testing.T, reg *Registry, h Handler, rAt, rCont, rDisc int) int {
	t.Helper()
	slot, err := reg.AddHandler(h, rAt, rCont, rDisc)
	require.NoError(t, err)
	return slot
}

func TestRegistry_NewLengthStates(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	mustAdd(t, reg, &fakeDiscrete{name: "a", mfp: 1}, RankInactive, RankInactive, 100)
	mustAdd(t, reg, &fakeContinuous{name: "b", limit: 1}, RankInactive, 100, RankInactive)

	states := reg.NewLengthStates()
	require.Len(t, states, 2)
	for i := range states {
		assert.True(t, states[i].NeedsResample())
	}
}

func TestRegistry_ErrNotFoundIsRecoverable(t *testing.T) {
	reg := NewRegistry(newTestSpecies(), nil)
	_, err := reg.Rank(&fakeDiscrete{name: "ghost"}, PhaseDiscrete)
	assert.True(t, errors.Is(err, ErrNotFound))
}
