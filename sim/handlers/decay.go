package handlers

import (
	"math"

	"github.com/transport-sim/transport-sim/sim"
)

// Decay handles unstable species in both lifecycle phases that matter to
// decay: at rest (mean time = proper lifetime) and in flight (mean free
// path = γβc·τ, the time-dilated decay length). Stable species report
// Forever from both queries.
//
// Params:
//
//	c  speed of light in length-per-time units (default 1.0)
//
// Daughters are configured programmatically via SetDaughters, since they
// reference a species object rather than a scalar.
type Decay struct {
	name string
	c    float64

	daughter         *sim.Species
	daughterCount    int
	daughterFraction float64
}

// NewDecay builds a decay handler from config params.
func NewDecay(name string, params map[string]float64) *Decay {
	return &Decay{
		name: name,
		c:    param(params, "c", 1.0),
	}
}

// SetDaughters configures count secondaries of species sp, each carrying
// fraction of the parent's kinetic energy (at rest: fraction of the parent
// mass, as released energy).
func (h *Decay) SetDaughters(sp *sim.Species, count int, fraction float64) {
	h.daughter = sp
	h.daughterCount = count
	h.daughterFraction = fraction
}

func (h *Decay) Name() string { return h.name }
func (h *Decay) Category() sim.Category { return sim.CategoryDecay }
func (h *Decay) SubCategory() int { return 0 }
func (h *Decay) IsApplicable(sp *sim.Species) bool { return !sp.Stable() }

// MeanLifetime returns the species' mean proper lifetime.
func (h *Decay) MeanLifetime(tr *sim.Track) (float64, sim.ForceCondition) {
	return tr.Species.Lifetime, sim.NotForced
}

// MeanFreePath returns the time-dilated decay length γβcτ. A particle with
// no momentum cannot decay in flight (the at-rest phase owns that limit).
func (h *Decay) MeanFreePath(tr *sim.Track) (float64, sim.ForceCondition) {
	sp := tr.Species
	if sp.Stable() || sp.Mass <= 0 {
		return sim.Forever, sim.NotForced
	}
	gamma := 1 + tr.KineticEnergy/sp.Mass
	beta := math.Sqrt(1 - 1/(gamma*gamma))
	if beta <= 0 {
		return sim.Forever, sim.NotForced
	}
	return gamma * beta * h.c * sp.Lifetime, sim.NotForced
}

// ApplyAtRest terminates the track, releasing daughters when configured.
func (h *Decay) ApplyAtRest(tr *sim.Track, _ *sim.Step) *sim.EffectResult {
	res := sim.NewEffectResult()
	res.Status = sim.TrackDead
	h.emitDaughters(res, h.daughterFraction*tr.Species.Mass)
	return res
}

// ApplyDiscrete terminates the track in flight. Without configured
// daughters the kinetic energy is deposited locally; with daughters it is
// carried away by them.
func (h *Decay) ApplyDiscrete(tr *sim.Track, _ *sim.Step) *sim.EffectResult {
	res := sim.NewEffectResult()
	res.Status = sim.TrackDead
	if h.daughter == nil || h.daughterCount == 0 {
		res.EnergyDelta = -tr.KineticEnergy
		res.EnergyDeposit = tr.KineticEnergy
		return res
	}
	h.emitDaughters(res, h.daughterFraction*tr.KineticEnergy)
	res.EnergyDelta = -tr.KineticEnergy
	return res
}

func (h *Decay) emitDaughters(res *sim.EffectResult, energyEach float64) {
	if h.daughter == nil || h.daughterCount == 0 || energyEach <= 0 {
		return
	}
	for i := 0; i < h.daughterCount; i++ {
		// IDs and weight inheritance are assigned by the worker.
		res.Secondaries = append(res.Secondaries, sim.NewTrack(0, h.daughter, energyEach))
	}
}
