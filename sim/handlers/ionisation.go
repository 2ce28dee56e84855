// Package handlers provides the built-in interaction handlers. The physics
// here is deliberately simple — analytic loss rates and cross-sections —
// because the scheduling core only depends on the contract shape, not the
// physical content.
package handlers

import "github.com/transport-sim/transport-sim/sim"

// Ionisation is a continuous energy-loss handler for charged particles:
// constant loss rate dE/dx, with a step limit keeping the fractional energy
// loss per step below a bound so the continuous approximation stays
// accurate.
//
// Params:
//
//	loss_rate     dE/dx in MeV per unit length (default 0.2)
//	max_fraction  max fractional energy loss per step (default 0.2)
//	final_range   step floor near the end of range (default 0.1)
//	kill_at_zero  nonzero kills the track at zero energy instead of
//	              stopping it (default 0: stop, letting at-rest handlers act)
type Ionisation struct {
	name        string
	lossRate    float64
	maxFraction float64
	finalRange  float64
	killAtZero  bool
}

// NewIonisation builds an ionisation handler from config params.
func NewIonisation(name string, params map[string]float64) *Ionisation {
	return &Ionisation{
		name:        name,
		lossRate:    param(params, "loss_rate", 0.2),
		maxFraction: param(params, "max_fraction", 0.2),
		finalRange:  param(params, "final_range", 0.1),
		killAtZero:  param(params, "kill_at_zero", 0) != 0,
	}
}

func (h *Ionisation) Name() string { return h.name }
func (h *Ionisation) Category() sim.Category { return sim.CategoryElectromagnetic }
func (h *Ionisation) SubCategory() int { return 2 }
func (h *Ionisation) IsApplicable(sp *sim.Species) bool { return sp.Charge != 0 }

// StepLimit bounds the step so at most maxFraction of the current energy is
// lost, with a finalRange floor so the track can actually reach the end of
// its range instead of asymptotically creeping toward it.
func (h *Ionisation) StepLimit(tr *sim.Track, _, _, safety float64) (float64, float64) {
	limit := h.maxFraction * tr.KineticEnergy / h.lossRate
	if limit < h.finalRange {
		limit = h.finalRange
	}
	return limit, safety
}

// ApplyContinuous deposits lossRate*length, stopping (or killing) the track
// when its energy is exhausted.
func (h *Ionisation) ApplyContinuous(tr *sim.Track, step *sim.Step) *sim.EffectResult {
	res := sim.NewEffectResult()
	loss := h.lossRate * step.Length
	if loss >= tr.KineticEnergy {
		loss = tr.KineticEnergy
		if h.killAtZero {
			res.Status = sim.TrackDead
		} else {
			res.Status = sim.TrackStopped
		}
	}
	res.EnergyDelta = -loss
	res.EnergyDeposit = loss
	return res
}
