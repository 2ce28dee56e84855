package handlers

import "github.com/transport-sim/transport-sim/sim"

// Absorption is a discrete handler with a constant mean free path that
// terminates the track, depositing its remaining energy locally.
//
// Params:
//
//	mfp  mean free path in length units (default 5.0)
type Absorption struct {
	name string
	mfp  float64
}

// NewAbsorption builds an absorption handler from config params.
func NewAbsorption(name string, params map[string]float64) *Absorption {
	return &Absorption{
		name: name,
		mfp:  param(params, "mfp", 5.0),
	}
}

func (h *Absorption) Name() string { return h.name }
func (h *Absorption) Category() sim.Category { return sim.CategoryHadronic }
func (h *Absorption) SubCategory() int { return 0 }
func (h *Absorption) IsApplicable(*sim.Species) bool { return true }

func (h *Absorption) MeanFreePath(*sim.Track) (float64, sim.ForceCondition) {
	return h.mfp, sim.NotForced
}

func (h *Absorption) ApplyDiscrete(tr *sim.Track, _ *sim.Step) *sim.EffectResult {
	res := sim.NewEffectResult()
	res.EnergyDelta = -tr.KineticEnergy
	res.EnergyDeposit = tr.KineticEnergy
	res.Status = sim.TrackDead
	return res
}
