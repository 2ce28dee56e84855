package handlers

import "github.com/transport-sim/transport-sim/sim"

// Scattering is a discrete handler with a 1/E cross-section (mean free path
// proportional to energy): slow particles scatter more often. Each scatter
// deposits a fixed energy quantum.
//
// Params:
//
//	mfp_per_mev  mean free path per MeV of kinetic energy (default 1.0)
//	quantum      energy deposited per scatter in MeV (default 0.05)
type Scattering struct {
	name      string
	mfpPerMeV float64
	quantum   float64
}

// NewScattering builds a scattering handler from config params.
func NewScattering(name string, params map[string]float64) *Scattering {
	return &Scattering{
		name:      name,
		mfpPerMeV: param(params, "mfp_per_mev", 1.0),
		quantum:   param(params, "quantum", 0.05),
	}
}

func (h *Scattering) Name() string { return h.name }
func (h *Scattering) Category() sim.Category { return sim.CategoryElectromagnetic }
func (h *Scattering) SubCategory() int { return 1 }
func (h *Scattering) IsApplicable(sp *sim.Species) bool { return sp.Charge != 0 }

// MeanFreePath scales linearly with energy. Below one quantum the process
// is cut off (Forever): there is not enough energy left to scatter.
func (h *Scattering) MeanFreePath(tr *sim.Track) (float64, sim.ForceCondition) {
	if tr.KineticEnergy < h.quantum {
		return sim.Forever, sim.NotForced
	}
	return h.mfpPerMeV * tr.KineticEnergy, sim.NotForced
}

// ApplyDiscrete deposits one quantum, capped by the remaining energy.
func (h *Scattering) ApplyDiscrete(tr *sim.Track, _ *sim.Step) *sim.EffectResult {
	res := sim.NewEffectResult()
	dep := h.quantum
	if dep > tr.KineticEnergy {
		dep = tr.KineticEnergy
	}
	res.EnergyDelta = -dep
	res.EnergyDeposit = dep
	return res
}
