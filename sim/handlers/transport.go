package handlers

import (
	"math"

	"github.com/transport-sim/transport-sim/sim"
)

// Transport moves the track: its continuous effect advances position and
// local time over the resolved step. It holds the run-last rank by
// convention — it must see the final energy for the time-of-flight
// calculation, and it is the one handler per phase entitled to RankLast.
//
// When a Navigator is attached (SetNavigator), its boundary distance also
// enters the step competition through the continuous step limit; without
// one the handler never limits.
//
// Params:
//
//	c  speed of light in length-per-time units (default 1.0)
type Transport struct {
	name string
	c    float64
	nav  sim.Navigator
}

// NewTransport builds a transport handler from config params.
func NewTransport(name string, params map[string]float64) *Transport {
	return &Transport{
		name: name,
		c:    param(params, "c", 1.0),
	}
}

// SetNavigator attaches the geometry collaborator.
func (h *Transport) SetNavigator(nav sim.Navigator) {
	h.nav = nav
}

func (h *Transport) Name() string { return h.name }
func (h *Transport) Category() sim.Category { return sim.CategoryTransport }
func (h *Transport) SubCategory() int { return 0 }
func (h *Transport) IsApplicable(*sim.Species) bool { return true }

// StepLimit proposes the boundary distance when a navigator is attached.
func (h *Transport) StepLimit(tr *sim.Track, _, _, safety float64) (float64, float64) {
	if h.nav == nil {
		return sim.Forever, safety
	}
	return h.nav.DistanceToBoundary(tr)
}

// ApplyContinuous advances position along the path and local time by the
// relativistic time of flight.
func (h *Transport) ApplyContinuous(tr *sim.Track, step *sim.Step) *sim.EffectResult {
	tr.Position += step.Length
	if v := h.velocity(tr); v > 0 {
		tr.LocalTime += step.Length / v
	}
	return nil
}

// MeanFreePath never limits: transport participates in the discrete phase
// only to hold the run-last rank.
func (h *Transport) MeanFreePath(*sim.Track) (float64, sim.ForceCondition) {
	return sim.Forever, sim.NotForced
}

func (h *Transport) ApplyDiscrete(*sim.Track, *sim.Step) *sim.EffectResult {
	return nil
}

func (h *Transport) velocity(tr *sim.Track) float64 {
	if tr.Species.Mass <= 0 {
		return h.c // massless
	}
	gamma := 1 + tr.KineticEnergy/tr.Species.Mass
	beta := math.Sqrt(1 - 1/(gamma*gamma))
	return beta * h.c
}
