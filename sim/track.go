package sim

// TrackStatus is the lifecycle state of a track.
type TrackStatus int

const (
	// TrackUnchanged is only meaningful inside an EffectResult: keep the
	// track's current status.
	TrackUnchanged TrackStatus = iota
	// TrackAlive is a track in flight.
	TrackAlive
	// TrackStopped is a track at rest; at-rest handlers may still act on it.
	TrackStopped
	// TrackDead is a terminated track; stepping it is an error.
	TrackDead
)

func (s TrackStatus) String() string {
	switch s {
	case TrackUnchanged:
		return "unchanged"
	case TrackAlive:
		return "alive"
	case TrackStopped:
		return "stopped"
	case TrackDead:
		return "dead"
	default:
		return "invalid"
	}
}

// StepUndefined is the sentinel "previous step size is invalid" value.
// A track starts with PreviousStep == StepUndefined, which makes every
// handler's first length query draw a fresh exponential deviate.
const StepUndefined = -1.0

// Species describes a particle species. The registry pointer is the
// species→handler-list edge owned by the particle-definition collaborator;
// Setup wires it when building a worker.
type Species struct {
	Name   string
	Charge float64
	// Mass in energy units (MeV).
	Mass float64
	// Lifetime is the mean proper lifetime; Forever marks a stable species.
	Lifetime float64

	registry *Registry
}

// Stable reports whether the species never decays.
func (sp *Species) Stable() bool {
	return sp.Lifetime >= Forever
}

// Registry returns the per-species handler registry, or nil before setup.
func (sp *Species) Registry() *Registry {
	return sp.registry
}

// Track is the mutable per-particle state threaded through one stepping
// loop. Tracks are never shared between workers; the interaction-length
// states live here (indexed by registry slot) so the one-track-at-a-time
// discipline is structural rather than a documented convention.
type Track struct {
	ID      int
	Species *Species
	// KineticEnergy in MeV.
	KineticEnergy float64
	// Weight is the statistical weight carried for variance reduction.
	Weight float64
	// Position is the path length travelled from the track origin.
	Position float64
	// LocalTime is the time elapsed since the track was created.
	LocalTime float64
	Status    TrackStatus
	// UserStepLimit caps every step; Forever means no user limit.
	UserStepLimit float64
	// PreviousStep is the length of the last resolved step, or
	// StepUndefined at track start. It drives the subtraction rule in
	// LengthState.Sample for every handler that did not fire.
	PreviousStep float64

	states    []LengthState
	stepCount int
}

// NewTrack creates a live track with unit weight and no user limit.
// Interaction-length states are allocated by the stepper on first use.
func NewTrack(id int, sp *Species, kineticEnergy float64) *Track {
	return &Track{
		ID:            id,
		Species:       sp,
		KineticEnergy: kineticEnergy,
		Weight:        1,
		Status:        TrackAlive,
		UserStepLimit: Forever,
		PreviousStep:  StepUndefined,
	}
}

// StepCount returns the number of steps resolved for this track.
func (tr *Track) StepCount() int {
	return tr.stepCount
}

// LengthStateFor exposes the interaction-length state held for a registry
// slot. The biasing layer reads it to inspect raw sampling state; ordinary
// handlers never need it.
func (tr *Track) LengthStateFor(slot int) *LengthState {
	if slot < 0 || slot >= len(tr.states) {
		return nil
	}
	return &tr.states[slot]
}
