package sim

import (
	"fmt"
	"math"
)

// Forever is the sentinel "no interaction possible" length or time.
// Queries return Forever for stable or inapplicable particles; the stepper
// treats it as never limiting.
const Forever = math.MaxFloat64

// Category classifies handlers by the physics domain they belong to.
// It is identity metadata used for registration-time lookup and bulk
// activation, never consulted in the per-step path.
type Category int

const (
	CategoryNotDefined Category = iota
	CategoryTransport
	CategoryElectromagnetic
	CategoryHadronic
	CategoryDecay
	CategoryUser
)

// CategoryAny matches every category in table selectors.
const CategoryAny Category = -1

var categoryNames = map[Category]string{
	CategoryNotDefined:      "undefined",
	CategoryTransport:       "transport",
	CategoryElectromagnetic: "electromagnetic",
	CategoryHadronic:        "hadronic",
	CategoryDecay:           "decay",
	CategoryUser:            "user",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory resolves a category name from configuration.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return CategoryNotDefined, fmt.Errorf("unknown handler category %q", s)
}

// Phase is one of the three lifecycle phases a handler may participate in.
type Phase int

const (
	PhaseAtRest Phase = iota
	PhaseContinuous
	PhaseDiscrete

	numPhases = 3
)

func (p Phase) String() string {
	switch p {
	case PhaseAtRest:
		return "atRest"
	case PhaseContinuous:
		return "continuous"
	case PhaseDiscrete:
		return "discrete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ForceCondition signals whether a handler's effect must be applied even
// when its proposed length did not win the step-limiting competition.
// The variance-reduction layer relies on this to guarantee an interaction
// it has already paid a weight correction for.
type ForceCondition int

const (
	NotForced ForceCondition = iota
	Forced
)

// Handler is the common contract of every interaction handler: identity
// plus a registration-time applicability predicate. A handler participates
// in a lifecycle phase by additionally implementing AtRestHandler,
// ContinuousHandler, or DiscreteHandler — there are no stub methods for
// phases a handler does not support.
type Handler interface {
	// Name is unique within a run.
	Name() string
	Category() Category
	// SubCategory is a finer integer tag within a category.
	SubCategory() int
	// IsApplicable reports whether this handler can act on the species.
	// Consulted once at registration time, never per step.
	IsApplicable(sp *Species) bool
}

// AtRestHandler acts on tracks that have come to rest.
type AtRestHandler interface {
	Handler
	// MeanLifetime returns the mean time until this handler's at-rest
	// effect fires, or Forever for stable/inapplicable particles.
	MeanLifetime(tr *Track) (float64, ForceCondition)
	// ApplyAtRest performs the at-rest effect.
	ApplyAtRest(tr *Track, step *Step) *EffectResult
}

// ContinuousHandler accumulates an effect along every step.
type ContinuousHandler interface {
	Handler
	// StepLimit returns the maximum step this handler tolerates before its
	// continuous effect becomes inaccurate, plus an updated conservative
	// safety distance when cheaply computable (return safety unchanged
	// otherwise). currentMinimum is the smallest limit proposed so far.
	StepLimit(tr *Track, previousStep, currentMinimum, safety float64) (limit, newSafety float64)
	// ApplyContinuous performs the continuous effect over step.Length.
	// Continuous effects always accumulate: this is invoked every step
	// regardless of which limit won.
	ApplyContinuous(tr *Track, step *Step) *EffectResult
}

// DiscreteHandler fires point-like interactions at sampled distances.
type DiscreteHandler interface {
	Handler
	// MeanFreePath returns the mean free path for the track's current
	// energy and material, or Forever when no interaction is possible.
	// The distance to the next interaction is derived from it by the
	// stepper through the track's LengthState (see LengthState.Sample).
	MeanFreePath(tr *Track) (float64, ForceCondition)
	// ApplyDiscrete performs the discrete effect.
	ApplyDiscrete(tr *Track, step *Step) *EffectResult
}

// WorkerCloneable is an optional capability for handlers that carry
// expensive precomputed tables. The master instance builds the tables once;
// CloneForWorker returns a per-worker handler sharing them read-only.
// Handlers without this capability are used as-is by every worker and must
// hold no per-track mutable state (the core keeps interaction-length state
// on the track, so stateless handlers are the norm).
type WorkerCloneable interface {
	CloneForWorker(workerID int) Handler
}

// Navigator is the opaque geometry collaborator. It supplies the distance
// to the next geometric boundary and a conservative isotropic safety; the
// scheduling core treats both as external minimum-distance inputs.
type Navigator interface {
	DistanceToBoundary(tr *Track) (distance, safety float64)
}

// UnboundedNavigator is the default Navigator for geometry-free runs.
type UnboundedNavigator struct{}

func (UnboundedNavigator) DistanceToBoundary(*Track) (float64, float64) {
	return Forever, Forever
}

// EffectResult describes the physical change an apply routine requests.
// Use NewEffectResult; a zero WeightFactor is treated as "unchanged".
type EffectResult struct {
	// EnergyDeposit is energy left behind locally (scored, not carried).
	EnergyDeposit float64
	// EnergyDelta is added to the track's kinetic energy (losses negative).
	EnergyDelta float64
	// WeightFactor multiplies the track weight. The biasing layer uses this
	// channel for its 1/f corrections; analog handlers leave it at 1.
	WeightFactor float64
	// Status proposes a new track status; TrackUnchanged keeps the current one.
	Status TrackStatus
	// Secondaries are new tracks created by the effect. The worker assigns
	// their IDs and transports them after the current track finishes.
	Secondaries []*Track
}

// NewEffectResult returns an EffectResult that changes nothing.
func NewEffectResult() *EffectResult {
	return &EffectResult{WeightFactor: 1, Status: TrackUnchanged}
}
