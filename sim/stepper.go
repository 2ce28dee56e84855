package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Stepper resolves one step at a time for one track: it queries every
// applicable handler for a proposed limiting length, picks the governing
// minimum (together with the boundary distance and the user limit), applies
// all continuous effects, and executes exactly one discrete or at-rest
// effect — or more, when handlers are explicitly forced.
//
// A Stepper is owned by one worker and is not safe for concurrent use; the
// track-per-worker discipline means it never needs to be.
type Stepper struct {
	nav     Navigator
	rng     *rand.Rand
	factor  float64
	metrics *Metrics
}

// NewStepper creates a stepper drawing its interaction-length deviates from
// rng. A nil nav defaults to UnboundedNavigator.
func NewStepper(nav Navigator, rng *rand.Rand) *Stepper {
	if nav == nil {
		nav = UnboundedNavigator{}
	}
	return &Stepper{nav: nav, rng: rng, factor: 1}
}

// SetMetrics attaches a metrics sink; nil detaches it.
func (s *Stepper) SetMetrics(m *Metrics) {
	s.metrics = m
}

// SetInteractionLengthFactor sets the global scalar multiplying every
// discrete and at-rest proposal uniformly. This is the seam the
// variance-reduction layer uses to scale interaction rates without touching
// the sampling logic; raw pre-factor lengths stay visible on the step's
// Candidates.
func (s *Stepper) SetInteractionLengthFactor(f float64) error {
	if math.IsNaN(f) || f <= 0 {
		return configErrorf("SetInteractionLengthFactor", "factor must be positive, got %v", f)
	}
	s.factor = f
	return nil
}

// InteractionLengthFactor returns the current global factor.
func (s *Stepper) InteractionLengthFactor() float64 {
	return s.factor
}

// Step resolves one step for the track against its species' registry.
// Configuration and numerical errors are fatal to the run and returned
// immediately; the caller must not continue stepping after a non-nil error.
func (s *Stepper) Step(tr *Track, reg *Registry) (*Step, error) {
	if tr == nil || reg == nil {
		return nil, configErrorf("Step", "nil track or registry")
	}
	if tr.Status == TrackDead {
		return nil, configErrorf("Step", "track %d is dead", tr.ID)
	}
	if len(tr.states) != reg.Size() {
		tr.states = reg.NewLengthStates()
	}

	var step *Step
	var err error
	if tr.Status == TrackStopped {
		step, err = s.atRestStep(tr, reg)
	} else {
		step, err = s.inFlightStep(tr, reg)
	}
	if err != nil {
		return nil, err
	}

	tr.stepCount++
	step.Status = StepComplete
	if s.metrics != nil {
		s.metrics.RecordStep(step)
	}
	return step, nil
}

// inFlightStep resolves a step for a moving track: the step length is the
// minimum of all continuous limits, all discrete proposals, the boundary
// distance, and the user limit.
func (s *Stepper) inFlightStep(tr *Track, reg *Registry) (*Step, error) {
	step := &Step{Limiter: LimitedByNone}

	length := Forever
	if tr.UserStepLimit < length {
		length = tr.UserStepLimit
		step.Limiter = LimitedByUserLimit
	}
	boundary, safety := s.nav.DistanceToBoundary(tr)
	if boundary < length {
		length = boundary
		step.Limiter = LimitedByBoundary
	}

	step.Status = StepQueryingAlongStep
	for _, e := range reg.lists[PhaseContinuous][roleQuery] {
		if !e.active {
			continue
		}
		limit, newSafety := e.continuous.StepLimit(tr, tr.PreviousStep, length, safety)
		if err := checkQuantity(e.handler, "step limit", limit, tr); err != nil {
			return nil, err
		}
		safety = newSafety
		if limit < length {
			length = limit
			step.Limiter = LimitedByContinuous
			step.LimiterName = e.handler.Name()
		}
	}

	step.Status = StepQueryingPostStep
	candidates := reg.lists[PhaseDiscrete][roleQuery]
	for _, e := range candidates {
		if !e.active {
			continue
		}
		mfp, cond := e.discrete.MeanFreePath(tr)
		if err := checkQuantity(e.handler, "mean free path", mfp, tr); err != nil {
			return nil, err
		}
		// Every queried handler's state advances here via the subtraction
		// rule, whether or not it ends up firing. That is what keeps the
		// interaction statistics Markov across steps.
		raw := tr.states[e.slot].Sample(s.rng, tr.PreviousStep, mfp)
		proposed := raw
		if raw < Forever {
			proposed = raw * s.factor
		}
		step.Candidates = append(step.Candidates, Candidate{
			Name:     e.handler.Name(),
			Raw:      raw,
			Proposed: proposed,
			Forced:   e.forced || cond == Forced,
		})
		if proposed < length {
			length = proposed
		}
	}

	if length >= Forever {
		return nil, &StuckTrackError{TrackID: tr.ID, Species: tr.Species.Name, Position: tr.Position}
	}
	step.Length = length
	step.Safety = safety

	// Winner: the first discrete candidate (registry order) whose proposal
	// equals the chosen length.
	winner := -1
	queryIdx := 0
	for _, e := range candidates {
		if !e.active {
			continue
		}
		if winner < 0 && step.Candidates[queryIdx].Proposed <= length {
			winner = queryIdx
			step.Limiter = LimitedByDiscrete
			step.LimiterName = e.handler.Name()
		}
		queryIdx++
	}

	logrus.Debugf("track %d step %d: length=%g limiter=%s(%s)",
		tr.ID, tr.stepCount+1, length, step.Limiter, step.LimiterName)

	// Continuous effects always accumulate, regardless of which limit won.
	step.Status = StepApplyingAlongStep
	for _, e := range reg.lists[PhaseContinuous][roleApply] {
		if !e.active {
			continue
		}
		res := e.continuous.ApplyContinuous(tr, step)
		s.applyResult(tr, step, e, PhaseContinuous, res)
	}

	step.Status = StepApplyingPostStep
	queryIdx = 0
	for _, e := range reg.lists[PhaseDiscrete][roleApply] {
		if !e.active {
			continue
		}
		c := step.Candidates[queryIdx]
		fire := queryIdx == winner || c.Forced
		queryIdx++
		if !fire || tr.Status == TrackDead {
			continue
		}
		res := e.discrete.ApplyDiscrete(tr, step)
		s.applyResult(tr, step, e, PhaseDiscrete, res)
		tr.states[e.slot].Reset()
		step.Fired = append(step.Fired, e.handler.Name())
		if s.metrics != nil {
			s.metrics.RecordFire(e.handler.Name(), tr.Weight)
		}
	}

	tr.PreviousStep = length
	return step, nil
}

// atRestStep resolves a step for a stopped track: the at-rest handler with
// the minimum sampled time wins (ties broken by registry order) and only
// the winner's effect is applied.
func (s *Stepper) atRestStep(tr *Track, reg *Registry) (*Step, error) {
	step := &Step{Limiter: LimitedByAtRest, Status: StepQueryingAtRest}

	minTime := Forever
	var winner *entry
	for _, e := range reg.lists[PhaseAtRest][roleQuery] {
		if !e.active {
			continue
		}
		tau, _ := e.atRest.MeanLifetime(tr)
		if err := checkQuantity(e.handler, "mean lifetime", tau, tr); err != nil {
			return nil, err
		}
		// An at-rest track traverses no length, so there is nothing to
		// subtract: every at-rest query draws fresh.
		t := tr.states[e.slot].Sample(s.rng, StepUndefined, tau)
		if t < Forever {
			t *= s.factor
		}
		if t < minTime {
			minTime = t
			winner = e
		}
	}

	if winner == nil || minTime >= Forever {
		return nil, &StuckTrackError{TrackID: tr.ID, Species: tr.Species.Name, Position: tr.Position, AtRest: true}
	}
	step.DeltaTime = minTime
	step.LimiterName = winner.handler.Name()

	logrus.Debugf("track %d step %d: at rest, %s fires after %g",
		tr.ID, tr.stepCount+1, winner.handler.Name(), minTime)

	step.Status = StepApplyingPostStep
	res := winner.atRest.ApplyAtRest(tr, step)
	s.applyResult(tr, step, winner, PhaseAtRest, res)
	tr.states[winner.slot].Reset()
	step.Fired = append(step.Fired, winner.handler.Name())
	if s.metrics != nil {
		s.metrics.RecordFire(winner.handler.Name(), tr.Weight)
	}

	tr.LocalTime += minTime
	tr.PreviousStep = 0
	return step, nil
}

// applyResult folds an effect result into the track and step, routing it
// through the entry's interceptor first.
func (s *Stepper) applyResult(tr *Track, step *Step, e *entry, phase Phase, res *EffectResult) {
	if e.icept != nil {
		res = e.icept(tr, step, phase, res)
	}
	if res == nil {
		return
	}
	tr.KineticEnergy += res.EnergyDelta
	if tr.KineticEnergy < 0 {
		tr.KineticEnergy = 0
	}
	step.EnergyDeposit += res.EnergyDeposit
	if res.WeightFactor != 0 && res.WeightFactor != 1 {
		tr.Weight *= res.WeightFactor
	}
	if res.Status != TrackUnchanged {
		tr.Status = res.Status
	}
	step.Secondaries = append(step.Secondaries, res.Secondaries...)
}

// checkQuantity enforces the protocol-boundary contract: a negative, NaN,
// or zero length/time from a handler query is a fatal numerical error,
// never silently clamped (the only clamp lives inside LengthState.Sample).
func checkQuantity(h Handler, quantity string, v float64, tr *Track) error {
	if math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("stepping track %d: %w", tr.ID,
			&NumericalError{Handler: h.Name(), Quantity: quantity, Value: v, TrackID: tr.ID})
	}
	return nil
}
