package sim

import "fmt"

// StepStatus traces where a track is inside one step resolution.
type StepStatus int

const (
	StepQueryingAtRest StepStatus = iota
	StepQueryingAlongStep
	StepQueryingPostStep
	StepApplyingAlongStep
	StepApplyingPostStep
	StepComplete
)

func (s StepStatus) String() string {
	switch s {
	case StepQueryingAtRest:
		return "querying-at-rest"
	case StepQueryingAlongStep:
		return "querying-along-step"
	case StepQueryingPostStep:
		return "querying-post-step"
	case StepApplyingAlongStep:
		return "applying-along-step"
	case StepApplyingPostStep:
		return "applying-post-step"
	case StepComplete:
		return "step-complete"
	default:
		return fmt.Sprintf("step-status(%d)", int(s))
	}
}

// StepLimiter records what limited the resolved step.
type StepLimiter int

const (
	LimitedByNone StepLimiter = iota
	LimitedByContinuous
	LimitedByDiscrete
	LimitedByBoundary
	LimitedByUserLimit
	LimitedByAtRest
)

func (l StepLimiter) String() string {
	switch l {
	case LimitedByNone:
		return "none"
	case LimitedByContinuous:
		return "continuous"
	case LimitedByDiscrete:
		return "discrete"
	case LimitedByBoundary:
		return "boundary"
	case LimitedByUserLimit:
		return "user-limit"
	case LimitedByAtRest:
		return "at-rest"
	default:
		return fmt.Sprintf("limiter(%d)", int(l))
	}
}

// Candidate records one discrete handler's proposal for a step. Raw is the
// physical length the handler would have returned absent biasing; Proposed
// includes the interaction-length factor. The variance-reduction layer
// reads these to compute weight corrections.
type Candidate struct {
	Name     string
	Raw      float64
	Proposed float64
	Forced   bool
}

// Step is the resolved outcome of one step: the chosen length, what limited
// it, which effects fired, and the accumulated physical changes.
type Step struct {
	// Length is the chosen step length (zero for an at-rest step).
	Length float64
	// DeltaTime is the time consumed by an at-rest step.
	DeltaTime float64
	Limiter   StepLimiter
	// LimiterName is the handler that proposed the winning limit, when the
	// limiter was a handler.
	LimiterName string
	// Fired lists the discrete/at-rest handlers whose effects applied this
	// step (the winner plus any forced handlers), in apply order.
	Fired []string
	// Candidates are the discrete proposals gathered in the query phase.
	Candidates []Candidate
	// Safety is the conservative boundary safety after continuous queries.
	Safety float64
	// EnergyDeposit accumulates local deposits from all applied effects.
	EnergyDeposit float64
	// Secondaries accumulates tracks created by applied effects.
	Secondaries []*Track
	Status      StepStatus
}
