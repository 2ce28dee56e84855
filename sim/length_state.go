package sim

import (
	"math"
	"math/rand"
)

const (
	// lengthLeftUnset marks a state that needs a fresh exponential draw.
	lengthLeftUnset = -1.0
	// minLengthsLeft is the clamp applied when subtraction would drive the
	// remaining count to zero or below. The clamp exists only here, inside
	// the sampling algorithm; the protocol boundary never clamps.
	minLengthsLeft = 1e-6
)

// LengthState tracks how many mean free paths of travel remain before a
// handler's discrete (or at-rest) effect is due. One LengthState exists per
// (track, registry slot); it survives across steps and is reset when the
// handler fires, so interaction statistics stay memoryless across steps.
type LengthState struct {
	// NumberOfLengthsLeft is the remaining dimensionless count of mean free
	// paths. Strictly positive except immediately after the handler fires,
	// when it holds the needs-resample sentinel.
	NumberOfLengthsLeft float64
	// InitialNumberOfLengths records the value drawn at the last reset.
	InitialNumberOfLengths float64
	// CurrentLength caches the mean free path (or mean lifetime) computed
	// for the current material/energy, so repeated step queries subtract
	// consumed length against it without resampling.
	CurrentLength float64
	// TraversedLength is the physical length consumed since the last draw.
	TraversedLength float64
}

// NeedsResample reports whether the next Sample call will draw fresh.
// True at track start (zero value) and after Reset.
func (s *LengthState) NeedsResample() bool {
	return s.NumberOfLengthsLeft <= 0
}

// Sample advances the state by previousStep and returns the proposed
// distance (or time, for at-rest queries against a mean lifetime) until the
// handler's effect is due:
//
//  1. If previousStep is StepUndefined or the state was reset, draw
//     remaining = -ln(U), U uniform in (0,1).
//  2. Otherwise subtract previousStep/CurrentLength (the length cached by
//     the previous query), clamping to a tiny positive epsilon rather than
//     zero or negative.
//  3. Cache meanLength as the new CurrentLength.
//  4. Return remaining * meanLength, or Forever when meanLength is Forever.
//
// This is the only place a fresh exponential deviate is produced.
func (s *LengthState) Sample(rng *rand.Rand, previousStep, meanLength float64) float64 {
	if previousStep < 0 || s.NeedsResample() {
		s.NumberOfLengthsLeft = -math.Log(positiveUniform(rng))
		s.InitialNumberOfLengths = s.NumberOfLengthsLeft
		s.TraversedLength = 0
	} else if s.CurrentLength < Forever && s.CurrentLength > 0 {
		s.NumberOfLengthsLeft -= previousStep / s.CurrentLength
		if s.NumberOfLengthsLeft <= 0 {
			s.NumberOfLengthsLeft = minLengthsLeft
		}
		s.TraversedLength += previousStep
	}

	s.CurrentLength = meanLength
	if meanLength >= Forever {
		return Forever
	}
	return s.NumberOfLengthsLeft * meanLength
}

// Reset marks the state invalid so the next Sample draws fresh. Called by
// the stepper immediately after the handler's effect fires.
func (s *LengthState) Reset() {
	s.NumberOfLengthsLeft = lengthLeftUnset
}

// positiveUniform draws U in the open interval (0,1); rand.Float64 can
// return exactly 0, which -ln(U) cannot tolerate.
func positiveUniform(rng *rand.Rand) float64 {
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return u
}
