package sim

import "math"

// BiasedDiscrete wraps an existing discrete handler for occurrence biasing:
// the wrapped handler reports a mean free path shortened by Factor (so its
// interactions are Factor times more frequent) and every applied effect
// carries a 1/Factor weight correction, leaving the expected value of any
// weighted observable unchanged.
//
// The wrapper keeps the inner handler's name and identity metadata, so
// registrations, table lookups, and configuration are untouched — swap the
// instance, nothing else. It relies on the track's LengthState reset
// discipline for statistical validity: nothing about the sampling algorithm
// itself changes.
type BiasedDiscrete struct {
	inner  DiscreteHandler
	factor float64
}

// NewBiasedDiscrete wraps inner with an interaction-rate factor > 0.
// Factor 1 is a transparent wrapper; factor 2 doubles the interaction rate
// and halves the weight carried by each interaction.
func NewBiasedDiscrete(inner DiscreteHandler, factor float64) (*BiasedDiscrete, error) {
	if inner == nil {
		return nil, configErrorf("NewBiasedDiscrete", "nil inner handler")
	}
	if math.IsNaN(factor) || factor <= 0 {
		return nil, configErrorf("NewBiasedDiscrete", "factor must be positive, got %v", factor)
	}
	return &BiasedDiscrete{inner: inner, factor: factor}, nil
}

// Unwrap returns the analog handler underneath.
func (b *BiasedDiscrete) Unwrap() DiscreteHandler { return b.inner }

// Factor returns the interaction-rate factor.
func (b *BiasedDiscrete) Factor() float64 { return b.factor }

func (b *BiasedDiscrete) Name() string { return b.inner.Name() }
func (b *BiasedDiscrete) Category() Category { return b.inner.Category() }
func (b *BiasedDiscrete) SubCategory() int { return b.inner.SubCategory() }
func (b *BiasedDiscrete) IsApplicable(sp *Species) bool { return b.inner.IsApplicable(sp) }

// MeanFreePath reports the biased mean free path. The analog value remains
// observable through the step's Candidate records (Raw) and through Unwrap.
func (b *BiasedDiscrete) MeanFreePath(tr *Track) (float64, ForceCondition) {
	mfp, cond := b.inner.MeanFreePath(tr)
	if mfp < Forever {
		mfp /= b.factor
	}
	return mfp, cond
}

// ApplyDiscrete applies the analog effect and folds the 1/Factor weight
// correction into its result.
func (b *BiasedDiscrete) ApplyDiscrete(tr *Track, step *Step) *EffectResult {
	res := b.inner.ApplyDiscrete(tr, step)
	if res == nil {
		res = NewEffectResult()
	}
	if res.WeightFactor == 0 {
		res.WeightFactor = 1
	}
	res.WeightFactor /= b.factor
	return res
}

// CloneForWorker clones the inner handler when it supports per-worker
// cloning, keeping the same factor.
func (b *BiasedDiscrete) CloneForWorker(workerID int) Handler {
	inner := b.inner
	if c, ok := inner.(WorkerCloneable); ok {
		if cloned, ok := c.CloneForWorker(workerID).(DiscreteHandler); ok {
			inner = cloned
		}
	}
	return &BiasedDiscrete{inner: inner, factor: b.factor}
}
