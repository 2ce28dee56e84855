package sim

import "math/rand"

// Shared fakes for registry/stepper/worker tests. All fakes count their
// apply invocations so tests can assert exactly which effects fired.

func newTestSpecies() *Species {
	return &Species{Name: "tester", Charge: -1, Mass: 1, Lifetime: Forever}
}

func testRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

type fakeDiscrete struct {
	name    string
	mfp     float64
	cond    ForceCondition
	applied int
	result  *EffectResult
}

func (f *fakeDiscrete) Name() string { return f.name }
func (f *fakeDiscrete) Category() Category { return CategoryUser }
func (f *fakeDiscrete) SubCategory() int { return 0 }
func (f *fakeDiscrete) IsApplicable(*Species) bool { return true }

func (f *fakeDiscrete) MeanFreePath(*Track) (float64, ForceCondition) {
	return f.mfp, f.cond
}

func (f *fakeDiscrete) ApplyDiscrete(*Track, *Step) *EffectResult {
	f.applied++
	return f.result
}

type fakeContinuous struct {
	name    string
	limit   float64
	applied int
	result  *EffectResult
}

func (f *fakeContinuous) Name() string { return f.name }
func (f *fakeContinuous) Category() Category { return CategoryUser }
func (f *fakeContinuous) SubCategory() int { return 0 }
func (f *fakeContinuous) IsApplicable(*Species) bool { return true }

func (f *fakeContinuous) StepLimit(_ *Track, _, _, safety float64) (float64, float64) {
	return f.limit, safety
}

func (f *fakeContinuous) ApplyContinuous(*Track, *Step) *EffectResult {
	f.applied++
	return f.result
}

type fakeAtRest struct {
	name     string
	lifetime float64
	applied  int
	result   *EffectResult
}

func (f *fakeAtRest) Name() string { return f.name }
func (f *fakeAtRest) Category() Category { return CategoryUser }
func (f *fakeAtRest) SubCategory() int { return 0 }
func (f *fakeAtRest) IsApplicable(*Species) bool { return true }

func (f *fakeAtRest) MeanLifetime(*Track) (float64, ForceCondition) {
	return f.lifetime, NotForced
}

func (f *fakeAtRest) ApplyAtRest(*Track, *Step) *EffectResult {
	f.applied++
	return f.result
}

// fakeMover is a continuous handler that advances the track position, a
// stand-in for the transport handler inside package sim tests.
type fakeMover struct {
	name string
}

func (f *fakeMover) Name() string { return f.name }
func (f *fakeMover) Category() Category { return CategoryTransport }
func (f *fakeMover) SubCategory() int { return 0 }
func (f *fakeMover) IsApplicable(*Species) bool { return true }

func (f *fakeMover) StepLimit(_ *Track, _, _, safety float64) (float64, float64) {
	return Forever, safety
}

func (f *fakeMover) ApplyContinuous(tr *Track, step *Step) *EffectResult {
	tr.Position += step.Length
	return nil
}

// fakeNavigator bounds the world at limit along the path.
type fakeNavigator struct {
	limit float64
}

func (n *fakeNavigator) DistanceToBoundary(tr *Track) (float64, float64) {
	d := n.limit - tr.Position
	if d < 0 {
		d = 0
	}
	return d, d
}

// primeStates gives the track deterministic interaction-length state: one
// mean free path remaining for every handler, with PreviousStep zero so the
// next query subtracts nothing. Each handler's first proposal is then
// exactly its mean free path.
func primeStates(tr *Track, reg *Registry) {
	tr.states = reg.NewLengthStates()
	for i := range tr.states {
		tr.states[i] = LengthState{NumberOfLengthsLeft: 1, InitialNumberOfLengths: 1, CurrentLength: 1}
	}
	tr.PreviousStep = 0
}
