package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// splitterDiscrete kills the parent and emits one same-species secondary at
// half energy, until the energy drops below threshold. A 4 MeV primary
// therefore yields a chain of exactly three tracks.
type splitterDiscrete struct {
	fakeDiscrete
	threshold float64
}

func (s *splitterDiscrete) ApplyDiscrete(tr *Track, step *Step) *EffectResult {
	s.applied++
	res := NewEffectResult()
	res.Status = TrackDead
	if tr.KineticEnergy >= s.threshold {
		res.Secondaries = append(res.Secondaries, NewTrack(0, tr.Species, tr.KineticEnergy/2))
	}
	return res
}

func TestSetup_Errors(t *testing.T) {
	s := NewSetup()
	require.NoError(t, s.AddSpecies(&Species{Name: "proton", Charge: 1, Mass: 938, Lifetime: Forever}))

	var cfgErr *ConfigError

	err := s.AddSpecies(&Species{Name: "proton"})
	require.ErrorAs(t, err, &cfgErr)
	err = s.AddSpecies(nil)
	require.ErrorAs(t, err, &cfgErr)

	err = s.AddHandler(nil, []string{"proton"}, RankInactive, RankInactive, 100)
	require.ErrorAs(t, err, &cfgErr)
	err = s.AddHandler(&fakeDiscrete{name: "d", mfp: 1}, nil, RankInactive, RankInactive, 100)
	require.ErrorAs(t, err, &cfgErr)
	err = s.AddHandler(&fakeDiscrete{name: "d", mfp: 1}, []string{"neutron"}, RankInactive, RankInactive, 100)
	require.ErrorAs(t, err, &cfgErr)

	neutral := &chargedOnlyDiscrete{fakeDiscrete{name: "needs-charge", mfp: 1}}
	require.NoError(t, s.AddSpecies(&Species{Name: "photon", Charge: 0, Mass: 0, Lifetime: Forever}))
	err = s.AddHandler(neutral, []string{"photon"}, RankInactive, RankInactive, 100)
	require.ErrorAs(t, err, &cfgErr)

	assert.Error(t, s.SetInteractionLengthFactor(0))
}

func newWorkerSetup(t *testing.T, h DiscreteHandler) *Setup {
	t.Helper()
	s := NewSetup()
	require.NoError(t, s.AddSpecies(&Species{Name: "tester", Charge: -1, Mass: 1, Lifetime: Forever}))
	require.NoError(t, s.AddHandler(&fakeMover{name: "mover"}, []string{"tester"}, RankInactive, RankDefault, RankInactive))
	require.NoError(t, s.AddHandler(h, []string{"tester"}, RankInactive, RankInactive, RankDefault))
	return s
}

func TestWorker_IndependentContexts(t *testing.T) {
	s := newWorkerSetup(t, &killerDiscrete{fakeDiscrete{name: "kill", mfp: 10}})

	w0, err := s.BuildWorker(0, NewSimulationKey(42))
	require.NoError(t, err)
	w1, err := s.BuildWorker(1, NewSimulationKey(42))
	require.NoError(t, err)

	sp0, err := w0.Species("tester")
	require.NoError(t, err)
	sp1, err := w1.Species("tester")
	require.NoError(t, err)
	assert.NotSame(t, sp0, sp1, "each worker owns its species instance")

	reg0, err := w0.Registry("tester")
	require.NoError(t, err)
	assert.Same(t, sp0.Registry(), reg0)
	assert.Equal(t, 2, reg0.Size())

	_, err = w0.Species("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = w0.Registry("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorker_SameKeySameResults(t *testing.T) {
	run := func() []float64 {
		s := newWorkerSetup(t, &killerDiscrete{fakeDiscrete{name: "kill", mfp: 10}})
		w, err := s.BuildWorker(0, NewSimulationKey(42))
		require.NoError(t, err)

		out := make([]float64, 0, 20)
		for i := 0; i < 20; i++ {
			tr, err := w.NewTrack("tester", 1)
			require.NoError(t, err)
			require.NoError(t, w.Transport(tr))
			out = append(out, tr.Position)
		}
		return out
	}

	assert.Equal(t, run(), run(), "same key and id must reproduce bit-for-bit")
}

func TestWorker_DistinctWorkersDrawDistinctStreams(t *testing.T) {
	s := newWorkerSetup(t, &killerDiscrete{fakeDiscrete{name: "kill", mfp: 10}})

	positions := func(id int) []float64 {
		w, err := s.BuildWorker(id, NewSimulationKey(42))
		require.NoError(t, err)
		out := make([]float64, 0, 10)
		for i := 0; i < 10; i++ {
			tr, err := w.NewTrack("tester", 1)
			require.NoError(t, err)
			require.NoError(t, w.Transport(tr))
			out = append(out, tr.Position)
		}
		return out
	}

	assert.NotEqual(t, positions(0), positions(1))
}

func TestWorker_CloneableHandlersAreCloned(t *testing.T) {
	master := &cloneableDiscrete{fakeDiscrete: fakeDiscrete{name: "cl", mfp: 10}}
	s := newWorkerSetup(t, master)

	_, err := s.BuildWorker(0, NewSimulationKey(1))
	require.NoError(t, err)
	_, err = s.BuildWorker(1, NewSimulationKey(1))
	require.NoError(t, err)

	assert.Equal(t, 2, master.cloned, "one clone per worker, master untouched")
	assert.Zero(t, master.applied)
}

func TestWorker_TransportsSecondaries(t *testing.T) {
	split := &splitterDiscrete{fakeDiscrete: fakeDiscrete{name: "split", mfp: 10}, threshold: 2}
	s := newWorkerSetup(t, split)
	w, err := s.BuildWorker(0, NewSimulationKey(7))
	require.NoError(t, err)

	tr, err := w.NewTrack("tester", 4)
	require.NoError(t, err)
	require.NoError(t, w.Transport(tr))

	assert.Equal(t, 3, w.Metrics.TracksTransported)
	assert.Equal(t, 2, w.Metrics.SecondariesCreated)
	assert.Equal(t, 3, split.applied)
	assert.Equal(t, 3, w.Metrics.InteractionCounts["split"])
	assert.Len(t, w.Metrics.PathLengths, 3)
}

func TestWorker_SecondariesInheritWeight(t *testing.T) {
	split := &splitterDiscrete{fakeDiscrete: fakeDiscrete{name: "split", mfp: 10}, threshold: 2}
	biased, err := NewBiasedDiscrete(split, 2)
	require.NoError(t, err)
	s := newWorkerSetup(t, biased)
	w, err := s.BuildWorker(0, NewSimulationKey(7))
	require.NoError(t, err)

	tr, err := w.NewTrack("tester", 4)
	require.NoError(t, err)
	require.NoError(t, w.Transport(tr))

	// Each generation halves the weight, and the child starts from the
	// parent's post-interaction weight: 0.5, then 0.25, then 0.125 recorded
	// at fire time.
	assert.InDelta(t, 0.5+0.25+0.125, w.Metrics.InteractionWeights["split"], 1e-12)
}

func TestWorker_ForcedByName(t *testing.T) {
	d := &fakeDiscrete{name: "rare", mfp: 1e6}
	s := NewSetup()
	require.NoError(t, s.AddSpecies(&Species{Name: "tester", Charge: -1, Mass: 1, Lifetime: Forever}))
	// The forced handler ranks ahead of the killer: effects apply in
	// registry order and nothing fires on a track already killed this step.
	require.NoError(t, s.AddHandler(d, []string{"tester"}, RankInactive, RankInactive, 100))
	require.NoError(t, s.AddHandler(&killerDiscrete{fakeDiscrete{name: "kill", mfp: 10}}, []string{"tester"}, RankInactive, RankInactive, 200))
	s.SetForced("rare", true)

	w, err := s.BuildWorker(0, NewSimulationKey(9))
	require.NoError(t, err)
	tr, err := w.NewTrack("tester", 1)
	require.NoError(t, err)
	require.NoError(t, w.Transport(tr))

	assert.GreaterOrEqual(t, d.applied, 1, "forced handler fires on every step despite its huge mean free path")
	assert.Equal(t, d.applied, w.Metrics.InteractionCounts["rare"])
}

func TestWorker_MaxStepsGuard(t *testing.T) {
	// A scatterer that never kills: the track lives forever and the step cap
	// must trip.
	s := newWorkerSetup(t, &fakeDiscrete{name: "scatter", mfp: 1})
	s.SetMaxSteps(25)

	w, err := s.BuildWorker(0, NewSimulationKey(3))
	require.NoError(t, err)
	tr, err := w.NewTrack("tester", 1)
	require.NoError(t, err)

	err = w.Transport(tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded 25 steps")
}

func TestWorker_FactorPropagates(t *testing.T) {
	s := newWorkerSetup(t, &killerDiscrete{fakeDiscrete{name: "kill", mfp: 10}})
	require.NoError(t, s.SetInteractionLengthFactor(3))

	w, err := s.BuildWorker(0, NewSimulationKey(5))
	require.NoError(t, err)
	assert.Equal(t, 3.0, w.Stepper.InteractionLengthFactor())
}

func TestWorker_TransportNilTrack(t *testing.T) {
	s := newWorkerSetup(t, &killerDiscrete{fakeDiscrete{name: "kill", mfp: 10}})
	w, err := s.BuildWorker(0, NewSimulationKey(5))
	require.NoError(t, err)
	assert.Error(t, w.Transport(nil))
}
