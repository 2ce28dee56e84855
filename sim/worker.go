package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultMaxSteps caps the number of steps per track before the worker
// gives up and reports the track as runaway.
const DefaultMaxSteps = 100000

// handlerBinding defers handler registration until workers are built, so
// one Setup can produce any number of independent workers.
type handlerBinding struct {
	handler Handler
	species []string
	ranks   [numPhases]int
}

// Setup is the master description of a run: species, handler bindings, and
// the interaction-length factor. Expensive handler internals are built once
// on the master instances; BuildWorker attaches per-worker clones sharing
// those internals read-only (WorkerCloneable).
type Setup struct {
	speciesOrder []string
	species      map[string]*Species
	bindings     []handlerBinding
	forced       map[string]bool
	factor       float64
	maxSteps     int
	navFactory   func(workerID int) Navigator
}

// NewSetup creates an empty Setup with factor 1.
func NewSetup() *Setup {
	return &Setup{
		species:  make(map[string]*Species),
		forced:   make(map[string]bool),
		factor:   1,
		maxSteps: DefaultMaxSteps,
	}
}

// AddSpecies registers a species prototype. Duplicate names are
// configuration errors.
func (s *Setup) AddSpecies(sp *Species) error {
	if sp == nil || sp.Name == "" {
		return configErrorf("AddSpecies", "nil or unnamed species")
	}
	if _, ok := s.species[sp.Name]; ok {
		return configErrorf("AddSpecies", "species %q already defined", sp.Name)
	}
	s.species[sp.Name] = sp
	s.speciesOrder = append(s.speciesOrder, sp.Name)
	return nil
}

// AddHandler binds a master handler instance to one or more species with
// per-phase ranks. The binding is validated here; registration into
// per-worker registries happens in BuildWorker.
func (s *Setup) AddHandler(h Handler, species []string, rankAtRest, rankContinuous, rankDiscrete int) error {
	if h == nil {
		return configErrorf("AddHandler", "nil handler")
	}
	if len(species) == 0 {
		return configErrorf("AddHandler", "handler %q bound to no species", h.Name())
	}
	for _, name := range species {
		sp, ok := s.species[name]
		if !ok {
			return configErrorf("AddHandler", "handler %q bound to unknown species %q", h.Name(), name)
		}
		if !h.IsApplicable(sp) {
			return configErrorf("AddHandler", "handler %q is not applicable to species %q", h.Name(), name)
		}
	}
	s.bindings = append(s.bindings, handlerBinding{
		handler: h,
		species: append([]string(nil), species...),
		ranks:   [numPhases]int{rankAtRest, rankContinuous, rankDiscrete},
	})
	return nil
}

// SetForced marks the named handler as unconditionally applied each step in
// every registry it is bound to.
func (s *Setup) SetForced(handlerName string, forced bool) {
	s.forced[handlerName] = forced
}

// SetInteractionLengthFactor sets the global biasing factor for all workers.
func (s *Setup) SetInteractionLengthFactor(f float64) error {
	if f <= 0 {
		return configErrorf("SetInteractionLengthFactor", "factor must be positive, got %v", f)
	}
	s.factor = f
	return nil
}

// SetMaxSteps overrides the per-track step cap.
func (s *Setup) SetMaxSteps(n int) {
	if n > 0 {
		s.maxSteps = n
	}
}

// SetNavigatorFactory installs a per-worker Navigator constructor. Without
// one, workers run geometry-free (UnboundedNavigator).
func (s *Setup) SetNavigatorFactory(f func(workerID int) Navigator) {
	s.navFactory = f
}

// BuildWorker constructs an independent per-worker context: cloned species,
// fresh registries and global table, per-worker handler clones, and an
// isolated RNG stream derived from key and the worker id. Workers built
// from the same Setup share only the read-only handler internals.
func (s *Setup) BuildWorker(id int, key SimulationKey) (*Worker, error) {
	table := NewTable()
	w := &Worker{
		ID:          id,
		Table:       table,
		Metrics:     NewMetrics(),
		MaxSteps:    s.maxSteps,
		species:     make(map[string]*Species, len(s.species)),
		registries:  make(map[string]*Registry, len(s.species)),
		rng:         NewPartitionedRNG(key),
		nextTrackID: 1,
	}

	for _, name := range s.speciesOrder {
		proto := s.species[name]
		sp := &Species{Name: proto.Name, Charge: proto.Charge, Mass: proto.Mass, Lifetime: proto.Lifetime}
		w.species[name] = sp
		w.registries[name] = NewRegistry(sp, table)
	}

	for _, b := range s.bindings {
		h := b.handler
		if c, ok := h.(WorkerCloneable); ok {
			h = c.CloneForWorker(id)
		}
		for _, name := range b.species {
			reg := w.registries[name]
			if _, err := reg.AddHandler(h, b.ranks[PhaseAtRest], b.ranks[PhaseContinuous], b.ranks[PhaseDiscrete]); err != nil {
				return nil, fmt.Errorf("building worker %d: %w", id, err)
			}
			if s.forced[h.Name()] {
				if err := reg.SetForced(h, true); err != nil {
					return nil, fmt.Errorf("building worker %d: %w", id, err)
				}
			}
		}
	}

	var nav Navigator
	if s.navFactory != nil {
		nav = s.navFactory(id)
	}
	w.Stepper = NewStepper(nav, w.rng.ForSubsystem(SubsystemWorker(id)))
	if err := w.Stepper.SetInteractionLengthFactor(s.factor); err != nil {
		return nil, fmt.Errorf("building worker %d: %w", id, err)
	}
	w.Stepper.SetMetrics(w.Metrics)

	logrus.Debugf("worker %d built: %d species, %d handlers", id, len(w.species), table.Len())
	return w, nil
}

// Worker is one track-processing context. Tracks are never shared between
// workers, so nothing here needs locking.
type Worker struct {
	ID       int
	Table    *Table
	Stepper  *Stepper
	Metrics  *Metrics
	MaxSteps int

	species     map[string]*Species
	registries  map[string]*Registry
	rng         *PartitionedRNG
	nextTrackID int
}

// Species returns the worker's instance of the named species.
func (w *Worker) Species(name string) (*Species, error) {
	sp, ok := w.species[name]
	if !ok {
		return nil, fmt.Errorf("worker %d: species %q %w", w.ID, name, ErrNotFound)
	}
	return sp, nil
}

// Registry returns the worker's registry for the named species.
func (w *Worker) Registry(name string) (*Registry, error) {
	reg, ok := w.registries[name]
	if !ok {
		return nil, fmt.Errorf("worker %d: species %q %w", w.ID, name, ErrNotFound)
	}
	return reg, nil
}

// RNG exposes the worker's partitioned RNG (primary generation draws from
// SubsystemSource; the stepper owns the sampling stream).
func (w *Worker) RNG() *PartitionedRNG {
	return w.rng
}

// NewTrack creates a primary track of the named species.
func (w *Worker) NewTrack(species string, kineticEnergy float64) (*Track, error) {
	sp, err := w.Species(species)
	if err != nil {
		return nil, err
	}
	tr := NewTrack(w.nextTrackID, sp, kineticEnergy)
	w.nextTrackID++
	return tr, nil
}

// Transport steps the primary until it dies, then its secondaries
// depth-first. Fatal stepping errors (configuration, numerical invalidity,
// stuck tracks) abort immediately with full track context.
func (w *Worker) Transport(primary *Track) error {
	if primary == nil {
		return configErrorf("Transport", "nil track")
	}
	stack := []*Track{primary}
	for len(stack) > 0 {
		tr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		sp, err := w.Species(tr.Species.Name)
		if err != nil {
			return err
		}
		tr.Species = sp
		reg := sp.registry

		for tr.Status != TrackDead {
			if tr.stepCount >= w.MaxSteps {
				return fmt.Errorf("track %d (%s) exceeded %d steps at position %g",
					tr.ID, sp.Name, w.MaxSteps, tr.Position)
			}
			step, err := w.Stepper.Step(tr, reg)
			if err != nil {
				return err
			}
			for _, sec := range step.Secondaries {
				sec.ID = w.nextTrackID
				w.nextTrackID++
				sec.Weight *= tr.Weight
				stack = append(stack, sec)
			}
		}
		w.Metrics.RecordTrack(tr)
	}
	return nil
}
