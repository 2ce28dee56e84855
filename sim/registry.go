package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Ordering ranks. Lower runs first; ties break by insertion order.
const (
	// RankInactive marks a phase the handler does not participate in.
	RankInactive = -1
	// RankDefault is the conventional rank for handlers with no ordering
	// requirement.
	RankDefault = 1000
	// RankLast is the reserved "run absolutely last" rank. By convention at
	// most one handler per phase holds it legitimately (transport/boundary
	// handling); a second holder is a caller error and only logs a warning.
	RankLast = 9999
)

// Interceptor substitutes or adjusts a handler's effect result without
// altering its registration. result is what the handler returned (possibly
// nil); the returned value is applied in its place. This is the seam the
// variance-reduction layer uses to swap effect outcomes.
type Interceptor func(tr *Track, step *Step, phase Phase, result *EffectResult) *EffectResult

const (
	roleQuery = 0
	roleApply = 1
)

// entry is one registered handler with its per-phase ordering state.
type entry struct {
	handler Handler
	slot    int
	ranks   [numPhases]int
	stamps  [numPhases]int64
	active  bool
	forced  bool
	icept   Interceptor

	// capability views resolved once at registration
	atRest     AtRestHandler
	continuous ContinuousHandler
	discrete   DiscreteHandler
}

// Registry owns the ordered handler lists applicable to one particle
// species: a flat master list plus six derived sub-lists, one per
// {at-rest, continuous, discrete} × {query, apply}. All mutation happens in
// physics-setup code before tracking starts; the stepper only reads.
type Registry struct {
	species *Species
	table   *Table
	entries []*entry
	lists   [numPhases][2][]*entry
	stamp   int64
}

// NewRegistry creates the handler registry for a species and wires it as
// the species' registry. table may be nil (tests); when present, every
// AddHandler/Remove is mirrored into it.
func NewRegistry(sp *Species, table *Table) *Registry {
	r := &Registry{species: sp, table: table}
	if sp != nil {
		sp.registry = r
	}
	return r
}

// Species returns the species this registry belongs to.
func (r *Registry) Species() *Species {
	return r.species
}

// Size returns the number of registered handlers (master-list length).
func (r *Registry) Size() int {
	return len(r.entries)
}

// Handlers returns the master list in insertion order.
func (r *Registry) Handlers() []Handler {
	out := make([]Handler, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.handler
	}
	return out
}

// NewLengthStates allocates the per-track interaction-length states, one
// per master-list slot, all marked needs-resample.
func (r *Registry) NewLengthStates() []LengthState {
	return make([]LengthState, len(r.entries))
}

// AddHandler inserts a handler into the master list and into the sub-lists
// of every phase given a non-inactive rank. It returns the master-list
// slot. Errors are configuration errors: nil handler, handler not
// applicable to the species, or a non-inactive rank for a phase the
// handler's type does not implement.
func (r *Registry) AddHandler(h Handler, rankAtRest, rankContinuous, rankDiscrete int) (int, error) {
	if h == nil {
		return -1, configErrorf("AddHandler", "nil handler")
	}
	if r.species != nil && !h.IsApplicable(r.species) {
		return -1, configErrorf("AddHandler", "handler %q is not applicable to species %q", h.Name(), r.species.Name)
	}

	e := &entry{handler: h, active: true}
	e.atRest, _ = h.(AtRestHandler)
	e.continuous, _ = h.(ContinuousHandler)
	e.discrete, _ = h.(DiscreteHandler)

	ranks := [numPhases]int{rankAtRest, rankContinuous, rankDiscrete}
	for ph := Phase(0); ph < numPhases; ph++ {
		rank := ranks[ph]
		if rank == RankInactive {
			e.ranks[ph] = RankInactive
			continue
		}
		if rank < 0 {
			return -1, configErrorf("AddHandler", "handler %q: invalid %s rank %d", h.Name(), ph, rank)
		}
		if !e.implements(ph) {
			return -1, configErrorf("AddHandler", "handler %q has %s rank %d but does not implement the %s phase", h.Name(), ph, rank, ph)
		}
		e.ranks[ph] = rank
		e.stamps[ph] = r.nextStamp()
		r.warnDuplicateLast(ph, rank, h)
	}

	e.slot = len(r.entries)
	r.entries = append(r.entries, e)
	for ph := Phase(0); ph < numPhases; ph++ {
		if e.ranks[ph] != RankInactive {
			r.rebuildPhase(ph)
		}
	}
	if r.table != nil {
		r.table.Insert(h, r)
	}
	return e.slot, nil
}

// SetOrdering changes the handler's rank for one phase and re-sorts the
// phase's sub-lists. It fails if the handler was never added for that
// phase. Setting RankInactive withdraws the handler from the phase.
func (r *Registry) SetOrdering(h Handler, phase Phase, rank int) error {
	e, err := r.findFor("SetOrdering", h, phase)
	if err != nil {
		return err
	}
	if rank != RankInactive && rank < 0 {
		return configErrorf("SetOrdering", "handler %q: invalid %s rank %d", h.Name(), phase, rank)
	}
	r.warnDuplicateLast(phase, rank, h)
	e.ranks[phase] = rank
	e.stamps[phase] = r.nextStamp()
	r.rebuildPhase(phase)
	return nil
}

// SetOrderingFirst reorders the handler strictly before all current
// occupants of the phase.
//
// Footgun, preserved deliberately: repeated calls on different handlers
// invert previous designations — the most-recently-declared "first" wins.
func (r *Registry) SetOrderingFirst(h Handler, phase Phase) error {
	e, err := r.findFor("SetOrderingFirst", h, phase)
	if err != nil {
		return err
	}
	e.ranks[phase] = 0
	// Negative stamp sorts before every insertion stamp; a later call is
	// more negative and therefore earlier. Last call wins.
	e.stamps[phase] = -r.nextStamp()
	r.rebuildPhase(phase)
	return nil
}

// SetOrderingLast reorders the handler strictly after all current occupants
// of the phase by assigning RankLast. The same last-call-wins footgun as
// SetOrderingFirst applies among repeated "last" designations.
func (r *Registry) SetOrderingLast(h Handler, phase Phase) error {
	e, err := r.findFor("SetOrderingLast", h, phase)
	if err != nil {
		return err
	}
	r.warnDuplicateLast(phase, RankLast, h)
	e.ranks[phase] = RankLast
	e.stamps[phase] = r.nextStamp()
	r.rebuildPhase(phase)
	return nil
}

// SetActivation toggles the handler without removing it: inactive handlers
// are skipped by the stepper but keep their exact position and rank in all
// sub-lists, so reactivation is a perfect round trip.
func (r *Registry) SetActivation(h Handler, active bool) error {
	e := r.find(h)
	if e == nil {
		return fmt.Errorf("registry for %q: handler %w", r.speciesName(), ErrNotFound)
	}
	e.active = active
	return nil
}

// SetActivationIndex is SetActivation addressed by master-list slot.
func (r *Registry) SetActivationIndex(slot int, active bool) error {
	if slot < 0 || slot >= len(r.entries) {
		return fmt.Errorf("registry for %q: slot %d %w", r.speciesName(), slot, ErrNotFound)
	}
	r.entries[slot].active = active
	return nil
}

// IsActive reports the handler's activation flag.
func (r *Registry) IsActive(h Handler) (bool, error) {
	e := r.find(h)
	if e == nil {
		return false, fmt.Errorf("registry for %q: handler %w", r.speciesName(), ErrNotFound)
	}
	return e.active, nil
}

// SetForced marks the handler's discrete effect as unconditionally applied
// each step, independent of the ForceCondition its query returns. This is
// the hook the variance-reduction layer uses to guarantee an interaction.
func (r *Registry) SetForced(h Handler, forced bool) error {
	e := r.find(h)
	if e == nil {
		return fmt.Errorf("registry for %q: handler %w", r.speciesName(), ErrNotFound)
	}
	e.forced = forced
	return nil
}

// SetInterceptor installs (or clears, with nil) an effect-result
// interceptor for the handler.
func (r *Registry) SetInterceptor(h Handler, ic Interceptor) error {
	e := r.find(h)
	if e == nil {
		return fmt.Errorf("registry for %q: handler %w", r.speciesName(), ErrNotFound)
	}
	e.icept = ic
	return nil
}

// Remove excises the handler from the master list and all six sub-lists.
// The handler object itself is not destroyed. Master-list slots are
// renumbered; Remove belongs in setup code, never mid-tracking.
func (r *Registry) Remove(h Handler) error {
	e := r.find(h)
	if e == nil {
		return fmt.Errorf("registry for %q: handler %w", r.speciesName(), ErrNotFound)
	}
	return r.removeEntry(e)
}

// RemoveIndex is Remove addressed by master-list slot.
func (r *Registry) RemoveIndex(slot int) error {
	if slot < 0 || slot >= len(r.entries) {
		return fmt.Errorf("registry for %q: slot %d %w", r.speciesName(), slot, ErrNotFound)
	}
	return r.removeEntry(r.entries[slot])
}

// QueryOrder returns handler names in the phase's query order. Inactive
// handlers are included: activation does not reorder.
func (r *Registry) QueryOrder(phase Phase) []string {
	list := r.lists[phase][roleQuery]
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.handler.Name()
	}
	return out
}

// Rank returns the handler's rank for a phase.
func (r *Registry) Rank(h Handler, phase Phase) (int, error) {
	e := r.find(h)
	if e == nil {
		return RankInactive, fmt.Errorf("registry for %q: handler %w", r.speciesName(), ErrNotFound)
	}
	return e.ranks[phase], nil
}

// === internals ===

func (e *entry) implements(ph Phase) bool {
	switch ph {
	case PhaseAtRest:
		return e.atRest != nil
	case PhaseContinuous:
		return e.continuous != nil
	case PhaseDiscrete:
		return e.discrete != nil
	}
	return false
}

func (r *Registry) nextStamp() int64 {
	r.stamp++
	return r.stamp
}

func (r *Registry) speciesName() string {
	if r.species == nil {
		return "?"
	}
	return r.species.Name
}

func (r *Registry) find(h Handler) *entry {
	for _, e := range r.entries {
		if e.handler == h {
			return e
		}
	}
	return nil
}

func (r *Registry) findFor(op string, h Handler, phase Phase) (*entry, error) {
	if h == nil {
		return nil, configErrorf(op, "nil handler")
	}
	e := r.find(h)
	if e == nil {
		return nil, configErrorf(op, "handler %q was never added to the registry for %q", h.Name(), r.speciesName())
	}
	if e.ranks[phase] == RankInactive {
		return nil, configErrorf(op, "handler %q was never registered for the %s phase", h.Name(), phase)
	}
	return e, nil
}

func (r *Registry) warnDuplicateLast(phase Phase, rank int, h Handler) {
	if rank != RankLast {
		return
	}
	for _, e := range r.entries {
		if e.handler != h && e.ranks[phase] == RankLast {
			logrus.Warnf("registry for %q: both %q and %q hold the run-last %s rank; only one handler per phase may legitimately hold it",
				r.speciesName(), e.handler.Name(), h.Name(), phase)
		}
	}
}

// rebuildPhase rederives both of a phase's sub-lists from the master list.
// Query and apply order are kept identical; two lists exist so the apply
// side can diverge without touching callers.
func (r *Registry) rebuildPhase(ph Phase) {
	members := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.ranks[ph] != RankInactive {
			members = append(members, e)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].ranks[ph] != members[j].ranks[ph] {
			return members[i].ranks[ph] < members[j].ranks[ph]
		}
		return members[i].stamps[ph] < members[j].stamps[ph]
	})
	r.lists[ph][roleQuery] = members
	r.lists[ph][roleApply] = append([]*entry(nil), members...)
}

func (r *Registry) removeEntry(target *entry) error {
	idx := -1
	for i, e := range r.entries {
		if e == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("registry for %q: handler %w", r.speciesName(), ErrNotFound)
	}
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	for i, e := range r.entries {
		e.slot = i
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		r.rebuildPhase(ph)
	}
	if r.table != nil {
		r.table.Remove(target.handler, r)
	}
	return nil
}
