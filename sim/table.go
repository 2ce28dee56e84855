package sim

import "fmt"

// Selector addresses handlers for bulk table operations. Zero values widen
// the match: empty Name matches any name, CategoryAny any category, empty
// Species all species.
type Selector struct {
	Name     string
	Category Category
	Species  string
}

// AnySelector matches every handler in every registry.
func AnySelector() Selector {
	return Selector{Category: CategoryAny}
}

// Table is the per-worker global handler index: every handler instance
// mapped to the set of registries that reference it, plus a name index.
// It serves out-of-band lookup and bulk activation only — the stepping hot
// path always goes through the per-species Registry directly.
type Table struct {
	refs  map[Handler]map[*Registry]struct{}
	order []Handler // insertion order, for deterministic iteration
}

// NewTable creates an empty handler table.
func NewTable() *Table {
	return &Table{refs: make(map[Handler]map[*Registry]struct{})}
}

// Len returns the number of distinct handlers in the table.
func (t *Table) Len() int {
	return len(t.refs)
}

// Insert records that registry references handler. The first occurrence
// creates the table entry; later occurrences only grow its reference set.
func (t *Table) Insert(h Handler, r *Registry) {
	if h == nil || r == nil {
		return
	}
	set, ok := t.refs[h]
	if !ok {
		set = make(map[*Registry]struct{})
		t.refs[h] = set
		t.order = append(t.order, h)
	}
	set[r] = struct{}{}
}

// Remove drops registry's reference to handler and deletes the entry (not
// the handler) once no registry references it.
func (t *Table) Remove(h Handler, r *Registry) {
	set, ok := t.refs[h]
	if !ok {
		return
	}
	delete(set, r)
	if len(set) > 0 {
		return
	}
	delete(t.refs, h)
	for i, other := range t.order {
		if other == h {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Registries returns the registries referencing handler, in no guaranteed
// order. The caller owns the returned slice.
func (t *Table) Registries(h Handler) []*Registry {
	set := t.refs[h]
	out := make([]*Registry, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	return out
}

// FindByName returns the handler with the given name registered for the
// species (empty species matches any). A miss is an ordinary ErrNotFound,
// never fatal: callers probe optimistically.
func (t *Table) FindByName(name, species string) (Handler, error) {
	for _, h := range t.order {
		if h.Name() != name {
			continue
		}
		if species == "" || t.referencedBySpecies(h, species) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("handler %q for species %q: %w", name, species, ErrNotFound)
}

// FindAllOfName returns every handler instance carrying the name. The
// caller owns the returned slice; empty means no match.
func (t *Table) FindAllOfName(name string) []Handler {
	var out []Handler
	for _, h := range t.order {
		if h.Name() == name {
			out = append(out, h)
		}
	}
	return out
}

// FindByCategory returns every handler of the category registered for the
// species (empty species matches any).
func (t *Table) FindByCategory(cat Category, species string) []Handler {
	var out []Handler
	for _, h := range t.order {
		if cat != CategoryAny && h.Category() != cat {
			continue
		}
		if species == "" || t.referencedBySpecies(h, species) {
			out = append(out, h)
		}
	}
	return out
}

// SetActivation fans the activation flag out to every matching handler in
// every matching registry and returns the number of (handler, registry)
// pairs toggled. Zero matches is not an error.
func (t *Table) SetActivation(sel Selector, active bool) int {
	n := 0
	for _, h := range t.order {
		if sel.Name != "" && h.Name() != sel.Name {
			continue
		}
		if sel.Category != CategoryAny && sel.Category != CategoryNotDefined && h.Category() != sel.Category {
			continue
		}
		for r := range t.refs[h] {
			if sel.Species != "" && r.speciesName() != sel.Species {
				continue
			}
			if err := r.SetActivation(h, active); err == nil {
				n++
			}
		}
	}
	return n
}

func (t *Table) referencedBySpecies(h Handler, species string) bool {
	for r := range t.refs[h] {
		if r.speciesName() == species {
			return true
		}
	}
	return false
}
