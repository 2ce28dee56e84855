package sim

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by table and registry lookups that miss.
// Lookup misses are ordinary return values, not failures: callers probe
// optimistically (errors.Is(err, ErrNotFound)).
var ErrNotFound = errors.New("not found")

// ConfigError reports a setup-time programmer error: adding a nil handler,
// reordering a handler never registered for a phase, binding a handler to a
// species it is not applicable to. Configuration errors abort setup loudly.
type ConfigError struct {
	Op  string // operation that failed, e.g. "AddHandler"
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Op, e.Msg)
}

func configErrorf(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NumericalError reports an invalid quantity returned by a handler query
// (negative, NaN, or zero length/time). It indicates a broken physical
// model and is fatal during stepping; the protocol boundary never clamps.
type NumericalError struct {
	Handler  string
	Quantity string // e.g. "mean free path", "step limit"
	Value    float64
	TrackID  int
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("handler %q returned invalid %s %v for track %d",
		e.Handler, e.Quantity, e.Value, e.TrackID)
}

// StuckTrackError reports a step with no limit from any handler, boundary,
// or user constraint. The track cannot advance; the run cannot proceed.
type StuckTrackError struct {
	TrackID  int
	Species  string
	Position float64
	AtRest   bool
}

func (e *StuckTrackError) Error() string {
	state := "in flight"
	if e.AtRest {
		state = "at rest"
	}
	return fmt.Sprintf("track %d (%s, %s) at position %g has no step limit: no eligible handler, boundary, or user limit",
		e.TrackID, e.Species, state, e.Position)
}
