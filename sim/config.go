package sim

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// HandlerConstructor builds a handler instance from configuration
// parameters. Implementations live in sub-packages (sim/handlers) and
// register themselves via RegisterHandlerType from an init() function.
type HandlerConstructor func(name string, params map[string]float64) (Handler, error)

var handlerTypes = map[string]HandlerConstructor{}

// RegisterHandlerType registers a constructor under a type name. Called
// from init(); registering the same type twice panics.
func RegisterHandlerType(typ string, ctor HandlerConstructor) {
	if _, ok := handlerTypes[typ]; ok {
		panic(fmt.Sprintf("handler type %q registered twice", typ))
	}
	handlerTypes[typ] = ctor
}

// NewHandlerOfType builds a handler by registered type name.
func NewHandlerOfType(typ, name string, params map[string]float64) (Handler, error) {
	ctor, ok := handlerTypes[typ]
	if !ok {
		return nil, configErrorf("NewHandlerOfType", "unknown handler type %q (known: %v)", typ, HandlerTypeNames())
	}
	return ctor(name, params)
}

// HandlerTypeNames returns the registered type names, sorted.
func HandlerTypeNames() []string {
	names := make([]string, 0, len(handlerTypes))
	for name := range handlerTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SpeciesConfig declares one particle species.
type SpeciesConfig struct {
	Name     string  `yaml:"name"`
	Charge   float64 `yaml:"charge"`
	Mass     float64 `yaml:"mass"`     // MeV
	Lifetime float64 `yaml:"lifetime"` // mean proper lifetime; <= 0 means stable
}

// RanksConfig declares per-phase ordering ranks. A nil field means the
// handler does not participate in that phase (RankInactive); 0 is a valid
// "run first" rank, which is why these are pointers.
type RanksConfig struct {
	AtRest     *int `yaml:"at_rest"`
	Continuous *int `yaml:"continuous"`
	Discrete   *int `yaml:"discrete"`
}

func (r RanksConfig) resolve() (int, int, int) {
	pick := func(p *int) int {
		if p == nil {
			return RankInactive
		}
		return *p
	}
	return pick(r.AtRest), pick(r.Continuous), pick(r.Discrete)
}

// HandlerConfig declares one handler binding.
type HandlerConfig struct {
	Name    string             `yaml:"name"`
	Type    string             `yaml:"type"`
	Species []string           `yaml:"species"`
	Ranks   RanksConfig        `yaml:"ranks"`
	Params  map[string]float64 `yaml:"params,omitempty"`
	Forced  bool               `yaml:"forced,omitempty"`
	// BiasFactor, when set and != 1, wraps the handler in occurrence
	// biasing (BiasedDiscrete) with that interaction-rate factor.
	BiasFactor float64 `yaml:"bias_factor,omitempty"`
}

// PhysicsConfig is the top-level physics configuration, loaded from YAML
// via LoadPhysicsConfig(path).
type PhysicsConfig struct {
	Species  []SpeciesConfig `yaml:"species"`
	Handlers []HandlerConfig `yaml:"handlers"`
	// InteractionLengthFactor is the global biasing factor (0 means 1.0).
	InteractionLengthFactor float64 `yaml:"interaction_length_factor,omitempty"`
	MaxSteps                int     `yaml:"max_steps,omitempty"`
}

// LoadPhysicsConfig reads and parses a YAML physics configuration.
func LoadPhysicsConfig(path string) (*PhysicsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read physics config: %w", err)
	}
	var cfg PhysicsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse physics config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration without building anything. All findings
// are configuration errors; the first one is returned.
func (c *PhysicsConfig) Validate() error {
	if len(c.Species) == 0 {
		return configErrorf("Validate", "no species defined")
	}
	speciesNames := make(map[string]bool, len(c.Species))
	for _, sp := range c.Species {
		if sp.Name == "" {
			return configErrorf("Validate", "species with empty name")
		}
		if speciesNames[sp.Name] {
			return configErrorf("Validate", "species %q defined twice", sp.Name)
		}
		speciesNames[sp.Name] = true
	}

	handlerNames := make(map[string]bool, len(c.Handlers))
	for _, h := range c.Handlers {
		if h.Name == "" {
			return configErrorf("Validate", "handler with empty name")
		}
		if handlerNames[h.Name] {
			return configErrorf("Validate", "handler %q defined twice", h.Name)
		}
		handlerNames[h.Name] = true
		if _, ok := handlerTypes[h.Type]; !ok {
			return configErrorf("Validate", "handler %q has unknown type %q (known: %v)", h.Name, h.Type, HandlerTypeNames())
		}
		if len(h.Species) == 0 {
			return configErrorf("Validate", "handler %q bound to no species", h.Name)
		}
		for _, name := range h.Species {
			if !speciesNames[name] {
				return configErrorf("Validate", "handler %q bound to unknown species %q", h.Name, name)
			}
		}
		rAt, rCont, rDisc := h.Ranks.resolve()
		if rAt == RankInactive && rCont == RankInactive && rDisc == RankInactive {
			return configErrorf("Validate", "handler %q participates in no phase", h.Name)
		}
		if h.BiasFactor < 0 {
			return configErrorf("Validate", "handler %q has negative bias factor %v", h.Name, h.BiasFactor)
		}
	}

	if c.InteractionLengthFactor < 0 {
		return configErrorf("Validate", "negative interaction length factor %v", c.InteractionLengthFactor)
	}
	return nil
}

// BuildSetup validates the configuration and materializes a Setup: species
// prototypes, handler instances built through the type registry, biasing
// wraps, forced flags, and the global factor.
func (c *PhysicsConfig) BuildSetup() (*Setup, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	setup := NewSetup()

	for _, spc := range c.Species {
		lifetime := spc.Lifetime
		if lifetime <= 0 {
			lifetime = Forever
		}
		if err := setup.AddSpecies(&Species{Name: spc.Name, Charge: spc.Charge, Mass: spc.Mass, Lifetime: lifetime}); err != nil {
			return nil, err
		}
	}

	for _, hc := range c.Handlers {
		h, err := NewHandlerOfType(hc.Type, hc.Name, hc.Params)
		if err != nil {
			return nil, fmt.Errorf("handler %q: %w", hc.Name, err)
		}
		if hc.BiasFactor != 0 && hc.BiasFactor != 1 {
			dh, ok := h.(DiscreteHandler)
			if !ok {
				return nil, configErrorf("BuildSetup", "handler %q has a bias factor but is not discrete", hc.Name)
			}
			if h, err = NewBiasedDiscrete(dh, hc.BiasFactor); err != nil {
				return nil, err
			}
		}
		rAt, rCont, rDisc := hc.Ranks.resolve()
		if err := setup.AddHandler(h, hc.Species, rAt, rCont, rDisc); err != nil {
			return nil, err
		}
		if hc.Forced {
			setup.SetForced(hc.Name, true)
		}
	}

	if c.InteractionLengthFactor > 0 {
		if err := setup.SetInteractionLengthFactor(c.InteractionLengthFactor); err != nil {
			return nil, err
		}
	}
	if c.MaxSteps > 0 {
		setup.SetMaxSteps(c.MaxSteps)
	}
	return setup, nil
}
