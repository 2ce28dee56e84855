package cmd

import "github.com/transport-sim/transport-sim/sim"

// DefaultPhysicsConfig is the built-in physics used when no --physics file
// is given: three species and the full handler roster, enough to exercise
// every lifecycle phase. Stable charged particles are killed at end of
// range; the muon stops and decays at rest.
func DefaultPhysicsConfig() *sim.PhysicsConfig {
	return &sim.PhysicsConfig{
		Species: []sim.SpeciesConfig{
			{Name: "proton", Charge: 1, Mass: 938.272},
			{Name: "electron", Charge: -1, Mass: 0.511},
			{Name: "muon", Charge: -1, Mass: 105.658, Lifetime: 50},
		},
		Handlers: []sim.HandlerConfig{
			{
				Name:    "ionisation",
				Type:    "ionisation",
				Species: []string{"proton", "electron"},
				Ranks:   sim.RanksConfig{Continuous: rank(100)},
				Params:  map[string]float64{"loss_rate": 0.5, "kill_at_zero": 1},
			},
			{
				Name:    "mu-ionisation",
				Type:    "ionisation",
				Species: []string{"muon"},
				Ranks:   sim.RanksConfig{Continuous: rank(100)},
				Params:  map[string]float64{"loss_rate": 0.5},
			},
			{
				Name:    "scattering",
				Type:    "scattering",
				Species: []string{"proton", "electron", "muon"},
				Ranks:   sim.RanksConfig{Discrete: rank(200)},
				Params:  map[string]float64{"mfp_per_mev": 2.0, "quantum": 0.1},
			},
			{
				Name:    "absorption",
				Type:    "absorption",
				Species: []string{"proton"},
				Ranks:   sim.RanksConfig{Discrete: rank(300)},
				Params:  map[string]float64{"mfp": 40},
			},
			{
				Name:    "decay",
				Type:    "decay",
				Species: []string{"muon"},
				Ranks:   sim.RanksConfig{AtRest: rank(100), Discrete: rank(400)},
			},
			{
				Name:    "transport",
				Type:    "transport",
				Species: []string{"proton", "electron", "muon"},
				Ranks:   sim.RanksConfig{Continuous: rank(sim.RankLast), Discrete: rank(sim.RankLast)},
			},
		},
	}
}

func rank(r int) *int {
	return &r
}
