// register.go wires the built-in handler constructors into the sim
// package's type registry (RegisterHandlerType). This init() runs when any
// package imports sim/handlers, breaking the import cycle between sim/
// (interface owner) and sim/handlers/ (implementations). Production code
// imports sim/handlers directly; sim package tests construct handlers
// in-package and never need the registry.
package handlers

import "github.com/transport-sim/transport-sim/sim"

func init() {
	sim.RegisterHandlerType("ionisation", func(name string, params map[string]float64) (sim.Handler, error) {
		return NewIonisation(name, params), nil
	})
	sim.RegisterHandlerType("scattering", func(name string, params map[string]float64) (sim.Handler, error) {
		return NewScattering(name, params), nil
	})
	sim.RegisterHandlerType("absorption", func(name string, params map[string]float64) (sim.Handler, error) {
		return NewAbsorption(name, params), nil
	})
	sim.RegisterHandlerType("decay", func(name string, params map[string]float64) (sim.Handler, error) {
		return NewDecay(name, params), nil
	})
	sim.RegisterHandlerType("transport", func(name string, params map[string]float64) (sim.Handler, error) {
		return NewTransport(name, params), nil
	})
}

// param reads a configuration parameter with a default.
func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
