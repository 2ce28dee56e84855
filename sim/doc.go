// Package sim provides the interaction-scheduling core for a discrete-event
// particle-transport simulator.
//
// # Reading Guide
//
// Start with these three files to understand the scheduling kernel:
//   - handler.go: the interaction-handler contract (at-rest, continuous, discrete)
//   - registry.go: per-species ordered handler lists and ranks
//   - stepper.go: the per-step resolution protocol (query, pick minimum, apply)
//
// # Architecture
//
// The sim package defines interfaces and the stepping kernel; concrete
// handlers live in sub-packages:
//   - sim/handlers/: built-in handlers (ionisation, scattering, absorption, decay, transport)
//
// Sub-packages register their constructors via init() functions through
// RegisterHandlerType, so config-driven setup can build handlers by type name.
//
// # Key Interfaces
//
// The extension points are small interfaces:
//   - Handler: identity and applicability of an interaction handler
//   - AtRestHandler, ContinuousHandler, DiscreteHandler: the lifecycle phases
//     a handler participates in (implement only the ones that apply)
//   - Navigator: opaque geometry collaborator supplying boundary distances
//   - WorkerCloneable: master/worker sharing of read-only handler tables
//
// A Setup describes species and handler bindings once; BuildWorker produces
// an independent per-worker context (registries, global table, RNG, stepper)
// so the stepping loop never touches shared mutable state.
package sim
