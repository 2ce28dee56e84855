package sim

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics about a transport run for final reporting.
// Useful for evaluating handler configurations and debugging behavior over
// time. One Metrics instance per worker; Merge combines workers afterwards.
type Metrics struct {
	TracksTransported  int
	SecondariesCreated int
	TotalSteps         int
	EnergyDeposited    float64

	// InteractionCounts maps handler name to the number of times its
	// discrete or at-rest effect fired.
	InteractionCounts map[string]int
	// InteractionWeights maps handler name to the summed track weight at
	// fire time. Under variance reduction this is the statistically
	// meaningful count: a biased run conserves it.
	InteractionWeights map[string]float64

	// PathLengths holds the total path length of every finished track.
	PathLengths []float64
}

// NewMetrics creates an empty metrics sink.
func NewMetrics() *Metrics {
	return &Metrics{
		InteractionCounts:  make(map[string]int),
		InteractionWeights: make(map[string]float64),
	}
}

// RecordStep accounts one resolved step.
func (m *Metrics) RecordStep(step *Step) {
	m.TotalSteps++
	m.EnergyDeposited += step.EnergyDeposit
	m.SecondariesCreated += len(step.Secondaries)
}

// RecordFire accounts one discrete/at-rest effect application.
func (m *Metrics) RecordFire(handler string, weight float64) {
	m.InteractionCounts[handler]++
	m.InteractionWeights[handler] += weight
}

// RecordTrack accounts one finished track.
func (m *Metrics) RecordTrack(tr *Track) {
	m.TracksTransported++
	m.PathLengths = append(m.PathLengths, tr.Position)
}

// Merge folds other into m.
func (m *Metrics) Merge(other *Metrics) {
	m.TracksTransported += other.TracksTransported
	m.SecondariesCreated += other.SecondariesCreated
	m.TotalSteps += other.TotalSteps
	m.EnergyDeposited += other.EnergyDeposited
	for k, v := range other.InteractionCounts {
		m.InteractionCounts[k] += v
	}
	for k, v := range other.InteractionWeights {
		m.InteractionWeights[k] += v
	}
	m.PathLengths = append(m.PathLengths, other.PathLengths...)
}

// MeanPathLength returns the mean finished-track path length.
func (m *Metrics) MeanPathLength() float64 {
	if len(m.PathLengths) == 0 {
		return 0
	}
	return stat.Mean(m.PathLengths, nil)
}

// PathLengthQuantile returns the q-quantile (0..1) of finished-track path
// lengths.
func (m *Metrics) PathLengthQuantile(q float64) float64 {
	if len(m.PathLengths) == 0 {
		return 0
	}
	sorted := append([]float64(nil), m.PathLengths...)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

// Print displays aggregated metrics at the end of the run.
func (m *Metrics) Print() {
	fmt.Println("=== Transport Metrics ===")
	fmt.Printf("Tracks transported   : %d\n", m.TracksTransported)
	fmt.Printf("Secondaries created  : %d\n", m.SecondariesCreated)
	fmt.Printf("Total steps          : %d\n", m.TotalSteps)
	fmt.Printf("Energy deposited     : %.4f MeV\n", m.EnergyDeposited)
	if len(m.PathLengths) > 0 {
		fmt.Printf("Mean path length     : %.4f\n", m.MeanPathLength())
		fmt.Printf("P90 path length      : %.4f\n", m.PathLengthQuantile(0.9))
	}

	names := make([]string, 0, len(m.InteractionCounts))
	for name := range m.InteractionCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-18s : %d fires (weighted %.2f)\n",
			name, m.InteractionCounts[name], m.InteractionWeights[name])
	}
}
