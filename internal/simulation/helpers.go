package simulation

import (
	"testing"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/neuron"
	"github.com/nvandessel/pulse/internal/spike"
)

// EdgeSpec is a flat builder for seeding connections in tests.
type EdgeSpec struct {
	Source spike.NeuronID
	Target spike.NeuronID
	Weight float32
	Delay  spike.Duration
}

// GraphStore builds an adjacency-list store from edge specs.
func GraphStore(t *testing.T, edges ...EdgeSpec) *connectivity.GraphStore {
	t.Helper()
	store := connectivity.NewGraphStore()
	for _, e := range edges {
		edge := connectivity.NewEdge(e.Source, e.Target, e.Weight)
		edge.Delay = e.Delay
		if err := store.AddEdge(edge); err != nil {
			t.Fatalf("GraphStore: add edge %d->%d: %v", e.Source, e.Target, err)
		}
	}
	return store
}

// DenseStore builds a dense matrix store with the given capacity from
// edge specs. Nodes are registered densely from zero.
func DenseStore(t *testing.T, capacity int, edges ...EdgeSpec) *connectivity.DenseMatrixStore {
	t.Helper()
	store := connectivity.NewDenseMatrixStore(capacity)
	for i := 0; i < capacity; i++ {
		if _, err := store.AddNode(spike.NeuronID(i)); err != nil {
			t.Fatalf("DenseStore: add node %d: %v", i, err)
		}
	}
	for _, e := range edges {
		if err := store.SetWeight(e.Source, e.Target, e.Weight); err != nil {
			t.Fatalf("DenseStore: set weight %d->%d: %v", e.Source, e.Target, err)
		}
	}
	return store
}

// SparseStore builds a sparse matrix store sized for capacity neurons
// from edge specs. Nodes are registered densely from zero.
func SparseStore(t *testing.T, capacity int, edges ...EdgeSpec) *connectivity.SparseMatrixStore {
	t.Helper()
	store := connectivity.NewSparseMatrixStore(capacity)
	for i := 0; i < capacity; i++ {
		if _, err := store.AddNode(spike.NeuronID(i)); err != nil {
			t.Fatalf("SparseStore: add node %d: %v", i, err)
		}
	}
	for _, e := range edges {
		if err := store.SetWeight(e.Source, e.Target, e.Weight); err != nil {
			t.Fatalf("SparseStore: set weight %d->%d: %v", e.Source, e.Target, err)
		}
		if e.Delay != 0 {
			if err := store.SetDelay(e.Source, e.Target, e.Delay); err != nil {
				t.Fatalf("SparseStore: set delay %d->%d: %v", e.Source, e.Target, err)
			}
		}
	}
	return store
}

// ThresholdModels returns a model constructor producing accumulate-and-fire
// neurons with the given firing limit.
func ThresholdModels(limit float32) network.ModelFunc {
	return func(id spike.NeuronID) (neuron.Model, error) {
		return neuron.NewThreshold(id, limit)
	}
}

// SpikeAt constructs a validated unit-amplitude spike from source at the
// given simulation time.
func SpikeAt(t *testing.T, source spike.NeuronID, at spike.Time) spike.Spike {
	t.Helper()
	s, err := spike.Unit(source, at)
	if err != nil {
		t.Fatalf("SpikeAt: %v", err)
	}
	return s
}

// Stimulate schedules unit spikes from the given sources at one step,
// timestamped at that step's start on the default time step.
func Stimulate(step int, sources ...spike.NeuronID) Stimulus {
	at := spike.TimeZero.Add(network.DefaultTimeStep * spike.Duration(step))
	spikes := make([]spike.Spike, len(sources))
	for i, src := range sources {
		spikes[i] = spike.Spike{Source: src, Timestamp: at, Amplitude: 1.0}
	}
	return Stimulus{Step: step, Spikes: spikes}
}

// StimulateEveryStep schedules one unit spike from source before each of
// the first steps steps.
func StimulateEveryStep(source spike.NeuronID, steps int) []Stimulus {
	out := make([]Stimulus, steps)
	for i := range out {
		out[i] = Stimulate(i, source)
	}
	return out
}
