package simulation

import (
	"fmt"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/spike"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name string

	// Store is the pre-seeded connectivity backend the engine routes
	// through. Any backend works; weight assertions need one that also
	// implements connectivity.Snapshotter.
	Store connectivity.Store

	// Neurons is the pool size. Ids are assigned densely from zero.
	Neurons int

	// Model constructs the node model per neuron. Nil yields default LIF.
	Model network.ModelFunc

	// Steps is the number of engine steps to run.
	Steps int

	// Stimulus schedules input spikes by step index. Spikes for a step
	// are enqueued before that step executes.
	Stimulus []Stimulus

	// Reinject feeds each step's output spikes back in as inputs to the
	// next step, letting activity cascade across layers.
	Reinject bool

	// TimeStep and MaxPending override the engine defaults when nonzero.
	TimeStep   spike.Duration
	MaxPending int

	Determinism network.DeterminismConfig
	Plasticity  network.PlasticityConfig

	// StopOnBackpressure turns a full pending queue during stimulus or
	// reinjection into an early stop recorded on the result instead of a
	// test failure.
	StopOnBackpressure bool

	// BeforeStep, when non-nil, runs before each step. Use it to mutate
	// the store or inspect engine state mid-run.
	BeforeStep func(step int, n *network.Network[connectivity.Store])
}

// Stimulus is a batch of spikes injected before one step.
type Stimulus struct {
	Step   int
	Spikes []spike.Spike
}

// StepResult captures the outcome of a single engine step.
type StepResult struct {
	Index   int
	Outputs []spike.Spike
	Pending int

	// Weights is the post-step snapshot, nil for stores without the
	// snapshot capability.
	Weights map[string]float32
}

// Result captures all steps and the final engine state.
type Result struct {
	Steps   []StepResult
	Outputs []spike.Spike

	// Initial and Final are weight snapshots taken before the first and
	// after the last step, nil for non-snapshotting stores.
	Initial map[string]float32
	Final   map[string]float32

	Stats   network.Stats
	Network *network.Network[connectivity.Store]

	// Err is the backpressure error that stopped the run early, only
	// set when the scenario allows it.
	Err error
}

// WeightKey builds the canonical map key for a connection weight.
func WeightKey(source, target spike.NeuronID) string {
	return fmt.Sprintf("%d->%d", source, target)
}

// snapshotWeights captures the store's weights keyed by connection, or
// nil when the store cannot snapshot.
func snapshotWeights(store connectivity.Store) map[string]float32 {
	snap, ok := store.(connectivity.Snapshotter)
	if !ok {
		return nil
	}
	entries := snap.SnapshotWeights()
	weights := make(map[string]float32, len(entries))
	for _, e := range entries {
		weights[WeightKey(e.Source, e.Target)] = e.Weight
	}
	return weights
}
