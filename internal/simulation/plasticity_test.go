package simulation_test

import (
	"testing"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/plasticity"
	"github.com/nvandessel/pulse/internal/simulation"
	"github.com/nvandessel/pulse/internal/spike"
)

// causalStimulus schedules one spike from source per step, timestamped
// half a step before delivery. The output spike is stamped at delivery
// time, so every (input, output) pair is causal and potentiates.
func causalStimulus(source spike.NeuronID, steps int) []simulation.Stimulus {
	step := uint64(network.DefaultTimeStep)
	out := make([]simulation.Stimulus, 0, steps)
	for i := 1; i < steps; i++ {
		at := spike.TimeFromNanos(step*uint64(i) - step/2)
		out = append(out, simulation.Stimulus{
			Step:   i,
			Spikes: []spike.Spike{{Source: source, Timestamp: at, Amplitude: 1}},
		})
	}
	return out
}

// TestCausalPotentiation repeatedly pairs a pre-synaptic input with the
// post-synaptic output it causes. STDP strengthens the connection a
// little each step, and the weight never leaves the clamp range.
func TestCausalPotentiation(t *testing.T) {
	const steps = 30
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name:       "causal-potentiation",
		Store:      simulation.GraphStore(t, simulation.EdgeSpec{Source: 0, Target: 1, Weight: 1}),
		Neurons:    2,
		Model:      simulation.ThresholdModels(0.5),
		Steps:      steps,
		Stimulus:   causalStimulus(0, steps),
		Plasticity: network.PlasticityWithSTDP(plasticity.DefaultConfig()),
	})

	simulation.AssertWeightIncreased(t, result, 0, 1)
	simulation.AssertWeightsWithin(t, result, 0, 10)
	if result.Stats.PlasticityUpdates == 0 {
		t.Error("expected applied plasticity updates")
	}
}

// TestClampStopsRunawayPotentiation cranks the learning rate so a single
// causal pair would push the weight far past the ceiling. The shared
// weight policy clamps every mutation, so the weight parks at 10 and the
// simulation keeps running.
func TestClampStopsRunawayPotentiation(t *testing.T) {
	const steps = 10
	rule := plasticity.DefaultConfig()
	cfg := network.PlasticityWithSTDP(rule)
	cfg.LearningRate = 5000

	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{
		Name:       "clamp-ceiling",
		Store:      simulation.GraphStore(t, simulation.EdgeSpec{Source: 0, Target: 1, Weight: 1}),
		Neurons:    2,
		Model:      simulation.ThresholdModels(0.5),
		Steps:      steps,
		Stimulus:   causalStimulus(0, steps),
		Plasticity: cfg,
	})

	simulation.AssertWeightsWithin(t, result, 0, 10)
	simulation.AssertWeight(t, result, 0, 1, 10, 0)
}

// TestPlasticityCountedNotAppliedOnHypergraph enables STDP over a store
// without the mutation capability. The manager still evaluates and counts
// every pairing, but no weight is touched and nothing fails.
func TestPlasticityCountedNotAppliedOnHypergraph(t *testing.T) {
	store := connectivity.NewHypergraphStore()
	if _, err := store.Connect([]spike.NeuronID{0}, []spike.NeuronID{1}, 1.0); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	const steps = 5
	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{
		Name:       "telemetry-only",
		Store:      store,
		Neurons:    2,
		Model:      simulation.ThresholdModels(0.5),
		Steps:      steps,
		Stimulus:   causalStimulus(0, steps),
		Plasticity: network.PlasticityWithSTDP(plasticity.DefaultConfig()),
	})

	if got := result.Network.Plasticity().UpdateCount(); got == 0 {
		t.Error("expected the manager to count rule evaluations")
	}
	if got := result.Stats.PlasticityUpdates; got != 0 {
		t.Errorf("PlasticityUpdates = %d, want 0 on a non-plastic store", got)
	}
}

// TestPotentiationAcrossMutableBackends checks that the learning loop
// lands weight changes on graph, dense, and sparse storage alike.
func TestPotentiationAcrossMutableBackends(t *testing.T) {
	edge := simulation.EdgeSpec{Source: 0, Target: 1, Weight: 1}
	stores := map[string]func(t *testing.T) connectivity.Store{
		"graph":  func(t *testing.T) connectivity.Store { return simulation.GraphStore(t, edge) },
		"dense":  func(t *testing.T) connectivity.Store { return simulation.DenseStore(t, 2, edge) },
		"sparse": func(t *testing.T) connectivity.Store { return simulation.SparseStore(t, 2, edge) },
	}

	const steps = 10
	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			r := simulation.NewRunner(t)
			result := r.Run(simulation.Scenario{
				Name:       "potentiation-" + name,
				Store:      build(t),
				Neurons:    2,
				Model:      simulation.ThresholdModels(0.5),
				Steps:      steps,
				Stimulus:   causalStimulus(0, steps),
				Plasticity: network.PlasticityWithSTDP(plasticity.DefaultConfig()),
			})

			simulation.AssertWeightIncreased(t, result, 0, 1)
			simulation.AssertWeightsWithin(t, result, 0, 10)
		})
	}
}
