// Package simulation provides a multi-step test harness for validating
// emergent dynamics of the spiking-network engine.
//
// Scenarios exercise the real Network, connectivity backends, and STDP
// manager — no mocks. A Scenario is a Go builder that seeds a store,
// schedules stimulus spikes at chosen steps, and runs the engine for a
// configured number of steps, capturing per-step outputs and weight
// snapshots for property-based assertions.
//
// Usage:
//
//	func TestCausalPotentiation(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:       "causal-potentiation",
//	        Store:      simulation.GraphStore(t, simulation.EdgeSpec{Source: 0, Target: 1, Weight: 1}),
//	        Neurons:    2,
//	        Model:      simulation.ThresholdModels(0.5),
//	        Stimulus:   simulation.StimulateEveryStep(0, 20),
//	        Steps:      20,
//	        Plasticity: network.PlasticityWithSTDP(plasticity.DefaultConfig()),
//	    })
//	    simulation.AssertWeightIncreased(t, result, 0, 1)
//	}
package simulation
