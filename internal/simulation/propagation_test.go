package simulation_test

import (
	"testing"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/simulation"
	"github.com/nvandessel/pulse/internal/spike"
)

// TestSingleHopPropagation is the canonical smoke scenario: two neurons,
// one weighted edge, one injected spike, one step. The weighted input
// crosses the target's threshold, so exactly one output spike appears,
// and with plasticity disabled the weight is untouched.
func TestSingleHopPropagation(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name:    "single-hop",
		Store:   simulation.GraphStore(t, simulation.EdgeSpec{Source: 0, Target: 1, Weight: 0.8}),
		Neurons: 2,
		Model:   simulation.ThresholdModels(0.5),
		Steps:   1,
		Stimulus: []simulation.Stimulus{
			{Step: 0, Spikes: []spike.Spike{simulation.SpikeAt(t, 0, spike.TimeFromMillis(10))}},
		},
	})

	simulation.AssertOutputCount(t, result, 1)
	simulation.AssertFired(t, result, 1)
	simulation.AssertNeverFired(t, result, 0)
	simulation.AssertWeight(t, result, 0, 1, 0.8, 0)
}

// TestSubthresholdInputStaysSilent drops the edge weight below the firing
// limit; the spike is routed and integrated but nothing fires.
func TestSubthresholdInputStaysSilent(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name:     "subthreshold",
		Store:    simulation.GraphStore(t, simulation.EdgeSpec{Source: 0, Target: 1, Weight: 0.3}),
		Neurons:  2,
		Model:    simulation.ThresholdModels(0.5),
		Steps:    3,
		Stimulus: []simulation.Stimulus{simulation.Stimulate(0, 0)},
	})

	simulation.AssertOutputCount(t, result, 0)
	if result.Stats.SpikesProcessed != 1 {
		t.Errorf("SpikesProcessed = %d, want 1", result.Stats.SpikesProcessed)
	}
}

// TestMultiHopCascade chains 0 -> 1 -> 2 and reinjects outputs, so
// activity travels one hop per step.
func TestMultiHopCascade(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name: "multi-hop-cascade",
		Store: simulation.GraphStore(t,
			simulation.EdgeSpec{Source: 0, Target: 1, Weight: 1},
			simulation.EdgeSpec{Source: 1, Target: 2, Weight: 1},
		),
		Neurons:  3,
		Model:    simulation.ThresholdModels(0.5),
		Steps:    4,
		Reinject: true,
		Stimulus: []simulation.Stimulus{simulation.Stimulate(0, 0)},
	})

	simulation.AssertFiredAtStep(t, result, 1, 0)
	simulation.AssertFiredAtStep(t, result, 2, 1)
	simulation.AssertOutputCount(t, result, 2)
}

// TestDelayedSpikeWaitsFullDelay schedules a spike three steps out and
// confirms nothing is delivered early.
func TestDelayedSpikeWaitsFullDelay(t *testing.T) {
	r := simulation.NewRunner(t)

	delay := network.DefaultTimeStep * 3
	result := r.Run(simulation.Scenario{
		Name:    "delayed-delivery",
		Store:   simulation.GraphStore(t, simulation.EdgeSpec{Source: 0, Target: 1, Weight: 1}),
		Neurons: 2,
		Model:   simulation.ThresholdModels(0.5),
		Steps:   5,
		BeforeStep: func(step int, n *network.Network[connectivity.Store]) {
			if step == 0 {
				if err := n.AddDelayedSpike(simulation.SpikeAt(t, 0, spike.TimeZero), delay); err != nil {
					t.Fatalf("AddDelayedSpike: %v", err)
				}
			}
		},
	})

	simulation.AssertFiredAtStep(t, result, 1, 3)
	for _, sr := range result.Steps[:3] {
		if len(sr.Outputs) != 0 {
			t.Errorf("step %d delivered %d spikes before the delay elapsed", sr.Index, len(sr.Outputs))
		}
	}
}

// TestFanOutBroadcast drives a hub neuron wired to three targets; one
// input spike fans out into three simultaneous outputs.
func TestFanOutBroadcast(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name: "fan-out",
		Store: simulation.GraphStore(t,
			simulation.EdgeSpec{Source: 0, Target: 1, Weight: 0.9},
			simulation.EdgeSpec{Source: 0, Target: 2, Weight: 0.9},
			simulation.EdgeSpec{Source: 0, Target: 3, Weight: 0.9},
		),
		Neurons:  4,
		Model:    simulation.ThresholdModels(0.5),
		Steps:    1,
		Stimulus: []simulation.Stimulus{simulation.Stimulate(0, 0)},
	})

	simulation.AssertOutputCount(t, result, 3)
	for id := spike.NeuronID(1); id <= 3; id++ {
		simulation.AssertFired(t, result, id)
	}
}
