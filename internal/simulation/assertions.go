package simulation

import (
	"testing"

	"github.com/nvandessel/pulse/internal/spike"
)

// AssertOutputCount asserts the total number of output spikes across the
// whole run.
func AssertOutputCount(t *testing.T, result Result, want int) {
	t.Helper()
	if got := len(result.Outputs); got != want {
		t.Errorf("AssertOutputCount: got %d output spikes, want %d", got, want)
	}
}

// AssertStepOutputs asserts the number of output spikes emitted by one step.
func AssertStepOutputs(t *testing.T, result Result, step, want int) {
	t.Helper()
	if step >= len(result.Steps) {
		t.Errorf("AssertStepOutputs: run has %d steps, step %d never executed", len(result.Steps), step)
		return
	}
	if got := len(result.Steps[step].Outputs); got != want {
		t.Errorf("AssertStepOutputs: step %d emitted %d spikes, want %d", step, got, want)
	}
}

// AssertFired asserts that the neuron emitted at least one spike during
// the run.
func AssertFired(t *testing.T, result Result, id spike.NeuronID) {
	t.Helper()
	for _, s := range result.Outputs {
		if s.Source == id {
			return
		}
	}
	t.Errorf("AssertFired: neuron %d never fired in %d steps", id, len(result.Steps))
}

// AssertNeverFired asserts that the neuron emitted no spikes during the run.
func AssertNeverFired(t *testing.T, result Result, id spike.NeuronID) {
	t.Helper()
	for _, s := range result.Outputs {
		if s.Source == id {
			t.Errorf("AssertNeverFired: neuron %d fired at %s", id, s.Timestamp)
			return
		}
	}
}

// AssertFiredAtStep asserts that the neuron fired during the given step
// and at no earlier step.
func AssertFiredAtStep(t *testing.T, result Result, id spike.NeuronID, step int) {
	t.Helper()
	for _, sr := range result.Steps {
		for _, s := range sr.Outputs {
			if s.Source != id {
				continue
			}
			if sr.Index != step {
				t.Errorf("AssertFiredAtStep: neuron %d first fired at step %d, want %d", id, sr.Index, step)
			}
			return
		}
	}
	t.Errorf("AssertFiredAtStep: neuron %d never fired, want step %d", id, step)
}

// AssertWeight asserts the final weight of a connection within tolerance.
func AssertWeight(t *testing.T, result Result, source, target spike.NeuronID, want, tol float32) {
	t.Helper()
	if result.Final == nil {
		t.Fatal("AssertWeight: store does not snapshot weights")
	}
	key := WeightKey(source, target)
	got, ok := result.Final[key]
	if !ok {
		t.Errorf("AssertWeight: connection %s not in final snapshot", key)
		return
	}
	if diff := got - want; diff > tol || diff < -tol {
		t.Errorf("AssertWeight: connection %s weight %.6f, want %.6f ± %.6f", key, got, want, tol)
	}
}

// AssertWeightIncreased asserts a connection ended the run with a higher
// weight than it started with.
func AssertWeightIncreased(t *testing.T, result Result, source, target spike.NeuronID) {
	t.Helper()
	before, after, ok := weightChange(t, result, source, target)
	if ok && after <= before {
		t.Errorf("AssertWeightIncreased: connection %s went %.6f -> %.6f", WeightKey(source, target), before, after)
	}
}

// AssertWeightDecreased asserts a connection ended the run with a lower
// weight than it started with.
func AssertWeightDecreased(t *testing.T, result Result, source, target spike.NeuronID) {
	t.Helper()
	before, after, ok := weightChange(t, result, source, target)
	if ok && after >= before {
		t.Errorf("AssertWeightDecreased: connection %s went %.6f -> %.6f", WeightKey(source, target), before, after)
	}
}

func weightChange(t *testing.T, result Result, source, target spike.NeuronID) (before, after float32, ok bool) {
	t.Helper()
	if result.Initial == nil || result.Final == nil {
		t.Fatal("weight assertions need a snapshotting store")
	}
	key := WeightKey(source, target)
	before, okB := result.Initial[key]
	after, okA := result.Final[key]
	if !okB || !okA {
		t.Errorf("connection %s missing from snapshots (initial %v, final %v)", key, okB, okA)
		return 0, 0, false
	}
	return before, after, true
}

// AssertWeightsWithin asserts that every weight in every per-step snapshot
// stays inside [min, max].
func AssertWeightsWithin(t *testing.T, result Result, min, max float32) {
	t.Helper()
	for _, sr := range result.Steps {
		for key, w := range sr.Weights {
			if w < min || w > max {
				t.Errorf("AssertWeightsWithin: step %d: connection %s weight %.6f outside [%.3f, %.3f]",
					sr.Index, key, w, min, max)
			}
		}
	}
}

// AssertIdentical asserts two runs produced bit-identical output spike
// sequences and final weights. Use it with full determinism enabled.
func AssertIdentical(t *testing.T, a, b Result) {
	t.Helper()
	if len(a.Outputs) != len(b.Outputs) {
		t.Fatalf("AssertIdentical: %d vs %d output spikes", len(a.Outputs), len(b.Outputs))
	}
	for i := range a.Outputs {
		if a.Outputs[i] != b.Outputs[i] {
			t.Errorf("AssertIdentical: output %d differs: %v vs %v", i, a.Outputs[i], b.Outputs[i])
		}
	}
	if len(a.Final) != len(b.Final) {
		t.Fatalf("AssertIdentical: %d vs %d final weights", len(a.Final), len(b.Final))
	}
	for key, wa := range a.Final {
		wb, ok := b.Final[key]
		if !ok {
			t.Errorf("AssertIdentical: connection %s missing from second run", key)
			continue
		}
		if wa != wb {
			t.Errorf("AssertIdentical: connection %s weight %.9f vs %.9f", key, wa, wb)
		}
	}
}
