package simulation

import (
	"errors"
	"testing"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/spike"
)

// Runner orchestrates scenario experiments against a real engine.
type Runner struct {
	t *testing.T
}

// NewRunner creates a simulation runner bound to the test.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) Result {
	r.t.Helper()

	if scenario.Store == nil {
		r.t.Fatalf("scenario %q: no store", scenario.Name)
	}

	n := r.build(scenario)

	stimulus := make(map[int][]spike.Spike, len(scenario.Stimulus))
	for _, st := range scenario.Stimulus {
		stimulus[st.Step] = append(stimulus[st.Step], st.Spikes...)
	}

	result := Result{
		Network: n,
		Initial: snapshotWeights(n.Store()),
	}

	var carry []spike.Spike
	for step := 0; step < scenario.Steps; step++ {
		if scenario.BeforeStep != nil {
			scenario.BeforeStep(step, n)
		}

		inputs := append(carry, stimulus[step]...)
		carry = nil
		if err := r.inject(scenario, n, inputs); err != nil {
			result.Err = err
			break
		}

		outputs, err := n.Step()
		if err != nil {
			if scenario.StopOnBackpressure && errors.Is(err, errs.ErrCapacityExceeded) {
				result.Err = err
				break
			}
			r.t.Fatalf("scenario %q: step %d: %v", scenario.Name, step, err)
		}

		result.Steps = append(result.Steps, StepResult{
			Index:   step,
			Outputs: outputs,
			Pending: n.PendingSpikes(),
			Weights: snapshotWeights(n.Store()),
		})
		result.Outputs = append(result.Outputs, outputs...)

		if scenario.Reinject {
			carry = outputs
		}
	}

	result.Final = snapshotWeights(n.Store())
	result.Stats = n.Stats()
	return result
}

// build assembles the engine for a scenario.
func (r *Runner) build(scenario Scenario) *network.Network[connectivity.Store] {
	r.t.Helper()

	builder := network.NewBuilder[connectivity.Store]().
		WithStore(scenario.Store).
		WithNeurons(scenario.Neurons, scenario.Model).
		WithDeterminism(scenario.Determinism).
		WithPlasticity(scenario.Plasticity)
	if scenario.TimeStep != 0 {
		builder = builder.WithTimeStep(scenario.TimeStep)
	}
	if scenario.MaxPending != 0 {
		builder = builder.WithMaxPendingSpikes(scenario.MaxPending)
	}

	n, err := builder.Build()
	if err != nil {
		r.t.Fatalf("scenario %q: build: %v", scenario.Name, err)
	}
	if err := n.Validate(); err != nil {
		r.t.Fatalf("scenario %q: validate: %v", scenario.Name, err)
	}
	return n
}

// inject schedules one step's input spikes, honoring the scenario's
// backpressure policy.
func (r *Runner) inject(scenario Scenario, n *network.Network[connectivity.Store], inputs []spike.Spike) error {
	r.t.Helper()
	for _, s := range inputs {
		err := n.AddSpike(s)
		if err == nil {
			continue
		}
		if scenario.StopOnBackpressure && errors.Is(err, errs.ErrCapacityExceeded) {
			return err
		}
		r.t.Fatalf("scenario %q: inject spike from %d: %v", scenario.Name, s.Source, err)
	}
	return nil
}
