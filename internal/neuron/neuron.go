// Package neuron defines the node-model contract used by the simulation
// engine and a dense pool that maps neuron ids to model instances.
//
// The engine is agnostic to membrane dynamics: anything that can absorb
// weighted input and report whether it fired can participate in a
// simulation. Two models ship with this package: LIF, a leaky
// integrate-and-fire model with refractory handling, and Threshold, a
// minimal accumulate-and-fire model useful in tests and toy topologies.
package neuron

import (
	"github.com/nvandessel/pulse/internal/spike"
)

// Model is the contract between the engine and a neuron implementation.
// Integrate absorbs one weighted input; Update advances the model by one
// time step and reports the spike emitted during that step, if any.
// Implementations are not safe for concurrent use.
type Model interface {
	// Integrate adds a weighted synaptic input to the model's pending
	// input for the current step.
	Integrate(weight float32, step spike.Duration)

	// Update advances the model by one step at the given simulation time.
	// The returned bool is true when the model fired; the spike is only
	// meaningful in that case.
	Update(now spike.Time, step spike.Duration) (spike.Spike, bool)

	// Reset restores the model to its initial state.
	Reset()

	// Membrane reports the current membrane value, in model units.
	Membrane() float32
}

// Pool is a dense collection of models where a neuron id maps directly to
// a slot. Lookup is O(1); ids are expected to be assigned contiguously
// from zero.
type Pool struct {
	models []Model
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// NewPoolWithCapacity creates an empty pool with room for n models.
func NewPoolWithCapacity(n int) *Pool {
	return &Pool{models: make([]Model, 0, n)}
}

// Add appends a model, assigning it the next dense slot, and returns the
// id of that slot.
func (p *Pool) Add(m Model) spike.NeuronID {
	p.models = append(p.models, m)
	return spike.NeuronID(len(p.models) - 1)
}

// Get returns the model for id, or nil when id is out of range.
func (p *Pool) Get(id spike.NeuronID) Model {
	if int(id) >= len(p.models) || !id.Valid() {
		return nil
	}
	return p.models[id]
}

// Len reports the number of models in the pool.
func (p *Pool) Len() int {
	return len(p.models)
}

// ResetAll restores every model to its initial state.
func (p *Pool) ResetAll() {
	for _, m := range p.models {
		m.Reset()
	}
}
