package neuron

import (
	"fmt"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// Threshold is a minimal accumulate-and-fire model: weighted input adds
// directly to the membrane, which fires and zeroes once it reaches the
// threshold. There is no leak and no refractory period.
type Threshold struct {
	id        spike.NeuronID
	threshold float32
	sum       float32
}

// NewThreshold creates a threshold neuron that fires once accumulated
// input reaches limit.
func NewThreshold(id spike.NeuronID, limit float32) (*Threshold, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("threshold: id %s: %w", id, errs.ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("threshold: limit %v must be positive: %w", limit, errs.ErrInvalidInput)
	}
	return &Threshold{id: id, threshold: limit}, nil
}

// ID returns the neuron's id.
func (n *Threshold) ID() spike.NeuronID {
	return n.id
}

// Integrate adds a weighted input to the accumulator.
func (n *Threshold) Integrate(weight float32, _ spike.Duration) {
	n.sum += weight
}

// Update fires when the accumulator has reached the threshold.
func (n *Threshold) Update(now spike.Time, _ spike.Duration) (spike.Spike, bool) {
	if n.sum >= n.threshold {
		out := spike.Spike{Source: n.id, Timestamp: now, Amplitude: 1.0}
		n.sum = 0
		return out, true
	}
	return spike.Spike{}, false
}

// Reset zeroes the accumulator.
func (n *Threshold) Reset() {
	n.sum = 0
}

// Membrane reports the accumulated input.
func (n *Threshold) Membrane() float32 {
	return n.sum
}
