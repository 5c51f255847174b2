// Package spike defines the value types the simulation core is built on:
// neuron identifiers, nanosecond simulation time, and the spike events that
// flow through the connectivity stores.
package spike

import (
	"fmt"
	"math"
	"sort"

	"github.com/nvandessel/pulse/internal/errs"
)

// NeuronID addresses a single neuron. IDs are plain ordered integers so a
// dense pool can map an id directly to an array slot.
type NeuronID uint32

// InvalidNeuronID is the reserved sentinel. It never identifies a live
// neuron and is rejected by every constructor that takes an id.
const InvalidNeuronID NeuronID = math.MaxUint32

// Valid reports whether the id can identify a live neuron.
func (id NeuronID) Valid() bool { return id != InvalidNeuronID }

// String implements fmt.Stringer.
func (id NeuronID) String() string {
	if !id.Valid() {
		return "neuron(invalid)"
	}
	return fmt.Sprintf("neuron(%d)", uint32(id))
}

// Spike is a discrete event emitted by a source neuron at a point in
// simulation time, carrying a non-negative finite amplitude.
type Spike struct {
	Source    NeuronID
	Timestamp Time
	Amplitude float32
}

// New constructs a validated spike. The source must be a valid id and the
// amplitude must be finite and non-negative.
func New(source NeuronID, timestamp Time, amplitude float32) (Spike, error) {
	if !source.Valid() {
		return Spike{}, fmt.Errorf("spike: source %s: %w", source, errs.ErrInvalidInput)
	}
	if math.IsNaN(float64(amplitude)) || math.IsInf(float64(amplitude), 0) || amplitude < 0 {
		return Spike{}, fmt.Errorf("spike: amplitude %v must be finite and non-negative: %w", amplitude, errs.ErrInvalidInput)
	}
	return Spike{Source: source, Timestamp: timestamp, Amplitude: amplitude}, nil
}

// Unit constructs a validated spike with amplitude 1.0.
func Unit(source NeuronID, timestamp Time) (Spike, error) {
	return New(source, timestamp, 1.0)
}

// String implements fmt.Stringer.
func (s Spike) String() string {
	return fmt.Sprintf("spike(%d @ %s, amp=%.3f)", uint32(s.Source), s.Timestamp, s.Amplitude)
}

// TimedSpike is a spike scheduled for delivery at a specific simulation
// time. Delay records the span the spike was deferred by when it was
// scheduled; it is zero for spikes delivered immediately.
type TimedSpike struct {
	Spike        Spike
	DeliveryTime Time
	Delay        Duration
}

// Timed schedules a spike for delivery at the given time.
func Timed(s Spike, delivery Time) TimedSpike {
	return TimedSpike{Spike: s, DeliveryTime: delivery}
}

// Delayed schedules a spike for delivery at its own timestamp plus delay,
// so the delivery time can never precede the spike's timestamp.
func Delayed(s Spike, delay Duration) TimedSpike {
	return TimedSpike{Spike: s, DeliveryTime: s.Timestamp.Add(delay), Delay: delay}
}

// Due reports whether the spike is deliverable at the given time.
func (ts TimedSpike) Due(now Time) bool { return ts.DeliveryTime <= now }

// Train is an ordered batch of spikes, used for stimulus injection.
type Train []Spike

// Sort orders the train by timestamp, breaking ties by source id. The sort
// is stable so equal (timestamp, source) pairs keep their relative order.
func (tr Train) Sort() {
	sort.SliceStable(tr, func(i, j int) bool {
		if tr[i].Timestamp != tr[j].Timestamp {
			return tr[i].Timestamp < tr[j].Timestamp
		}
		return tr[i].Source < tr[j].Source
	})
}

// Validate checks every spike in the train the way New would.
func (tr Train) Validate() error {
	for i, s := range tr {
		if _, err := New(s.Source, s.Timestamp, s.Amplitude); err != nil {
			return fmt.Errorf("train[%d]: %w", i, err)
		}
	}
	return nil
}

// Duration returns the span from the earliest to the latest timestamp in
// the train, zero for empty or single-spike trains.
func (tr Train) Duration() Duration {
	if len(tr) < 2 {
		return 0
	}
	min, max := tr[0].Timestamp, tr[0].Timestamp
	for _, s := range tr[1:] {
		if s.Timestamp < min {
			min = s.Timestamp
		}
		if s.Timestamp > max {
			max = s.Timestamp
		}
	}
	return max.Sub(min)
}
