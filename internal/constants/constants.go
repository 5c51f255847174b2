// Package constants provides named constants used throughout the pulse
// codebase. This centralizes magic numbers for better maintainability and
// documentation.
package constants

// Simulation engine defaults
const (
	// DefaultTimeStepNanos is the step width used when a network is built
	// without an explicit time step (1ms).
	DefaultTimeStepNanos = 1_000_000

	// DefaultMaxPendingSpikes bounds the pending-spike queue. Injection
	// beyond this limit is rejected outright rather than buffered.
	DefaultMaxPendingSpikes = 10000
)

// Synaptic weight bounds enforced after every weight mutation.
const (
	// MinSynapticWeight is the floor applied when clamping weights.
	MinSynapticWeight = 0.0

	// MaxSynapticWeight is the ceiling applied when clamping weights.
	MaxSynapticWeight = 10.0
)

// Plasticity application thresholds
const (
	// WeightChangeEpsilon is the smallest absolute STDP delta worth
	// handing to a store. Smaller changes are computed and counted but
	// not applied.
	WeightChangeEpsilon = 1e-6
)

// Spike amplitudes
const (
	// DefaultSpikeAmplitude is the unit amplitude used for spikes emitted
	// by node models and by convenience constructors.
	DefaultSpikeAmplitude = 1.0
)
