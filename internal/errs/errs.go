// Package errs defines the error categories shared across the simulation
// core. Every failure returned by the stores, the dispatcher, or the engine
// wraps exactly one of these sentinels, so callers can classify errors with
// errors.Is without parsing messages.
package errs

import "errors"

var (
	// ErrInvalidInput marks malformed values: an invalid neuron id, a
	// negative or non-finite amplitude, an empty hyperedge member set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCapacityExceeded marks hard backpressure: a full pending-spike
	// queue or a fixed-capacity store that cannot admit another neuron.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrNotFound marks a missing connection or neuron on remove, update,
	// or lookup.
	ErrNotFound = errors.New("not found")

	// ErrCapabilityMismatch marks an operation the selected backend cannot
	// support, such as adding a hyperedge connection by bare id or enabling
	// strict plasticity on a store without the mutation capability.
	ErrCapabilityMismatch = errors.New("capability mismatch")

	// ErrInternalInconsistency marks index or table divergence detected by
	// a store's Validate. Advisory: callers may reset and continue.
	ErrInternalInconsistency = errors.New("internal inconsistency")

	// ErrRoutingFailure marks a store-level failure surfaced while routing
	// a spike, wrapped by the engine.
	ErrRoutingFailure = errors.New("routing failure")
)
