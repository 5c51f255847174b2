// Package connectivity implements the synaptic storage backends spikes are
// routed through and the capability contracts the simulation engine
// depends on.
//
// Four backends cover materially different topologies: GraphStore keeps an
// adjacency list with forward and backward indices, DenseMatrixStore keeps
// a fixed-capacity weight matrix, SparseMatrixStore keeps compressed rows
// for low-density networks, and HypergraphStore keeps many-to-many group
// links. PlasticStore is a closed union over the three mutation-capable
// backends so the backend can be chosen at runtime without the engine
// depending on a concrete type.
package connectivity

import (
	"fmt"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// ConnectionID identifies a directed connection by its endpoints.
type ConnectionID struct {
	Source spike.NeuronID `json:"source"`
	Target spike.NeuronID `json:"target"`
}

// Validate rejects ids with an invalid endpoint.
func (id ConnectionID) Validate() error {
	if !id.Source.Valid() {
		return fmt.Errorf("connection %s: source: %w", id, errs.ErrInvalidInput)
	}
	if !id.Target.Valid() {
		return fmt.Errorf("connection %s: target: %w", id, errs.ErrInvalidInput)
	}
	return nil
}

func (id ConnectionID) String() string {
	return fmt.Sprintf("%d->%d", id.Source, id.Target)
}

// Route is the result of routing one spike through a store: the targets
// reached, the weighted amplitude delivered to each, and the time delivery
// takes effect. Targets and Weights are index-aligned.
type Route struct {
	Targets  []spike.NeuronID
	Weights  []float32
	Delivery spike.Time
}

// ConnectionInfo summarizes a connection removed from a store.
type ConnectionInfo struct {
	ID     ConnectionID
	Weight float32
	Delay  spike.Duration
}

// WeightEntry is one (source, target, weight) triple in a weight snapshot.
type WeightEntry struct {
	Source spike.NeuronID `json:"source"`
	Target spike.NeuronID `json:"target"`
	Weight float32        `json:"weight"`
}

// Store is the capability contract shared by every backend. Stores are not
// safe for concurrent use; the owning engine serializes access.
type Store interface {
	// RouteSpike resolves the routes a spike fans out over. Each route
	// carries stored weight scaled by the spike amplitude and a delivery
	// time of now plus the connection delay.
	RouteSpike(s spike.Spike, now spike.Time) ([]Route, error)

	// Targets lists the nodes reachable from source over one connection.
	Targets(source spike.NeuronID) ([]spike.NeuronID, error)

	// Sources lists the nodes with a connection into target.
	Sources(target spike.NeuronID) ([]spike.NeuronID, error)

	// AddConnection creates the identified connection with a default
	// weight of 1 and no delay. Backends that cannot express a bare
	// pairwise connection fail with ErrCapabilityMismatch.
	AddConnection(id ConnectionID) error

	// RemoveConnection deletes the identified connection, returning a
	// summary of what was removed or nil when no such connection exists.
	RemoveConnection(id ConnectionID) (*ConnectionInfo, error)

	// UpdateWeight replaces the weight of the identified connection,
	// clamped by the store's weight policy. It returns the previous
	// weight; ok is false when the connection did not previously exist.
	UpdateWeight(id ConnectionID, weight float32) (prev float32, ok bool, err error)

	// Stats recomputes summary statistics for the stored topology.
	Stats() Stats

	// Validate checks internal index consistency, returning
	// ErrInternalInconsistency when stored state has diverged.
	Validate() error

	// Reset empties the store.
	Reset()

	// ConnectionCount reports the number of stored connections.
	ConnectionCount() int

	// NeuronCount reports the number of nodes known to the store.
	NeuronCount() int
}

// Plastic is the mutation capability used by the learning rule. Whether a
// missing connection is created by a positive delta is backend-specific:
// the sparse backend creates it, graph and dense do not.
type Plastic interface {
	// ApplyPlasticity adds delta to the pre->post weight and clamps the
	// result by the store's weight policy. It returns the weight after
	// the call; ok is false when there was no connection to update.
	ApplyPlasticity(pre, post spike.NeuronID, delta float32) (weight float32, ok bool, err error)

	// Weight reports the stored pre->post weight. ok is false when no
	// such connection exists; backends that index nodes fail with
	// ErrNotFound when an endpoint is unknown.
	Weight(pre, post spike.NeuronID) (weight float32, ok bool, err error)
}

// Snapshotter exports and restores weights in bulk, for persistence and
// checkpoint layers that live outside the engine.
type Snapshotter interface {
	// SnapshotWeights lists every existing (nonzero, for matrix
	// backends) connection weight in a stable order.
	SnapshotWeights() []WeightEntry

	// ApplyWeightUpdates writes the given weights back, clamped by the
	// store's weight policy, silently skipping entries whose endpoints
	// are unknown. It returns the number of entries applied.
	ApplyWeightUpdates(updates []WeightEntry) (int, error)
}

// AddConnections adds a batch of connections to s. The batch is not
// transactional: on failure, connections added before the failing entry
// remain in place. Returns the number added.
func AddConnections(s Store, ids []ConnectionID) (int, error) {
	added := 0
	for _, id := range ids {
		if err := s.AddConnection(id); err != nil {
			return added, fmt.Errorf("batch add %s: %w", id, err)
		}
		added++
	}
	return added, nil
}

// RemoveConnections removes a batch of connections from s, counting only
// those that existed. Like AddConnections it is not transactional.
func RemoveConnections(s Store, ids []ConnectionID) (int, error) {
	removed := 0
	for _, id := range ids {
		info, err := s.RemoveConnection(id)
		if err != nil {
			return removed, fmt.Errorf("batch remove %s: %w", id, err)
		}
		if info != nil {
			removed++
		}
	}
	return removed, nil
}
