package connectivity

import (
	"fmt"

	"github.com/nvandessel/pulse/internal/spike"
)

// StoreKind names the backend held by a PlasticStore.
type StoreKind uint8

const (
	StoreGraph StoreKind = iota
	StoreDense
	StoreSparse
)

// String returns the backend name.
func (k StoreKind) String() string {
	switch k {
	case StoreGraph:
		return "graph"
	case StoreDense:
		return "dense"
	case StoreSparse:
		return "sparse"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// PlasticStore is the closed set of plasticity-capable backends behind one
// pair-keyed surface. It wraps exactly one of GraphStore, DenseMatrixStore,
// or SparseMatrixStore; the hypergraph backend is excluded because its
// connections cannot be addressed by an endpoint pair.
//
// The matrix backends key cells by internal index, so the pair-keyed
// mutation methods register unknown endpoints on first use. Registration
// can fail with ErrCapacityExceeded when the backend is full, and that
// error surfaces from the mutation that triggered it.
type PlasticStore struct {
	kind   StoreKind
	graph  *GraphStore
	dense  *DenseMatrixStore
	sparse *SparseMatrixStore
}

// FromGraph wraps a graph backend.
func FromGraph(g *GraphStore) *PlasticStore {
	return &PlasticStore{kind: StoreGraph, graph: g}
}

// FromDense wraps a dense matrix backend.
func FromDense(d *DenseMatrixStore) *PlasticStore {
	return &PlasticStore{kind: StoreDense, dense: d}
}

// FromSparse wraps a sparse matrix backend.
func FromSparse(s *SparseMatrixStore) *PlasticStore {
	return &PlasticStore{kind: StoreSparse, sparse: s}
}

// Kind returns which backend this store wraps.
func (p *PlasticStore) Kind() StoreKind {
	return p.kind
}

// Unwrap returns the wrapped backend as a plain Store.
func (p *PlasticStore) Unwrap() Store {
	switch p.kind {
	case StoreGraph:
		return p.graph
	case StoreDense:
		return p.dense
	default:
		return p.sparse
	}
}

// ensureDense registers both endpoints of a pair, reusing existing slots.
func (p *PlasticStore) ensureDense(id ConnectionID) error {
	if _, err := p.dense.AddNode(id.Source); err != nil {
		return err
	}
	if _, err := p.dense.AddNode(id.Target); err != nil {
		return err
	}
	return nil
}

// ensureSparse registers both endpoints of a pair, reusing existing slots.
func (p *PlasticStore) ensureSparse(id ConnectionID) error {
	if _, err := p.sparse.AddNode(id.Source); err != nil {
		return err
	}
	if _, err := p.sparse.AddNode(id.Target); err != nil {
		return err
	}
	return nil
}

// RouteSpike delegates to the wrapped backend.
func (p *PlasticStore) RouteSpike(s spike.Spike, now spike.Time) ([]Route, error) {
	return p.Unwrap().RouteSpike(s, now)
}

// Targets delegates to the wrapped backend.
func (p *PlasticStore) Targets(source spike.NeuronID) ([]spike.NeuronID, error) {
	return p.Unwrap().Targets(source)
}

// Sources delegates to the wrapped backend.
func (p *PlasticStore) Sources(target spike.NeuronID) ([]spike.NeuronID, error) {
	return p.Unwrap().Sources(target)
}

// AddConnection creates the pair's connection with the backend's default
// weight, registering unknown endpoints on the matrix backends first.
func (p *PlasticStore) AddConnection(id ConnectionID) error {
	switch p.kind {
	case StoreGraph:
		return p.graph.AddConnection(id)
	case StoreDense:
		if err := p.ensureDense(id); err != nil {
			return err
		}
		return p.dense.AddConnection(id)
	default:
		if err := p.ensureSparse(id); err != nil {
			return err
		}
		return p.sparse.AddConnection(id)
	}
}

// RemoveConnection removes the pair's connection. Unknown endpoints are
// registered first on the matrix backends, so removing a never-added pair
// reports nil rather than ErrNotFound.
func (p *PlasticStore) RemoveConnection(id ConnectionID) (*ConnectionInfo, error) {
	switch p.kind {
	case StoreGraph:
		return p.graph.RemoveConnection(id)
	case StoreDense:
		if err := p.ensureDense(id); err != nil {
			return nil, err
		}
		return p.dense.RemoveConnection(id)
	default:
		if err := p.ensureSparse(id); err != nil {
			return nil, err
		}
		return p.sparse.RemoveConnection(id)
	}
}

// UpdateWeight sets the pair's weight, registering unknown endpoints on
// the matrix backends first.
func (p *PlasticStore) UpdateWeight(id ConnectionID, weight float32) (float32, bool, error) {
	switch p.kind {
	case StoreGraph:
		return p.graph.UpdateWeight(id, weight)
	case StoreDense:
		if err := p.ensureDense(id); err != nil {
			return 0, false, err
		}
		return p.dense.UpdateWeight(id, weight)
	default:
		if err := p.ensureSparse(id); err != nil {
			return 0, false, err
		}
		return p.sparse.UpdateWeight(id, weight)
	}
}

// ApplyPlasticity delegates to the wrapped backend without registering
// endpoints; unknown neurons surface the backend's ErrNotFound.
func (p *PlasticStore) ApplyPlasticity(pre, post spike.NeuronID, delta float32) (float32, bool, error) {
	switch p.kind {
	case StoreGraph:
		return p.graph.ApplyPlasticity(pre, post, delta)
	case StoreDense:
		return p.dense.ApplyPlasticity(pre, post, delta)
	default:
		return p.sparse.ApplyPlasticity(pre, post, delta)
	}
}

// Weight delegates to the wrapped backend.
func (p *PlasticStore) Weight(pre, post spike.NeuronID) (float32, bool, error) {
	switch p.kind {
	case StoreGraph:
		return p.graph.Weight(pre, post)
	case StoreDense:
		return p.dense.Weight(pre, post)
	default:
		return p.sparse.Weight(pre, post)
	}
}

// SnapshotWeights delegates to the wrapped backend.
func (p *PlasticStore) SnapshotWeights() []WeightEntry {
	switch p.kind {
	case StoreGraph:
		return p.graph.SnapshotWeights()
	case StoreDense:
		return p.dense.SnapshotWeights()
	default:
		return p.sparse.SnapshotWeights()
	}
}

// ApplyWeightUpdates delegates to the wrapped backend.
func (p *PlasticStore) ApplyWeightUpdates(updates []WeightEntry) (int, error) {
	switch p.kind {
	case StoreGraph:
		return p.graph.ApplyWeightUpdates(updates)
	case StoreDense:
		return p.dense.ApplyWeightUpdates(updates)
	default:
		return p.sparse.ApplyWeightUpdates(updates)
	}
}

// Stats delegates to the wrapped backend.
func (p *PlasticStore) Stats() Stats {
	return p.Unwrap().Stats()
}

// Validate delegates to the wrapped backend.
func (p *PlasticStore) Validate() error {
	return p.Unwrap().Validate()
}

// Reset delegates to the wrapped backend.
func (p *PlasticStore) Reset() {
	p.Unwrap().Reset()
}

// ConnectionCount delegates to the wrapped backend.
func (p *PlasticStore) ConnectionCount() int {
	return p.Unwrap().ConnectionCount()
}

// NeuronCount delegates to the wrapped backend.
func (p *PlasticStore) NeuronCount() int {
	return p.Unwrap().NeuronCount()
}
