package connectivity

import (
	"fmt"
	"sort"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// Edge is a directed weighted connection in a GraphStore.
type Edge struct {
	ID      ConnectionID
	Weight  float32
	Delay   spike.Duration
	Active  bool // inactive edges are skipped by routing
	Plastic bool // non-plastic edges ignore plasticity deltas
}

// NewEdge creates an active, plastic edge with no delay.
func NewEdge(source, target spike.NeuronID, weight float32) Edge {
	return Edge{
		ID:      ConnectionID{Source: source, Target: target},
		Weight:  weight,
		Active:  true,
		Plastic: true,
	}
}

// GraphStore keeps pairwise connections in an adjacency list with both a
// forward index (source to edge ids) and a backward index (target to edge
// ids), so routing costs O(out-degree) and reverse lookup O(in-degree).
// Removing a connection sweeps any node left without incident edges out of
// the node set.
type GraphStore struct {
	edges    map[ConnectionID]Edge
	outgoing map[spike.NeuronID][]ConnectionID
	incoming map[spike.NeuronID][]ConnectionID
	neurons  map[spike.NeuronID]struct{}
	policy   WeightPolicy
}

// NewGraphStore creates an empty graph store with the default weight
// policy.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		edges:    make(map[ConnectionID]Edge),
		outgoing: make(map[spike.NeuronID][]ConnectionID),
		incoming: make(map[spike.NeuronID][]ConnectionID),
		neurons:  make(map[spike.NeuronID]struct{}),
		policy:   DefaultWeightPolicy,
	}
}

// FullyConnectedGraph connects every pair among the given nodes at the
// same weight.
func FullyConnectedGraph(nodes []spike.NeuronID, weight float32, selfLoops bool) (*GraphStore, error) {
	g := NewGraphStore()
	for _, source := range nodes {
		for _, target := range nodes {
			if source == target && !selfLoops {
				continue
			}
			if err := g.AddEdge(NewEdge(source, target, weight)); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// AddEdge inserts an edge. Re-adding an existing connection replaces its
// weight, delay, and flags without duplicating index entries.
func (g *GraphStore) AddEdge(e Edge) error {
	if err := e.ID.Validate(); err != nil {
		return fmt.Errorf("graph add: %w", err)
	}

	if _, exists := g.edges[e.ID]; !exists {
		g.outgoing[e.ID.Source] = append(g.outgoing[e.ID.Source], e.ID)
		g.incoming[e.ID.Target] = append(g.incoming[e.ID.Target], e.ID)
		g.neurons[e.ID.Source] = struct{}{}
		g.neurons[e.ID.Target] = struct{}{}
	}
	g.edges[e.ID] = e
	return nil
}

// GetEdge returns the stored edge for id. The bool is false when absent.
func (g *GraphStore) GetEdge(id ConnectionID) (Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// SetActive flips the routing flag on an existing edge.
func (g *GraphStore) SetActive(id ConnectionID, active bool) error {
	e, ok := g.edges[id]
	if !ok {
		return fmt.Errorf("graph set active: connection %s: %w", id, errs.ErrNotFound)
	}
	e.Active = active
	g.edges[id] = e
	return nil
}

// SetPlastic flips the plasticity flag on an existing edge.
func (g *GraphStore) SetPlastic(id ConnectionID, plastic bool) error {
	e, ok := g.edges[id]
	if !ok {
		return fmt.Errorf("graph set plastic: connection %s: %w", id, errs.ErrNotFound)
	}
	e.Plastic = plastic
	g.edges[id] = e
	return nil
}

// RouteSpike emits one route per active outgoing edge of the spike's
// source, each carrying the edge weight scaled by the spike amplitude. An
// unknown source yields no routes.
func (g *GraphStore) RouteSpike(s spike.Spike, now spike.Time) ([]Route, error) {
	ids := g.outgoing[s.Source]
	if len(ids) == 0 {
		return nil, nil
	}

	routes := make([]Route, 0, len(ids))
	for _, id := range ids {
		e, ok := g.edges[id]
		if !ok || !e.Active {
			continue
		}
		routes = append(routes, Route{
			Targets:  []spike.NeuronID{id.Target},
			Weights:  []float32{e.Weight * s.Amplitude},
			Delivery: now.Add(e.Delay),
		})
	}
	return routes, nil
}

// Targets lists the direct successors of source.
func (g *GraphStore) Targets(source spike.NeuronID) ([]spike.NeuronID, error) {
	ids := g.outgoing[source]
	targets := make([]spike.NeuronID, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, id.Target)
	}
	return targets, nil
}

// Sources lists the direct predecessors of target.
func (g *GraphStore) Sources(target spike.NeuronID) ([]spike.NeuronID, error) {
	ids := g.incoming[target]
	sources := make([]spike.NeuronID, 0, len(ids))
	for _, id := range ids {
		sources = append(sources, id.Source)
	}
	return sources, nil
}

// AddConnection creates an edge with weight 1 and no delay.
func (g *GraphStore) AddConnection(id ConnectionID) error {
	return g.AddEdge(NewEdge(id.Source, id.Target, 1.0))
}

// RemoveConnection deletes the edge and sweeps any endpoint left without
// incident edges out of the node set. Returns nil when the edge does not
// exist.
func (g *GraphStore) RemoveConnection(id ConnectionID) (*ConnectionInfo, error) {
	e, ok := g.edges[id]
	if !ok {
		return nil, nil
	}
	delete(g.edges, id)

	g.outgoing[id.Source] = withoutID(g.outgoing[id.Source], id)
	if len(g.outgoing[id.Source]) == 0 {
		delete(g.outgoing, id.Source)
	}
	g.incoming[id.Target] = withoutID(g.incoming[id.Target], id)
	if len(g.incoming[id.Target]) == 0 {
		delete(g.incoming, id.Target)
	}

	g.sweepIsolated()

	return &ConnectionInfo{ID: id, Weight: e.Weight, Delay: e.Delay}, nil
}

// UpdateWeight replaces the edge weight, clamped by the weight policy.
func (g *GraphStore) UpdateWeight(id ConnectionID, weight float32) (float32, bool, error) {
	e, ok := g.edges[id]
	if !ok {
		return 0, false, nil
	}
	prev := e.Weight
	e.Weight = g.policy.Clamp(weight)
	g.edges[id] = e
	return prev, true, nil
}

// ApplyPlasticity adds delta to the edge weight and clamps the result.
// Non-plastic edges report their current weight unchanged; a missing edge
// is not created.
func (g *GraphStore) ApplyPlasticity(pre, post spike.NeuronID, delta float32) (float32, bool, error) {
	id := ConnectionID{Source: pre, Target: post}
	e, ok := g.edges[id]
	if !ok {
		return 0, false, nil
	}
	if !e.Plastic {
		return e.Weight, true, nil
	}
	e.Weight = g.policy.Clamp(e.Weight + delta)
	g.edges[id] = e
	return e.Weight, true, nil
}

// Weight reports the stored pre->post weight.
func (g *GraphStore) Weight(pre, post spike.NeuronID) (float32, bool, error) {
	e, ok := g.edges[ConnectionID{Source: pre, Target: post}]
	if !ok {
		return 0, false, nil
	}
	return e.Weight, true, nil
}

// SnapshotWeights lists every edge weight ordered by (source, target).
func (g *GraphStore) SnapshotWeights() []WeightEntry {
	out := make([]WeightEntry, 0, len(g.edges))
	for id, e := range g.edges {
		out = append(out, WeightEntry{Source: id.Source, Target: id.Target, Weight: e.Weight})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// ApplyWeightUpdates writes weights back onto existing edges, clamped by
// the weight policy. Entries for absent edges are skipped.
func (g *GraphStore) ApplyWeightUpdates(updates []WeightEntry) (int, error) {
	applied := 0
	for _, u := range updates {
		id := ConnectionID{Source: u.Source, Target: u.Target}
		e, ok := g.edges[id]
		if !ok {
			continue
		}
		e.Weight = g.policy.Clamp(u.Weight)
		g.edges[id] = e
		applied++
	}
	return applied, nil
}

// Stats recomputes topology statistics.
func (g *GraphStore) Stats() Stats {
	s := Stats{
		Connections: len(g.edges),
		Neurons:     len(g.neurons),
	}

	active, plastic := 0, 0
	for _, e := range g.edges {
		s.TotalWeight += float64(e.Weight)
		if e.Active {
			active++
		}
		if e.Plastic {
			plastic++
		}
	}
	if s.Connections > 0 {
		s.AvgWeight = s.TotalWeight / float64(s.Connections)
	}

	degrees := make([]int, 0, len(g.neurons))
	for n := range g.neurons {
		degrees = append(degrees, len(g.outgoing[n])+len(g.incoming[n]))
	}
	s.degreeStats(degrees)

	s.Density = density(s.Connections, s.Neurons)
	s.MemoryBytes = len(g.edges)*48 + (len(g.outgoing)+len(g.incoming))*24 + len(g.neurons)*8 // rough estimate
	s.Extra = []Metric{
		{Name: "active_edges", Value: float64(active)},
		{Name: "plastic_edges", Value: float64(plastic)},
	}
	return s
}

// Validate confirms every stored edge appears in both indices and both
// indices reference only stored edges.
func (g *GraphStore) Validate() error {
	for id := range g.edges {
		if !containsID(g.outgoing[id.Source], id) {
			return fmt.Errorf("graph validate: edge %s missing from forward index: %w", id, errs.ErrInternalInconsistency)
		}
		if !containsID(g.incoming[id.Target], id) {
			return fmt.Errorf("graph validate: edge %s missing from backward index: %w", id, errs.ErrInternalInconsistency)
		}
	}
	for _, ids := range g.outgoing {
		for _, id := range ids {
			if _, ok := g.edges[id]; !ok {
				return fmt.Errorf("graph validate: forward index references missing edge %s: %w", id, errs.ErrInternalInconsistency)
			}
		}
	}
	for _, ids := range g.incoming {
		for _, id := range ids {
			if _, ok := g.edges[id]; !ok {
				return fmt.Errorf("graph validate: backward index references missing edge %s: %w", id, errs.ErrInternalInconsistency)
			}
		}
	}
	return nil
}

// Reset removes every edge and node.
func (g *GraphStore) Reset() {
	g.edges = make(map[ConnectionID]Edge)
	g.outgoing = make(map[spike.NeuronID][]ConnectionID)
	g.incoming = make(map[spike.NeuronID][]ConnectionID)
	g.neurons = make(map[spike.NeuronID]struct{})
}

// ConnectionCount reports the number of edges.
func (g *GraphStore) ConnectionCount() int {
	return len(g.edges)
}

// NeuronCount reports the number of nodes with at least one edge.
func (g *GraphStore) NeuronCount() int {
	return len(g.neurons)
}

// sweepIsolated drops nodes that no longer appear on any edge. O(edges +
// nodes).
func (g *GraphStore) sweepIsolated() {
	connected := make(map[spike.NeuronID]struct{}, len(g.neurons))
	for id := range g.edges {
		connected[id.Source] = struct{}{}
		connected[id.Target] = struct{}{}
	}
	for n := range g.neurons {
		if _, ok := connected[n]; !ok {
			delete(g.neurons, n)
		}
	}
}

func withoutID(ids []ConnectionID, id ConnectionID) []ConnectionID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []ConnectionID, id ConnectionID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
