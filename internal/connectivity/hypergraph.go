package connectivity

import (
	"fmt"
	"sort"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// EdgeID identifies a hyperedge within a HypergraphStore.
type EdgeID uint32

// HyperedgeKind describes the fan shape of a hyperedge. It is descriptive
// metadata derived from the member sets and has no effect on routing.
type HyperedgeKind uint8

const (
	KindOneToOne HyperedgeKind = iota
	KindOneToMany
	KindManyToOne
	KindManyToMany
)

// String returns a human-readable kind name.
func (k HyperedgeKind) String() string {
	switch k {
	case KindOneToOne:
		return "one-to-one"
	case KindOneToMany:
		return "one-to-many"
	case KindManyToOne:
		return "many-to-one"
	case KindManyToMany:
		return "many-to-many"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// KindFor derives the hyperedge kind from member set sizes.
func KindFor(sources, targets int) HyperedgeKind {
	switch {
	case sources == 1 && targets == 1:
		return KindOneToOne
	case sources == 1:
		return KindOneToMany
	case targets == 1:
		return KindManyToOne
	default:
		return KindManyToMany
	}
}

// Hyperedge connects a set of source neurons to a set of target neurons
// with a single uniform weight. A spike from any member of Sources is
// delivered to every member of Targets.
type Hyperedge struct {
	ID      EdgeID           `json:"id"`
	Sources []spike.NeuronID `json:"sources"`
	Targets []spike.NeuronID `json:"targets"`
	Weight  float32          `json:"weight"`
	Kind    HyperedgeKind    `json:"kind"`
}

// NewHyperedge builds a hyperedge and validates its member sets. Both sets
// must be non-empty and every member must be a valid neuron ID.
func NewHyperedge(id EdgeID, sources, targets []spike.NeuronID, weight float32) (Hyperedge, error) {
	if len(sources) == 0 {
		return Hyperedge{}, fmt.Errorf("hyperedge %d has no sources: %w", id, errs.ErrInvalidInput)
	}
	if len(targets) == 0 {
		return Hyperedge{}, fmt.Errorf("hyperedge %d has no targets: %w", id, errs.ErrInvalidInput)
	}
	for _, n := range sources {
		if !n.Valid() {
			return Hyperedge{}, fmt.Errorf("hyperedge %d source %s: %w", id, n, errs.ErrInvalidInput)
		}
	}
	for _, n := range targets {
		if !n.Valid() {
			return Hyperedge{}, fmt.Errorf("hyperedge %d target %s: %w", id, n, errs.ErrInvalidInput)
		}
	}
	return Hyperedge{
		ID:      id,
		Sources: sources,
		Targets: targets,
		Weight:  weight,
		Kind:    KindFor(len(sources), len(targets)),
	}, nil
}

// HasSource reports whether the neuron is a member of the source set.
func (h *Hyperedge) HasSource(id spike.NeuronID) bool {
	for _, s := range h.Sources {
		if s == id {
			return true
		}
	}
	return false
}

// HasTarget reports whether the neuron is a member of the target set.
func (h *Hyperedge) HasTarget(id spike.NeuronID) bool {
	for _, t := range h.Targets {
		if t == id {
			return true
		}
	}
	return false
}

// HypergraphStore routes spikes over hyperedges: multi-source, multi-target
// connections with one uniform weight per edge. Routing scans edges in
// insertion order and delivers to every target of every edge whose source
// set contains the spiking neuron.
//
// Connections in a hypergraph are not addressable by an endpoint pair, so
// the pair-keyed mutation methods of the Store contract return
// ErrCapabilityMismatch. Use the hyperedge-keyed methods instead.
type HypergraphStore struct {
	edges  []Hyperedge
	byID   map[EdgeID]int
	nextID EdgeID
}

// NewHypergraphStore creates an empty hypergraph store.
func NewHypergraphStore() *HypergraphStore {
	return &HypergraphStore{
		byID: make(map[EdgeID]int),
	}
}

// AddHyperedge inserts a hyperedge with an explicit ID. The edge is
// validated and the ID must not already be present.
func (h *HypergraphStore) AddHyperedge(e Hyperedge) error {
	checked, err := NewHyperedge(e.ID, e.Sources, e.Targets, e.Weight)
	if err != nil {
		return err
	}
	if _, exists := h.byID[checked.ID]; exists {
		return fmt.Errorf("hyperedge %d already exists: %w", checked.ID, errs.ErrInvalidInput)
	}
	h.byID[checked.ID] = len(h.edges)
	h.edges = append(h.edges, checked)
	if checked.ID >= h.nextID {
		h.nextID = checked.ID + 1
	}
	return nil
}

// Connect creates a hyperedge from sources to targets with the next free ID
// and returns that ID.
func (h *HypergraphStore) Connect(sources, targets []spike.NeuronID, weight float32) (EdgeID, error) {
	id := h.nextID
	e, err := NewHyperedge(id, sources, targets, weight)
	if err != nil {
		return 0, err
	}
	h.byID[id] = len(h.edges)
	h.edges = append(h.edges, e)
	h.nextID = id + 1
	return id, nil
}

// GetHyperedge retrieves a hyperedge by ID.
func (h *HypergraphStore) GetHyperedge(id EdgeID) (Hyperedge, bool) {
	i, ok := h.byID[id]
	if !ok {
		return Hyperedge{}, false
	}
	return h.edges[i], true
}

// RemoveHyperedge removes a hyperedge by ID and returns it. Returns nil if
// the edge does not exist.
func (h *HypergraphStore) RemoveHyperedge(id EdgeID) *Hyperedge {
	i, ok := h.byID[id]
	if !ok {
		return nil
	}
	removed := h.edges[i]
	h.edges = append(h.edges[:i], h.edges[i+1:]...)
	delete(h.byID, id)
	for j := i; j < len(h.edges); j++ {
		h.byID[h.edges[j].ID] = j
	}
	return &removed
}

// UpdateHyperedgeWeight replaces the uniform weight of a hyperedge and
// returns the previous weight. Returns ErrNotFound for an unknown edge.
func (h *HypergraphStore) UpdateHyperedgeWeight(id EdgeID, weight float32) (float32, error) {
	i, ok := h.byID[id]
	if !ok {
		return 0, fmt.Errorf("update hyperedge weight: edge %d: %w", id, errs.ErrNotFound)
	}
	prev := h.edges[i].Weight
	h.edges[i].Weight = weight
	return prev, nil
}

// Hyperedges returns all hyperedges in insertion order.
func (h *HypergraphStore) Hyperedges() []Hyperedge {
	out := make([]Hyperedge, len(h.edges))
	copy(out, h.edges)
	return out
}

// RouteSpike finds every hyperedge whose source set contains the spiking
// neuron and emits one route per edge covering all of its targets. The
// route weight is the edge weight scaled by the spike amplitude, applied
// uniformly; delivery is immediate.
func (h *HypergraphStore) RouteSpike(s spike.Spike, now spike.Time) ([]Route, error) {
	var routes []Route
	for i := range h.edges {
		e := &h.edges[i]
		if !e.HasSource(s.Source) {
			continue
		}
		targets := make([]spike.NeuronID, len(e.Targets))
		copy(targets, e.Targets)
		weights := make([]float32, len(e.Targets))
		w := e.Weight * s.Amplitude
		for j := range weights {
			weights[j] = w
		}
		routes = append(routes, Route{
			Targets:  targets,
			Weights:  weights,
			Delivery: now,
		})
	}
	return routes, nil
}

// Targets returns the targets of every hyperedge that lists the neuron as
// a source, sorted with duplicates removed. A target reached through
// multiple edges appears once.
func (h *HypergraphStore) Targets(source spike.NeuronID) ([]spike.NeuronID, error) {
	var out []spike.NeuronID
	for i := range h.edges {
		if h.edges[i].HasSource(source) {
			out = append(out, h.edges[i].Targets...)
		}
	}
	return uniqueSorted(out), nil
}

// Sources returns the sources of every hyperedge that lists the neuron as
// a target, sorted with duplicates removed.
func (h *HypergraphStore) Sources(target spike.NeuronID) ([]spike.NeuronID, error) {
	var out []spike.NeuronID
	for i := range h.edges {
		if h.edges[i].HasTarget(target) {
			out = append(out, h.edges[i].Sources...)
		}
	}
	return uniqueSorted(out), nil
}

// uniqueSorted sorts the ids in place and compacts consecutive duplicates.
func uniqueSorted(ids []spike.NeuronID) []spike.NeuronID {
	if len(ids) < 2 {
		return ids
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	kept := ids[:1]
	for _, id := range ids[1:] {
		if id != kept[len(kept)-1] {
			kept = append(kept, id)
		}
	}
	return kept
}

// AddConnection rejects pair-keyed insertion: a hyperedge needs full member
// sets, which a source/target pair cannot express.
func (h *HypergraphStore) AddConnection(id ConnectionID) error {
	return fmt.Errorf("add connection %s: hyperedges need explicit member sets, use AddHyperedge: %w",
		id, errs.ErrCapabilityMismatch)
}

// RemoveConnection rejects pair-keyed removal; remove by hyperedge ID
// instead.
func (h *HypergraphStore) RemoveConnection(id ConnectionID) (*ConnectionInfo, error) {
	return nil, fmt.Errorf("remove connection %s: hyperedges are not addressable by endpoint pair: %w",
		id, errs.ErrCapabilityMismatch)
}

// UpdateWeight rejects pair-keyed weight updates; update by hyperedge ID
// instead.
func (h *HypergraphStore) UpdateWeight(id ConnectionID, weight float32) (float32, bool, error) {
	return 0, false, fmt.Errorf("update weight %s: hyperedges are not addressable by endpoint pair: %w",
		id, errs.ErrCapabilityMismatch)
}

// Stats reports hyperedge counts and membership degrees. A neuron's
// out-degree counts the edges listing it as a source, its in-degree the
// edges listing it as a target.
func (h *HypergraphStore) Stats() Stats {
	members := make(map[spike.NeuronID]struct{})
	outDeg := make(map[spike.NeuronID]int)
	inDeg := make(map[spike.NeuronID]int)
	var totalWeight float64
	var totalTargets int
	for i := range h.edges {
		e := &h.edges[i]
		totalWeight += float64(e.Weight)
		totalTargets += len(e.Targets)
		for _, s := range e.Sources {
			members[s] = struct{}{}
			outDeg[s]++
		}
		for _, t := range e.Targets {
			members[t] = struct{}{}
			inDeg[t]++
		}
	}

	s := Stats{
		Connections: len(h.edges),
		Neurons:     len(members),
		TotalWeight: totalWeight,
	}
	if len(h.edges) > 0 {
		s.AvgWeight = totalWeight / float64(len(h.edges))
	}
	s.Density = density(len(h.edges), len(members))

	degrees := make([]int, 0, len(members))
	for n := range members {
		degrees = append(degrees, outDeg[n]+inDeg[n])
	}
	s.degreeStats(degrees)

	memberSlots := 0
	for i := range h.edges {
		memberSlots += len(h.edges[i].Sources) + len(h.edges[i].Targets)
	}
	s.MemoryBytes = len(h.edges)*64 + memberSlots*4 // rough estimate

	avgFanOut := 0.0
	if len(h.edges) > 0 {
		avgFanOut = float64(totalTargets) / float64(len(h.edges))
	}
	s.Extra = []Metric{
		{Name: "hyperedges", Value: float64(len(h.edges))},
		{Name: "avg_fan_out", Value: avgFanOut},
	}
	return s
}

// Validate checks that every stored hyperedge still has non-empty member
// sets and that the ID index matches the edge list.
func (h *HypergraphStore) Validate() error {
	if len(h.byID) != len(h.edges) {
		return fmt.Errorf("hypergraph index holds %d entries for %d edges: %w",
			len(h.byID), len(h.edges), errs.ErrInternalInconsistency)
	}
	for i := range h.edges {
		e := &h.edges[i]
		if len(e.Sources) == 0 {
			return fmt.Errorf("hyperedge %d has no sources: %w", e.ID, errs.ErrInternalInconsistency)
		}
		if len(e.Targets) == 0 {
			return fmt.Errorf("hyperedge %d has no targets: %w", e.ID, errs.ErrInternalInconsistency)
		}
		if j, ok := h.byID[e.ID]; !ok || j != i {
			return fmt.Errorf("hyperedge %d missing from index: %w", e.ID, errs.ErrInternalInconsistency)
		}
	}
	return nil
}

// Reset removes all hyperedges and restarts ID assignment.
func (h *HypergraphStore) Reset() {
	h.edges = nil
	h.byID = make(map[EdgeID]int)
	h.nextID = 0
}

// ConnectionCount returns the number of hyperedges.
func (h *HypergraphStore) ConnectionCount() int {
	return len(h.edges)
}

// NeuronCount returns the number of distinct neurons appearing in any
// member set.
func (h *HypergraphStore) NeuronCount() int {
	members := make(map[spike.NeuronID]struct{})
	for i := range h.edges {
		for _, s := range h.edges[i].Sources {
			members[s] = struct{}{}
		}
		for _, t := range h.edges[i].Targets {
			members[t] = struct{}{}
		}
	}
	return len(members)
}
