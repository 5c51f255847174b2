package connectivity

import (
	"fmt"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// DenseMatrixStore keeps weights in a fixed-capacity row-major matrix.
// Each node receives a permanent row/column index on first registration;
// indices are never reused or compacted. Routing scans the source's full
// row regardless of fan-out, trading scan cost for predictable access on
// near-fully-connected topologies.
//
// A weight of exactly zero is indistinguishable from "no connection" in
// this backend; only strictly positive cells are routed or counted.
type DenseMatrixStore struct {
	weights []float32        // capacity x capacity, row-major
	delays  []spike.Duration // same shape, nil when delays are disabled

	capacity  int
	count     int
	idToIndex map[spike.NeuronID]int
	indexToID []spike.NeuronID
	policy    WeightPolicy
}

// NewDenseMatrixStore creates a store with room for capacity nodes and no
// delay matrix.
func NewDenseMatrixStore(capacity int) *DenseMatrixStore {
	return &DenseMatrixStore{
		weights:   make([]float32, capacity*capacity),
		capacity:  capacity,
		idToIndex: make(map[spike.NeuronID]int, capacity),
		indexToID: make([]spike.NeuronID, 0, capacity),
		policy:    DefaultWeightPolicy,
	}
}

// NewDenseMatrixStoreWithDelays creates a store with a parallel delay
// matrix of the same dimensions.
func NewDenseMatrixStoreWithDelays(capacity int) *DenseMatrixStore {
	s := NewDenseMatrixStore(capacity)
	s.delays = make([]spike.Duration, capacity*capacity)
	return s
}

// FullyConnectedDense registers the given nodes and connects every
// distinct pair at the same weight.
func FullyConnectedDense(nodes []spike.NeuronID, weight float32) (*DenseMatrixStore, error) {
	s := NewDenseMatrixStore(len(nodes))
	for _, id := range nodes {
		if _, err := s.AddNode(id); err != nil {
			return nil, err
		}
	}
	for _, source := range nodes {
		for _, target := range nodes {
			if source == target {
				continue
			}
			if err := s.SetWeight(source, target, weight); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// AddNode registers a node and returns its permanent matrix index. A node
// already registered keeps its index. Fails with ErrCapacityExceeded when
// the matrix is full.
func (s *DenseMatrixStore) AddNode(id spike.NeuronID) (int, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("dense add node: id %s: %w", id, errs.ErrInvalidInput)
	}
	if idx, ok := s.idToIndex[id]; ok {
		return idx, nil
	}
	if s.count >= s.capacity {
		return 0, fmt.Errorf("dense add node: capacity %d reached: %w", s.capacity, errs.ErrCapacityExceeded)
	}
	idx := s.count
	s.idToIndex[id] = idx
	s.indexToID = append(s.indexToID, id)
	s.count++
	return idx, nil
}

// Index returns the matrix index for a registered node.
func (s *DenseMatrixStore) Index(id spike.NeuronID) (int, bool) {
	idx, ok := s.idToIndex[id]
	return idx, ok
}

// NodeAt returns the node registered at a matrix index.
func (s *DenseMatrixStore) NodeAt(index int) (spike.NeuronID, bool) {
	if index < 0 || index >= len(s.indexToID) {
		return spike.InvalidNeuronID, false
	}
	return s.indexToID[index], true
}

// Capacity reports the fixed node capacity.
func (s *DenseMatrixStore) Capacity() int {
	return s.capacity
}

// SetWeight stores a weight between two registered nodes. This is the add
// path; the value is stored as given, without clamping.
func (s *DenseMatrixStore) SetWeight(source, target spike.NeuronID, weight float32) error {
	si, ti, err := s.resolve("dense set weight", source, target)
	if err != nil {
		return err
	}
	s.weights[si*s.capacity+ti] = weight
	return nil
}

// SetDelay stores a transmission delay between two registered nodes.
// Fails with ErrCapabilityMismatch when the store was built without a
// delay matrix.
func (s *DenseMatrixStore) SetDelay(source, target spike.NeuronID, delay spike.Duration) error {
	if s.delays == nil {
		return fmt.Errorf("dense set delay: store has no delay matrix: %w", errs.ErrCapabilityMismatch)
	}
	si, ti, err := s.resolve("dense set delay", source, target)
	if err != nil {
		return err
	}
	s.delays[si*s.capacity+ti] = delay
	return nil
}

// Delay reports the stored delay, zero when delays are disabled.
func (s *DenseMatrixStore) Delay(source, target spike.NeuronID) (spike.Duration, error) {
	if s.delays == nil {
		return 0, nil
	}
	si, ti, err := s.resolve("dense get delay", source, target)
	if err != nil {
		return 0, err
	}
	return s.delays[si*s.capacity+ti], nil
}

// RouteSpike scans the source's full row and emits one route per positive
// cell. Fails with ErrNotFound for an unregistered source.
func (s *DenseMatrixStore) RouteSpike(sp spike.Spike, now spike.Time) ([]Route, error) {
	si, ok := s.idToIndex[sp.Source]
	if !ok {
		return nil, fmt.Errorf("dense route: source %s: %w", sp.Source, errs.ErrNotFound)
	}

	var routes []Route
	row := s.weights[si*s.capacity : si*s.capacity+s.count]
	for ti, w := range row {
		if w <= 0 {
			continue
		}
		var delay spike.Duration
		if s.delays != nil {
			delay = s.delays[si*s.capacity+ti]
		}
		routes = append(routes, Route{
			Targets:  []spike.NeuronID{s.indexToID[ti]},
			Weights:  []float32{w * sp.Amplitude},
			Delivery: now.Add(delay),
		})
	}
	return routes, nil
}

// Targets lists nodes with a positive cell in the source's row.
func (s *DenseMatrixStore) Targets(source spike.NeuronID) ([]spike.NeuronID, error) {
	si, ok := s.idToIndex[source]
	if !ok {
		return nil, fmt.Errorf("dense targets: source %s: %w", source, errs.ErrNotFound)
	}
	var targets []spike.NeuronID
	for ti := 0; ti < s.count; ti++ {
		if s.weights[si*s.capacity+ti] > 0 {
			targets = append(targets, s.indexToID[ti])
		}
	}
	return targets, nil
}

// Sources lists nodes with a positive cell in the target's column.
func (s *DenseMatrixStore) Sources(target spike.NeuronID) ([]spike.NeuronID, error) {
	ti, ok := s.idToIndex[target]
	if !ok {
		return nil, fmt.Errorf("dense sources: target %s: %w", target, errs.ErrNotFound)
	}
	var sources []spike.NeuronID
	for si := 0; si < s.count; si++ {
		if s.weights[si*s.capacity+ti] > 0 {
			sources = append(sources, s.indexToID[si])
		}
	}
	return sources, nil
}

// AddConnection sets the cell for two already-registered nodes to 1.
// Nodes must be registered with AddNode first.
func (s *DenseMatrixStore) AddConnection(id ConnectionID) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("dense add: %w", err)
	}
	return s.SetWeight(id.Source, id.Target, 1.0)
}

// RemoveConnection zeroes the cell and its delay. Returns nil when either
// endpoint is unregistered or the cell already held no connection.
func (s *DenseMatrixStore) RemoveConnection(id ConnectionID) (*ConnectionInfo, error) {
	si, ok := s.idToIndex[id.Source]
	if !ok {
		return nil, nil
	}
	ti, ok := s.idToIndex[id.Target]
	if !ok {
		return nil, nil
	}

	w := s.weights[si*s.capacity+ti]
	if w <= 0 {
		return nil, nil
	}
	s.weights[si*s.capacity+ti] = 0

	var delay spike.Duration
	if s.delays != nil {
		delay = s.delays[si*s.capacity+ti]
		s.delays[si*s.capacity+ti] = 0
	}
	return &ConnectionInfo{ID: id, Weight: w, Delay: delay}, nil
}

// UpdateWeight replaces the cell value, clamped by the weight policy. For
// registered nodes ok is always true, zero cells included, since this
// backend cannot tell an absent connection from a zero weight.
func (s *DenseMatrixStore) UpdateWeight(id ConnectionID, weight float32) (float32, bool, error) {
	si, ok := s.idToIndex[id.Source]
	if !ok {
		return 0, false, nil
	}
	ti, ok := s.idToIndex[id.Target]
	if !ok {
		return 0, false, nil
	}
	prev := s.weights[si*s.capacity+ti]
	s.weights[si*s.capacity+ti] = s.policy.Clamp(weight)
	return prev, true, nil
}

// ApplyPlasticity adds delta to the cell and clamps the result. Fails
// with ErrNotFound when either node is unregistered.
func (s *DenseMatrixStore) ApplyPlasticity(pre, post spike.NeuronID, delta float32) (float32, bool, error) {
	si, ti, err := s.resolve("dense plasticity", pre, post)
	if err != nil {
		return 0, false, err
	}
	w := s.policy.Clamp(s.weights[si*s.capacity+ti] + delta)
	s.weights[si*s.capacity+ti] = w
	return w, true, nil
}

// Weight reports the cell value for two registered nodes. ok is true for
// any registered pair, zero cells included.
func (s *DenseMatrixStore) Weight(pre, post spike.NeuronID) (float32, bool, error) {
	si, ti, err := s.resolve("dense weight", pre, post)
	if err != nil {
		return 0, false, err
	}
	return s.weights[si*s.capacity+ti], true, nil
}

// SnapshotWeights lists every nonzero cell in row-major order.
func (s *DenseMatrixStore) SnapshotWeights() []WeightEntry {
	var out []WeightEntry
	for si := 0; si < s.count; si++ {
		for ti := 0; ti < s.count; ti++ {
			w := s.weights[si*s.capacity+ti]
			if w != 0 {
				out = append(out, WeightEntry{Source: s.indexToID[si], Target: s.indexToID[ti], Weight: w})
			}
		}
	}
	return out
}

// ApplyWeightUpdates writes weights back for registered pairs, clamped by
// the weight policy. Entries with unregistered endpoints are skipped.
func (s *DenseMatrixStore) ApplyWeightUpdates(updates []WeightEntry) (int, error) {
	applied := 0
	for _, u := range updates {
		si, ok := s.idToIndex[u.Source]
		if !ok {
			continue
		}
		ti, ok := s.idToIndex[u.Target]
		if !ok {
			continue
		}
		s.weights[si*s.capacity+ti] = s.policy.Clamp(u.Weight)
		applied++
	}
	return applied, nil
}

// Stats recomputes topology statistics from a full matrix scan.
func (s *DenseMatrixStore) Stats() Stats {
	st := Stats{Neurons: s.count}

	degrees := make([]int, s.count)
	for si := 0; si < s.count; si++ {
		for ti := 0; ti < s.count; ti++ {
			w := s.weights[si*s.capacity+ti]
			if w > 0 {
				st.Connections++
				st.TotalWeight += float64(w)
				degrees[si]++
				degrees[ti]++
			}
		}
	}
	if st.Connections > 0 {
		st.AvgWeight = st.TotalWeight / float64(st.Connections)
	}
	st.degreeStats(degrees)
	st.Density = density(st.Connections, st.Neurons)

	st.MemoryBytes = len(s.weights)*4 + len(s.delays)*8 + len(s.idToIndex)*16 + len(s.indexToID)*4 // rough estimate

	hasDelays := 0.0
	if s.delays != nil {
		hasDelays = 1.0
	}
	utilization := 0.0
	if s.capacity > 0 {
		utilization = float64(s.count) / float64(s.capacity)
	}
	st.Extra = []Metric{
		{Name: "matrix_capacity", Value: float64(s.capacity)},
		{Name: "matrix_utilization", Value: utilization},
		{Name: "has_delays", Value: hasDelays},
	}
	return st
}

// Validate confirms matrix dimensions and index mappings agree.
func (s *DenseMatrixStore) Validate() error {
	if len(s.weights) != s.capacity*s.capacity {
		return fmt.Errorf("dense validate: weight matrix is %d cells, want %d: %w",
			len(s.weights), s.capacity*s.capacity, errs.ErrInternalInconsistency)
	}
	if s.delays != nil && len(s.delays) != len(s.weights) {
		return fmt.Errorf("dense validate: delay matrix is %d cells, want %d: %w",
			len(s.delays), len(s.weights), errs.ErrInternalInconsistency)
	}
	if s.count > s.capacity {
		return fmt.Errorf("dense validate: %d nodes exceed capacity %d: %w",
			s.count, s.capacity, errs.ErrInternalInconsistency)
	}
	if len(s.indexToID) != s.count || len(s.idToIndex) != s.count {
		return fmt.Errorf("dense validate: index maps hold %d/%d entries, want %d: %w",
			len(s.indexToID), len(s.idToIndex), s.count, errs.ErrInternalInconsistency)
	}
	for idx, id := range s.indexToID {
		if mapped, ok := s.idToIndex[id]; !ok || mapped != idx {
			return fmt.Errorf("dense validate: node %s index mapping diverged: %w", id, errs.ErrInternalInconsistency)
		}
	}
	return nil
}

// Reset zeroes both matrices and forgets every registration.
func (s *DenseMatrixStore) Reset() {
	for i := range s.weights {
		s.weights[i] = 0
	}
	for i := range s.delays {
		s.delays[i] = 0
	}
	s.idToIndex = make(map[spike.NeuronID]int, s.capacity)
	s.indexToID = s.indexToID[:0]
	s.count = 0
}

// ConnectionCount reports the number of positive cells.
func (s *DenseMatrixStore) ConnectionCount() int {
	count := 0
	for si := 0; si < s.count; si++ {
		for ti := 0; ti < s.count; ti++ {
			if s.weights[si*s.capacity+ti] > 0 {
				count++
			}
		}
	}
	return count
}

// NeuronCount reports the number of registered nodes.
func (s *DenseMatrixStore) NeuronCount() int {
	return s.count
}

func (s *DenseMatrixStore) resolve(op string, a, b spike.NeuronID) (int, int, error) {
	ai, ok := s.idToIndex[a]
	if !ok {
		return 0, 0, fmt.Errorf("%s: node %s: %w", op, a, errs.ErrNotFound)
	}
	bi, ok := s.idToIndex[b]
	if !ok {
		return 0, 0, fmt.Errorf("%s: node %s: %w", op, b, errs.ErrNotFound)
	}
	return ai, bi, nil
}
