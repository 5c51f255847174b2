package connectivity

import (
	"fmt"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// csrMatrix is compressed-row storage: nonzero values, their column
// indices, and per-row start offsets into both. Columns are kept sorted
// within each row. Setting a cell to zero removes its entry.
type csrMatrix struct {
	values []float32
	cols   []int
	rowPtr []int // len rows+1
}

func newCSRMatrix(rows int) csrMatrix {
	return csrMatrix{rowPtr: make([]int, rows+1)}
}

func (m *csrMatrix) nnz() int {
	return len(m.values)
}

// rowRange returns the slice bounds of row r's entries.
func (m *csrMatrix) rowRange(r int) (int, int) {
	return m.rowPtr[r], m.rowPtr[r+1]
}

func (m *csrMatrix) get(r, c int) (float32, bool) {
	lo, hi := m.rowRange(r)
	for i := lo; i < hi; i++ {
		if m.cols[i] == c {
			return m.values[i], true
		}
		if m.cols[i] > c {
			break
		}
	}
	return 0, false
}

// set writes a cell. Inserting a new entry shifts the row tail, which is
// the backend's known hot path on restructure-heavy workloads.
func (m *csrMatrix) set(r, c int, v float32) {
	lo, hi := m.rowRange(r)
	pos := lo
	for pos < hi && m.cols[pos] < c {
		pos++
	}

	if pos < hi && m.cols[pos] == c {
		if v == 0 {
			m.values = append(m.values[:pos], m.values[pos+1:]...)
			m.cols = append(m.cols[:pos], m.cols[pos+1:]...)
			for i := r + 1; i < len(m.rowPtr); i++ {
				m.rowPtr[i]--
			}
			return
		}
		m.values[pos] = v
		return
	}

	if v == 0 {
		return
	}
	m.values = append(m.values, 0)
	copy(m.values[pos+1:], m.values[pos:])
	m.values[pos] = v
	m.cols = append(m.cols, 0)
	copy(m.cols[pos+1:], m.cols[pos:])
	m.cols[pos] = c
	for i := r + 1; i < len(m.rowPtr); i++ {
		m.rowPtr[i]++
	}
}

// SparseMatrixStore keeps weights in compressed-row form, so scans cost
// O(nonzero entries per row) rather than O(capacity). Delays live in a
// separate (row, col) map since delay usage is rare. Nodes receive
// permanent indices on first registration, as in DenseMatrixStore.
type SparseMatrixStore struct {
	matrix csrMatrix
	delays map[[2]int]spike.Duration

	maxNeurons int
	count      int
	idToIndex  map[spike.NeuronID]int
	indexToID  []spike.NeuronID
	policy     WeightPolicy
}

// NewSparseMatrixStore creates a store with room for maxNeurons nodes.
func NewSparseMatrixStore(maxNeurons int) *SparseMatrixStore {
	return &SparseMatrixStore{
		matrix:     newCSRMatrix(maxNeurons),
		delays:     make(map[[2]int]spike.Duration),
		maxNeurons: maxNeurons,
		idToIndex:  make(map[spike.NeuronID]int, maxNeurons),
		indexToID:  make([]spike.NeuronID, 0, maxNeurons),
		policy:     DefaultWeightPolicy,
	}
}

// AddNode registers a node and returns its permanent index. Fails with
// ErrCapacityExceeded when the store is full.
func (s *SparseMatrixStore) AddNode(id spike.NeuronID) (int, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("sparse add node: id %s: %w", id, errs.ErrInvalidInput)
	}
	if idx, ok := s.idToIndex[id]; ok {
		return idx, nil
	}
	if s.count >= s.maxNeurons {
		return 0, fmt.Errorf("sparse add node: capacity %d reached: %w", s.maxNeurons, errs.ErrCapacityExceeded)
	}
	idx := s.count
	s.idToIndex[id] = idx
	s.indexToID = append(s.indexToID, id)
	s.count++
	return idx, nil
}

// Index returns the matrix index for a registered node.
func (s *SparseMatrixStore) Index(id spike.NeuronID) (int, bool) {
	idx, ok := s.idToIndex[id]
	return idx, ok
}

// Capacity reports the fixed node capacity.
func (s *SparseMatrixStore) Capacity() int {
	return s.maxNeurons
}

// NNZ reports the number of stored entries.
func (s *SparseMatrixStore) NNZ() int {
	return s.matrix.nnz()
}

// Sparsity reports the fraction of the full capacity matrix left empty.
func (s *SparseMatrixStore) Sparsity() float64 {
	total := s.maxNeurons * s.maxNeurons
	if total == 0 {
		return 1
	}
	return 1 - float64(s.matrix.nnz())/float64(total)
}

// SetWeight stores a weight between two registered nodes, unclamped. A
// zero weight removes the entry.
func (s *SparseMatrixStore) SetWeight(source, target spike.NeuronID, weight float32) error {
	si, ti, err := s.resolve("sparse set weight", source, target)
	if err != nil {
		return err
	}
	s.matrix.set(si, ti, weight)
	return nil
}

// SetDelay stores a transmission delay between two registered nodes.
func (s *SparseMatrixStore) SetDelay(source, target spike.NeuronID, delay spike.Duration) error {
	si, ti, err := s.resolve("sparse set delay", source, target)
	if err != nil {
		return err
	}
	s.delays[[2]int{si, ti}] = delay
	return nil
}

// Delay reports the stored delay, zero when none was set.
func (s *SparseMatrixStore) Delay(source, target spike.NeuronID) (spike.Duration, error) {
	si, ti, err := s.resolve("sparse get delay", source, target)
	if err != nil {
		return 0, err
	}
	return s.delays[[2]int{si, ti}], nil
}

// RouteSpike emits one route per stored entry in the source's row. Fails
// with ErrNotFound for an unregistered source.
func (s *SparseMatrixStore) RouteSpike(sp spike.Spike, now spike.Time) ([]Route, error) {
	si, ok := s.idToIndex[sp.Source]
	if !ok {
		return nil, fmt.Errorf("sparse route: source %s: %w", sp.Source, errs.ErrNotFound)
	}

	lo, hi := s.matrix.rowRange(si)
	routes := make([]Route, 0, hi-lo)
	for i := lo; i < hi; i++ {
		ti := s.matrix.cols[i]
		routes = append(routes, Route{
			Targets:  []spike.NeuronID{s.indexToID[ti]},
			Weights:  []float32{s.matrix.values[i] * sp.Amplitude},
			Delivery: now.Add(s.delays[[2]int{si, ti}]),
		})
	}
	if len(routes) == 0 {
		return nil, nil
	}
	return routes, nil
}

// Targets lists nodes stored in the source's row.
func (s *SparseMatrixStore) Targets(source spike.NeuronID) ([]spike.NeuronID, error) {
	si, ok := s.idToIndex[source]
	if !ok {
		return nil, fmt.Errorf("sparse targets: source %s: %w", source, errs.ErrNotFound)
	}
	lo, hi := s.matrix.rowRange(si)
	targets := make([]spike.NeuronID, 0, hi-lo)
	for i := lo; i < hi; i++ {
		targets = append(targets, s.indexToID[s.matrix.cols[i]])
	}
	return targets, nil
}

// Sources lists nodes with an entry in the target's column. This walks
// every row; there is no column index.
func (s *SparseMatrixStore) Sources(target spike.NeuronID) ([]spike.NeuronID, error) {
	ti, ok := s.idToIndex[target]
	if !ok {
		return nil, fmt.Errorf("sparse sources: target %s: %w", target, errs.ErrNotFound)
	}
	var sources []spike.NeuronID
	for si := 0; si < s.count; si++ {
		if _, ok := s.matrix.get(si, ti); ok {
			sources = append(sources, s.indexToID[si])
		}
	}
	return sources, nil
}

// AddConnection sets the entry for two already-registered nodes to 1.
func (s *SparseMatrixStore) AddConnection(id ConnectionID) error {
	if err := id.Validate(); err != nil {
		return fmt.Errorf("sparse add: %w", err)
	}
	return s.SetWeight(id.Source, id.Target, 1.0)
}

// RemoveConnection removes the entry and its delay. Returns nil when
// either endpoint is unregistered or no entry exists.
func (s *SparseMatrixStore) RemoveConnection(id ConnectionID) (*ConnectionInfo, error) {
	si, ok := s.idToIndex[id.Source]
	if !ok {
		return nil, nil
	}
	ti, ok := s.idToIndex[id.Target]
	if !ok {
		return nil, nil
	}

	w, ok := s.matrix.get(si, ti)
	if !ok {
		return nil, nil
	}
	s.matrix.set(si, ti, 0)

	key := [2]int{si, ti}
	delay := s.delays[key]
	delete(s.delays, key)

	return &ConnectionInfo{ID: id, Weight: w, Delay: delay}, nil
}

// UpdateWeight writes the entry, clamped by the weight policy, creating
// it when absent. ok is false when there was no previous entry.
func (s *SparseMatrixStore) UpdateWeight(id ConnectionID, weight float32) (float32, bool, error) {
	si, ok := s.idToIndex[id.Source]
	if !ok {
		return 0, false, nil
	}
	ti, ok := s.idToIndex[id.Target]
	if !ok {
		return 0, false, nil
	}
	prev, existed := s.matrix.get(si, ti)
	s.matrix.set(si, ti, s.policy.Clamp(weight))
	return prev, existed, nil
}

// ApplyPlasticity adds delta to the entry and clamps the result. A
// missing entry is created when delta is positive; a negative or zero
// delta on a missing entry is a no-op. Fails with ErrNotFound when either
// node is unregistered.
func (s *SparseMatrixStore) ApplyPlasticity(pre, post spike.NeuronID, delta float32) (float32, bool, error) {
	si, ti, err := s.resolve("sparse plasticity", pre, post)
	if err != nil {
		return 0, false, err
	}

	cur, existed := s.matrix.get(si, ti)
	if !existed && delta <= 0 {
		return 0, false, nil
	}
	w := s.policy.Clamp(cur + delta)
	s.matrix.set(si, ti, w)
	return w, true, nil
}

// Weight reports the stored entry. ok is false when no entry exists;
// unregistered nodes fail with ErrNotFound.
func (s *SparseMatrixStore) Weight(pre, post spike.NeuronID) (float32, bool, error) {
	si, ti, err := s.resolve("sparse weight", pre, post)
	if err != nil {
		return 0, false, err
	}
	w, ok := s.matrix.get(si, ti)
	return w, ok, nil
}

// SnapshotWeights lists every entry in row-major order.
func (s *SparseMatrixStore) SnapshotWeights() []WeightEntry {
	out := make([]WeightEntry, 0, s.matrix.nnz())
	for si := 0; si < s.count; si++ {
		lo, hi := s.matrix.rowRange(si)
		for i := lo; i < hi; i++ {
			out = append(out, WeightEntry{
				Source: s.indexToID[si],
				Target: s.indexToID[s.matrix.cols[i]],
				Weight: s.matrix.values[i],
			})
		}
	}
	return out
}

// ApplyWeightUpdates writes weights back for registered pairs, clamped by
// the weight policy. Entries with unregistered endpoints are skipped.
func (s *SparseMatrixStore) ApplyWeightUpdates(updates []WeightEntry) (int, error) {
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
		s.matrix.set(si, ti, s.policy.Clamp(u.Weight))
		applied++
	}
	return applied, nil
}

// Stats recomputes topology statistics from the stored entries.
func (s *SparseMatrixStore) Stats() Stats {
	st := Stats{
		Connections: s.matrix.nnz(),
		Neurons:     s.count,
	}

	degrees := make([]int, s.count)
	for si := 0; si < s.count; si++ {
		lo, hi := s.matrix.rowRange(si)
		for i := lo; i < hi; i++ {
			st.TotalWeight += float64(s.matrix.values[i])
			degrees[si]++
			if ti := s.matrix.cols[i]; ti < len(degrees) {
				degrees[ti]++
			}
		}
	}
	if st.Connections > 0 {
		st.AvgWeight = st.TotalWeight / float64(st.Connections)
	}
	st.degreeStats(degrees)
	st.Density = density(st.Connections, st.Neurons)

	st.MemoryBytes = len(s.matrix.values)*4 + len(s.matrix.cols)*8 + len(s.matrix.rowPtr)*8 +
		len(s.delays)*24 + len(s.idToIndex)*16 + len(s.indexToID)*4 // rough estimate

	memEfficiency := 0.0
	if s.maxNeurons > 0 {
		memEfficiency = float64(st.MemoryBytes) / float64(s.maxNeurons*s.maxNeurons*4)
	}
	st.Extra = []Metric{
		{Name: "sparsity", Value: s.Sparsity()},
		{Name: "nnz", Value: float64(s.matrix.nnz())},
		{Name: "capacity", Value: float64(s.maxNeurons)},
		{Name: "memory_efficiency", Value: memEfficiency},
	}
	return st
}

// Validate confirms row offsets and index mappings agree.
func (s *SparseMatrixStore) Validate() error {
	if s.count > s.maxNeurons {
		return fmt.Errorf("sparse validate: %d nodes exceed capacity %d: %w",
			s.count, s.maxNeurons, errs.ErrInternalInconsistency)
	}
	if len(s.matrix.rowPtr) != s.maxNeurons+1 {
		return fmt.Errorf("sparse validate: %d row offsets, want %d: %w",
			len(s.matrix.rowPtr), s.maxNeurons+1, errs.ErrInternalInconsistency)
	}
	if len(s.matrix.values) != len(s.matrix.cols) {
		return fmt.Errorf("sparse validate: %d values but %d column indices: %w",
			len(s.matrix.values), len(s.matrix.cols), errs.ErrInternalInconsistency)
	}
	if last := s.matrix.rowPtr[len(s.matrix.rowPtr)-1]; last != len(s.matrix.values) {
		return fmt.Errorf("sparse validate: final row offset %d does not match %d entries: %w",
			last, len(s.matrix.values), errs.ErrInternalInconsistency)
	}
	for r := 0; r < s.maxNeurons; r++ {
		if s.matrix.rowPtr[r] > s.matrix.rowPtr[r+1] {
			return fmt.Errorf("sparse validate: row %d offsets out of order: %w", r, errs.ErrInternalInconsistency)
		}
	}
	if len(s.indexToID) != s.count || len(s.idToIndex) != s.count {
		return fmt.Errorf("sparse validate: index maps hold %d/%d entries, want %d: %w",
			len(s.indexToID), len(s.idToIndex), s.count, errs.ErrInternalInconsistency)
	}
	return nil
}

// Reset removes every entry, delay, and registration.
func (s *SparseMatrixStore) Reset() {
	s.matrix = newCSRMatrix(s.maxNeurons)
	s.delays = make(map[[2]int]spike.Duration)
	s.idToIndex = make(map[spike.NeuronID]int, s.maxNeurons)
	s.indexToID = s.indexToID[:0]
	s.count = 0
}

// ConnectionCount reports the number of stored entries.
func (s *SparseMatrixStore) ConnectionCount() int {
	return s.matrix.nnz()
}

// NeuronCount reports the number of registered nodes.
func (s *SparseMatrixStore) NeuronCount() int {
	return s.count
}

func (s *SparseMatrixStore) resolve(op string, a, b spike.NeuronID) (int, int, error) {
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
