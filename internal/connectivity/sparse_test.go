package connectivity

import (
	"errors"
	"testing"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

func TestCSRMatrix_InsertKeepsRowsSorted(t *testing.T) {
	m := newCSRMatrix(3)
	m.set(0, 2, 1)
	m.set(0, 0, 2)
	m.set(1, 1, 3)

	if got := m.nnz(); got != 3 {
		t.Fatalf("nnz() = %d, want 3", got)
	}
	for _, tt := range []struct {
		r, c int
		want float32
	}{
		{0, 0, 2}, {0, 2, 1}, {1, 1, 3},
	} {
		got, ok := m.get(tt.r, tt.c)
		if !ok || got != tt.want {
			t.Errorf("get(%d,%d) = (%v, %v), want (%v, true)", tt.r, tt.c, got, ok, tt.want)
		}
	}

	lo, hi := m.rowRange(0)
	if hi-lo != 2 || m.cols[lo] != 0 || m.cols[lo+1] != 2 {
		t.Errorf("row 0 cols = %v, want sorted [0 2]", m.cols[lo:hi])
	}
}

func TestCSRMatrix_OverwriteAndRemove(t *testing.T) {
	m := newCSRMatrix(2)
	m.set(0, 1, 5)
	m.set(0, 1, 7)
	if got := m.nnz(); got != 1 {
		t.Fatalf("nnz() = %d after overwrite, want 1", got)
	}
	if v, _ := m.get(0, 1); v != 7 {
		t.Errorf("get(0,1) = %v, want 7", v)
	}

	m.set(0, 1, 0)
	if got := m.nnz(); got != 0 {
		t.Errorf("nnz() = %d after zero set, want 0", got)
	}
	if _, ok := m.get(0, 1); ok {
		t.Error("get(0,1) ok = true after removal, want false")
	}
	if m.rowPtr[len(m.rowPtr)-1] != 0 {
		t.Errorf("final row offset = %d, want 0", m.rowPtr[len(m.rowPtr)-1])
	}
}

func TestCSRMatrix_RemoveShiftsLaterRows(t *testing.T) {
	m := newCSRMatrix(3)
	m.set(0, 0, 1)
	m.set(1, 1, 2)
	m.set(2, 2, 3)

	m.set(0, 0, 0)

	if v, ok := m.get(1, 1); !ok || v != 2 {
		t.Errorf("get(1,1) = (%v, %v), want (2, true)", v, ok)
	}
	if v, ok := m.get(2, 2); !ok || v != 3 {
		t.Errorf("get(2,2) = (%v, %v), want (3, true)", v, ok)
	}
	if got := m.nnz(); got != 2 {
		t.Errorf("nnz() = %d, want 2", got)
	}
}

func TestCSRMatrix_ZeroSetOnAbsentIsNoOp(t *testing.T) {
	m := newCSRMatrix(2)
	m.set(1, 0, 0)
	if got := m.nnz(); got != 0 {
		t.Errorf("nnz() = %d, want 0", got)
	}
}

func newTestSparse(t *testing.T, maxNeurons int, nodes ...spike.NeuronID) *SparseMatrixStore {
	t.Helper()
	s := NewSparseMatrixStore(maxNeurons)
	registerNodes(t, s.AddNode, nodes...)
	return s
}

func TestSparseStore_CapacityExceeded(t *testing.T) {
	s := newTestSparse(t, 2, 0, 1)
	_, err := s.AddNode(2)
	if !errors.Is(err, errs.ErrCapacityExceeded) {
		t.Errorf("AddNode() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestSparseStore_RouteSpike(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1, 2)
	if err := s.SetWeight(0, 1, 0.8); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := s.SetWeight(0, 2, 0.3); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := s.SetDelay(0, 2, spike.DurationFromMillis(2)); err != nil {
		t.Fatalf("SetDelay() error = %v", err)
	}

	now := spike.TimeFromMillis(1)
	routes, err := s.RouteSpike(mustSpike(t, 0, now, 0.5), now)
	if err != nil {
		t.Fatalf("RouteSpike() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("RouteSpike() returned %d routes, want 2", len(routes))
	}
	for _, r := range routes {
		switch r.Targets[0] {
		case 1:
			if !approx(r.Weights[0], 0.4) || r.Delivery != now {
				t.Errorf("route to 1 = %+v, want weight 0.4 immediate", r)
			}
		case 2:
			want := now.Add(spike.DurationFromMillis(2))
			if !approx(r.Weights[0], 0.15) || r.Delivery != want {
				t.Errorf("route to 2 = %+v, want weight 0.15 delivery %v", r, want)
			}
		default:
			t.Errorf("unexpected route target %d", r.Targets[0])
		}
	}
}

func TestSparseStore_RouteSpikeUnknownSource(t *testing.T) {
	s := newTestSparse(t, 2, 0)
	now := spike.TimeFromMillis(1)
	_, err := s.RouteSpike(mustSpike(t, 9, now, 1.0), now)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("RouteSpike() error = %v, want ErrNotFound", err)
	}
}

func TestSparseStore_UpdateWeightCreatesWhenAbsent(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1)

	prev, existed, err := s.UpdateWeight(conn(0, 1), 3)
	if err != nil {
		t.Fatalf("UpdateWeight() error = %v", err)
	}
	if existed || !approx(prev, 0) {
		t.Errorf("UpdateWeight() = (%v, %v), want (0, false) for a fresh entry", prev, existed)
	}
	w, ok, err := s.Weight(0, 1)
	if err != nil || !ok || !approx(w, 3) {
		t.Errorf("Weight(0,1) = (%v, %v, %v), want (3, true, nil)", w, ok, err)
	}
	if got := s.ConnectionCount(); got != 1 {
		t.Errorf("ConnectionCount() = %d, want 1", got)
	}
}

func TestSparseStore_ZeroWeightRemovesEntry(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1)
	if err := s.SetWeight(0, 1, 2); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	prev, existed, err := s.UpdateWeight(conn(0, 1), 0)
	if err != nil {
		t.Fatalf("UpdateWeight() error = %v", err)
	}
	if !existed || !approx(prev, 2) {
		t.Errorf("UpdateWeight() = (%v, %v), want (2, true)", prev, existed)
	}
	if got := s.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d, want 0; zero weight removes the entry", got)
	}
	if _, ok, _ := s.Weight(0, 1); ok {
		t.Error("Weight() ok = true after zeroing, want false")
	}
}

func TestSparseStore_ApplyPlasticity(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1)

	// A missing entry is not created by depression.
	w, ok, err := s.ApplyPlasticity(0, 1, -0.5)
	if err != nil {
		t.Fatalf("ApplyPlasticity() error = %v", err)
	}
	if ok {
		t.Errorf("ApplyPlasticity() = (%v, %v), want ok=false for depression on a missing entry", w, ok)
	}

	// Potentiation creates it.
	w, ok, err = s.ApplyPlasticity(0, 1, 0.5)
	if err != nil {
		t.Fatalf("ApplyPlasticity() error = %v", err)
	}
	if !ok || !approx(w, 0.5) {
		t.Errorf("ApplyPlasticity() = (%v, %v), want (0.5, true)", w, ok)
	}

	// Depression that clamps to the floor removes the entry again.
	w, ok, err = s.ApplyPlasticity(0, 1, -5)
	if err != nil {
		t.Fatalf("ApplyPlasticity() error = %v", err)
	}
	if !ok || !approx(w, 0) {
		t.Errorf("ApplyPlasticity() = (%v, %v), want (0, true)", w, ok)
	}
	if got := s.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d, want 0 after clamping to the floor", got)
	}

	_, _, err = s.ApplyPlasticity(8, 9, 1)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("ApplyPlasticity() unregistered error = %v, want ErrNotFound", err)
	}
}

func TestSparseStore_Sparsity(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1, 2)
	if got := s.Sparsity(); !approxF64(got, 1) {
		t.Errorf("Sparsity() = %v for empty store, want 1", got)
	}

	if err := s.SetWeight(0, 1, 1); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := s.SetWeight(1, 2, 1); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if got := s.Sparsity(); !approxF64(got, 1-2.0/16.0) {
		t.Errorf("Sparsity() = %v, want %v", got, 1-2.0/16.0)
	}
}

func TestSparseStore_SnapshotRoundTrip(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1, 2)
	if err := s.SetWeight(0, 1, 0.8); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := s.SetWeight(2, 0, 6.5); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	restored := newTestSparse(t, 4, 0, 1, 2)
	applied, err := restored.ApplyWeightUpdates(s.SnapshotWeights())
	if err != nil {
		t.Fatalf("ApplyWeightUpdates() error = %v", err)
	}
	if applied != 2 {
		t.Fatalf("ApplyWeightUpdates() = %d, want 2", applied)
	}
	for _, pair := range []ConnectionID{conn(0, 1), conn(2, 0)} {
		want, _, _ := s.Weight(pair.Source, pair.Target)
		got, _, _ := restored.Weight(pair.Source, pair.Target)
		if !approx(got, want) {
			t.Errorf("restored weight %s = %v, want %v", pair, got, want)
		}
	}
}

func TestSparseStore_SourcesScansRows(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1, 2)
	if err := s.SetWeight(0, 2, 1); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := s.SetWeight(1, 2, 1); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	sources, err := s.Sources(2)
	if err != nil {
		t.Fatalf("Sources(2) error = %v", err)
	}
	sortNeurons(sources)
	if len(sources) != 2 || sources[0] != 0 || sources[1] != 1 {
		t.Errorf("Sources(2) = %v, want [0 1]", sources)
	}
}

func TestSparseStore_Stats(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1)
	if err := s.SetWeight(0, 1, 2); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	st := s.Stats()
	if st.Connections != 1 || st.Neurons != 2 {
		t.Errorf("Stats() = %d connections %d neurons, want 1 and 2", st.Connections, st.Neurons)
	}
	if nnz, ok := findMetric(st, "nnz"); !ok || nnz != 1 {
		t.Errorf("nnz metric = %v, want 1", nnz)
	}
	if sp, ok := findMetric(st, "sparsity"); !ok || !approxF64(sp, 1-1.0/16.0) {
		t.Errorf("sparsity metric = %v, want %v", sp, 1-1.0/16.0)
	}
}

func TestSparseStore_ValidateAndReset(t *testing.T) {
	s := newTestSparse(t, 4, 0, 1)
	if err := s.SetWeight(0, 1, 1); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	s.Reset()
	if got := s.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d after reset, want 0", got)
	}
	if got := s.NeuronCount(); got != 0 {
		t.Errorf("NeuronCount() = %d after reset, want 0", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() after reset error = %v", err)
	}
}
