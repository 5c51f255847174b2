package connectivity

import (
	"errors"
	"testing"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

func newTestDense(t *testing.T, capacity int, nodes ...spike.NeuronID) *DenseMatrixStore {
	t.Helper()
	d := NewDenseMatrixStore(capacity)
	registerNodes(t, d.AddNode, nodes...)
	return d
}

func TestDenseStore_CapacityExceeded(t *testing.T) {
	d := NewDenseMatrixStore(3)
	for _, id := range []spike.NeuronID{0, 1, 2} {
		if _, err := d.AddNode(id); err != nil {
			t.Fatalf("AddNode(%d) error = %v", id, err)
		}
	}

	_, err := d.AddNode(3)
	if err == nil {
		t.Fatal("AddNode() on a full store = nil, want error")
	}
	if !errors.Is(err, errs.ErrCapacityExceeded) {
		t.Errorf("AddNode() error = %v, want ErrCapacityExceeded", err)
	}
	if got := d.NeuronCount(); got != 3 {
		t.Errorf("NeuronCount() = %d after rejected add, want 3", got)
	}
}

func TestDenseStore_AddNodeIdempotent(t *testing.T) {
	d := NewDenseMatrixStore(2)
	first, err := d.AddNode(7)
	if err != nil {
		t.Fatalf("AddNode(7) error = %v", err)
	}
	second, err := d.AddNode(7)
	if err != nil {
		t.Fatalf("AddNode(7) again error = %v", err)
	}
	if first != second {
		t.Errorf("AddNode(7) twice gave indices %d and %d, want the same slot", first, second)
	}
	if got := d.NeuronCount(); got != 1 {
		t.Errorf("NeuronCount() = %d, want 1", got)
	}
}

func TestDenseStore_RouteSpike(t *testing.T) {
	d := newTestDense(t, 4, 0, 1, 2)
	if err := d.SetWeight(0, 1, 0.8); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := d.SetWeight(0, 2, 0.3); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	now := spike.TimeFromMillis(4)
	routes, err := d.RouteSpike(mustSpike(t, 0, now, 0.5), now)
	if err != nil {
		t.Fatalf("RouteSpike() error = %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("RouteSpike() returned %d routes, want 2", len(routes))
	}
	got := map[spike.NeuronID]float32{}
	for _, r := range routes {
		if len(r.Targets) != 1 || len(r.Weights) != 1 {
			t.Fatalf("route %+v, want single target and weight", r)
		}
		if r.Delivery != now {
			t.Errorf("route delivery = %v, want %v without a delay matrix", r.Delivery, now)
		}
		got[r.Targets[0]] = r.Weights[0]
	}
	if !approx(got[1], 0.4) || !approx(got[2], 0.15) {
		t.Errorf("route weights = %v, want 1:0.4 2:0.15", got)
	}
}

func TestDenseStore_RouteSpikeUnknownSource(t *testing.T) {
	d := newTestDense(t, 2, 0)
	now := spike.TimeFromMillis(1)

	_, err := d.RouteSpike(mustSpike(t, 9, now, 1.0), now)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("RouteSpike() error = %v, want ErrNotFound for unregistered source", err)
	}
}

func TestDenseStore_RouteSpikeWithDelays(t *testing.T) {
	d := NewDenseMatrixStoreWithDelays(2)
	registerNodes(t, d.AddNode, 0, 1)
	if err := d.SetWeight(0, 1, 1.0); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := d.SetDelay(0, 1, spike.DurationFromMillis(5)); err != nil {
		t.Fatalf("SetDelay() error = %v", err)
	}

	now := spike.TimeFromMillis(1)
	routes, err := d.RouteSpike(mustSpike(t, 0, now, 1.0), now)
	if err != nil {
		t.Fatalf("RouteSpike() error = %v", err)
	}
	want := now.Add(spike.DurationFromMillis(5))
	if routes[0].Delivery != want {
		t.Errorf("route delivery = %v, want %v", routes[0].Delivery, want)
	}
}

func TestDenseStore_SetDelayWithoutMatrix(t *testing.T) {
	d := newTestDense(t, 2, 0, 1)
	err := d.SetDelay(0, 1, spike.DurationFromMillis(1))
	if !errors.Is(err, errs.ErrCapabilityMismatch) {
		t.Errorf("SetDelay() error = %v, want ErrCapabilityMismatch", err)
	}
}

func TestDenseStore_UpdateWeight(t *testing.T) {
	d := newTestDense(t, 4, 0, 1)

	// Zero cell on registered nodes still reports ok: the matrix cannot
	// tell an absent connection from a zero weight.
	prev, ok, err := d.UpdateWeight(conn(0, 1), 3)
	if err != nil {
		t.Fatalf("UpdateWeight() error = %v", err)
	}
	if !ok || !approx(prev, 0) {
		t.Errorf("UpdateWeight() = (%v, %v), want (0, true)", prev, ok)
	}

	prev, ok, err = d.UpdateWeight(conn(0, 1), 99)
	if err != nil {
		t.Fatalf("UpdateWeight() error = %v", err)
	}
	if !ok || !approx(prev, 3) {
		t.Errorf("UpdateWeight() = (%v, %v), want (3, true)", prev, ok)
	}
	w, _, _ := d.Weight(0, 1)
	if !approx(w, 10) {
		t.Errorf("weight = %v, want clamped 10", w)
	}

	_, ok, err = d.UpdateWeight(conn(8, 9), 1)
	if err != nil {
		t.Fatalf("UpdateWeight() unregistered error = %v", err)
	}
	if ok {
		t.Error("UpdateWeight() ok = true for unregistered pair, want false")
	}
}

func TestDenseStore_RemoveConnection(t *testing.T) {
	d := newTestDense(t, 4, 0, 1)
	if err := d.SetWeight(0, 1, 2.5); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	info, err := d.RemoveConnection(conn(0, 1))
	if err != nil {
		t.Fatalf("RemoveConnection() error = %v", err)
	}
	if info == nil || !approx(info.Weight, 2.5) {
		t.Fatalf("RemoveConnection() = %+v, want info with weight 2.5", info)
	}
	if got := d.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d, want 0", got)
	}

	info, err = d.RemoveConnection(conn(0, 1))
	if err != nil || info != nil {
		t.Errorf("RemoveConnection() on empty cell = (%+v, %v), want (nil, nil)", info, err)
	}
	info, err = d.RemoveConnection(conn(8, 9))
	if err != nil || info != nil {
		t.Errorf("RemoveConnection() unregistered = (%+v, %v), want (nil, nil)", info, err)
	}
}

func TestDenseStore_ApplyPlasticity(t *testing.T) {
	d := newTestDense(t, 4, 0, 1)
	if err := d.SetWeight(0, 1, 9.8); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	w, ok, err := d.ApplyPlasticity(0, 1, 1.0)
	if err != nil {
		t.Fatalf("ApplyPlasticity() error = %v", err)
	}
	if !ok || !approx(w, 10) {
		t.Errorf("ApplyPlasticity() = (%v, %v), want clamped (10, true)", w, ok)
	}

	_, _, err = d.ApplyPlasticity(8, 9, 1.0)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("ApplyPlasticity() unregistered error = %v, want ErrNotFound", err)
	}
}

func TestDenseStore_SnapshotIncludesNegativeWeights(t *testing.T) {
	d := newTestDense(t, 4, 0, 1, 2)
	if err := d.SetWeight(0, 1, -1.5); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := d.SetWeight(0, 2, 2.0); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	// Routing treats only positive cells as connections.
	now := spike.TimeFromMillis(1)
	routes, err := d.RouteSpike(mustSpike(t, 0, now, 1.0), now)
	if err != nil {
		t.Fatalf("RouteSpike() error = %v", err)
	}
	if len(routes) != 1 || routes[0].Targets[0] != 2 {
		t.Errorf("routes = %+v, want only the positive cell 0->2", routes)
	}

	// The snapshot keeps every nonzero cell so inhibitory weights survive
	// an export.
	snap := d.SnapshotWeights()
	if len(snap) != 2 {
		t.Fatalf("SnapshotWeights() returned %d entries, want 2", len(snap))
	}
}

func TestDenseStore_SnapshotRoundTrip(t *testing.T) {
	d := newTestDense(t, 4, 0, 1, 2)
	if err := d.SetWeight(0, 1, 0.8); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := d.SetWeight(1, 2, 4.5); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	restored := newTestDense(t, 4, 0, 1, 2)
	applied, err := restored.ApplyWeightUpdates(d.SnapshotWeights())
	if err != nil {
		t.Fatalf("ApplyWeightUpdates() error = %v", err)
	}
	if applied != 2 {
		t.Fatalf("ApplyWeightUpdates() = %d, want 2", applied)
	}
	for _, pair := range []ConnectionID{conn(0, 1), conn(1, 2)} {
		want, _, _ := d.Weight(pair.Source, pair.Target)
		got, _, _ := restored.Weight(pair.Source, pair.Target)
		if !approx(got, want) {
			t.Errorf("restored weight %s = %v, want %v", pair, got, want)
		}
	}
}

func TestDenseStore_Stats(t *testing.T) {
	d := newTestDense(t, 4, 0, 1, 2)
	if err := d.SetWeight(0, 1, 2.0); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := d.SetWeight(1, 2, 4.0); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}

	s := d.Stats()
	if s.Connections != 2 || s.Neurons != 3 {
		t.Errorf("Stats() = %d connections %d neurons, want 2 and 3", s.Connections, s.Neurons)
	}
	if !approxF64(s.TotalWeight, 6) || !approxF64(s.AvgWeight, 3) {
		t.Errorf("Stats() total = %v avg = %v, want 6 and 3", s.TotalWeight, s.AvgWeight)
	}
	if capVal, ok := findMetric(s, "matrix_capacity"); !ok || capVal != 4 {
		t.Errorf("matrix_capacity = %v, want 4", capVal)
	}
}

func TestDenseStore_ValidateAndReset(t *testing.T) {
	d := newTestDense(t, 3, 0, 1)
	if err := d.SetWeight(0, 1, 1.0); err != nil {
		t.Fatalf("SetWeight() error = %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	d.Reset()
	if got := d.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount() = %d after reset, want 0", got)
	}
	if got := d.NeuronCount(); got != 0 {
		t.Errorf("NeuronCount() = %d after reset, want 0; reset drops registrations", got)
	}
	if _, ok := d.Index(0); ok {
		t.Error("Index(0) ok = true after reset, want false")
	}
	// Slots are reusable after a reset even though live stores never
	// recycle them.
	if _, err := d.AddNode(5); err != nil {
		t.Errorf("AddNode() after reset error = %v", err)
	}
}

func TestFullyConnectedDense(t *testing.T) {
	d, err := FullyConnectedDense([]spike.NeuronID{0, 1, 2}, 1.5)
	if err != nil {
		t.Fatalf("FullyConnectedDense() error = %v", err)
	}
	if got := d.ConnectionCount(); got != 6 {
		t.Errorf("ConnectionCount() = %d, want 6 without self loops", got)
	}
	w, ok, err := d.Weight(2, 0)
	if err != nil || !ok || !approx(w, 1.5) {
		t.Errorf("Weight(2,0) = (%v, %v, %v), want (1.5, true, nil)", w, ok, err)
	}
}
