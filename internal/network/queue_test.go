package network

import (
	"testing"

	"github.com/nvandessel/pulse/internal/spike"
)

func queued(t *testing.T, source spike.NeuronID, deliveryMillis uint64) spike.TimedSpike {
	t.Helper()
	s, err := spike.Unit(source, 0)
	if err != nil {
		t.Fatalf("Unit(%d) = %v", source, err)
	}
	return spike.Timed(s, spike.TimeFromMillis(deliveryMillis))
}

func drainSources(t *testing.T, q *spikeQueue) []spike.NeuronID {
	t.Helper()
	var out []spike.NeuronID
	for {
		ts, ok := q.PopFront()
		if !ok {
			break
		}
		out = append(out, ts.Spike.Source)
	}
	return out
}

func TestSpikeQueue_OrdersByDeliveryTime(t *testing.T) {
	var q spikeQueue
	q.Insert(queued(t, 0, 30), false)
	q.Insert(queued(t, 1, 10), false)
	q.Insert(queued(t, 2, 20), false)

	var times []uint64
	for {
		ts, ok := q.PopFront()
		if !ok {
			break
		}
		times = append(times, ts.DeliveryTime.Millis())
	}
	want := []uint64{10, 20, 30}
	if len(times) != len(want) {
		t.Fatalf("drained %d spikes, want %d", len(times), len(want))
	}
	for i := range want {
		if times[i] != want[i] {
			t.Errorf("delivery[%d] = %dms, want %dms", i, times[i], want[i])
		}
	}
}

func TestSpikeQueue_TiesFavorNewestByDefault(t *testing.T) {
	var q spikeQueue
	q.Insert(queued(t, 0, 5), false)
	q.Insert(queued(t, 1, 5), false)
	q.Insert(queued(t, 2, 5), false)

	got := drainSources(t, &q)
	want := []spike.NeuronID{2, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drain order = %v, want %v", got, want)
			break
		}
	}
}

func TestSpikeQueue_StableTiesOrderBySource(t *testing.T) {
	var q spikeQueue
	q.Insert(queued(t, 2, 5), true)
	q.Insert(queued(t, 0, 5), true)
	q.Insert(queued(t, 1, 5), true)

	got := drainSources(t, &q)
	want := []spike.NeuronID{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drain order = %v, want %v", got, want)
			break
		}
	}
}

func TestSpikeQueue_StableKeepsInsertionOrderOnFullTie(t *testing.T) {
	var q spikeQueue
	first, err := spike.New(3, 0, 0.25)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	second, err := spike.New(3, 0, 0.75)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	q.Insert(spike.Timed(first, spike.TimeFromMillis(5)), true)
	q.Insert(spike.Timed(second, spike.TimeFromMillis(5)), true)

	got, ok := q.PopFront()
	if !ok || got.Spike.Amplitude != 0.25 {
		t.Errorf("first pop amplitude = %v, want 0.25", got.Spike.Amplitude)
	}
}

func TestSpikeQueue_StableOrdersAcrossDeliveryTimes(t *testing.T) {
	var q spikeQueue
	q.Insert(queued(t, 0, 20), true)
	q.Insert(queued(t, 1, 10), true)

	got, ok := q.Peek()
	if !ok || got.Spike.Source != 1 {
		t.Errorf("Peek() source = %v, want 1", got.Spike.Source)
	}
}

func TestSpikeQueue_EmptyPeekAndPop(t *testing.T) {
	var q spikeQueue
	if _, ok := q.Peek(); ok {
		t.Error("Peek() on empty queue reported a spike")
	}
	if _, ok := q.PopFront(); ok {
		t.Error("PopFront() on empty queue reported a spike")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestSpikeQueue_SnapshotIsACopy(t *testing.T) {
	var q spikeQueue
	q.Insert(queued(t, 0, 1), false)
	q.Insert(queued(t, 1, 2), false)

	snap := q.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() length = %d, want 2", len(snap))
	}
	snap[0].Spike.Source = 99
	if got, _ := q.Peek(); got.Spike.Source == 99 {
		t.Error("mutating the snapshot changed the queue")
	}
}

func TestSpikeQueue_Clear(t *testing.T) {
	var q spikeQueue
	q.Insert(queued(t, 0, 1), false)
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", q.Len())
	}
}
