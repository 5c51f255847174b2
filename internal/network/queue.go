package network

import (
	"github.com/nvandessel/pulse/internal/spike"
)

// spikeQueue holds pending spikes in non-decreasing delivery-time order.
// Insertion is linear from the front; simulation queues stay short because
// the engine drains everything due each step.
type spikeQueue struct {
	items []spike.TimedSpike
}

func (q *spikeQueue) Len() int {
	return len(q.items)
}

// Peek returns the earliest pending spike without removing it.
func (q *spikeQueue) Peek() (spike.TimedSpike, bool) {
	if len(q.items) == 0 {
		return spike.TimedSpike{}, false
	}
	return q.items[0], true
}

// PopFront removes and returns the earliest pending spike.
func (q *spikeQueue) PopFront() (spike.TimedSpike, bool) {
	if len(q.items) == 0 {
		return spike.TimedSpike{}, false
	}
	ts := q.items[0]
	q.items = q.items[1:]
	return ts, true
}

// Insert places ts by delivery time. When stable is false a new spike goes
// in front of any already-queued spike with the same delivery time; when
// stable is true equal delivery times are ordered by source id, and full
// ties keep insertion order.
func (q *spikeQueue) Insert(ts spike.TimedSpike, stable bool) {
	pos := len(q.items)
	for i, existing := range q.items {
		if before(ts, existing, stable) {
			pos = i
			break
		}
	}
	q.items = append(q.items, spike.TimedSpike{})
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = ts
}

// before reports whether a newly inserted spike belongs ahead of an
// already-queued one.
func before(inserted, existing spike.TimedSpike, stable bool) bool {
	if !stable {
		return inserted.DeliveryTime <= existing.DeliveryTime
	}
	if inserted.DeliveryTime != existing.DeliveryTime {
		return inserted.DeliveryTime < existing.DeliveryTime
	}
	return inserted.Spike.Source < existing.Spike.Source
}

// Snapshot copies the pending spikes in queue order.
func (q *spikeQueue) Snapshot() []spike.TimedSpike {
	out := make([]spike.TimedSpike, len(q.items))
	copy(out, q.items)
	return out
}

func (q *spikeQueue) Clear() {
	q.items = q.items[:0]
}
