// Package network implements the event-driven simulation engine. A Network
// drives spikes from a bounded pending queue through a connectivity store
// and a pool of neuron models on a fixed time step, applying plasticity to
// each (input, output) spike pair when a manager is enabled.
package network

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/constants"
	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/neuron"
	"github.com/nvandessel/pulse/internal/plasticity"
	"github.com/nvandessel/pulse/internal/spike"
)

// Engine defaults applied by New. Both can be overridden per network.
const (
	DefaultTimeStep   = spike.Duration(constants.DefaultTimeStepNanos)
	DefaultMaxPending = constants.DefaultMaxPendingSpikes
)

// DeterminismConfig selects reproducible event ordering. Enabled is the
// master switch: when it is false the other knobs are inert and the engine
// uses insertion order for ties.
type DeterminismConfig struct {
	// Enabled turns on deterministic tie-breaking in the pending queue:
	// spikes due at the same delivery time drain in source id order.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// SortInputs orders each injected batch by (timestamp, source) before
	// enqueueing, so callers may pass batches in any order.
	SortInputs bool `yaml:"sort_inputs" json:"sort_inputs"`

	// StableRouting orders the routes of a fan-out by their first target,
	// fixing the integration order across runs.
	StableRouting bool `yaml:"stable_routing" json:"stable_routing"`
}

// Network is the simulation engine. The type parameter fixes the
// connectivity backend at compile time; any Store drives routing, and
// stores that also implement connectivity.Plastic receive weight updates.
//
// A Network is not safe for concurrent use. Callers own serialization.
type Network[S connectivity.Store] struct {
	store      S
	pool       *neuron.Pool
	plasticity *plasticity.Manager

	pending     spikeQueue
	stats       Stats
	now         spike.Time
	timeStep    spike.Duration
	maxPending  int
	determinism DeterminismConfig
	logger      *slog.Logger
}

// New assembles an engine over a store and a neuron pool. A nil pool gets
// an empty one and a nil manager leaves plasticity disabled.
func New[S connectivity.Store](store S, pool *neuron.Pool, mgr *plasticity.Manager) *Network[S] {
	if pool == nil {
		pool = neuron.NewPool()
	}
	if mgr == nil {
		mgr = plasticity.NewManager()
	}
	return &Network[S]{
		store:      store,
		pool:       pool,
		plasticity: mgr,
		timeStep:   DefaultTimeStep,
		maxPending: DefaultMaxPending,
		logger:     slog.Default(),
	}
}

// SetTimeStep changes the span simulated by each Step call.
func (n *Network[S]) SetTimeStep(d spike.Duration) error {
	if d == 0 {
		return fmt.Errorf("time step must be positive: %w", errs.ErrInvalidInput)
	}
	n.timeStep = d
	return nil
}

// SetMaxPending changes the pending queue capacity. Spikes scheduled
// while the queue holds this many entries are rejected, never dropped.
func (n *Network[S]) SetMaxPending(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("max pending spikes must be positive, got %d: %w", limit, errs.ErrInvalidInput)
	}
	n.maxPending = limit
	return nil
}

// SetDeterminism replaces the event ordering configuration.
func (n *Network[S]) SetDeterminism(cfg DeterminismConfig) { n.determinism = cfg }

// SetLogger replaces the engine's logger. A nil logger restores the
// process default.
func (n *Network[S]) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
}

// Store returns the connectivity backend the engine routes through.
func (n *Network[S]) Store() S { return n.store }

// Pool returns the neuron pool the engine integrates into.
func (n *Network[S]) Pool() *neuron.Pool { return n.pool }

// Plasticity returns the engine's plasticity manager.
func (n *Network[S]) Plasticity() *plasticity.Manager { return n.plasticity }

// CurrentTime returns the simulation clock.
func (n *Network[S]) CurrentTime() spike.Time { return n.now }

// TimeStep returns the span advanced by each Step.
func (n *Network[S]) TimeStep() spike.Duration { return n.timeStep }

// MaxPending returns the pending queue capacity.
func (n *Network[S]) MaxPending() int { return n.maxPending }

// PendingSpikes returns the number of spikes waiting for delivery.
func (n *Network[S]) PendingSpikes() int { return n.pending.Len() }

// Determinism returns the event ordering configuration.
func (n *Network[S]) Determinism() DeterminismConfig { return n.determinism }

// AddSpike schedules a spike for delivery at the current simulation time.
// It fails with ErrCapacityExceeded when the pending queue is full.
func (n *Network[S]) AddSpike(s spike.Spike) error {
	return n.schedule(s, n.now)
}

// AddDelayedSpike schedules a spike for delivery after the given delay,
// measured from the current simulation time.
func (n *Network[S]) AddDelayedSpike(s spike.Spike, delay spike.Duration) error {
	return n.schedule(s, n.now.Add(delay))
}

func (n *Network[S]) schedule(s spike.Spike, delivery spike.Time) error {
	if n.pending.Len() >= n.maxPending {
		return fmt.Errorf("pending spike queue full at %d: %w", n.maxPending, errs.ErrCapacityExceeded)
	}
	n.pending.Insert(spike.Timed(s, delivery), n.determinism.Enabled)
	if depth := n.pending.Len(); depth > n.stats.PeakPending {
		n.stats.PeakPending = depth
	}
	return nil
}

// ProcessSpikes enqueues the inputs and delivers every pending spike due
// at or before the current time. Delivery routes the spike through the
// store, integrates each weighted target, and collects the spikes of
// neurons that fire. The simulation clock does not advance; future-dated
// spikes stay queued.
func (n *Network[S]) ProcessSpikes(inputs []spike.Spike) ([]spike.Spike, error) {
	if n.determinism.Enabled && n.determinism.SortInputs && len(inputs) > 1 {
		batch := make(spike.Train, len(inputs))
		copy(batch, inputs)
		batch.Sort()
		inputs = batch
	}
	for _, s := range inputs {
		if err := n.AddSpike(s); err != nil {
			return nil, err
		}
	}

	var outputs []spike.Spike
	for {
		next, ok := n.pending.Peek()
		if !ok || next.DeliveryTime.After(n.now) {
			break
		}
		n.pending.PopFront()

		delivered, err := n.deliver(next.Spike)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, delivered...)
		n.stats.SpikesProcessed++
	}

	n.stats.SpikesGenerated += uint64(len(outputs))
	n.stats.Activity.Record(len(inputs), len(outputs))
	return outputs, nil
}

// deliver routes one spike and integrates it into every resolved target,
// returning the output spikes fired in response.
func (n *Network[S]) deliver(s spike.Spike) ([]spike.Spike, error) {
	routes, err := n.store.RouteSpike(s, n.now)
	if err != nil {
		return nil, fmt.Errorf("route spike from neuron %d: %w: %w", s.Source, errs.ErrRoutingFailure, err)
	}
	if n.determinism.Enabled && n.determinism.StableRouting {
		sortRoutes(routes)
	}

	var outputs []spike.Spike
	for _, route := range routes {
		for i, target := range route.Targets {
			model := n.pool.Get(target)
			if model == nil {
				n.logger.Debug("spike routed to unknown neuron", "source", s.Source, "target", target)
				continue
			}
			weight := route.Weights[i]
			model.Integrate(weight, n.timeStep)
			out, fired := model.Update(n.now, n.timeStep)
			if !fired {
				continue
			}
			outputs = append(outputs, out)
			n.applyPlasticity(s, out, weight)
		}
	}
	return outputs, nil
}

// applyPlasticity computes the STDP weight change for an (input, output)
// pair and applies it to the pre->post connection. Plasticity never fails
// a delivery: stores without the Plastic capability skip the application
// silently, a store that rejects the update degrades to a no-op, and
// changes below the epsilon are computed and counted by the manager but
// never applied.
func (n *Network[S]) applyPlasticity(pre, post spike.Spike, weight float32) {
	if !n.plasticity.Enabled() {
		return
	}
	delta := n.plasticity.ComputeWeightChange(pre.Timestamp, post.Timestamp, weight)

	plastic, ok := any(n.store).(connectivity.Plastic)
	if !ok {
		return
	}
	if math.Abs(float64(delta)) <= constants.WeightChangeEpsilon {
		return
	}
	if _, _, err := plastic.ApplyPlasticity(pre.Source, post.Source, delta); err != nil {
		n.logger.Debug("plasticity update rejected",
			"pre", pre.Source, "post", post.Source, "delta", delta, "error", err)
		return
	}
	n.stats.PlasticityUpdates++
}

// Step processes all due pending spikes, then advances the simulation
// clock by one time step.
func (n *Network[S]) Step() ([]spike.Spike, error) {
	outputs, err := n.ProcessSpikes(nil)
	if err != nil {
		return nil, err
	}
	n.now = n.now.Add(n.timeStep)
	n.stats.SimulationSteps++
	return outputs, nil
}

// RunFor steps the simulation until the clock has advanced by the given
// span, collecting every output spike. It aborts with ErrCapacityExceeded
// if the pending queue overflows its limit, which indicates a runaway
// feedback loop.
func (n *Network[S]) RunFor(d spike.Duration) ([]spike.Spike, error) {
	end := n.now.Add(d)
	var all []spike.Spike
	for n.now.Before(end) {
		outputs, err := n.Step()
		if err != nil {
			return nil, err
		}
		all = append(all, outputs...)
		if n.pending.Len() > n.maxPending {
			return nil, fmt.Errorf("simulation unstable: %d pending spikes exceed limit %d: %w",
				n.pending.Len(), n.maxPending, errs.ErrCapacityExceeded)
		}
	}
	return all, nil
}

// Reset returns the engine to its initial state: neurons reset, pending
// spikes dropped, clock and statistics zeroed, plasticity counters
// cleared. Connectivity, including weights changed by plasticity, is
// left as is.
func (n *Network[S]) Reset() {
	n.pool.ResetAll()
	n.plasticity.Reset()
	n.pending.Clear()
	n.now = spike.TimeZero
	n.stats = Stats{}
}

// Validate checks the engine is runnable: the store must be internally
// consistent and the pool must hold at least one neuron.
func (n *Network[S]) Validate() error {
	if err := n.store.Validate(); err != nil {
		return fmt.Errorf("connectivity: %w", err)
	}
	if n.pool.Len() == 0 {
		return fmt.Errorf("network has no neurons: %w", errs.ErrInvalidInput)
	}
	return nil
}

// Stats returns a snapshot of the engine counters stamped with the
// current simulation time.
func (n *Network[S]) Stats() Stats {
	s := n.stats
	s.CurrentTime = n.now
	return s
}

// ConnectivityStats returns the store's own statistics.
func (n *Network[S]) ConnectivityStats() connectivity.Stats {
	return n.store.Stats()
}

// sortRoutes orders routes by their first target id. The sort is stable
// so routes sharing a first target keep the store's order.
func sortRoutes(routes []connectivity.Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		return firstTarget(routes[i]) < firstTarget(routes[j])
	})
}

func firstTarget(r connectivity.Route) spike.NeuronID {
	if len(r.Targets) == 0 {
		return 0
	}
	return r.Targets[0]
}
