package network

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/neuron"
	"github.com/nvandessel/pulse/internal/plasticity"
	"github.com/nvandessel/pulse/internal/spike"
)

// PlasticityConfig selects the learning behavior of a built network.
type PlasticityConfig struct {
	// Enabled turns plasticity on. With a nil STDP rule the network still
	// builds, but the manager stays disabled.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Strict makes Build fail with ErrCapabilityMismatch when plasticity
	// is enabled on a store that cannot mutate pair weights. Without it
	// such networks compute and count weight changes without applying
	// them.
	Strict bool `yaml:"strict" json:"strict"`

	// STDP is the timing rule to install.
	STDP *plasticity.Config `yaml:"stdp,omitempty" json:"stdp,omitempty"`

	// LearningRate multiplies every computed weight change. The
	// constructors set 1; a hand-built zero value freezes learning.
	LearningRate float32 `yaml:"learning_rate" json:"learning_rate"`
}

// PlasticityDisabled returns the default configuration: no learning.
func PlasticityDisabled() PlasticityConfig {
	return PlasticityConfig{LearningRate: 1}
}

// PlasticityWithSTDP returns a configuration with the given STDP rule
// enabled at learning rate 1.
func PlasticityWithSTDP(rule plasticity.Config) PlasticityConfig {
	return PlasticityConfig{Enabled: true, STDP: &rule, LearningRate: 1}
}

// ModelFunc constructs the neuron model for one id. Builders use it to
// populate the pool when no explicit pool is supplied.
type ModelFunc func(id spike.NeuronID) (neuron.Model, error)

// Builder assembles a Network step by step. Zero-valued knobs keep the
// engine defaults.
type Builder[S connectivity.Store] struct {
	store       S
	haveStore   bool
	pool        *neuron.Pool
	neuronCount int
	newModel    ModelFunc
	timeStep    spike.Duration
	maxPending  int
	determinism DeterminismConfig
	plasticity  PlasticityConfig
	logger      *slog.Logger
}

// NewBuilder creates a builder with plasticity disabled and engine
// defaults for everything else.
func NewBuilder[S connectivity.Store]() *Builder[S] {
	return &Builder[S]{plasticity: PlasticityDisabled()}
}

// WithStore sets the connectivity backend. Build fails without one.
func (b *Builder[S]) WithStore(store S) *Builder[S] {
	b.store = store
	b.haveStore = true
	return b
}

// WithPool supplies a prebuilt neuron pool, overriding WithNeurons.
func (b *Builder[S]) WithPool(pool *neuron.Pool) *Builder[S] {
	b.pool = pool
	return b
}

// WithNeurons has Build populate a pool with count models, ids assigned
// densely from zero. A nil constructor yields LIF neurons with default
// parameters.
func (b *Builder[S]) WithNeurons(count int, newModel ModelFunc) *Builder[S] {
	b.neuronCount = count
	b.newModel = newModel
	return b
}

// WithTimeStep sets the span simulated by each engine step.
func (b *Builder[S]) WithTimeStep(d spike.Duration) *Builder[S] {
	b.timeStep = d
	return b
}

// WithMaxPendingSpikes sets the pending queue capacity.
func (b *Builder[S]) WithMaxPendingSpikes(limit int) *Builder[S] {
	b.maxPending = limit
	return b
}

// WithDeterminism sets the event ordering configuration.
func (b *Builder[S]) WithDeterminism(cfg DeterminismConfig) *Builder[S] {
	b.determinism = cfg
	return b
}

// WithPlasticity replaces the plasticity configuration.
func (b *Builder[S]) WithPlasticity(cfg PlasticityConfig) *Builder[S] {
	b.plasticity = cfg
	return b
}

// EnableSTDP enables plasticity with the default STDP rule.
func (b *Builder[S]) EnableSTDP() *Builder[S] {
	return b.WithPlasticity(PlasticityWithSTDP(plasticity.DefaultConfig()))
}

// WithSTDP enables plasticity with a custom STDP rule.
func (b *Builder[S]) WithSTDP(rule plasticity.Config) *Builder[S] {
	return b.WithPlasticity(PlasticityWithSTDP(rule))
}

// WithLogger sets the logger handed to the built network.
func (b *Builder[S]) WithLogger(logger *slog.Logger) *Builder[S] {
	b.logger = logger
	return b
}

// Build assembles the network. It validates the plasticity rule, the
// strict capability requirement, and every explicitly set knob.
func (b *Builder[S]) Build() (*Network[S], error) {
	if !b.haveStore {
		return nil, fmt.Errorf("connectivity store not specified: %w", errs.ErrInvalidInput)
	}

	pool := b.pool
	if pool == nil {
		var err error
		pool, err = buildPool(b.neuronCount, b.newModel)
		if err != nil {
			return nil, err
		}
	}

	mgr, err := b.plasticity.manager()
	if err != nil {
		return nil, err
	}
	if b.plasticity.Enabled && b.plasticity.Strict {
		if _, ok := any(b.store).(connectivity.Plastic); !ok {
			return nil, fmt.Errorf("plasticity requires a store with mutable pair weights: %w",
				errs.ErrCapabilityMismatch)
		}
	}

	n := New(b.store, pool, mgr)
	if b.timeStep != 0 {
		if err := n.SetTimeStep(b.timeStep); err != nil {
			return nil, err
		}
	}
	if b.maxPending != 0 {
		if err := n.SetMaxPending(b.maxPending); err != nil {
			return nil, err
		}
	}
	n.SetDeterminism(b.determinism)
	if b.logger != nil {
		n.SetLogger(b.logger)
	}
	return n, nil
}

func buildPool(count int, newModel ModelFunc) (*neuron.Pool, error) {
	if newModel == nil {
		newModel = func(id spike.NeuronID) (neuron.Model, error) {
			return neuron.NewLIF(id, neuron.DefaultLIFParams())
		}
	}
	pool := neuron.NewPoolWithCapacity(count)
	for i := 0; i < count; i++ {
		m, err := newModel(spike.NeuronID(i))
		if err != nil {
			return nil, fmt.Errorf("create neuron %d: %w", i, err)
		}
		pool.Add(m)
	}
	return pool, nil
}

func (c PlasticityConfig) manager() (*plasticity.Manager, error) {
	if !c.Enabled || c.STDP == nil {
		return plasticity.NewManager(), nil
	}
	mgr, err := plasticity.NewManagerWithSTDP(*c.STDP)
	if err != nil {
		return nil, fmt.Errorf("plasticity: %w", err)
	}
	mgr.SetLearningRate(c.LearningRate)
	return mgr, nil
}

// FeedforwardGraph builds a two-layer feedforward network on the graph
// backend: every input connects to every hidden neuron and every hidden
// neuron to every output, all at the given weight. Neuron ids run input,
// hidden, output, densely from zero. STDP is enabled with defaults.
func FeedforwardGraph(inputSize, hiddenSize, outputSize int, weight float32) (*Network[*connectivity.GraphStore], error) {
	store, total, err := feedforwardStore(inputSize, hiddenSize, outputSize, weight)
	if err != nil {
		return nil, err
	}
	return NewBuilder[*connectivity.GraphStore]().
		WithStore(store).
		WithNeurons(total, nil).
		EnableSTDP().
		Build()
}

// FullyConnectedDense builds an all-to-all network without self loops on
// the dense matrix backend, STDP enabled with defaults.
func FullyConnectedDense(size int, weight float32) (*Network[*connectivity.DenseMatrixStore], error) {
	store, err := fullyConnectedDenseStore(size, weight)
	if err != nil {
		return nil, err
	}
	return NewBuilder[*connectivity.DenseMatrixStore]().
		WithStore(store).
		WithNeurons(size, nil).
		EnableSTDP().
		Build()
}

// SparseRandom builds a randomly connected network on the sparse matrix
// backend. Each ordered non-self pair connects with the given probability
// at a weight drawn uniformly from [minWeight, maxWeight). The seed fully
// determines the topology. STDP is enabled with defaults.
func SparseRandom(size int, probability float32, minWeight, maxWeight float32, seed int64) (*Network[*connectivity.SparseMatrixStore], error) {
	store, err := sparseRandomStore(size, probability, minWeight, maxWeight, seed)
	if err != nil {
		return nil, err
	}
	return NewBuilder[*connectivity.SparseMatrixStore]().
		WithStore(store).
		WithNeurons(size, nil).
		EnableSTDP().
		Build()
}

// HypergraphNetwork builds a demo network of mixed-arity hyperedges over
// size neurons. Member sets are derived from the edge index, so the
// topology is reproducible. STDP stays disabled: the hypergraph store
// cannot mutate pair weights.
func HypergraphNetwork(size, edgeCount int) (*Network[*connectivity.HypergraphStore], error) {
	store, err := hypergraphDemoStore(size, edgeCount)
	if err != nil {
		return nil, err
	}
	return NewBuilder[*connectivity.HypergraphStore]().
		WithStore(store).
		WithNeurons(size, nil).
		Build()
}

// FeedforwardGraphPlastic is FeedforwardGraph behind the closed plastic
// union, for callers that select the backend at runtime.
func FeedforwardGraphPlastic(inputSize, hiddenSize, outputSize int, weight float32) (*Network[*connectivity.PlasticStore], error) {
	store, total, err := feedforwardStore(inputSize, hiddenSize, outputSize, weight)
	if err != nil {
		return nil, err
	}
	return NewBuilder[*connectivity.PlasticStore]().
		WithStore(connectivity.FromGraph(store)).
		WithNeurons(total, nil).
		EnableSTDP().
		Build()
}

// FullyConnectedDensePlastic is FullyConnectedDense behind the closed
// plastic union.
func FullyConnectedDensePlastic(size int, weight float32) (*Network[*connectivity.PlasticStore], error) {
	store, err := fullyConnectedDenseStore(size, weight)
	if err != nil {
		return nil, err
	}
	return NewBuilder[*connectivity.PlasticStore]().
		WithStore(connectivity.FromDense(store)).
		WithNeurons(size, nil).
		EnableSTDP().
		Build()
}

// SparseRandomPlastic is SparseRandom behind the closed plastic union.
func SparseRandomPlastic(size int, probability float32, minWeight, maxWeight float32, seed int64) (*Network[*connectivity.PlasticStore], error) {
	store, err := sparseRandomStore(size, probability, minWeight, maxWeight, seed)
	if err != nil {
		return nil, err
	}
	return NewBuilder[*connectivity.PlasticStore]().
		WithStore(connectivity.FromSparse(store)).
		WithNeurons(size, nil).
		EnableSTDP().
		Build()
}

func feedforwardStore(inputSize, hiddenSize, outputSize int, weight float32) (*connectivity.GraphStore, int, error) {
	if inputSize <= 0 || hiddenSize <= 0 || outputSize <= 0 {
		return nil, 0, fmt.Errorf("feedforward layer sizes must be positive, got %d/%d/%d: %w",
			inputSize, hiddenSize, outputSize, errs.ErrInvalidInput)
	}
	total := inputSize + hiddenSize + outputSize
	store := connectivity.NewGraphStore()
	for i := 0; i < inputSize; i++ {
		for j := inputSize; j < inputSize+hiddenSize; j++ {
			if err := store.AddEdge(connectivity.NewEdge(spike.NeuronID(i), spike.NeuronID(j), weight)); err != nil {
				return nil, 0, err
			}
		}
	}
	for i := inputSize; i < inputSize+hiddenSize; i++ {
		for j := inputSize + hiddenSize; j < total; j++ {
			if err := store.AddEdge(connectivity.NewEdge(spike.NeuronID(i), spike.NeuronID(j), weight)); err != nil {
				return nil, 0, err
			}
		}
	}
	return store, total, nil
}

func fullyConnectedDenseStore(size int, weight float32) (*connectivity.DenseMatrixStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("network size must be positive, got %d: %w", size, errs.ErrInvalidInput)
	}
	return connectivity.FullyConnectedDense(denseIDs(size), weight)
}

func sparseRandomStore(size int, probability float32, minWeight, maxWeight float32, seed int64) (*connectivity.SparseMatrixStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("network size must be positive, got %d: %w", size, errs.ErrInvalidInput)
	}
	if probability < 0 || probability > 1 {
		return nil, fmt.Errorf("connection probability %v outside [0, 1]: %w", probability, errs.ErrInvalidInput)
	}
	if minWeight > maxWeight {
		return nil, fmt.Errorf("weight range [%v, %v) is inverted: %w", minWeight, maxWeight, errs.ErrInvalidInput)
	}

	store := connectivity.NewSparseMatrixStore(size)
	for i := 0; i < size; i++ {
		if _, err := store.AddNode(spike.NeuronID(i)); err != nil {
			return nil, err
		}
	}
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i == j {
				continue
			}
			if rng.Float32() >= probability {
				continue
			}
			weight := minWeight + (maxWeight-minWeight)*rng.Float32()
			if err := store.SetWeight(spike.NeuronID(i), spike.NeuronID(j), weight); err != nil {
				return nil, err
			}
		}
	}
	return store, nil
}

func hypergraphDemoStore(size, edgeCount int) (*connectivity.HypergraphStore, error) {
	if size <= 0 {
		return nil, fmt.Errorf("network size must be positive, got %d: %w", size, errs.ErrInvalidInput)
	}
	store := connectivity.NewHypergraphStore()
	for i := 0; i < edgeCount; i++ {
		// Edge arity cycles from 2 to 5 members with 1 or 2 sources, so
		// a handful of edges covers every hyperedge kind.
		edgeSize := 2 + i%4
		sourceCount := 1 + i%2
		targetCount := edgeSize - sourceCount
		if targetCount < 1 {
			targetCount = 1
		}
		sources := make([]spike.NeuronID, sourceCount)
		for j := range sources {
			sources[j] = spike.NeuronID((i + j) % size)
		}
		targets := make([]spike.NeuronID, targetCount)
		for j := range targets {
			targets[j] = spike.NeuronID((i + sourceCount + j) % size)
		}
		if _, err := store.Connect(sources, targets, 1.0); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func denseIDs(size int) []spike.NeuronID {
	ids := make([]spike.NeuronID, size)
	for i := range ids {
		ids[i] = spike.NeuronID(i)
	}
	return ids
}
