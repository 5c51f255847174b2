package network

import (
	"github.com/nvandessel/pulse/internal/connectivity"
)

// FeedforwardStore builds the two-layer feedforward graph store used by
// FeedforwardGraph, returning the store and its total neuron count. Use it
// when the engine is assembled separately, such as from a config file.
func FeedforwardStore(inputSize, hiddenSize, outputSize int, weight float32) (*connectivity.GraphStore, int, error) {
	return feedforwardStore(inputSize, hiddenSize, outputSize, weight)
}

// FullyConnectedDenseStore builds the all-to-all dense store used by
// FullyConnectedDense.
func FullyConnectedDenseStore(size int, weight float32) (*connectivity.DenseMatrixStore, error) {
	return fullyConnectedDenseStore(size, weight)
}

// SparseRandomStore builds the seeded random sparse store used by
// SparseRandom.
func SparseRandomStore(size int, probability float32, minWeight, maxWeight float32, seed int64) (*connectivity.SparseMatrixStore, error) {
	return sparseRandomStore(size, probability, minWeight, maxWeight, seed)
}

// HypergraphDemoStore builds the mixed-arity hypergraph store used by
// HypergraphNetwork.
func HypergraphDemoStore(size, edgeCount int) (*connectivity.HypergraphStore, error) {
	return hypergraphDemoStore(size, edgeCount)
}
