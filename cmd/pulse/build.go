package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pulse/internal/config"
	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/network"
)

// loadConfig resolves the configuration for a command invocation. An
// explicit --config file is taken as is; otherwise the default lookup
// (./pulse.yaml plus PULSE_* environment overrides) applies.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// topologyKind normalizes the configured kind, mapping the empty default
// to "graph".
func topologyKind(cfg *config.Config) string {
	if cfg.Topology.Kind == "" {
		return "graph"
	}
	return cfg.Topology.Kind
}

// buildStore constructs the configured topology. Mutation-capable kinds
// come back behind the plastic union so one engine type serves every
// backend; the hypergraph store is returned directly and learning on it
// is counted without being applied.
func buildStore(cfg *config.Config) (connectivity.Store, error) {
	t := cfg.Topology
	switch topologyKind(cfg) {
	case "graph":
		store, _, err := network.FeedforwardStore(t.Inputs, t.Hidden, t.Outputs, t.Weight)
		if err != nil {
			return nil, fmt.Errorf("build graph topology: %w", err)
		}
		return connectivity.FromGraph(store), nil
	case "dense":
		store, err := network.FullyConnectedDenseStore(t.Size, t.Weight)
		if err != nil {
			return nil, fmt.Errorf("build dense topology: %w", err)
		}
		return connectivity.FromDense(store), nil
	case "sparse":
		store, err := network.SparseRandomStore(t.Size, t.Density, t.MinWeight, t.MaxWeight, t.Seed)
		if err != nil {
			return nil, fmt.Errorf("build sparse topology: %w", err)
		}
		return connectivity.FromSparse(store), nil
	case "hypergraph":
		store, err := network.HypergraphDemoStore(t.Size, t.Hyperedges)
		if err != nil {
			return nil, fmt.Errorf("build hypergraph topology: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown topology kind: %s", t.Kind)
	}
}

// buildNetwork assembles the engine from the configuration: topology,
// neuron pool, time step, queue bound, determinism and plasticity.
func buildNetwork(cfg *config.Config, logger *slog.Logger) (*network.Network[connectivity.Store], error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}
	timeStep, err := cfg.Simulation.TimeStep()
	if err != nil {
		return nil, fmt.Errorf("time step: %w", err)
	}

	b := network.NewBuilder[connectivity.Store]().
		WithStore(store).
		WithNeurons(cfg.Topology.NeuronCount(), cfg.Neuron.ModelFunc()).
		WithTimeStep(timeStep).
		WithMaxPendingSpikes(cfg.Simulation.MaxPendingSpikes).
		WithDeterminism(cfg.Simulation.Determinism).
		WithPlasticity(cfg.Plasticity)
	if logger != nil {
		b.WithLogger(logger)
	}
	return b.Build()
}
