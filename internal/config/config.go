// Package config provides unified configuration loading for pulse.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nvandessel/pulse/internal/constants"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/neuron"
	"github.com/nvandessel/pulse/internal/plasticity"
	"github.com/nvandessel/pulse/internal/spike"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file Load looks for in the working directory.
const DefaultPath = "pulse.yaml"

// Config contains all pulse configuration settings.
type Config struct {
	// Simulation contains engine settings.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Plasticity contains learning settings.
	Plasticity network.PlasticityConfig `json:"plasticity" yaml:"plasticity"`

	// Neuron selects and parameterizes the node model.
	Neuron NeuronConfig `json:"neuron" yaml:"neuron"`

	// Topology describes the generated connectivity.
	Topology TopologyConfig `json:"topology" yaml:"topology"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Recording contains settings for run persistence.
	Recording RecordingConfig `json:"recording" yaml:"recording"`
}

// SimulationConfig configures the engine and the default run loop.
type SimulationConfig struct {
	// TimeStepMillis is the span simulated by one engine step.
	TimeStepMillis float64 `json:"time_step_ms" yaml:"time_step_ms"`

	// MaxPendingSpikes bounds the pending spike queue. Spikes scheduled
	// beyond the bound are rejected, never silently dropped.
	MaxPendingSpikes int `json:"max_pending_spikes" yaml:"max_pending_spikes"`

	// DurationMillis is the span simulated by a default run.
	DurationMillis float64 `json:"duration_ms" yaml:"duration_ms"`

	// Determinism selects reproducible event ordering.
	Determinism network.DeterminismConfig `json:"determinism" yaml:"determinism"`
}

// TimeStep converts the configured step to a simulation duration.
func (c SimulationConfig) TimeStep() (spike.Duration, error) {
	return spike.DurationFromMillisF(c.TimeStepMillis)
}

// Duration converts the configured run span to a simulation duration.
func (c SimulationConfig) Duration() (spike.Duration, error) {
	return spike.DurationFromMillisF(c.DurationMillis)
}

// NeuronConfig selects the node model used for generated networks.
type NeuronConfig struct {
	// Model is the node dynamics: "lif" (default) or "threshold".
	Model string `json:"model" yaml:"model"`

	// Threshold is the firing limit for the threshold model.
	Threshold float32 `json:"threshold" yaml:"threshold"`

	// LIF parameterizes the leaky integrate-and-fire model.
	LIF neuron.LIFParams `json:"lif" yaml:"lif"`
}

// ModelFunc returns the constructor matching the configuration, for use
// with the network builder.
func (c NeuronConfig) ModelFunc() network.ModelFunc {
	if c.Model == "threshold" {
		limit := c.Threshold
		return func(id spike.NeuronID) (neuron.Model, error) {
			return neuron.NewThreshold(id, limit)
		}
	}
	params := c.LIF
	return func(id spike.NeuronID) (neuron.Model, error) {
		return neuron.NewLIF(id, params)
	}
}

// TopologyConfig describes the connectivity generated for a run.
type TopologyConfig struct {
	// Kind selects the backend: "graph" (default), "dense", "sparse",
	// or "hypergraph".
	Kind string `json:"kind" yaml:"kind"`

	// Inputs, Hidden and Outputs are the feedforward layer sizes used by
	// the graph kind.
	Inputs  int `json:"inputs" yaml:"inputs"`
	Hidden  int `json:"hidden" yaml:"hidden"`
	Outputs int `json:"outputs" yaml:"outputs"`

	// Size is the neuron count for the dense, sparse and hypergraph kinds.
	Size int `json:"size" yaml:"size"`

	// Weight is the initial connection weight for generated edges.
	Weight float32 `json:"weight" yaml:"weight"`

	// Density is the connection probability for the sparse kind.
	Density float32 `json:"density" yaml:"density"`

	// MinWeight and MaxWeight bound randomly drawn sparse weights.
	MinWeight float32 `json:"min_weight" yaml:"min_weight"`
	MaxWeight float32 `json:"max_weight" yaml:"max_weight"`

	// Seed drives the sparse random generator; a fixed seed reproduces
	// the same wiring.
	Seed int64 `json:"seed" yaml:"seed"`

	// Hyperedges is the edge count for the hypergraph kind.
	Hyperedges int `json:"hyperedges" yaml:"hyperedges"`
}

// NeuronCount returns the number of neurons the topology will create.
func (c TopologyConfig) NeuronCount() int {
	if c.Kind == "graph" || c.Kind == "" {
		return c.Inputs + c.Hidden + c.Outputs
	}
	return c.Size
}

// LoggingConfig configures pulse's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event tracing to <dir>/trace.jsonl.
	// "trace" additionally includes per-spike delivery events.
	Level string `json:"level" yaml:"level"`

	// Dir is the directory trace files are written to.
	Dir string `json:"dir" yaml:"dir"`
}

// RecordingConfig configures run persistence.
type RecordingConfig struct {
	// Enabled turns on recording of emitted spikes and final weights.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file runs are recorded to.
	Path string `json:"path" yaml:"path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	stdp := plasticity.DefaultConfig()
	return &Config{
		Simulation: SimulationConfig{
			TimeStepMillis:   float64(constants.DefaultTimeStepNanos) / 1e6,
			MaxPendingSpikes: constants.DefaultMaxPendingSpikes,
			DurationMillis:   100,
		},
		Plasticity: network.PlasticityConfig{
			Enabled:      false,
			STDP:         &stdp,
			LearningRate: 1.0,
		},
		Neuron: NeuronConfig{
			Model:     "lif",
			Threshold: 0.5,
			LIF:       neuron.DefaultLIFParams(),
		},
		Topology: TopologyConfig{
			Kind:       "graph",
			Inputs:     2,
			Hidden:     3,
			Outputs:    1,
			Size:       10,
			Weight:     1.0,
			Density:    0.1,
			MinWeight:  0.1,
			MaxWeight:  1.0,
			Seed:       42,
			Hyperedges: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".pulse",
		},
		Recording: RecordingConfig{
			Enabled: false,
			Path:    "pulse.db",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ./pulse.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	// Try to load from default config file
	if _, statErr := os.Stat(DefaultPath); statErr == nil {
		fileConfig, loadErr := LoadFromFile(DefaultPath)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Simulation.TimeStepMillis <= 0 {
		return fmt.Errorf("time_step_ms must be positive, got %v", c.Simulation.TimeStepMillis)
	}
	if c.Simulation.MaxPendingSpikes <= 0 {
		return fmt.Errorf("max_pending_spikes must be positive, got %d", c.Simulation.MaxPendingSpikes)
	}
	if c.Simulation.DurationMillis < 0 {
		return fmt.Errorf("duration_ms must be non-negative, got %v", c.Simulation.DurationMillis)
	}

	if c.Plasticity.Enabled && c.Plasticity.STDP != nil {
		if err := c.Plasticity.STDP.Validate(); err != nil {
			return fmt.Errorf("plasticity: %w", err)
		}
	}
	if c.Plasticity.LearningRate < 0 {
		return fmt.Errorf("learning_rate must be non-negative, got %v", c.Plasticity.LearningRate)
	}

	validModels := map[string]bool{"": true, "lif": true, "threshold": true}
	if !validModels[c.Neuron.Model] {
		return fmt.Errorf("invalid neuron model: %s (valid: lif, threshold, or empty for default)", c.Neuron.Model)
	}
	if c.Neuron.Model == "threshold" && c.Neuron.Threshold <= 0 {
		return fmt.Errorf("neuron threshold must be positive, got %v", c.Neuron.Threshold)
	}

	validKinds := map[string]bool{"": true, "graph": true, "dense": true, "sparse": true, "hypergraph": true}
	if !validKinds[c.Topology.Kind] {
		return fmt.Errorf("invalid topology kind: %s (valid: graph, dense, sparse, hypergraph, or empty for default)", c.Topology.Kind)
	}
	if c.Topology.NeuronCount() <= 0 {
		return fmt.Errorf("topology produces no neurons: kind %q needs positive sizes", c.Topology.Kind)
	}
	if c.Topology.Density < 0 || c.Topology.Density > 1 {
		return fmt.Errorf("density must be between 0 and 1, got %v", c.Topology.Density)
	}
	if c.Topology.MinWeight > c.Topology.MaxWeight {
		return fmt.Errorf("min_weight %v exceeds max_weight %v", c.Topology.MinWeight, c.Topology.MaxWeight)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Recording.Enabled && c.Recording.Path == "" {
		return fmt.Errorf("recording enabled without a database path")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PULSE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("PULSE_TIME_STEP_MS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.TimeStepMillis = f
		}
	}

	if v := os.Getenv("PULSE_MAX_PENDING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.MaxPendingSpikes = n
		}
	}

	if v := os.Getenv("PULSE_DURATION_MS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.DurationMillis = f
		}
	}

	// One switch turns on the whole determinism triple: reproducible runs
	// are the common case for CLI use.
	if v := os.Getenv("PULSE_DETERMINISTIC"); v != "" {
		on := v == "true" || v == "1"
		config.Simulation.Determinism = network.DeterminismConfig{
			Enabled:       on,
			SortInputs:    on,
			StableRouting: on,
		}
	}

	if v := os.Getenv("PULSE_PLASTICITY"); v != "" {
		config.Plasticity.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("PULSE_LEARNING_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			config.Plasticity.LearningRate = float32(f)
		}
	}

	if v := os.Getenv("PULSE_TOPOLOGY_KIND"); v != "" {
		config.Topology.Kind = v
	}

	if v := os.Getenv("PULSE_TOPOLOGY_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Topology.Seed = n
		}
	}

	if v := os.Getenv("PULSE_RECORDING"); v != "" {
		config.Recording.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("PULSE_RECORDING_PATH"); v != "" {
		config.Recording.Path = v
	}
}
