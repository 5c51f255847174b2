package main

import (
	"fmt"
	"math/rand"

	"github.com/nvandessel/pulse/internal/config"
	"github.com/nvandessel/pulse/internal/spike"
)

// stimulusParams describes the input drive for a run.
type stimulusParams struct {
	// Kind selects the pattern: "regular", "poisson" or "none".
	Kind string
	// RateHz is the per-source firing rate.
	RateHz float64
	// Amplitude is carried by every generated spike.
	Amplitude float32
	// Sources is the number of stimulated neurons, ids assigned from
	// zero. Zero means the topology default.
	Sources int
	// Seed drives the poisson generator.
	Seed int64
}

// stimulusSources resolves the stimulated neuron ids. The graph topology
// drives its whole input layer by default; the other kinds drive neuron 0.
func stimulusSources(cfg *config.Config, requested int) []spike.NeuronID {
	count := requested
	if count <= 0 {
		if topologyKind(cfg) == "graph" {
			count = cfg.Topology.Inputs
		} else {
			count = 1
		}
	}
	if total := cfg.Topology.NeuronCount(); count > total {
		count = total
	}
	ids := make([]spike.NeuronID, count)
	for i := range ids {
		ids[i] = spike.NeuronID(i)
	}
	return ids
}

// buildStimulus generates the input train for a run, sorted by
// (timestamp, source).
func buildStimulus(p stimulusParams, sources []spike.NeuronID, duration spike.Duration) (spike.Train, error) {
	switch p.Kind {
	case "none":
		return nil, nil
	case "regular", "":
		return regularTrain(sources, p.RateHz, duration, p.Amplitude), nil
	case "poisson":
		return poissonTrain(sources, p.RateHz, duration, p.Amplitude, p.Seed), nil
	default:
		return nil, fmt.Errorf("unknown stimulus pattern: %s (valid: regular, poisson, none)", p.Kind)
	}
}

// regularTrain emits evenly spaced spikes for each source, starting at
// time zero.
func regularTrain(sources []spike.NeuronID, rateHz float64, duration spike.Duration, amplitude float32) spike.Train {
	if rateHz <= 0 || len(sources) == 0 {
		return nil
	}
	interval := uint64(1e9 / rateHz)
	if interval == 0 {
		interval = 1
	}

	var train spike.Train
	for ns := uint64(0); ns < duration.Nanos(); ns += interval {
		at := spike.TimeFromNanos(ns)
		for _, src := range sources {
			train = append(train, spike.Spike{Source: src, Timestamp: at, Amplitude: amplitude})
		}
	}
	train.Sort()
	return train
}

// poissonTrain draws exponentially distributed inter-spike intervals per
// source. The seed fully determines the train.
func poissonTrain(sources []spike.NeuronID, rateHz float64, duration spike.Duration, amplitude float32, seed int64) spike.Train {
	if rateHz <= 0 || len(sources) == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))

	var train spike.Train
	for _, src := range sources {
		ns := uint64(rng.ExpFloat64() / rateHz * 1e9)
		for ns < duration.Nanos() {
			train = append(train, spike.Spike{Source: src, Timestamp: spike.TimeFromNanos(ns), Amplitude: amplitude})
			ns += uint64(rng.ExpFloat64()/rateHz*1e9) + 1
		}
	}
	train.Sort()
	return train
}
