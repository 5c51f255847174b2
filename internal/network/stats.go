package network

import (
	"fmt"
	"time"

	"github.com/nvandessel/pulse/internal/spike"
)

// Stats tracks simulation counters for one engine instance. Counters
// accumulate across steps until Reset.
type Stats struct {
	// SpikesProcessed counts queue events drained and routed.
	SpikesProcessed uint64 `json:"spikes_processed"`
	// SpikesGenerated counts output spikes emitted by node models.
	SpikesGenerated uint64 `json:"spikes_generated"`
	// SimulationSteps counts completed calls to Step.
	SimulationSteps uint64 `json:"simulation_steps"`
	// PlasticityUpdates counts weight changes handed to the store.
	PlasticityUpdates uint64 `json:"plasticity_updates"`
	// PeakPending is the high-water mark of the pending spike queue.
	PeakPending int `json:"peak_pending"`
	// CurrentTime is the simulation clock at capture.
	CurrentTime spike.Time `json:"current_time"`

	Activity    ActivityStats    `json:"activity"`
	Performance PerformanceStats `json:"performance"`
	Memory      MemoryStats      `json:"memory"`
}

// SpikeRate returns processed spikes per simulated second.
func (s *Stats) SpikeRate() float64 {
	if s.CurrentTime.Nanos() == 0 {
		return 0
	}
	return float64(s.SpikesProcessed) / s.CurrentTime.Secs()
}

// GenerationRate returns generated spikes per simulated second.
func (s *Stats) GenerationRate() float64 {
	if s.CurrentTime.Nanos() == 0 {
		return 0
	}
	return float64(s.SpikesGenerated) / s.CurrentTime.Secs()
}

// PlasticityRate returns plasticity updates per simulated second.
func (s *Stats) PlasticityRate() float64 {
	if s.CurrentTime.Nanos() == 0 {
		return 0
	}
	return float64(s.PlasticityUpdates) / s.CurrentTime.Secs()
}

// SpikesPerStep returns the average processed spikes per step.
func (s *Stats) SpikesPerStep() float64 {
	if s.SimulationSteps == 0 {
		return 0
	}
	return float64(s.SpikesProcessed) / float64(s.SimulationSteps)
}

// Efficiency returns the output-to-input spike ratio.
func (s *Stats) Efficiency() float64 {
	if s.SpikesProcessed == 0 {
		return 0
	}
	return float64(s.SpikesGenerated) / float64(s.SpikesProcessed)
}

// Summary renders the headline counters on one line.
func (s Stats) Summary() string {
	return fmt.Sprintf("processed=%d generated=%d steps=%d rate=%.2fHz efficiency=%.2f",
		s.SpikesProcessed, s.SpikesGenerated, s.SimulationSteps, s.SpikeRate(), s.Efficiency())
}

func (s Stats) String() string {
	return s.Summary()
}

// ActivityStats tracks per-batch spike counts across ProcessSpikes calls.
type ActivityStats struct {
	AvgInputSpikes    float64 `json:"avg_input_spikes"`
	AvgOutputSpikes   float64 `json:"avg_output_spikes"`
	PeakInputSpikes   int     `json:"peak_input_spikes"`
	PeakOutputSpikes  int     `json:"peak_output_spikes"`
	TotalInputSpikes  uint64  `json:"total_input_spikes"`
	TotalOutputSpikes uint64  `json:"total_output_spikes"`

	samples uint64
}

// Record folds one batch's input and output counts into the running
// averages and peaks.
func (a *ActivityStats) Record(inputs, outputs int) {
	a.samples++
	a.TotalInputSpikes += uint64(inputs)
	a.TotalOutputSpikes += uint64(outputs)
	a.AvgInputSpikes = float64(a.TotalInputSpikes) / float64(a.samples)
	a.AvgOutputSpikes = float64(a.TotalOutputSpikes) / float64(a.samples)
	if inputs > a.PeakInputSpikes {
		a.PeakInputSpikes = inputs
	}
	if outputs > a.PeakOutputSpikes {
		a.PeakOutputSpikes = outputs
	}
}

// ActivityRatio returns total outputs over total inputs.
func (a *ActivityStats) ActivityRatio() float64 {
	if a.TotalInputSpikes == 0 {
		return 0
	}
	return float64(a.TotalOutputSpikes) / float64(a.TotalInputSpikes)
}

// PerformanceStats tracks wall-clock step timing recorded by a host such
// as the simulation runner. Simulation semantics never depend on these.
type PerformanceStats struct {
	AvgStepTime      time.Duration `json:"avg_step_time"`
	MinStepTime      time.Duration `json:"min_step_time"`
	MaxStepTime      time.Duration `json:"max_step_time"`
	TotalComputeTime time.Duration `json:"total_compute_time"`

	samples uint64
}

// RecordStep folds one step's wall-clock duration into the aggregates.
func (p *PerformanceStats) RecordStep(d time.Duration) {
	p.samples++
	p.TotalComputeTime += d
	p.AvgStepTime = p.TotalComputeTime / time.Duration(p.samples)
	if p.samples == 1 || d < p.MinStepTime {
		p.MinStepTime = d
	}
	if p.samples == 1 || d > p.MaxStepTime {
		p.MaxStepTime = d
	}
}

// StepsPerSecond estimates throughput from the average step time.
func (p *PerformanceStats) StepsPerSecond() float64 {
	if p.AvgStepTime <= 0 {
		return 0
	}
	return float64(time.Second) / float64(p.AvgStepTime)
}

// MemoryStats tracks store memory estimates sampled by a host.
type MemoryStats struct {
	CurrentBytes  int `json:"current_bytes"`
	PeakBytes     int `json:"peak_bytes"`
	BaselineBytes int `json:"baseline_bytes"`
}

// Record updates the current sample and the peak.
func (m *MemoryStats) Record(bytes int) {
	m.CurrentBytes = bytes
	if bytes > m.PeakBytes {
		m.PeakBytes = bytes
	}
}

// SetBaseline pins the initial allocation for growth comparisons.
func (m *MemoryStats) SetBaseline(bytes int) {
	m.BaselineBytes = bytes
	if m.CurrentBytes == 0 {
		m.CurrentBytes = bytes
	}
	if m.PeakBytes < bytes {
		m.PeakBytes = bytes
	}
}

// GrowthFactor returns current usage relative to the baseline.
func (m *MemoryStats) GrowthFactor() float64 {
	if m.BaselineBytes == 0 {
		return 1
	}
	return float64(m.CurrentBytes) / float64(m.BaselineBytes)
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// Collector samples statistics at a fixed interval of simulation time.
// Run loops offer it the engine snapshot after every step; it keeps the
// ones that crossed the next sampling boundary, giving a time series
// without recording each step.
type Collector struct {
	interval spike.Duration
	next     spike.Time
	samples  []Stats
}

// NewCollector creates a collector sampling every interval of simulated
// time. A zero interval keeps every offered snapshot.
func NewCollector(interval spike.Duration) *Collector {
	return &Collector{interval: interval}
}

// Offer records the snapshot if it is due and reports whether it was kept.
func (c *Collector) Offer(s Stats) bool {
	if s.CurrentTime.Before(c.next) {
		return false
	}
	c.samples = append(c.samples, s)
	c.next = s.CurrentTime.Add(c.interval)
	return true
}

// Samples returns the recorded snapshots in capture order.
func (c *Collector) Samples() []Stats { return c.samples }

// Last returns the most recent snapshot, if any were recorded.
func (c *Collector) Last() (Stats, bool) {
	if len(c.samples) == 0 {
		return Stats{}, false
	}
	return c.samples[len(c.samples)-1], true
}

// Reset drops all samples and restarts the sampling clock.
func (c *Collector) Reset() {
	c.samples = c.samples[:0]
	c.next = 0
}
