package plasticity

import (
	"github.com/nvandessel/pulse/internal/spike"
)

// Manager gates STDP application for a network. A fresh manager is
// disabled with no rule installed; every computed change is scaled by a
// learning rate multiplier that defaults to 1.
type Manager struct {
	enabled      bool
	config       *Config
	learningRate float32
	updateCount  uint64
}

// NewManager returns a disabled manager with no STDP rule.
func NewManager() *Manager {
	return &Manager{learningRate: 1.0}
}

// NewManagerWithSTDP returns an enabled manager using the given rule.
func NewManagerWithSTDP(cfg Config) (*Manager, error) {
	m := NewManager()
	if err := m.EnableSTDP(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// EnableSTDP validates and installs the rule, then enables plasticity.
func (m *Manager) EnableSTDP(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.enabled = true
	m.config = &cfg
	return nil
}

// Disable turns plasticity off. The installed rule is kept.
func (m *Manager) Disable() {
	m.enabled = false
}

// Enabled reports whether plasticity is active.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// STDP returns the installed rule, if any.
func (m *Manager) STDP() (Config, bool) {
	if m.config == nil {
		return Config{}, false
	}
	return *m.config, true
}

// SetLearningRate scales all subsequent weight changes.
func (m *Manager) SetLearningRate(rate float32) {
	m.learningRate = rate
}

// LearningRate returns the current multiplier.
func (m *Manager) LearningRate() float32 {
	return m.learningRate
}

// ComputeWeightChange returns the scaled weight delta for a pre/post
// spike pairing. A disabled or unconfigured manager returns 0 without
// counting. Every evaluation of an installed rule counts as an update,
// including coincident spikes whose delta is exactly 0. The current
// weight is accepted for weight-dependent rules; the additive rule
// ignores it.
func (m *Manager) ComputeWeightChange(preTime, postTime spike.Time, current float32) float32 {
	if !m.enabled || m.config == nil {
		return 0
	}
	delta := m.config.WeightChange(preTime, postTime)
	m.updateCount++
	return delta * m.learningRate
}

// UpdateCount reports how many times an installed rule has been
// evaluated.
func (m *Manager) UpdateCount() uint64 {
	return m.updateCount
}

// Reset zeroes the update counter. The rule and enabled state are kept.
func (m *Manager) Reset() {
	m.updateCount = 0
}
