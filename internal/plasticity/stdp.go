// Package plasticity implements spike-timing dependent plasticity (STDP)
// for adapting connection weights during simulation. The rule is additive:
// a post-synaptic spike shortly after a pre-synaptic one strengthens the
// connection, the reverse ordering weakens it, and the effect decays
// exponentially with the spike-time difference.
package plasticity

import (
	"fmt"
	"math"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// Config holds the STDP learning rule constants. The time constants are
// in milliseconds.
type Config struct {
	APlus    float32 `yaml:"a_plus" json:"a_plus"`       // potentiation rate
	AMinus   float32 `yaml:"a_minus" json:"a_minus"`     // depression rate
	TauPlus  float32 `yaml:"tau_plus" json:"tau_plus"`   // potentiation window, ms
	TauMinus float32 `yaml:"tau_minus" json:"tau_minus"` // depression window, ms
}

// DefaultConfig returns the standard constants: 1% potentiation, slightly
// stronger depression, 20ms windows on both sides.
func DefaultConfig() Config {
	return Config{
		APlus:    0.01,
		AMinus:   0.012,
		TauPlus:  20.0,
		TauMinus: 20.0,
	}
}

// Validate checks that every constant is positive.
func (c Config) Validate() error {
	if c.APlus <= 0 {
		return fmt.Errorf("stdp a_plus %v must be positive: %w", c.APlus, errs.ErrInvalidInput)
	}
	if c.AMinus <= 0 {
		return fmt.Errorf("stdp a_minus %v must be positive: %w", c.AMinus, errs.ErrInvalidInput)
	}
	if c.TauPlus <= 0 {
		return fmt.Errorf("stdp tau_plus %v must be positive: %w", c.TauPlus, errs.ErrInvalidInput)
	}
	if c.TauMinus <= 0 {
		return fmt.Errorf("stdp tau_minus %v must be positive: %w", c.TauMinus, errs.ErrInvalidInput)
	}
	return nil
}

// WeightChange returns the raw STDP delta for one pre/post spike pairing.
// A positive spike-time difference (post after pre) potentiates, a
// negative one depresses, and coincident spikes contribute nothing.
func (c Config) WeightChange(pre, post spike.Time) float32 {
	dt := int64(post.Nanos()) - int64(pre.Nanos())
	dtMs := float32(dt) / 1e6

	switch {
	case dtMs > 0:
		return c.APlus * float32(math.Exp(float64(-dtMs/c.TauPlus)))
	case dtMs < 0:
		return -c.AMinus * float32(math.Exp(float64(dtMs/c.TauMinus)))
	default:
		return 0
	}
}
