package neuron

import (
	"fmt"

	"github.com/nvandessel/pulse/internal/errs"
	"github.com/nvandessel/pulse/internal/spike"
)

// LIFParams holds the parameters of a leaky integrate-and-fire neuron.
type LIFParams struct {
	TauM    float32 `yaml:"tau_m" json:"tau_m"`       // membrane time constant (ms)
	VRest   float32 `yaml:"v_rest" json:"v_rest"`     // resting potential (mV)
	VReset  float32 `yaml:"v_reset" json:"v_reset"`   // reset potential (mV)
	VThresh float32 `yaml:"v_thresh" json:"v_thresh"` // firing threshold (mV)
	TRefrac float32 `yaml:"t_refrac" json:"t_refrac"` // refractory period (ms)
	RM      float32 `yaml:"r_m" json:"r_m"`           // membrane resistance (MΩ)
	CM      float32 `yaml:"c_m" json:"c_m"`           // membrane capacitance (nF)
}

// DefaultLIFParams returns parameters for a typical cortical neuron.
func DefaultLIFParams() LIFParams {
	return LIFParams{
		TauM:    20.0,
		VRest:   -70.0,
		VReset:  -70.0,
		VThresh: -50.0,
		TRefrac: 2.0,
		RM:      10.0,
		CM:      1.0,
	}
}

// Validate checks the parameters for physical plausibility.
func (p LIFParams) Validate() error {
	if p.TauM <= 0 {
		return fmt.Errorf("lif params: tau_m %v must be positive: %w", p.TauM, errs.ErrInvalidInput)
	}
	if p.VThresh <= p.VRest {
		return fmt.Errorf("lif params: v_thresh %v must exceed v_rest %v: %w", p.VThresh, p.VRest, errs.ErrInvalidInput)
	}
	if p.TRefrac < 0 {
		return fmt.Errorf("lif params: t_refrac %v must not be negative: %w", p.TRefrac, errs.ErrInvalidInput)
	}
	if p.RM <= 0 {
		return fmt.Errorf("lif params: r_m %v must be positive: %w", p.RM, errs.ErrInvalidInput)
	}
	if p.CM <= 0 {
		return fmt.Errorf("lif params: c_m %v must be positive: %w", p.CM, errs.ErrInvalidInput)
	}
	return nil
}

// LIF is a leaky integrate-and-fire neuron. Synaptic input accumulates as
// a current; each Update performs one Euler step of the membrane equation
//
//	dV/dt = (v_rest - v_m + R*I) / tau_m
//
// and fires when the membrane crosses threshold. After a spike the
// membrane resets and further updates are suppressed for the refractory
// period.
type LIF struct {
	id     spike.NeuronID
	params LIFParams

	v     float32
	input float32

	fired     bool
	lastSpike spike.Time
}

// NewLIF creates a neuron with the given id and parameters.
func NewLIF(id spike.NeuronID, params LIFParams) (*LIF, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("lif: id %s: %w", id, errs.ErrInvalidInput)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &LIF{id: id, params: params, v: params.VRest}, nil
}

// ID returns the neuron's id.
func (n *LIF) ID() spike.NeuronID {
	return n.id
}

// Integrate adds a weighted input current for the current step.
func (n *LIF) Integrate(weight float32, _ spike.Duration) {
	n.input += weight
}

// Update advances the membrane by one Euler step. During the refractory
// period the membrane is held and accumulated input is kept for the first
// step after it ends.
func (n *LIF) Update(now spike.Time, step spike.Duration) (spike.Spike, bool) {
	if n.refractory(now) {
		return spike.Spike{}, false
	}

	dt := float32(step.MillisF())
	dv := (n.params.VRest - n.v + n.params.RM*n.input) / n.params.TauM
	n.v += dv * dt

	if n.v >= n.params.VThresh {
		out := spike.Spike{Source: n.id, Timestamp: now, Amplitude: 1.0}
		n.v = n.params.VReset
		n.fired = true
		n.lastSpike = now
		n.input = 0
		return out, true
	}

	n.input = 0
	return spike.Spike{}, false
}

// Reset restores the resting state and clears spike history.
func (n *LIF) Reset() {
	n.v = n.params.VRest
	n.input = 0
	n.fired = false
	n.lastSpike = spike.TimeZero
}

// Membrane reports the membrane potential in mV.
func (n *LIF) Membrane() float32 {
	return n.v
}

// LastSpike reports the time of the most recent spike. The bool is false
// when the neuron has not fired since construction or Reset.
func (n *LIF) LastSpike() (spike.Time, bool) {
	return n.lastSpike, n.fired
}

func (n *LIF) refractory(now spike.Time) bool {
	if !n.fired {
		return false
	}
	elapsed := float32(now.Sub(n.lastSpike).MillisF())
	return elapsed < n.params.TRefrac
}
