package connectivity

import (
	"math"

	"github.com/nvandessel/pulse/internal/constants"
)

// WeightPolicy bounds synaptic weights after mutation. Every
// mutation-capable backend applies the same policy on update and
// plasticity paths, so learned weights stay inside one well-known range.
type WeightPolicy struct {
	Min float32
	Max float32
}

// DefaultWeightPolicy is the bound applied by backends unless constructed
// with an explicit policy.
var DefaultWeightPolicy = WeightPolicy{
	Min: constants.MinSynapticWeight,
	Max: constants.MaxSynapticWeight,
}

// Clamp forces w into [Min, Max]. NaN and infinite values collapse to Min.
func (p WeightPolicy) Clamp(w float32) float32 {
	f := float64(w)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return p.Min
	}
	if w < p.Min {
		return p.Min
	}
	if w > p.Max {
		return p.Max
	}
	return w
}
