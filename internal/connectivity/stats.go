package connectivity

// Metric is one backend-specific statistic by name.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Stats summarizes a store's topology. Values are recomputed on demand,
// never cached. Degree counts treat every connection as contributing one
// out-degree at its source and one in-degree at its target.
type Stats struct {
	Connections int     `json:"connections"`
	Neurons     int     `json:"neurons"`
	AvgDegree   float64 `json:"avg_degree"`
	MaxDegree   int     `json:"max_degree"`
	MinDegree   int     `json:"min_degree"`
	TotalWeight float64 `json:"total_weight"`
	AvgWeight   float64 `json:"avg_weight"`

	// Density is connections over the directed pairs possible between
	// the known nodes, zero for fewer than two nodes.
	Density float64 `json:"density"`

	// MemoryBytes is a rough estimate of resident size.
	MemoryBytes int `json:"memory_bytes"`

	// Extra carries backend-specific metrics such as matrix utilization
	// or sparsity.
	Extra []Metric `json:"extra,omitempty"`
}

// degreeStats folds per-node degree counts into the aggregate fields.
func (s *Stats) degreeStats(degrees []int) {
	if len(degrees) == 0 {
		return
	}
	max, min, sum := degrees[0], degrees[0], 0
	for _, d := range degrees {
		if d > max {
			max = d
		}
		if d < min {
			min = d
		}
		sum += d
	}
	s.MaxDegree = max
	s.MinDegree = min
	s.AvgDegree = float64(sum) / float64(len(degrees))
}

// density computes the directed edge density for n nodes and c connections.
func density(c, n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(c) / float64(n*(n-1))
}
