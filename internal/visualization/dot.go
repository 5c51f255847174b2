// Package visualization renders network topologies in various output
// formats from weight snapshots.
package visualization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/spike"
)

// Format specifies the output format for topology rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// roleColors maps node roles to DOT colors. Roles are derived from the
// snapshot: nodes that only send are inputs, nodes that only receive are
// outputs, everything else is hidden.
var roleColors = map[string]string{
	"input":  "steelblue",
	"hidden": "mediumseagreen",
	"output": "goldenrod",
}

// node is one neuron in a rendered topology.
type node struct {
	ID   spike.NeuronID
	Role string
}

// RenderDOT produces a Graphviz DOT representation of a weight snapshot.
// Edge pen width scales with weight so strong connections stand out.
func RenderDOT(name string, entries []connectivity.WeightEntry) string {
	nodes, maxWeight := collectNodes(entries)

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, n := range nodes {
		color := roleColors[n.Role]
		if color == "" {
			color = "lightgray"
		}
		fmt.Fprintf(&b, "  n%d [label=\"%d\", fillcolor=%q, tooltip=%q];\n",
			n.ID, n.ID, color, n.Role)
	}
	b.WriteString("\n")

	for _, e := range entries {
		width := 1.0
		if maxWeight > 0 {
			width = 0.5 + 2.5*float64(e.Weight)/maxWeight
		}
		fmt.Fprintf(&b, "  n%d -> n%d [label=\"%.2f\", penwidth=%.2f];\n",
			e.Source, e.Target, e.Weight, width)
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-encodable graph representation with nodes
// and edges arrays.
func RenderJSON(name string, entries []connectivity.WeightEntry) map[string]any {
	nodes, _ := collectNodes(entries)

	jsonNodes := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		jsonNodes = append(jsonNodes, map[string]any{
			"id":   n.ID,
			"role": n.Role,
		})
	}

	jsonEdges := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		jsonEdges = append(jsonEdges, map[string]any{
			"source": e.Source,
			"target": e.Target,
			"weight": e.Weight,
		})
	}

	return map[string]any{
		"name":       name,
		"nodes":      jsonNodes,
		"edges":      jsonEdges,
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
	}
}

// collectNodes derives the node set and roles from a snapshot's edges and
// returns it ordered by id, together with the largest weight seen.
func collectNodes(entries []connectivity.WeightEntry) ([]node, float64) {
	sends := make(map[spike.NeuronID]bool)
	receives := make(map[spike.NeuronID]bool)
	maxWeight := 0.0
	for _, e := range entries {
		sends[e.Source] = true
		receives[e.Target] = true
		if w := float64(e.Weight); w > maxWeight {
			maxWeight = w
		}
	}

	ids := make([]spike.NeuronID, 0, len(sends)+len(receives))
	seen := make(map[spike.NeuronID]bool)
	for id := range sends {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range receives {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	nodes := make([]node, 0, len(ids))
	for _, id := range ids {
		role := "hidden"
		switch {
		case sends[id] && !receives[id]:
			role = "input"
		case receives[id] && !sends[id]:
			role = "output"
		}
		nodes = append(nodes, node{ID: id, Role: role})
	}
	return nodes, maxWeight
}
