package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestVizCommandDOT(t *testing.T) {
	cfg := writeConfig(t, feedforwardConfig)
	out, err := execCommand(t, "viz", "--config", cfg)
	if err != nil {
		t.Fatalf("viz: %v", err)
	}
	if !strings.Contains(out, "digraph \"graph\"") {
		t.Errorf("missing digraph header: %q", out)
	}
	if !strings.Contains(out, "n0 -> n1") || !strings.Contains(out, "n1 -> n2") {
		t.Errorf("missing feedforward edges:\n%s", out)
	}
}

func TestVizCommandJSON(t *testing.T) {
	cfg := writeConfig(t, feedforwardConfig)
	out, err := execCommand(t, "viz", "--config", cfg, "--format", "json")
	if err != nil {
		t.Fatalf("viz --format json: %v", err)
	}
	var graph struct {
		Name      string `json:"name"`
		NodeCount int    `json:"node_count"`
		EdgeCount int    `json:"edge_count"`
	}
	if err := json.Unmarshal([]byte(out), &graph); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if graph.Name != "graph" || graph.NodeCount != 3 || graph.EdgeCount != 2 {
		t.Errorf("graph = %+v", graph)
	}
}

func TestVizCommandRejectsUnknownFormat(t *testing.T) {
	cfg := writeConfig(t, feedforwardConfig)
	if _, err := execCommand(t, "viz", "--config", cfg, "--format", "svg"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
