package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/visualization"
)

func newVizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Render the network topology as DOT or JSON",
		Long: `Render the configured topology, or the final weights of a recorded
run with --run, as a Graphviz DOT digraph or a JSON node/edge list.

Examples:
  pulse viz | dot -Tsvg > topology.svg
  pulse viz --run <id> --db runs.db --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			runID, _ := cmd.Flags().GetString("run")
			db, _ := cmd.Flags().GetString("db")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			name := topologyKind(cfg)
			var entries []connectivity.WeightEntry
			if runID != "" || db != "" {
				rec, err := openRecorder(cmd)
				if err != nil {
					return err
				}
				defer rec.Close()
				ctx := context.Background()
				run, err := resolveRun(ctx, cmd, rec)
				if err != nil {
					return err
				}
				name = run.Topology
				if entries, err = rec.Weights(ctx, run.ID); err != nil {
					return err
				}
			} else {
				store, err := buildStore(cfg)
				if err != nil {
					return err
				}
				snap, ok := store.(connectivity.Snapshotter)
				if !ok {
					return fmt.Errorf("%s topology does not support weight snapshots", name)
				}
				entries = snap.SnapshotWeights()
			}

			var rendered []byte
			switch visualization.Format(format) {
			case visualization.FormatDOT:
				rendered = []byte(visualization.RenderDOT(name, entries))
			case visualization.FormatJSON:
				rendered, err = json.MarshalIndent(visualization.RenderJSON(name, entries), "", "  ")
				if err != nil {
					return fmt.Errorf("encode graph: %w", err)
				}
				rendered = append(rendered, '\n')
			default:
				return fmt.Errorf("unknown format: %s (valid: dot, json)", format)
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(rendered)
				return err
			}
			if err := os.WriteFile(output, rendered, 0644); err != nil {
				return fmt.Errorf("write rendering: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s rendering to %s\n", format, output)
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format (dot, json)")
	cmd.Flags().String("output", "-", "Output file (- for stdout)")
	cmd.Flags().String("db", "", "Run database path (default: configured recording.path)")
	cmd.Flags().String("run", "", "Render the final weights of this recorded run")

	return cmd
}
