package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/pulse/internal/connectivity"
)

// weightSnapshot is the YAML document written by 'snapshot export' and
// read back by 'snapshot import'.
type weightSnapshot struct {
	Topology   string                     `yaml:"topology" json:"topology"`
	ExportedAt string                     `yaml:"exported_at" json:"exported_at"`
	Weights    []connectivity.WeightEntry `yaml:"weights" json:"weights"`
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export and import weight snapshots",
		Long: `Move connection weights in and out of the configured topology as YAML.

'snapshot export' writes the current weights of the configured topology
(or of a recorded run with --run); 'snapshot import' applies a snapshot
back onto the configured topology, skipping entries whose endpoints do
not exist there.`,
	}

	cmd.AddCommand(newSnapshotExportCmd(), newSnapshotImportCmd())
	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a weight snapshot as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			snapshot := weightSnapshot{
				Topology:   topologyKind(cfg),
				ExportedAt: time.Now().UTC().Format(time.RFC3339),
			}

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
				snapshot.Topology = run.Topology
				if snapshot.Weights, err = rec.Weights(ctx, run.ID); err != nil {
					return err
				}
			} else {
				store, err := buildStore(cfg)
				if err != nil {
					return err
				}
				snap, ok := store.(connectivity.Snapshotter)
				if !ok {
					return fmt.Errorf("%s topology does not support weight snapshots", topologyKind(cfg))
				}
				snapshot.Weights = snap.SnapshotWeights()
			}

			data, err := yaml.Marshal(snapshot)
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d weights to %s\n", len(snapshot.Weights), output)
			return nil
		},
	}

	cmd.Flags().String("output", "-", "Output file (- for stdout)")
	cmd.Flags().String("db", "", "Run database path (default: configured recording.path)")
	cmd.Flags().String("run", "", "Export the final weights of this recorded run")

	return cmd
}

func newSnapshotImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <snapshot.yaml>",
		Short: "Apply a weight snapshot to the configured topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			var snapshot weightSnapshot
			if err := yaml.Unmarshal(data, &snapshot); err != nil {
				return fmt.Errorf("parse snapshot: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if snapshot.Topology != "" && snapshot.Topology != topologyKind(cfg) {
				return fmt.Errorf("snapshot is for %s topology, config builds %s",
					snapshot.Topology, topologyKind(cfg))
			}

			store, err := buildStore(cfg)
			if err != nil {
				return err
			}
			snap, ok := store.(connectivity.Snapshotter)
			if !ok {
				return fmt.Errorf("%s topology does not support weight snapshots", topologyKind(cfg))
			}

			applied, err := snap.ApplyWeightUpdates(snapshot.Weights)
			if err != nil {
				return fmt.Errorf("apply snapshot: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"topology": topologyKind(cfg),
					"total":    len(snapshot.Weights),
					"applied":  applied,
					"skipped":  len(snapshot.Weights) - applied,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d of %d weights to the %s topology\n",
				applied, len(snapshot.Weights), topologyKind(cfg))
			return nil
		},
	}

	return cmd
}
