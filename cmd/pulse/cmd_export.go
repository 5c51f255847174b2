package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pulse/internal/recording"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <output.arrow>",
		Short: "Export a recorded spike raster as an Arrow IPC file",
		Long: `Read the spike raster of a recorded run and write it as an Arrow IPC
file with one row per spike (source, timestamp_ns, amplitude), ready
for columnar analysis tooling.

Defaults to the most recent run; use --run for a specific one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output := args[0]

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
			spikes, err := rec.Spikes(ctx, run.ID)
			if err != nil {
				return err
			}
			if err := recording.ExportRaster(output, spikes); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id": run.ID,
					"path":   output,
					"spikes": len(spikes),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d spikes from run %s to %s\n", len(spikes), run.ID, output)
			return nil
		},
	}

	cmd.Flags().String("db", "", "Run database path (default: configured recording.path)")
	cmd.Flags().String("run", "", "Run id (default: most recent)")

	return cmd
}
