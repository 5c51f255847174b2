package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pulse/internal/recording"
)

// openRecorder opens the run database named by --db, falling back to the
// configured recording path.
func openRecorder(cmd *cobra.Command) (*recording.Recorder, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, err
		}
		path = cfg.Recording.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no run database: set recording.path or pass --db")
	}
	return recording.Open(path)
}

// resolveRun fetches the run named by --run, or the latest run when the
// flag is empty.
func resolveRun(ctx context.Context, cmd *cobra.Command, rec *recording.Recorder) (*recording.Run, error) {
	id, _ := cmd.Flags().GetString("run")
	if id == "" {
		return rec.LatestRun(ctx)
	}
	return rec.GetRun(ctx, id)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show counters for a recorded run",
		Long: `Show the final counters of a recorded run: spikes processed and
generated, steps, plasticity updates and simulated time.

Defaults to the most recent run; use --run for a specific one and
--list to enumerate all recorded runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			list, _ := cmd.Flags().GetBool("list")

			rec, err := openRecorder(cmd)
			if err != nil {
				return err
			}
			defer rec.Close()
			ctx := context.Background()

			if list {
				runs, err := rec.Runs(ctx)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"runs":  runs,
						"count": len(runs),
					})
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No recorded runs.")
					return nil
				}
				fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(runs))
				for i, run := range runs {
					state := "running"
					if run.FinishedAt != nil {
						state = "finished"
					}
					fmt.Fprintf(out, "%d. %s [%s]\n", i+1, run.ID, state)
					fmt.Fprintf(out, "   Started: %s\n", run.StartedAt.Format(time.RFC3339))
					fmt.Fprintf(out, "   Topology: %s (%d neurons, %d connections)\n",
						run.Topology, run.Neurons, run.Connections)
					fmt.Fprintln(out)
				}
				return nil
			}

			run, err := resolveRun(ctx, cmd, rec)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(run)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run: %s\n", run.ID)
			fmt.Fprintf(out, "  Started: %s\n", run.StartedAt.Format(time.RFC3339))
			if run.FinishedAt != nil {
				fmt.Fprintf(out, "  Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
			} else {
				fmt.Fprintf(out, "  Finished: (still running or aborted)\n")
			}
			fmt.Fprintf(out, "  Topology: %s (%d neurons, %d connections)\n",
				run.Topology, run.Neurons, run.Connections)
			fmt.Fprintf(out, "  Time step: %s\n", run.TimeStep)
			fmt.Fprintf(out, "  Simulated: %s in %d steps\n", run.FinalTime, run.SimulationSteps)
			fmt.Fprintf(out, "  Spikes: %d processed, %d generated\n", run.SpikesProcessed, run.SpikesGenerated)
			fmt.Fprintf(out, "  Plasticity updates: %d\n", run.PlasticityUpdates)
			return nil
		},
	}

	cmd.Flags().String("db", "", "Run database path (default: configured recording.path)")
	cmd.Flags().String("run", "", "Run id (default: most recent)")
	cmd.Flags().Bool("list", false, "List all recorded runs")

	return cmd
}
