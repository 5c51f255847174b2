package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pulse/internal/connectivity"
	"github.com/nvandessel/pulse/internal/logging"
	"github.com/nvandessel/pulse/internal/network"
	"github.com/nvandessel/pulse/internal/recording"
	"github.com/nvandessel/pulse/internal/spike"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation from the configured topology",
		Long: `Build the configured network, drive it with a generated stimulus and
step it for the configured duration.

With recording enabled (config or --record) the emitted spikes and the
final weights are persisted to SQLite for later inspection with
'pulse stats' and 'pulse export'.

Examples:
  pulse run
  pulse run --duration-ms 500 --stimulus poisson --rate 20
  pulse run --record runs.db --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("duration-ms") {
				cfg.Simulation.DurationMillis, _ = cmd.Flags().GetFloat64("duration-ms")
			}
			if cmd.Flags().Changed("record") {
				path, _ := cmd.Flags().GetString("record")
				cfg.Recording.Enabled = true
				cfg.Recording.Path = path
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			trace := logging.NewTraceLogger(cfg.Logging.Dir, cfg.Logging.Level)
			defer trace.Close()
			traceSpikes := logging.ParseLevel(cfg.Logging.Level) == logging.LevelTrace

			n, err := buildNetwork(cfg, logger)
			if err != nil {
				return err
			}
			if err := n.Validate(); err != nil {
				return err
			}

			duration, err := cfg.Simulation.Duration()
			if err != nil {
				return fmt.Errorf("duration: %w", err)
			}
			timeStep := n.TimeStep()
			steps := int(duration.Nanos() / timeStep.Nanos())

			params := stimulusParams{Amplitude: 1}
			params.Kind, _ = cmd.Flags().GetString("stimulus")
			params.RateHz, _ = cmd.Flags().GetFloat64("rate")
			if amp, _ := cmd.Flags().GetFloat64("amplitude"); amp > 0 {
				params.Amplitude = float32(amp)
			}
			params.Sources, _ = cmd.Flags().GetInt("sources")
			params.Seed, _ = cmd.Flags().GetInt64("stimulus-seed")
			reinject, _ := cmd.Flags().GetBool("reinject")

			sources := stimulusSources(cfg, params.Sources)
			train, err := buildStimulus(params, sources, duration)
			if err != nil {
				return err
			}

			ctx := context.Background()
			var rec *recording.Recorder
			var runID string
			if cfg.Recording.Enabled {
				rec, err = recording.Open(cfg.Recording.Path)
				if err != nil {
					return err
				}
				defer rec.Close()
				runID, err = rec.BeginRun(ctx, topologyKind(cfg), n.Pool().Len(), n.Store().ConnectionCount(), timeStep)
				if err != nil {
					return err
				}
			}

			logger.Info("starting run",
				"topology", topologyKind(cfg),
				"neurons", n.Pool().Len(),
				"connections", n.Store().ConnectionCount(),
				"steps", steps,
				"stimulus_spikes", len(train))

			collector := network.NewCollector(spike.DurationFromMillis(10))
			next := 0
			for step := 0; step < steps; step++ {
				windowEnd := n.CurrentTime().Add(timeStep)
				for next < len(train) && train[next].Timestamp.Before(windowEnd) {
					if err := n.AddSpike(train[next]); err != nil {
						return fmt.Errorf("inject stimulus at step %d: %w", step, err)
					}
					next++
				}

				outputs, err := n.Step()
				if err != nil {
					return fmt.Errorf("step %d: %w", step, err)
				}
				if reinject {
					// Fired spikes feed back into the network on the next
					// step, so downstream layers see upstream activity.
					for _, s := range outputs {
						if err := n.AddSpike(s); err != nil {
							return fmt.Errorf("reinject outputs at step %d: %w", step, err)
						}
					}
				}

				trace.Log(map[string]any{
					"event":   "step",
					"step":    step,
					"outputs": len(outputs),
					"pending": n.PendingSpikes(),
				})
				if traceSpikes {
					for _, s := range outputs {
						trace.Log(map[string]any{
							"event":        "spike",
							"source":       s.Source,
							"timestamp_ns": s.Timestamp.Nanos(),
							"amplitude":    s.Amplitude,
						})
					}
				}

				if rec != nil {
					if err := rec.RecordSpikes(ctx, runID, outputs); err != nil {
						return err
					}
				}
				if collector.Offer(n.Stats()) {
					logger.Debug("progress", "step", step, "stats", n.Stats().Summary())
				}
			}

			stats := n.Stats()
			if rec != nil {
				if snap, ok := n.Store().(connectivity.Snapshotter); ok {
					if err := rec.RecordWeights(ctx, runID, snap.SnapshotWeights()); err != nil {
						return err
					}
				}
				if err := rec.FinishRun(ctx, runID, stats); err != nil {
					return err
				}
			}

			if jsonOut {
				result := map[string]any{
					"topology":    topologyKind(cfg),
					"neurons":     n.Pool().Len(),
					"connections": n.Store().ConnectionCount(),
					"stats":       stats,
				}
				if runID != "" {
					result["run_id"] = runID
					result["database"] = rec.Path()
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run complete: %s topology, %d neurons, %d connections\n",
				topologyKind(cfg), n.Pool().Len(), n.Store().ConnectionCount())
			fmt.Fprintf(out, "  Simulated: %s in %d steps\n", stats.CurrentTime, stats.SimulationSteps)
			fmt.Fprintf(out, "  Spikes: %d processed, %d generated (%.2f Hz)\n",
				stats.SpikesProcessed, stats.SpikesGenerated, stats.GenerationRate())
			fmt.Fprintf(out, "  Plasticity updates: %d\n", stats.PlasticityUpdates)
			fmt.Fprintf(out, "  Peak pending: %d\n", stats.PeakPending)
			if runID != "" {
				fmt.Fprintf(out, "  Recorded as %s in %s\n", runID, rec.Path())
			}
			return nil
		},
	}

	cmd.Flags().Float64("duration-ms", 0, "Override the configured run duration")
	cmd.Flags().String("stimulus", "regular", "Stimulus pattern (regular, poisson, none)")
	cmd.Flags().Float64("rate", 50, "Stimulus rate per source in Hz")
	cmd.Flags().Float64("amplitude", 1.0, "Stimulus spike amplitude")
	cmd.Flags().Int("sources", 0, "Number of stimulated neurons (0 = topology default)")
	cmd.Flags().Int64("stimulus-seed", 7, "Seed for the poisson stimulus")
	cmd.Flags().Bool("reinject", true, "Feed fired spikes back into the network")
	cmd.Flags().String("record", "", "Record the run to this SQLite database")

	return cmd
}
