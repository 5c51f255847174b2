package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the topology it builds",
		Long: `Load the configuration, build the configured network and check it:
config value ranges, store index consistency and a non-empty neuron
pool. Exits non-zero when anything fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			n, err := buildNetwork(cfg, nil)
			if err != nil {
				return err
			}
			if err := n.Validate(); err != nil {
				return err
			}

			stats := n.ConnectivityStats()
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"valid":        true,
					"topology":     topologyKind(cfg),
					"connectivity": stats,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid.\n")
			fmt.Fprintf(out, "  Topology: %s\n", topologyKind(cfg))
			fmt.Fprintf(out, "  Neurons: %d\n", stats.Neurons)
			fmt.Fprintf(out, "  Connections: %d (density %.3f)\n", stats.Connections, stats.Density)
			fmt.Fprintf(out, "  Avg weight: %.3f\n", stats.AvgWeight)
			return nil
		},
	}
}
