package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the loaded configuration and telemetry health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health := "disabled"
			if state.config.Telemetry.Enabled {
				health = "ok"
				if err := state.telemetry.HealthCheck(); err != nil {
					health = err.Error()
				}
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "home: %s\nlog: %s/%s\ntelemetry: %s\n",
				state.config.Home, state.config.LogLevel, state.config.LogFormat, health)
			return err
		},
	}
}
