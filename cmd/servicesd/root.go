package main

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tangle-network/tangle-sub001/app/telemetry"
)

// cliState carries what PersistentPreRunE prepared to the subcommands.
type cliState struct {
	viper     *viper.Viper
	config    Config
	logger    log.Logger
	telemetry *telemetry.Provider
}

// NewRootCmd creates the servicesd root command.
func NewRootCmd() *cobra.Command {
	state := &cliState{viper: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "servicesd",
		Short:         "Offline tooling for the services module",
		Long:          "servicesd produces, validates and inspects services module genesis state and prints the manager hook ABI.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(state.viper)
			if err != nil {
				return err
			}
			state.config = cfg
			state.logger = cfg.NewLogger(cmd.ErrOrStderr())

			provider, err := telemetry.NewProvider(cfg.Telemetry)
			if err != nil {
				return err
			}
			state.telemetry = provider
			if err := provider.HealthCheck(); err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			state.logger.Debug("configuration loaded", "home", cfg.Home, "telemetry", cfg.Telemetry.Enabled)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if state.telemetry == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return state.telemetry.Shutdown(ctx)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("home", defaultHome(), "directory holding servicesd.toml")
	flags.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	flags.String("log-format", "json", "log format (json|plain)")
	if err := bindFlags(state.viper, flags, map[string]string{
		"home":       "home",
		"log.level":  "log-level",
		"log.format": "log-format",
	}); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		defaultGenesisCmd(state),
		validateGenesisCmd(state),
		inspectGenesisCmd(state),
		hooksCmd(),
		statusCmd(state),
	)
	return rootCmd
}

// bindFlags binds config keys to the named flags.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}
