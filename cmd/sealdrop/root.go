package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sealdrop/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string
	var logLevel string
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:   "sealdrop",
		Short: "Sealdrop exchanges encrypted files that can be downloaded exactly once",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			if warning := configureLogger(logLevel, cfg.LogLevel); warning != "" {
				cmd.PrintErrln(warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cfgRef := func() *config.Config { return cfg }
	cmd.AddCommand(
		newSrvCmd(cfgRef),
		newUserCmd(cfgRef),
		newSweepCmd(cfgRef),
		newDecryptCmd(cfgRef),
		newMigrateCmd(cfgRef),
	)

	return cmd
}
