package main

import (
	"github.com/spf13/cobra"

	"gatehouse.io/internal/config"
	"gatehouse.io/internal/obs"
)

// newRootCmd creates the gatectl command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "Operator tooling for the gatehouse service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCommand(),
		newSeedCommand(),
		newPasswordCommand(),
		newCaptchaCommand(),
		newVersionCommand(),
	)
	return root
}

// loadConfig reads configuration the same way the service does and applies
// the configured log settings to stderr.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	obs.ConfigureLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return cfg, nil
}
