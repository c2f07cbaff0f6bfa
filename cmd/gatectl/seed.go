package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatehouse.io/internal/app"
)

func newSeedCommand() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the privilege catalog, the superadmin role and the bootstrap admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := app.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if migrateFirst {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
			}
			role, err := a.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "superadmin role %s\n", role.ID)
			if cfg.Admin.Username != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "admin user %s\n", cfg.Admin.Username)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", true, "apply pending migrations before seeding")
	return cmd
}
