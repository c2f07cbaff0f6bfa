package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"gatehouse.io/internal/migrate"
	"gatehouse.io/internal/store/sqlstore"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "migrate",
		Args:    cobra.NoArgs,
		Aliases: []string{"m"},
		Short:   "Database migration commands",
	}
	cmd.AddCommand(
		newMigrateRunCommand("up", "Apply all pending migrations", (*migrate.Manager).Up),
		newMigrateRunCommand("down", "Roll back the most recent migration", (*migrate.Manager).Down),
		newMigrateStatusCommand(),
	)
	return cmd
}

func newMigrateRunCommand(use, short string, run func(*migrate.Manager, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *migrate.Manager) error {
				if err := run(m, cmd.Context()); err != nil {
					return fmt.Errorf("migrate %s: %w", use, err)
				}
				v, err := m.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
				return nil
			})
		},
	}
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List embedded migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *migrate.Manager) error {
				items, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, item := range items {
					state := "pending"
					if item.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%05d %-30s %s\n", item.Version, item.Name, state)
				}
				return nil
			})
		},
	}
}

func withMigrator(cmd *cobra.Command, fn func(*migrate.Manager) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := sqlstore.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	m, err := migrate.NewManager(store.DB(), string(store.Dialect()))
	if err != nil {
		return err
	}
	return fn(m)
}
