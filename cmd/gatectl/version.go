package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatehouse.io/internal/obs"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := obs.InitBuildInfo(version, commit)
			fmt.Fprintf(cmd.OutOrStdout(), "gatectl %s (%s, %s)\n", b.Version, b.Commit, b.GoVersion)
			return nil
		},
	}
}
