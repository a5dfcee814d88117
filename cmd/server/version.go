package main

import (
	"fmt"

	"github.com/Harshitk-cp/orgbrain/internal/buildconfig"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "orgbrain %s (%s)\n", buildconfig.Version(), buildconfig.Commit())
		},
	}
}
