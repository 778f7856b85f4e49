package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "avatarnftd", version)
	},
}

func init() {
	cmdMain.AddCommand(cmdVersion)
}
