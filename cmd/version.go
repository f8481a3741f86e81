package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release version, overridable at link time.
var Version = "0.4.1"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pointctl version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "pointctl", Version)
	},
}
