package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tablecraft/tablecraft/internal/util"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and system information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := util.GetSystemInfo()
		if mustFlagBool(cmd, "json") {
			printJSON(cmd.OutOrStdout(), map[string]any{"version": Version, "system": info})
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), Version)
		if mustFlagBool(cmd, "verbose") {
			fmt.Fprintln(cmd.OutOrStdout(), faint(info.UserAgent(Version)))
			if info.Container {
				fmt.Fprintln(cmd.OutOrStdout(), faint("running in a container"))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
