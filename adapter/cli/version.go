package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapyr/snapyr-bridge/internal/bridge"
)

var (
	// Version is set during build
	Version = "dev"
	// Commit is set during build
	Commit = "none"
	// BuildDate is set during build
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if jsonOutput {
			_ = json.NewEncoder(out).Encode(map[string]string{
				"module":  bridge.ModuleName,
				"version": Version,
				"commit":  Commit,
				"built":   BuildDate,
			})
			return
		}
		fmt.Fprintf(out, "snapyr-bridge %s (%s)\n", Version, bridge.ModuleName)
		fmt.Fprintf(out, "  commit: %s\n", Commit)
		fmt.Fprintf(out, "  built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
