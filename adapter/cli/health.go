package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapyr/snapyr-bridge/pkg/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check journal, event sink and SDK health",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}
		health := a.Container.Health.GetOverallHealth(cmd.Context())

		out := cmd.OutOrStdout()
		if jsonOutput {
			data, err := health.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			fmt.Fprintf(out, "status: %s\n", health.Status)
			for _, name := range a.Container.Health.Names() {
				check := health.Checks[name]
				fmt.Fprintf(out, "  %-12s %-10s %s\n", name, check.Status, check.Message)
			}
		}
		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
