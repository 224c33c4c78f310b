package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	journalLimit int
	pruneDays    int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the command journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent commands, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}
		entries, err := a.Container.Journal.List(cmd.Context(), journalLimit)
		if err != nil {
			return fmt.Errorf("failed to list journal: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No commands recorded.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tCOMMAND\tSTATUS\tDURATION\tERROR")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.StartedAt.Local().Format("2006-01-02 15:04:05"),
				e.Command,
				e.Status,
				e.Duration,
				e.Error,
			)
		}
		return w.Flush()
	},
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journal entries older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireApp()
		if err != nil {
			return err
		}
		days := pruneDays
		if days <= 0 {
			days = a.Container.Config.JournalRetentionDays
		}
		removed, err := a.Container.Journal.DeleteOld(cmd.Context(), days)
		if err != nil {
			return fmt.Errorf("failed to prune journal: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %d days.\n", removed, days)
		return nil
	},
}

func init() {
	journalListCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "maximum number of entries (0 for all)")
	journalPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (default JOURNAL_RETENTION_DAYS)")

	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalPruneCmd)
	rootCmd.AddCommand(journalCmd)
}
