package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"callscope/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [session]",
	Short: "Print the summary table for a recorded session",
	Long: `Merge every stat snapshot of the session and print one row per
location. Without an argument the active session is used, falling back
to the most recently started one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("sort", "cumulative", "sort order (cumulative|exclusive|calls)")
	reportCmd.Flags().Int("limit", 0, "show at most N rows (0 = all)")
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}
	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer profCleanup()

	sortStr, err := cmd.Flags().GetString("sort")
	if err != nil {
		return fmt.Errorf("failed to get sort flag: %w", err)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("failed to get limit flag: %w", err)
	}
	mode, err := report.ParseSort(sortStr)
	if err != nil {
		return err
	}

	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	name, err := resolveSession(st, args)
	if err != nil {
		return err
	}

	snap, err := st.LoadMerged(cmd.Context(), name)
	if err != nil {
		return err
	}

	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", name)
	}
	return report.Write(cmd.OutOrStdout(), snap, report.Options{Sort: mode, Limit: limit})
}
