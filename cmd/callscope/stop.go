package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"callscope/internal/report"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active session",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().Bool("summary", false, "print the merged summary table after stopping")
}

func runStop(cmd *cobra.Command, args []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}

	summary, err := cmd.Flags().GetBool("summary")
	if err != nil {
		return fmt.Errorf("failed to get summary flag: %w", err)
	}

	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}

	name, err := st.Active()
	if err != nil {
		return err
	}
	if err := st.ClearActive(); err != nil {
		return err
	}
	meta, err := st.Finish(name)
	if err != nil {
		return err
	}

	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "stopped session %s (ran %s)\n",
			meta.Name, meta.StoppedAt.Sub(meta.StartedAt).Round(time.Millisecond))
	}

	if summary {
		snap, err := st.LoadMerged(context.Background(), name)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), snap, report.Options{})
	}
	return nil
}
