package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"callscope/internal/report"
	"callscope/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [session]",
	Short: "Live view of a session's hottest locations",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("sort", "cumulative", "sort order (cumulative|exclusive|calls)")
	watchCmd.Flags().Int("limit", 15, "number of rows to display")
	watchCmd.Flags().String("ui", "auto", "run the TUI (auto|on|off); off prints a one-shot report")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}

	sortStr, err := cmd.Flags().GetString("sort")
	if err != nil {
		return fmt.Errorf("failed to get sort flag: %w", err)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("failed to get limit flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}

	mode, err := report.ParseSort(sortStr)
	if err != nil {
		return err
	}
	useTUI, err := shouldUseTUI(uiFlag)
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

	if !useTUI {
		snap, err := st.LoadMerged(cmd.Context(), name)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), snap, report.Options{Sort: mode, Limit: limit})
	}

	model := ui.NewWatchModel(st, name, mode, limit)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, err = program.Run()
	return err
}

// shouldUseTUI resolves the --ui mode against the terminal.
func shouldUseTUI(mode string) (bool, error) {
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "", "auto":
		return isTerminal(os.Stdout), nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", mode)
	}
}
