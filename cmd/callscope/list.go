package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"callscope/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}

	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}

	metas, err := st.List()
	if err != nil {
		return err
	}
	activeName, err := st.Active()
	if err != nil && !errors.Is(err, store.ErrNoActiveSession) {
		return err
	}

	if len(metas) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded sessions")
		return nil
	}

	for _, m := range metas {
		state := "stopped"
		switch {
		case m.Name == activeName:
			state = "active"
		case !m.Stopped():
			state = "open"
		}
		line := fmt.Sprintf("%-28s %-8s started %s", m.Name, state,
			m.StartedAt.Format(time.DateTime))
		if m.Label != "" {
			line += "  // " + m.Label
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
