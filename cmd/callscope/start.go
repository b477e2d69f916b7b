package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"callscope/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start [name]",
	Short: "Create a session and mark it active for recording",
	Long: `Create a new session in the store and mark it active. Instrumented
programs that call callscope.Resume() will record into it until
"callscope stop" clears the marker.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

func init() {
	startCmd.Flags().Bool("force", false, "replace the active session marker if one is already set")
	startCmd.Flags().String("label", "", "free-form label stored in the session metadata")
}

func runStart(cmd *cobra.Command, args []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}
	label, err := cmd.Flags().GetString("label")
	if err != nil {
		return fmt.Errorf("failed to get label flag: %w", err)
	}

	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}

	if current, err := st.Active(); err == nil {
		if !force {
			return fmt.Errorf("session %q is already active (stop it or pass --force)", current)
		}
	} else if !errors.Is(err, store.ErrNoActiveSession) {
		return err
	}

	name := "session-" + time.Now().Format("20060102-150405")
	if len(args) > 0 {
		name = args[0]
	}

	meta, err := st.Create(name, label)
	if err != nil {
		return err
	}
	if err := st.SetActive(meta.Name); err != nil {
		return err
	}

	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "started session %s\n", meta.Name)
	}
	return nil
}
