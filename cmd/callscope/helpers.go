package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"callscope/internal/config"
	"callscope/internal/store"
)

// setupColor applies the --color flag to the global color state.
func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// openStore resolves the session store: --data-dir beats the nearest
// callscope.toml, which beats the user cache directory.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, _, err := config.Discover(".")
	if err != nil {
		return nil, config.Config{}, err
	}

	dir, err := cmd.Root().PersistentFlags().GetString("data-dir")
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to get data-dir flag: %w", err)
	}
	if dir == "" {
		dir = cfg.Store.Dir
	}

	st, err := store.Open(dir)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to open session store: %w", err)
	}
	return st, cfg, nil
}

// resolveSession picks the session to operate on: an explicit argument
// wins, then the active session, then the most recently started one.
func resolveSession(st *store.Store, args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		if _, err := st.Meta(args[0]); err != nil {
			return "", err
		}
		return args[0], nil
	}

	if name, err := st.Active(); err == nil {
		return name, nil
	}

	metas, err := st.List()
	if err != nil {
		return "", err
	}
	if len(metas) == 0 {
		return "", fmt.Errorf("no recorded sessions (run `callscope start` first)")
	}
	return metas[len(metas)-1].Name, nil
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	return err == nil && q
}
