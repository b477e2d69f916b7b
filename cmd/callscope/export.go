package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"callscope/internal/report"
	"callscope/internal/sink"
	"callscope/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export [session] <path>",
	Short: "Export a session as a timeline or summary file",
	Long: `Write a recorded session to a file. Timeline formats (text, ndjson,
chrome) re-render the recorded timeline; the summary format writes the
merged table. With --format=auto the format follows the file extension;
chrome JSON is consumable by about://tracing and compatible viewers.

Export failures are recoverable: partial output is discarded.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("format", "auto", "output format (auto|text|ndjson|chrome|summary)")
	exportCmd.Flags().String("sort", "cumulative", "sort order for summary exports")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := setupColor(cmd); err != nil {
		return err
	}

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	sortStr, err := cmd.Flags().GetString("sort")
	if err != nil {
		return fmt.Errorf("failed to get sort flag: %w", err)
	}

	path := args[len(args)-1]
	sessArgs := args[:len(args)-1]

	st, _, err := openStore(cmd)
	if err != nil {
		return err
	}
	name, err := resolveSession(st, sessArgs)
	if err != nil {
		return err
	}

	summary := strings.EqualFold(formatStr, "summary") ||
		(strings.EqualFold(formatStr, "auto") && strings.HasSuffix(path, ".txt"))

	if summary {
		mode, err := report.ParseSort(sortStr)
		if err != nil {
			return err
		}
		if err := exportSummary(cmd, st, name, path, mode); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	} else {
		format, err := sink.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		format = sink.DetectFormat(format, path)
		if err := exportTimeline(st, name, path, format); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	}

	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", name, path)
	}
	return nil
}

// exportSummary writes the merged table. Color is forced off so the
// file never carries escape sequences.
func exportSummary(cmd *cobra.Command, st *store.Store, name, path string, mode report.Sort) error {
	snap, err := st.LoadMerged(cmd.Context(), name)
	if err != nil {
		return err
	}

	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	return writeAtomically(path, func(f *os.File) error {
		return report.Write(f, snap, report.Options{Sort: mode})
	})
}

// exportTimeline re-renders the session's recorded NDJSON timeline.
func exportTimeline(st *store.Store, name, path string, format sink.Format) error {
	src, err := os.Open(st.TimelinePath(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("session %s has no recorded timeline (enable [trace].timeline)", name)
		}
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	return writeAtomically(path, func(f *os.File) error {
		return sink.Convert(src, f, format)
	})
}

// writeAtomically lands the output via temp file + rename, discarding
// partial output when fn fails.
func writeAtomically(path string, fn func(f *os.File) error) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "tmp-export-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()

	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
