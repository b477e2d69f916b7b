package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"callscope/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "callscope",
	Short: "Execution tracer and session profiler",
	Long:  `callscope records instrumented program runs and turns them into summary tables and timelines`,
}

// main registers subcommands and persistent flags, then executes the
// root command. Command errors exit with status code 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("data-dir", "", "session store directory (default from callscope.toml or user cache)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a cpu profile of callscope itself to this path")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile of callscope itself to this path")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace of callscope itself to this path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
