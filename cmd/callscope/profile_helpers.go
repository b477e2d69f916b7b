package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"callscope/internal/prof"
)

// setupProfiling inspects persistent profiling flags and enables the
// corresponding profilers for the callscope process itself. It returns
// a cleanup function that is safe to call multiple times.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	cpuProfile, err := root.PersistentFlags().GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memProfile, err := root.PersistentFlags().GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	tracePath, err := root.PersistentFlags().GetString("runtime-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	if cpuProfile == "" && memProfile == "" && tracePath == "" {
		return func() {}, nil
	}

	rec, err := prof.Start(prof.Options{
		CPUPath:   cpuProfile,
		MemPath:   memProfile,
		TracePath: tracePath,
	})
	if err != nil {
		return nil, err
	}

	cleanup := func() {
		if err := rec.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to stop profilers: %v\n", err)
		}
	}
	return cleanup, nil
}
