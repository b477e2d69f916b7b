package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callscope/internal/version"
)

const versionTagline = "watch the stack, not the clock"

var versionFormat string

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show callscope build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := strings.TrimSpace(version.Version)
		if v == "" {
			v = "dev"
		}

		switch strings.ToLower(versionFormat) {
		case "pretty":
			fmt.Fprintf(cmd.OutOrStdout(), "callscope %s (%s)\n", v, versionTagline)
			if c := strings.TrimSpace(version.GitCommit); c != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", c)
			}
			if d := strings.TrimSpace(version.BuildDate); d != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built:  %s\n", d)
			}
			return nil
		case "json":
			payload := struct {
				Tool      string `json:"tool"`
				Version   string `json:"version"`
				Tagline   string `json:"tagline"`
				GitCommit string `json:"git_commit,omitempty"`
				BuildDate string `json:"build_date,omitempty"`
			}{
				Tool:      "callscope",
				Version:   v,
				Tagline:   versionTagline,
				GitCommit: strings.TrimSpace(version.GitCommit),
				BuildDate: strings.TrimSpace(version.BuildDate),
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}
	},
}
