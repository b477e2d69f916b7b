package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVersionHasDefault(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestVersionPlainWhenColorDisabled(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	v := versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("1") + "." + versionPatchColor.Sprint("0")
	if strings.ContainsRune(v, '\x1b') {
		t.Errorf("version contains escape codes with color disabled: %q", v)
	}
}

func TestBuildMetadataOverride(t *testing.T) {
	origCommit, origDate := GitCommit, BuildDate
	defer func() { GitCommit, BuildDate = origCommit, origDate }()

	GitCommit = "abc123def456"
	BuildDate = "2026-01-15T10:30:00Z"
	if GitCommit != "abc123def456" || BuildDate != "2026-01-15T10:30:00Z" {
		t.Errorf("build metadata not overridable: %q %q", GitCommit, BuildDate)
	}
}
