// Package config loads callscope.toml manifests.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file looked up when discovering configuration.
const ManifestName = "callscope.toml"

// Duration wraps time.Duration so TOML values like "250ms" decode.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TraceConfig controls how the library records.
type TraceConfig struct {
	Level     string   `toml:"level"`     // off|calls|lines|debug
	Timeline  bool     `toml:"timeline"`  // stream a timeline next to the stats
	Format    string   `toml:"format"`    // auto|text|ndjson|chrome
	Mode      string   `toml:"mode"`      // stream|ring|both
	RingSize  int      `toml:"ring_size"` // ring capacity for crash dumps
	Heartbeat Duration `toml:"heartbeat"` // liveness interval, 0 disables
}

// StoreConfig controls where sessions land on disk.
type StoreConfig struct {
	Dir string `toml:"dir"`
}

// Config is the full manifest.
type Config struct {
	Trace TraceConfig `toml:"trace"`
	Store StoreConfig `toml:"store"`
}

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{
		Trace: TraceConfig{
			Level:    "calls",
			Mode:     "stream",
			RingSize: 4096,
		},
	}
}

// Find walks from startDir toward the filesystem root looking for a
// callscope.toml. Reports ok=false when none exists.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses a manifest, filling defaults for anything left out.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("trace", "ring_size") && cfg.Trace.RingSize <= 0 {
		return Config{}, fmt.Errorf("%s: [trace].ring_size must be positive", path)
	}
	return cfg, nil
}

// Discover finds and loads the nearest manifest; without one it returns
// defaults and an empty path.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}
