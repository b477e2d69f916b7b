// Package sink delivers timeline events to their destinations.
//
// A session routes every event that survives level filtering into a
// Sink. Four implementations cover the recording modes:
//
//   - NopSink: zero-overhead no-op when timelines are disabled
//   - StreamSink: immediate write to a file or writer
//   - RingSink: circular in-memory buffer for crash dumps
//   - MultiSink: fan-out to several sinks
//
// Timeline output formats are text, NDJSON and Chrome trace-event JSON;
// FormatAuto resolves from the output file extension.
package sink

import (
	"fmt"
	"io"
	"os"
	"strings"

	"callscope/internal/event"
)

// Sink receives timeline events. Emit must be goroutine-safe.
type Sink interface {
	Emit(ev *event.Event)

	// Flush ensures all buffered events are written.
	Flush() error

	// Close flushes and releases resources.
	Close() error

	// Level returns the filtering level applied by this sink.
	Level() event.Level

	// Enabled reports whether the sink records anything at all.
	Enabled() bool
}

// Mode determines how timeline events are stored.
type Mode uint8

const (
	ModeStream Mode = iota + 1 // immediate write
	ModeRing                   // circular buffer
	ModeBoth                   // stream + ring
)

// String returns the string representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	case ModeBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	case "both":
		return ModeBoth, nil
	default:
		return ModeStream, fmt.Errorf("invalid timeline mode: %q (expected: stream|ring|both)", s)
	}
}

// Config holds sink configuration.
type Config struct {
	Level      event.Level // filtering level
	Mode       Mode        // storage mode
	Format     Format      // output format (FormatAuto to detect)
	Output     io.Writer   // for stream mode (if nil, use OutputPath)
	OutputPath string      // alternative: file path ("-" for stderr)
	RingSize   int         // for ring mode (default 4096)
}

// New creates a Sink based on Config.
func New(cfg Config) (Sink, error) {
	if cfg.Level == event.LevelOff {
		return Nop, nil
	}

	if cfg.RingSize <= 0 {
		cfg.RingSize = 4096
	}
	format := DetectFormat(cfg.Format, cfg.OutputPath)

	switch cfg.Mode {
	case ModeStream:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		return NewStreamSink(w, cfg.Level, format), nil

	case ModeRing:
		return NewRingSink(cfg.RingSize, cfg.Level), nil

	case ModeBoth:
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream := NewStreamSink(w, cfg.Level, format)
		ring := NewRingSink(cfg.RingSize, cfg.Level)
		return NewMultiSink(cfg.Level, stream, ring), nil

	default:
		return nil, fmt.Errorf("unknown timeline mode: %v", cfg.Mode)
	}
}

// openOutput opens the output writer from config.
func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}

	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline output: %w", err)
	}

	return f, nil
}
