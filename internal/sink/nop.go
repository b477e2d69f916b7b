package sink

import "callscope/internal/event"

// nopSink is a no-op implementation for zero overhead when timelines
// are disabled.
type nopSink struct{}

// Emit does nothing.
func (nopSink) Emit(*event.Event) {}

// Flush does nothing.
func (nopSink) Flush() error { return nil }

// Close does nothing.
func (nopSink) Close() error { return nil }

// Level returns LevelOff.
func (nopSink) Level() event.Level { return event.LevelOff }

// Enabled always returns false.
func (nopSink) Enabled() bool { return false }

// Nop is the package-level singleton nop sink.
var Nop Sink = nopSink{}
