package sink

import "callscope/internal/event"

// MultiSink fans timeline events out to multiple sinks.
type MultiSink struct {
	sinks []Sink
	level event.Level
}

// NewMultiSink creates a MultiSink that emits to all provided sinks.
func NewMultiSink(level event.Level, sinks ...Sink) *MultiSink {
	return &MultiSink{
		sinks: sinks,
		level: level,
	}
}

// Emit sends the event to all underlying sinks.
func (t *MultiSink) Emit(ev *event.Event) {
	for _, s := range t.sinks {
		s.Emit(ev)
	}
}

// Flush flushes all underlying sinks.
func (t *MultiSink) Flush() error {
	var firstErr error
	for _, s := range t.sinks {
		if err := s.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all underlying sinks.
func (t *MultiSink) Close() error {
	var firstErr error
	for _, s := range t.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Level returns the configured level.
func (t *MultiSink) Level() event.Level {
	return t.level
}

// Enabled reports whether the sink records anything.
func (t *MultiSink) Enabled() bool {
	return t.level > event.LevelOff
}

// Ring returns the first RingSink in the fan-out, if any. Crash dumps
// use it to recover the timeline tail.
func (t *MultiSink) Ring() (*RingSink, bool) {
	for _, s := range t.sinks {
		if r, ok := s.(*RingSink); ok {
			return r, true
		}
	}
	return nil, false
}
