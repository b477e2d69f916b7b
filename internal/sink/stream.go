package sink

import (
	"io"
	"sync"

	"callscope/internal/event"
)

// StreamSink writes events immediately to an io.Writer.
type StreamSink struct {
	mu         sync.Mutex
	w          io.Writer
	level      event.Level
	format     Format
	firstEvent bool // for Chrome format comma handling
}

// NewStreamSink creates a new StreamSink. format must already be
// resolved (not FormatAuto).
func NewStreamSink(w io.Writer, level event.Level, format Format) *StreamSink {
	st := &StreamSink{
		w:          w,
		level:      level,
		format:     format,
		firstEvent: true,
	}

	if format == FormatChrome {
		// Best-effort write - don't fail initialization on header errors
		_, _ = st.w.Write([]byte("{\"traceEvents\":[\n")) //nolint:errcheck
	}

	return st
}

// Emit writes an event to the output.
func (t *StreamSink) Emit(ev *event.Event) {
	if !t.level.ShouldEmit(ev.Kind.Scope()) && ev.Kind != event.KindHeartbeat {
		return
	}

	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.format == FormatChrome {
		if !t.firstEvent {
			_, _ = t.w.Write([]byte(",\n")) //nolint:errcheck
		}
		t.firstEvent = false
	}

	// Best-effort write - tracing must never disrupt the host program
	if _, err := t.w.Write(data); err != nil {
		_ = err
	}
}

// Flush ensures all buffered data is written.
// For StreamSink this is a no-op since we write immediately.
func (t *StreamSink) Flush() error {
	if flusher, ok := t.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close writes the Chrome footer if needed and closes the writer when
// it implements io.Closer.
func (t *StreamSink) Close() error {
	t.mu.Lock()
	if t.format == FormatChrome {
		_, _ = t.w.Write([]byte("\n]}\n")) //nolint:errcheck
	}
	t.mu.Unlock()

	if err := t.Flush(); err != nil {
		return err
	}
	if closer, ok := t.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Level returns the filtering level.
func (t *StreamSink) Level() event.Level {
	return t.level
}

// Enabled reports whether the sink records anything.
func (t *StreamSink) Enabled() bool {
	return t.level > event.LevelOff
}
