package sink

import (
	"io"
	"sync"

	"callscope/internal/event"
)

// RingSink keeps the last N events in memory (circular buffer).
// Sessions use it as a crash dump: when the host program dies, the tail
// of the timeline is still recoverable via Dump.
type RingSink struct {
	mu       sync.RWMutex
	events   []event.Event
	capacity int
	head     int  // next write position
	full     bool // has wrapped around
	level    event.Level
}

// NewRingSink creates a new RingSink with the specified capacity.
func NewRingSink(capacity int, level event.Level) *RingSink {
	if capacity <= 0 {
		capacity = 4096
	}

	return &RingSink{
		events:   make([]event.Event, capacity),
		capacity: capacity,
		level:    level,
	}
}

// Emit adds an event to the ring buffer.
func (t *RingSink) Emit(ev *event.Event) {
	if !t.level.ShouldEmit(ev.Kind.Scope()) && ev.Kind != event.KindHeartbeat {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events[t.head] = *ev
	t.head = (t.head + 1) % t.capacity

	if t.head == 0 {
		t.full = true
	}
}

// Snapshot returns a copy of all stored events in chronological order.
func (t *RingSink) Snapshot() []event.Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full {
		// Not wrapped yet - return [0:head]
		result := make([]event.Event, t.head)
		copy(result, t.events[:t.head])
		return result
	}

	// Wrapped - return [head:capacity] + [0:head]
	result := make([]event.Event, t.capacity)
	copy(result, t.events[t.head:])
	copy(result[t.capacity-t.head:], t.events[:t.head])
	return result
}

// Dump writes all buffered events to w in the given format.
func (t *RingSink) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()

	for i := range events {
		data := FormatEvent(&events[i], format)
		if _, err := w.Write(data); err != nil {
			return err
		}
	}

	return nil
}

// Flush is a no-op for RingSink since everything is in memory.
func (t *RingSink) Flush() error {
	return nil
}

// Close is a no-op for RingSink.
func (t *RingSink) Close() error {
	return nil
}

// Level returns the filtering level.
func (t *RingSink) Level() event.Level {
	return t.level
}

// Enabled reports whether the sink records anything.
func (t *RingSink) Enabled() bool {
	return t.level > event.LevelOff
}
