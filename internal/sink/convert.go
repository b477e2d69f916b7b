package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"callscope/internal/event"
)

// ReadTimeline decodes an NDJSON timeline from r and calls fn for every
// event in recorded order. Decoding stops at the first malformed line.
func ReadTimeline(r io.Reader, fn func(ev *event.Event) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var w wireEvent
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("timeline line %d: %w", line, err)
		}
		ev, err := w.toEvent()
		if err != nil {
			return fmt.Errorf("timeline line %d: %w", line, err)
		}
		if err := fn(&ev); err != nil {
			return err
		}
	}
	return sc.Err()
}

// nonClosing hides an io.Closer so StreamSink.Close leaves the
// underlying writer open.
type nonClosing struct{ io.Writer }

// Convert re-renders an NDJSON timeline from r into format, writing the
// result to w. The caller keeps ownership of both ends.
func Convert(r io.Reader, w io.Writer, format Format) error {
	if format == FormatAuto || format == FormatNDJSON {
		_, err := io.Copy(w, r)
		return err
	}

	out := NewStreamSink(nonClosing{w}, event.LevelDebug, format)
	err := ReadTimeline(r, func(ev *event.Event) error {
		out.Emit(ev)
		return nil
	})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}
