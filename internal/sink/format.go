package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"fortio.org/safecast"

	"callscope/internal/event"
	"callscope/internal/loc"
)

// Format represents the output format for timeline records.
type Format uint8

const (
	FormatAuto   Format = iota // pick from file extension
	FormatText                 // human-readable text
	FormatNDJSON               // newline-delimited JSON
	FormatChrome               // Chrome trace-event JSON ("traceEvents")
)

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatText:
		return "text"
	case FormatNDJSON:
		return "ndjson"
	case FormatChrome:
		return "chrome"
	default:
		return "unknown"
	}
}

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text", "txt":
		return FormatText, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	case "chrome", "json":
		return FormatChrome, nil
	default:
		return FormatAuto, fmt.Errorf("invalid timeline format: %q (expected: auto|text|ndjson|chrome)", s)
	}
}

// DetectFormat resolves FormatAuto from a file extension.
// Unknown extensions and empty paths fall back to text.
func DetectFormat(f Format, path string) Format {
	if f != FormatAuto {
		return f
	}
	switch {
	case strings.HasSuffix(path, ".ndjson"), strings.HasSuffix(path, ".jsonl"):
		return FormatNDJSON
	case strings.HasSuffix(path, ".json"):
		return FormatChrome
	default:
		return FormatText
	}
}

// Ext returns the conventional file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatNDJSON:
		return ".ndjson"
	case FormatChrome:
		return ".json"
	default:
		return ".txt"
	}
}

// timeLayout pins sub-microsecond timestamps for the NDJSON wire form.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// wireEvent is the NDJSON wire form of a timeline record. It round-trips:
// recorded timelines are re-read for format conversion at export time.
type wireEvent struct {
	Time     string `json:"time"`
	Seq      uint64 `json:"seq"`
	Kind     string `json:"kind"`
	GID      uint64 `json:"gid,omitempty"`
	Depth    int    `json:"depth,omitempty"`
	Module   string `json:"module,omitempty"`
	Function string `json:"function,omitempty"`
	Line     int    `json:"line,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func toWire(ev *event.Event) wireEvent {
	return wireEvent{
		Time:     ev.Time.Format(timeLayout),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		GID:      ev.GID,
		Depth:    ev.Depth,
		Module:   ev.Loc.Module,
		Function: ev.Loc.Function,
		Line:     ev.Loc.Line,
		Detail:   ev.Detail,
	}
}

func (w wireEvent) toEvent() (event.Event, error) {
	ts, err := time.Parse(timeLayout, w.Time)
	if err != nil {
		return event.Event{}, fmt.Errorf("bad timestamp %q: %w", w.Time, err)
	}
	var kind event.Kind
	switch w.Kind {
	case "call":
		kind = event.KindCall
	case "line":
		kind = event.KindLine
	case "return":
		kind = event.KindReturn
	case "exception":
		kind = event.KindException
	case "heartbeat":
		kind = event.KindHeartbeat
	default:
		return event.Event{}, fmt.Errorf("unknown event kind %q", w.Kind)
	}
	return event.Event{
		Time:   ts,
		Seq:    w.Seq,
		Kind:   kind,
		GID:    w.GID,
		Depth:  w.Depth,
		Loc:    loc.Location{Module: w.Module, Function: w.Function, Line: w.Line},
		Detail: w.Detail,
	}, nil
}

// FormatEvent renders a single event in the given (resolved) format.
func FormatEvent(ev *event.Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	case FormatChrome:
		return formatChrome(ev)
	default:
		return formatText(ev)
	}
}

func formatNDJSON(ev *event.Event) []byte {
	data, _ := json.Marshal(toWire(ev))
	data = append(data, '\n')
	return data
}

// chromeEvent follows Chrome's Trace Event Format: phases "B"/"E" for
// call/return pairs, "i" for instants, microsecond timestamps.
type chromeEvent struct {
	Name  string `json:"name"`
	Phase string `json:"ph"`
	TS    int64  `json:"ts"`
	PID   int    `json:"pid"`
	TID   int64  `json:"tid"`
	Cat   string `json:"cat,omitempty"`
	Scope string `json:"s,omitempty"`
	Args  struct {
		Detail string `json:"detail,omitempty"`
	} `json:"args,omitempty"`
}

func formatChrome(ev *event.Event) []byte {
	var phase string
	switch ev.Kind {
	case event.KindCall:
		phase = "B"
	case event.KindReturn:
		phase = "E"
	default:
		phase = "i"
	}

	tid, err := safecast.Conv[int64](ev.GID)
	if err != nil {
		tid = 0
	}

	ce := chromeEvent{
		Name:  ev.Loc.String(),
		Phase: phase,
		TS:    ev.Time.UnixMicro(),
		PID:   os.Getpid(),
		TID:   tid,
		Cat:   ev.Kind.String(),
	}
	if phase == "i" {
		ce.Scope = "t" // thread-scoped instant
	}
	ce.Args.Detail = ev.Detail

	data, _ := json.Marshal(ce)
	return data
}

// formatText renders an event as human-readable text:
// [timestamp] [indent]→/← location (detail)
func formatText(ev *event.Event) []byte {
	var sb strings.Builder

	sb.WriteString("[")
	sb.WriteString(ev.Time.Format("15:04:05.000000"))
	sb.WriteString("] ")

	for i := 0; i < ev.Depth; i++ {
		sb.WriteString("  ")
	}

	switch ev.Kind {
	case event.KindCall:
		sb.WriteString("→ ")
	case event.KindReturn:
		sb.WriteString("← ")
	case event.KindLine:
		sb.WriteString("· ")
	case event.KindException:
		sb.WriteString("! ")
	case event.KindHeartbeat:
		sb.WriteString("♡ ")
	default:
		sb.WriteString("? ")
	}

	if !ev.Loc.IsZero() {
		sb.WriteString(ev.Loc.String())
	} else {
		sb.WriteString(ev.Kind.String())
	}

	if ev.Detail != "" {
		sb.WriteString(" (")
		sb.WriteString(ev.Detail)
		sb.WriteString(")")
	}

	sb.WriteString("\n")
	return []byte(sb.String())
}
