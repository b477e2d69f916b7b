package event

import "fmt"

// Scope indicates the granularity of an event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeSession covers session lifecycle and liveness events.
	ScopeSession Scope = iota + 1
	// ScopeCall covers function call/return/exception boundaries.
	ScopeCall
	// ScopeLine covers individual line executions (most detailed).
	ScopeLine
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeCall:
		return "call"
	case ScopeLine:
		return "line"
	default:
		return "unknown"
	}
}

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff Level = iota // no tracing
	// LevelCalls records call/return/exception boundaries.
	LevelCalls
	// LevelLines additionally records line executions.
	LevelLines
	LevelDebug // everything, including session internals
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelCalls:
		return "calls"
	case LevelLines:
		return "lines"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off", "OFF":
		return LevelOff, nil
	case "calls", "CALLS":
		return LevelCalls, nil
	case "lines", "LINES":
		return LevelLines, nil
	case "debug", "DEBUG":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|calls|lines|debug)", s)
	}
}

// ShouldEmit reports whether events of the given scope pass this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelCalls:
		return scope <= ScopeCall
	case LevelLines:
		return scope <= ScopeLine
	case LevelDebug:
		return true
	}
	return false
}
