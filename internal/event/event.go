package event

import (
	"sync/atomic"
	"time"

	"callscope/internal/loc"
)

// Kind is the closed set of event types a source can deliver.
type Kind uint8

const (
	// KindCall marks entry into a traced function.
	KindCall Kind = iota + 1
	// KindLine marks execution reaching a traced line.
	KindLine
	// KindReturn marks exit from a traced function.
	KindReturn
	// KindException marks an error or panic observed inside a traced
	// function. It never unwinds the shadow stack by itself; the
	// unwinding shows up as subsequent return events.
	KindException
	KindHeartbeat // periodic liveness signal
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindLine:
		return "line"
	case KindReturn:
		return "return"
	case KindException:
		return "exception"
	case KindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Scope maps the kind to its filtering granularity.
func (k Kind) Scope() Scope {
	switch k {
	case KindLine:
		return ScopeLine
	case KindCall, KindReturn, KindException:
		return ScopeCall
	default:
		return ScopeSession
	}
}

// Event is a single intercepted occurrence in the host program.
type Event struct {
	Time   time.Time    // wall-clock timestamp
	Seq    uint64       // global sequence number (monotonic)
	Kind   Kind         // event kind
	GID    uint64       // goroutine that produced the event
	ID     loc.ID       // interned location handle
	Loc    loc.Location // originating code location
	Depth  int          // shadow-stack depth at emission time
	Detail string       // optional detail message
}

var globalSeq uint64

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return atomic.AddUint64(&globalSeq, 1)
}
