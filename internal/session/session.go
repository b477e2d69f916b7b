package session

import (
	"io"
	"sync"
	"time"

	"callscope/internal/event"
	"callscope/internal/loc"
	"callscope/internal/sink"
	"callscope/internal/stack"
	"callscope/internal/stats"
)

// Config holds session configuration.
type Config struct {
	Name      string        // session name, used by stores and reports
	Level     event.Level   // tracing level (LevelOff yields an inert session)
	Sink      sink.Sink     // timeline sink (nil = no timeline)
	Heartbeat time.Duration // liveness interval (0 = disabled)
}

// Session is the single owner of a tracing run. See the package
// documentation for the lifecycle contract.
type Session struct {
	name  string
	level event.Level

	src  *event.Source
	rec  *stack.Recorder
	tab  *stats.Table
	sink sink.Sink
	hb   *Heartbeat

	inMu sync.Mutex
	in   *loc.Interner

	mu      sync.Mutex
	started time.Time
	running bool
	err     error // first fatal error; session is aborted once set
}

// New constructs a detached session.
func New(cfg Config) *Session {
	out := cfg.Sink
	if out == nil {
		out = sink.Nop
	}
	return &Session{
		name:  cfg.Name,
		level: cfg.Level,
		src:   event.NewSource(),
		rec:   stack.NewRecorder(),
		tab:   stats.NewTable(),
		sink:  out,
		in:    loc.NewInterner(),
		hb:    newHeartbeat(cfg.Heartbeat),
	}
}

// Name returns the session name.
func (s *Session) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Start resets all state and installs the session as the process-wide
// hook. A second Start while running fails with event.ErrAlreadyActive.
func (s *Session) Start() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.src.Attach(s); err != nil {
		return err
	}
	s.rec.Reset()
	s.tab.Reset()
	s.started = time.Now()
	s.running = true
	s.err = nil
	s.hb.start(s)
	return nil
}

// Stop detaches the hook, stops the heartbeat, flushes and closes the
// timeline sink and returns the final snapshot. A retained fatal error
// (stack mismatch) takes precedence over sink close errors.
func (s *Session) Stop() (stats.Snapshot, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	if !s.running {
		snap := s.snapshot()
		err := s.err
		s.mu.Unlock()
		return snap, err
	}
	s.running = false
	s.mu.Unlock()

	s.src.Detach()
	s.hb.stop()

	flushErr := s.sink.Flush()
	closeErr := s.sink.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	switch {
	case s.err != nil:
		return snap, s.err
	case flushErr != nil:
		return snap, flushErr
	default:
		return snap, closeErr
	}
}

// Err returns the retained fatal error, if the session has aborted.
func (s *Session) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Active reports whether the session is currently recording.
func (s *Session) Active() bool {
	if s == nil {
		return false
	}
	return s.src.Active()
}

// Started returns the wall time of the last Start.
func (s *Session) Started() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Snapshot returns the current aggregated statistics without stopping
// the session.
func (s *Session) Snapshot() stats.Snapshot {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot resolves the table through the interner. Callers hold s.mu.
func (s *Session) snapshot() stats.Snapshot {
	s.inMu.Lock()
	defer s.inMu.Unlock()
	return s.tab.Snapshot(s.in)
}

// StackDepth reports the shadow-stack depth of the calling goroutine.
func (s *Session) StackDepth() int {
	if s == nil {
		return 0
	}
	return s.rec.Depth(event.GoroutineID())
}

// Balanced reports whether every shadow stack has fully unwound.
func (s *Session) Balanced() bool {
	if s == nil {
		return true
	}
	return s.rec.Empty()
}

// Enter records entry into a traced region and returns the matching
// leave function. Nil-safe; a no-op when the session is not recording.
//
//	defer sess.Enter("billing", "Charge", 120)()
func (s *Session) Enter(module, function string, line int) func() {
	if s == nil {
		return func() {}
	}
	l := loc.Location{Module: module, Function: function, Line: line}
	s.emit(event.KindCall, l, "")
	return func() { s.emit(event.KindReturn, l, "") }
}

// Leave records exit from a traced region. Pairs with Enter when the
// closure form is inconvenient.
func (s *Session) Leave(module, function string, line int) {
	if s == nil {
		return
	}
	s.emit(event.KindReturn, loc.Location{Module: module, Function: function, Line: line}, "")
}

// Line records execution reaching a traced line. Only recorded at
// LevelLines and above.
func (s *Session) Line(module, function string, line int) {
	if s == nil || !s.level.ShouldEmit(event.ScopeLine) {
		return
	}
	s.emit(event.KindLine, loc.Location{Module: module, Function: function, Line: line}, "")
}

// Exception records an error or panic observed inside the current
// region. The shadow stack is left alone: unwinding is observed through
// the return events that follow.
func (s *Session) Exception(module, function string, line int, detail string) {
	if s == nil {
		return
	}
	s.emit(event.KindException, loc.Location{Module: module, Function: function, Line: line}, detail)
}

func (s *Session) emit(kind event.Kind, l loc.Location, detail string) {
	if !s.level.ShouldEmit(kind.Scope()) && kind != event.KindHeartbeat {
		return
	}
	s.inMu.Lock()
	id := s.in.Intern(l)
	s.inMu.Unlock()
	s.src.Emit(kind, id, l, detail)
}

// Handle routes one intercepted event. It runs synchronously on the
// goroutine that produced the event; the source's re-entrancy guard
// keeps the routing itself out of the trace.
func (s *Session) Handle(ev *event.Event) {
	switch ev.Kind {
	case event.KindCall:
		ev.Depth = s.rec.Push(ev.GID, ev.ID, ev.Loc, ev.Time)

	case event.KindReturn:
		res, err := s.rec.Pop(ev.GID, ev.ID, ev.Loc, ev.Time)
		if err != nil {
			s.fail(err)
			return
		}
		s.tab.Add(ev.ID, res.Elapsed, res.Exclusive)
		ev.Depth = res.Depth

	case event.KindLine, event.KindException:
		ev.Depth = s.rec.Depth(ev.GID)

	case event.KindHeartbeat:
		// depth stays 0
	}

	s.sink.Emit(ev)
}

// fail retains the first fatal error and halts interception.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	s.src.Detach()
	s.hb.stop()
}

// DumpRing writes the in-memory timeline tail, if the session records
// into a ring sink. Reports false when there is no ring to dump.
func (s *Session) DumpRing(w io.Writer, format sink.Format) (bool, error) {
	if s == nil {
		return false, nil
	}
	switch out := s.sink.(type) {
	case *sink.RingSink:
		return true, out.Dump(w, format)
	case *sink.MultiSink:
		if ring, ok := out.Ring(); ok {
			return true, ring.Dump(w, format)
		}
	}
	return false, nil
}
