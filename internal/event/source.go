package event

import (
	"errors"
	"sync"
	"time"

	"callscope/internal/loc"
)

// ErrAlreadyActive is returned by Attach when a hook is already installed.
// Callers may ignore it or detach first.
var ErrAlreadyActive = errors.New("event source already attached")

// Hook receives intercepted events. Handle must be goroutine-safe; it is
// invoked synchronously on the goroutine that produced the event.
type Hook interface {
	Handle(ev *Event)
}

// Source is the process-wide interception point. While attached, every
// traced operation in the host program flows through the installed hook.
//
// Attach and Detach are guarded against each other, but the contract is
// at most one attach per session: a second Attach while active fails with
// ErrAlreadyActive. Events produced by a goroutine that is itself inside
// the hook are dropped, so the interception machinery never traces itself.
type Source struct {
	mu   sync.Mutex
	hook Hook

	busyMu sync.Mutex
	busy   map[uint64]struct{} // goroutines currently inside the hook
}

// NewSource returns a detached source.
func NewSource() *Source {
	return &Source{busy: make(map[uint64]struct{})}
}

// Attach installs h as the process-wide hook.
func (s *Source) Attach(h Hook) error {
	if h == nil {
		return errors.New("event: nil hook")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hook != nil {
		return ErrAlreadyActive
	}
	s.hook = h
	return nil
}

// Detach removes the installed hook. Detaching an inactive source is a no-op.
func (s *Source) Detach() {
	s.mu.Lock()
	s.hook = nil
	s.mu.Unlock()
}

// Active reports whether a hook is currently installed.
func (s *Source) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hook != nil
}

// Emit delivers an event of the given kind to the installed hook,
// stamping it with the current time, a sequence number and the producing
// goroutine. Emissions from a goroutine already inside the hook are
// suppressed. Emit on a detached source is a no-op.
func (s *Source) Emit(kind Kind, id loc.ID, l loc.Location, detail string) {
	s.mu.Lock()
	h := s.hook
	s.mu.Unlock()
	if h == nil {
		return
	}

	gid := GoroutineID()
	if !s.enter(gid) {
		return
	}
	defer s.leave(gid)

	h.Handle(&Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   kind,
		GID:    gid,
		ID:     id,
		Loc:    l,
		Detail: detail,
	})
}

// enter marks gid as inside the hook. It reports false when the goroutine
// is already inside, which means the emission must be suppressed.
func (s *Source) enter(gid uint64) bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	if _, inside := s.busy[gid]; inside {
		return false
	}
	s.busy[gid] = struct{}{}
	return true
}

func (s *Source) leave(gid uint64) {
	s.busyMu.Lock()
	delete(s.busy, gid)
	s.busyMu.Unlock()
}
