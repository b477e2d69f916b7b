package stack

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"callscope/internal/loc"
)

// Frame is a single live invocation on the shadow stack.
type Frame struct {
	ID    loc.ID
	Loc   loc.Location
	Start time.Time
	GID   uint64

	// child accumulates time already attributed to frames pushed after
	// and popped before this one. Exclusive time is elapsed minus child.
	child time.Duration
}

// StackMismatchError is fatal: a return event did not match the frame on
// top of the shadow stack, so the session is corrupted.
type StackMismatchError struct {
	Want loc.Location // location of the frame on top of the stack
	Got  loc.Location // location carried by the return event
}

func (e *StackMismatchError) Error() string {
	if e.Want.IsZero() {
		return fmt.Sprintf("stack mismatch: return from %s with empty shadow stack", e.Got)
	}
	return fmt.Sprintf("stack mismatch: return from %s but top of stack is %s", e.Got, e.Want)
}

// PopResult carries the timing derived from a popped frame.
type PopResult struct {
	Frame     Frame
	Elapsed   time.Duration // cumulative time for this invocation
	Exclusive time.Duration // elapsed minus time attributed to children
	Depth     int           // depth of the popped frame (0 = root)
}

// Recorder maintains one shadow call stack per monitored goroutine.
// The shadow stack is always a valid prefix of the real call stack; a
// mismatched pop means the invariant broke and the caller must abort.
type Recorder struct {
	mu     sync.Mutex
	stacks map[uint64][]Frame
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{stacks: make(map[uint64][]Frame)}
}

// Push records a call event for gid and returns the depth of the new
// frame (0 for a root frame).
func (r *Recorder) Push(gid uint64, id loc.ID, l loc.Location, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stacks[gid]
	depth := len(st)
	r.stacks[gid] = append(st, Frame{ID: id, Loc: l, Start: now, GID: gid})
	return depth
}

// Pop records a return event for gid. The popped frame's location must
// match the event's location; otherwise a *StackMismatchError is
// returned and the recorder is left untouched.
//
// On success the popped frame's elapsed time is charged to its parent's
// child accumulator, which is how exclusive time falls out later.
func (r *Recorder) Pop(gid uint64, id loc.ID, l loc.Location, now time.Time) (PopResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stacks[gid]
	if len(st) == 0 {
		return PopResult{}, &StackMismatchError{Got: l}
	}
	top := st[len(st)-1]
	if top.ID != id {
		return PopResult{}, &StackMismatchError{Want: top.Loc, Got: l}
	}

	st = st[:len(st)-1]
	if len(st) == 0 {
		delete(r.stacks, gid)
	} else {
		r.stacks[gid] = st
	}

	elapsed := now.Sub(top.Start)
	if elapsed < 0 {
		elapsed = 0
	}
	excl := elapsed - top.child
	if excl < 0 {
		excl = 0
	}
	if len(st) > 0 {
		st[len(st)-1].child += elapsed
	}

	return PopResult{Frame: top, Elapsed: elapsed, Exclusive: excl, Depth: len(st)}, nil
}

// Depth reports the current shadow-stack depth for gid.
func (r *Recorder) Depth(gid uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stacks[gid])
}

// Empty reports whether every shadow stack has fully unwound.
// A well-formed run ends with an empty recorder.
func (r *Recorder) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stacks) == 0
}

// Leftover returns the frames still live across all goroutines, ordered
// by goroutine then outermost-first. Useful for diagnostics at stop time.
func (r *Recorder) Leftover() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	gids := make([]uint64, 0, len(r.stacks))
	for gid := range r.stacks {
		gids = append(gids, gid)
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })

	var out []Frame
	for _, gid := range gids {
		out = append(out, r.stacks[gid]...)
	}
	return out
}

// Reset drops every shadow stack. Called at session start.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.stacks = make(map[uint64][]Frame)
	r.mu.Unlock()
}
