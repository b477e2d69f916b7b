// Package session binds the tracing pipeline together.
//
// A Session owns the process-wide event source, the per-goroutine
// shadow stacks, the shared stat table and the timeline sink:
//
//	source -> recorder -> table
//	            \-> sink (timeline)
//
// # Lifecycle
//
// A session is created detached and starts recording on Start, which
// installs the session as the process-wide hook. Starting an already
// started session fails with event.ErrAlreadyActive. Stop detaches the
// hook, drains the heartbeat, flushes the timeline and returns the
// aggregated snapshot. There is no timeout semantics: the caller
// controls the session duration explicitly.
//
// # Corruption
//
// The shadow stack must remain a valid prefix of the real call stack.
// When a return event does not match the top frame the session fails
// fast: the first *stack.StackMismatchError is retained, the hook is
// detached and every subsequent instrumentation call becomes a no-op.
// Err and Stop surface the retained error.
//
// # Context propagation
//
// Hosts that thread a context through their call tree can carry the
// session with it:
//
//	ctx = session.WithSession(ctx, sess)
//	s := session.FromContext(ctx)
//	defer s.Enter("pkg", "handler", 42)()
package session
