package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"callscope/internal/event"
	"callscope/internal/sink"
	"callscope/internal/stack"
)

func startSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s := New(cfg)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _, _ = s.Stop() })
	return s
}

func TestBalancedRunLeavesEmptyStacks(t *testing.T) {
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls})

	func() {
		defer s.Enter("app", "outer", 10)()
		func() {
			defer s.Enter("app", "inner", 20)()
		}()
	}()

	if !s.Balanced() {
		t.Fatalf("stacks not empty after balanced run")
	}
	snap, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(snap) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(snap))
	}
}

func TestSequentialCallsAccumulate(t *testing.T) {
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls})

	for i := 0; i < 3; i++ {
		leave := s.Enter("app", "work", 1)
		time.Sleep(time.Millisecond)
		leave()
	}

	snap, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("expected 1 location, got %d", len(snap))
	}
	e := snap[0]
	if e.Calls != 3 {
		t.Fatalf("Calls = %d, want 3", e.Calls)
	}
	if e.Cum < 3*time.Millisecond {
		t.Fatalf("Cum = %v, want at least 3ms", e.Cum)
	}
	if e.Excl > e.Cum {
		t.Fatalf("Excl %v exceeds Cum %v", e.Excl, e.Cum)
	}
}

func TestNestedCallsChargeParentExclusive(t *testing.T) {
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls})

	leave := s.Enter("app", "outer", 1)
	inner := s.Enter("app", "inner", 2)
	time.Sleep(2 * time.Millisecond)
	inner()
	leave()

	snap, _ := s.Stop()
	if len(snap) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(snap))
	}
	var outerCum, outerExcl, innerCum time.Duration
	for _, e := range snap {
		switch e.Function {
		case "outer":
			outerCum, outerExcl = e.Cum, e.Excl
		case "inner":
			innerCum = e.Cum
		}
	}
	if outerCum < innerCum {
		t.Fatalf("outer cumulative %v below inner %v", outerCum, innerCum)
	}
	if outerExcl > outerCum-innerCum+time.Millisecond {
		t.Fatalf("outer exclusive %v not reduced by inner time %v", outerExcl, innerCum)
	}
}

func TestMismatchedReturnAbortsSession(t *testing.T) {
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls})

	_ = s.Enter("app", "outer", 1)
	s.Leave("app", "wrong", 99)

	var mismatch *stack.StackMismatchError
	if err := s.Err(); !errors.As(err, &mismatch) {
		t.Fatalf("Err() = %v, want *StackMismatchError", err)
	}
	if s.Active() {
		t.Fatalf("session still recording after fatal error")
	}

	// Further instrumentation is dropped silently.
	s.Enter("app", "later", 5)()
	if _, err := s.Stop(); err == nil {
		t.Fatalf("Stop must surface the retained fatal error")
	}
}

func TestDoubleStartFails(t *testing.T) {
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls})
	if err := s.Start(); !errors.Is(err, event.ErrAlreadyActive) {
		t.Fatalf("second Start = %v, want ErrAlreadyActive", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls})
	s.Enter("app", "f", 1)()

	first, err := s.Stop()
	if err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	second, err := s.Stop()
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("second Stop changed the snapshot: %d vs %d", len(first), len(second))
	}
}

func TestTimelineRecordsCallsAndReturns(t *testing.T) {
	var buf bytes.Buffer
	out := sink.NewStreamSink(&buf, event.LevelCalls, sink.FormatNDJSON)
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls, Sink: out})

	s.Enter("app", "f", 1)()
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected call+return on the timeline, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], `"kind":"call"`) || !strings.Contains(lines[1], `"kind":"return"`) {
		t.Fatalf("unexpected timeline:\n%s", buf.String())
	}
}

func TestLineEventsGatedByLevel(t *testing.T) {
	var buf bytes.Buffer
	out := sink.NewStreamSink(&buf, event.LevelLines, sink.FormatNDJSON)

	s := startSession(t, Config{Name: "t", Level: event.LevelCalls, Sink: out})
	s.Line("app", "f", 7)
	if buf.Len() != 0 {
		t.Fatalf("line event recorded at LevelCalls")
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	var buf2 bytes.Buffer
	out2 := sink.NewStreamSink(&buf2, event.LevelLines, sink.FormatNDJSON)
	s2 := startSession(t, Config{Name: "t", Level: event.LevelLines, Sink: out2})
	s2.Line("app", "f", 7)
	if !strings.Contains(buf2.String(), `"kind":"line"`) {
		t.Fatalf("line event missing at LevelLines: %q", buf2.String())
	}
	if !s2.Active() {
		t.Fatalf("session should still be recording")
	}
}

func TestExceptionPreservesStack(t *testing.T) {
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls})

	leave := s.Enter("app", "f", 1)
	s.Exception("app", "f", 3, "boom")
	if s.StackDepth() != 1 {
		t.Fatalf("exception altered the shadow stack, depth = %d", s.StackDepth())
	}
	leave()

	if !s.Balanced() {
		t.Fatalf("stack not balanced after exception + return")
	}
}

func TestHeartbeatEmitsWhileIdle(t *testing.T) {
	var buf bytes.Buffer
	out := sink.NewStreamSink(&buf, event.LevelCalls, sink.FormatNDJSON)
	s := startSession(t, Config{
		Name:      "t",
		Level:     event.LevelCalls,
		Sink:      out,
		Heartbeat: 5 * time.Millisecond,
	})

	time.Sleep(25 * time.Millisecond)
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if !strings.Contains(buf.String(), `"kind":"heartbeat"`) {
		t.Fatalf("no heartbeats on the timeline:\n%s", buf.String())
	}
}

func TestNilSessionIsSafe(t *testing.T) {
	var s *Session
	if err := s.Start(); err != nil {
		t.Fatalf("nil Start: %v", err)
	}
	s.Enter("app", "f", 1)()
	s.Line("app", "f", 2)
	s.Exception("app", "f", 3, "x")
	if !s.Balanced() {
		t.Fatalf("nil session not balanced")
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("nil Stop: %v", err)
	}
}

func TestDumpRing(t *testing.T) {
	ring := sink.NewRingSink(16, event.LevelCalls)
	s := startSession(t, Config{Name: "t", Level: event.LevelCalls, Sink: ring})

	s.Enter("app", "f", 1)()

	var buf bytes.Buffer
	ok, err := s.DumpRing(&buf, sink.FormatText)
	if err != nil {
		t.Fatalf("DumpRing: %v", err)
	}
	if !ok {
		t.Fatalf("DumpRing found no ring")
	}
	if !strings.Contains(buf.String(), "app.f:1") {
		t.Fatalf("dump missing recorded call:\n%s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	s := New(Config{Name: "ctx", Level: event.LevelCalls})
	ctx := WithSession(context.Background(), s)
	if got := FromContext(ctx); got != s {
		t.Fatalf("FromContext returned %p, want %p", got, s)
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("FromContext without value = %p, want nil", got)
	}
}
