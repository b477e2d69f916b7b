// Package callscope is an embeddable execution tracer: host programs
// instrument call sites, a process-wide session mirrors the call stack,
// aggregates per-location timing and streams a timeline.
//
// Basic use:
//
//	sess, err := callscope.Start(callscope.Options{Name: "ingest"})
//	...
//	defer callscope.Region("ingest", "HandleBatch", 87)()
//	...
//	snap, err := callscope.Stop()
//
// Sessions created by the callscope CLI (`callscope start`) can be
// picked up with Resume, which records into the on-disk session store
// so `callscope report` and `callscope watch` see the data.
package callscope

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"callscope/internal/config"
	"callscope/internal/event"
	"callscope/internal/session"
	"callscope/internal/sink"
	"callscope/internal/stats"
	"callscope/internal/store"
)

// ErrAlreadyActive is returned by Start while another session records.
var ErrAlreadyActive = event.ErrAlreadyActive

// ErrNoActiveSession is returned by Resume when the store has no
// session marked active.
var ErrNoActiveSession = store.ErrNoActiveSession

// Options configures a recording session.
type Options struct {
	// Name labels the session. Defaults to a timestamped name.
	Name string

	// Level selects what gets recorded; LevelOff yields an inert
	// session. Defaults to event.LevelCalls.
	Level event.Level

	// DataDir persists the final snapshot into the session store
	// rooted there ("" disables persistence; see Resume for the
	// store-driven flow).
	DataDir string

	// Timeline enables streaming timeline output.
	Timeline     bool
	TimelinePath string      // "-" or "" = stderr
	Format       sink.Format // FormatAuto resolves from the path
	Mode         sink.Mode   // stream|ring|both, default stream
	RingSize     int

	// Heartbeat emits liveness events at this interval (0 = off).
	Heartbeat time.Duration
}

var (
	mu          sync.Mutex
	active      *session.Session
	persistTo   *store.Store
	persistName string
)

// Start begins a process-wide recording session. At most one session
// records at a time; a second Start fails with ErrAlreadyActive.
func Start(opts Options) (*session.Session, error) {
	mu.Lock()
	defer mu.Unlock()

	if active != nil {
		return nil, ErrAlreadyActive
	}

	if opts.Name == "" {
		opts.Name = "session-" + time.Now().Format("20060102-150405")
	}
	if opts.Level == event.LevelOff {
		opts.Level = event.LevelCalls
	}
	if opts.Mode == 0 {
		opts.Mode = sink.ModeStream
	}

	var st *store.Store
	if opts.DataDir != "" {
		s, err := store.Open(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		if _, err := s.Create(opts.Name, ""); err != nil && !errors.Is(err, store.ErrSessionExists) {
			return nil, err
		}
		st = s
		if opts.Timeline && opts.TimelinePath == "" {
			opts.TimelinePath = s.TimelinePath(opts.Name)
		}
	}

	out := sink.Nop
	if opts.Timeline {
		s, err := sink.New(sink.Config{
			Level:      opts.Level,
			Mode:       opts.Mode,
			Format:     opts.Format,
			OutputPath: opts.TimelinePath,
			RingSize:   opts.RingSize,
		})
		if err != nil {
			return nil, err
		}
		out = s
	}

	sess := session.New(session.Config{
		Name:      opts.Name,
		Level:     opts.Level,
		Sink:      out,
		Heartbeat: opts.Heartbeat,
	})
	if err := sess.Start(); err != nil {
		return nil, err
	}

	active = sess
	persistTo = st
	persistName = opts.Name
	return sess, nil
}

// Resume starts recording into the session the store currently marks
// active, as arranged by `callscope start`. Recording options come from
// the nearest callscope.toml.
func Resume(dataDir string) (*session.Session, error) {
	cfg, _, err := config.Discover(".")
	if err != nil {
		return nil, err
	}
	if dataDir == "" {
		dataDir = cfg.Store.Dir
	}
	st, err := store.Open(dataDir)
	if err != nil {
		return nil, err
	}
	name, err := st.Active()
	if err != nil {
		return nil, err
	}

	level, err := event.ParseLevel(cfg.Trace.Level)
	if err != nil {
		return nil, err
	}
	format, err := sink.ParseFormat(cfg.Trace.Format)
	if err != nil {
		return nil, err
	}
	mode := sink.ModeStream
	if cfg.Trace.Mode != "" {
		if mode, err = sink.ParseMode(cfg.Trace.Mode); err != nil {
			return nil, err
		}
	}

	return Start(Options{
		Name:      name,
		Level:     level,
		DataDir:   st.Dir(),
		Timeline:  cfg.Trace.Timeline,
		Format:    format,
		Mode:      mode,
		RingSize:  cfg.Trace.RingSize,
		Heartbeat: cfg.Trace.Heartbeat.Std(),
	})
}

// Active returns the recording session, or nil.
func Active() *session.Session {
	mu.Lock()
	defer mu.Unlock()
	return active
}

// Stop ends the active session, persists its snapshot when a store was
// configured and returns the aggregated result. Stopping with no active
// session returns nil, nil.
func Stop() (stats.Snapshot, error) {
	mu.Lock()
	sess := active
	st := persistTo
	name := persistName
	active = nil
	persistTo = nil
	persistName = ""
	mu.Unlock()

	if sess == nil {
		return nil, nil
	}

	snap, err := sess.Stop()
	if st != nil {
		if werr := st.WriteSnapshot(name, snap); werr != nil && err == nil {
			err = werr
		}
	}
	return snap, err
}

// Region instruments a region on the active session and returns the
// matching leave function. A no-op when nothing records.
//
//	defer callscope.Region("billing", "Charge", 120)()
func Region(module, function string, line int) func() {
	return Active().Enter(module, function, line)
}

// Line reports a line execution to the active session.
func Line(module, function string, line int) {
	Active().Line(module, function, line)
}

// Exception reports an error or panic to the active session.
func Exception(module, function string, line int, detail string) {
	Active().Exception(module, function, line, detail)
}

// DumpTraceOnPanic writes the active session's ring-buffered timeline
// tail to stderr when the calling goroutine panics, then re-panics.
// Intended for use as a deferred call at the top of instrumented code.
func DumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if sess := Active(); sess != nil {
		fmt.Fprintf(os.Stderr, "callscope: panic, dumping timeline tail\n")
		if _, err := sess.DumpRing(os.Stderr, sink.FormatText); err != nil {
			fmt.Fprintf(os.Stderr, "callscope: dump failed: %v\n", err)
		}
	}
	panic(r)
}
