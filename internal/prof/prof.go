// Package prof wraps the Go runtime profilers for the callscope binary
// itself: tracing the tracer is occasionally necessary.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the profile outputs to enable. Empty paths disable the
// corresponding profiler.
type Options struct {
	CPUPath   string
	MemPath   string
	TracePath string
}

// Recorder owns whatever profilers Start enabled. Stop is safe to call
// multiple times.
type Recorder struct {
	cpuFile   *os.File
	traceFile *os.File
	memPath   string
	stopped   bool
}

// Start enables the requested profilers. On error everything already
// started is rolled back.
func Start(opts Options) (*Recorder, error) {
	r := &Recorder{memPath: opts.MemPath}

	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		r.cpuFile = f
	}

	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			r.rollback()
			return nil, fmt.Errorf("failed to create runtime trace: %w", err)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			r.rollback()
			return nil, fmt.Errorf("failed to start runtime trace: %w", err)
		}
		r.traceFile = f
	}

	return r, nil
}

func (r *Recorder) rollback() {
	if r.cpuFile != nil {
		pprof.StopCPUProfile()
		_ = r.cpuFile.Close()
		r.cpuFile = nil
	}
}

// Stop halts active profilers, writes the heap profile if requested and
// closes all files. The first error wins.
func (r *Recorder) Stop() error {
	if r == nil || r.stopped {
		return nil
	}
	r.stopped = true

	var firstErr error

	if r.traceFile != nil {
		trace.Stop()
		if err := r.traceFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.traceFile = nil
	}

	if r.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := r.cpuFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.cpuFile = nil
	}

	if r.memPath != "" {
		if err := writeHeap(r.memPath); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
