// Package profiling captures CPU, heap and execution-trace profiles for a
// single CLI invocation.
package profiling

import (
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
)

// Options names the profile files to write. Empty paths are skipped.
type Options struct {
	CPUPath   string
	HeapPath  string
	TracePath string
}

// Enabled reports whether any profile was requested.
func (o Options) Enabled() bool {
	return o.CPUPath != "" || o.HeapPath != "" || o.TracePath != ""
}

// Session is a running set of profiles. Stop must be called once.
type Session struct {
	opts      Options
	cpuFile   *os.File
	traceFile *os.File
}

// Start begins CPU profiling and tracing as requested. The heap profile is
// written by Stop.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}

	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, edmerrors.IOError("failed to create CPU profile", err).WithDetail("path", opts.CPUPath)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, edmerrors.InternalError("failed to start CPU profile", err)
		}
		s.cpuFile = f
	}

	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			s.stopCPU()
			return nil, edmerrors.IOError("failed to create trace file", err).WithDetail("path", opts.TracePath)
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, edmerrors.InternalError("failed to start execution trace", err)
		}
		s.traceFile = f
	}

	return s, nil
}

// Stop ends CPU profiling and tracing, then writes the heap profile.
func (s *Session) Stop() error {
	s.stopCPU()
	if s.traceFile != nil {
		trace.Stop()
		_ = s.traceFile.Close()
		s.traceFile = nil
	}
	if s.opts.HeapPath == "" {
		return nil
	}
	return writeHeap(s.opts.HeapPath)
}

func (s *Session) stopCPU() {
	if s.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = s.cpuFile.Close()
	s.cpuFile = nil
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return edmerrors.IOError("failed to create heap profile", err).WithDetail("path", path)
	}
	defer func() { _ = f.Close() }()

	// Up-to-date allocation statistics
	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		return edmerrors.InternalError("failed to write heap profile", err)
	}
	return nil
}
