package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.pprof"),
		Mem:   filepath.Join(dir, "mem.pprof"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	s, err := Start(opts)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	for _, p := range []string{opts.CPU, opts.Mem, opts.Trace} {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("%s missing or empty: %v", p, err)
		}
	}
}

func TestStartFailureLeavesNothingRunning(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Options{CPU: filepath.Join(dir, "cpu.pprof"), Trace: filepath.Join(dir, "missing", "trace.out")})
	if err == nil {
		t.Fatalf("expected an error for an unwritable trace path")
	}
	// The CPU profiler must be free again.
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.pprof")})
	if err != nil {
		t.Fatalf("cpu profiler still busy: %v", err)
	}
	_ = s.Stop()
}
