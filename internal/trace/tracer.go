package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tracer receives events. Implementations are safe for concurrent use
// because documents compile in parallel.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
	// Session identifies the invocation the events belong to.
	Session() string
}

// StorageMode says where events go: straight to an output, into an
// in-memory ring, or both.
type StorageMode uint8

const (
	ModeStream StorageMode = iota + 1
	ModeRing
	ModeBoth
)

var modeNames = map[StorageMode]string{
	ModeStream: "stream",
	ModeRing:   "ring",
	ModeBoth:   "both",
}

func (m StorageMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseMode accepts stream, ring or both; the empty string is stream.
func ParseMode(s string) (StorageMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStream, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeStream, fmt.Errorf("trace mode %q: want stream, ring or both", s)
}

// Config describes the tracer New builds.
type Config struct {
	Level      Level
	Mode       StorageMode
	Format     Format
	Output     io.Writer // takes precedence over OutputPath
	OutputPath string    // "" or "-" is stderr
	RingSize   int
	Heartbeat  time.Duration
	Session    string // generated when empty
}

// New builds the tracer cfg describes. LevelOff always yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.Session == "" {
		cfg.Session = uuid.NewString()
	}
	if cfg.Format == FormatAuto {
		cfg.Format = formatForPath(cfg.OutputPath)
	}
	mode := cfg.Mode
	if mode == 0 {
		mode = ModeStream
	}
	if _, ok := modeNames[mode]; !ok {
		return nil, fmt.Errorf("unknown trace mode %d", mode)
	}

	var stream, ring Tracer
	if mode != ModeRing {
		w, err := openOutput(cfg)
		if err != nil {
			return nil, err
		}
		stream = NewStreamTracer(w, cfg.Level, cfg.Format, cfg.Session)
	}
	if mode != ModeStream {
		ring = NewRingTracer(cfg.RingSize, cfg.Level, cfg.Session)
	}
	switch {
	case stream != nil && ring != nil:
		return NewMultiTracer(cfg.Level, stream, ring), nil
	case stream != nil:
		return stream, nil
	default:
		return ring, nil
	}
}

func formatForPath(path string) Format {
	switch filepath.Ext(path) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	}
	return FormatText
}

func openOutput(cfg Config) (io.Writer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}
