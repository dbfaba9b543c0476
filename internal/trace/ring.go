package trace

import (
	"io"
	"sync"
)

const defaultRingSize = 4096

// RingTracer retains the most recent events in memory so they can be dumped
// after a failure without paying for a stream during the run.
type RingTracer struct {
	mu      sync.RWMutex
	buf     []Event
	next    int
	count   int
	level   Level
	session string
}

// NewRingTracer keeps up to capacity events; non-positive sizes use 4096.
func NewRingTracer(capacity int, level Level, session string) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, capacity), level: level, session: session}
}

// Emit stores a copy of ev, overwriting the oldest event once full.
func (t *RingTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	stored := *ev
	if stored.Seq == 0 {
		stored.Seq = nextSeq()
	}
	if stored.Session == "" {
		stored.Session = t.session
	}
	t.mu.Lock()
	t.buf[t.next] = stored
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
	t.mu.Unlock()
}

// Len reports how many events are retained.
func (t *RingTracer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Snapshot returns the retained events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, 0, t.count)
	start := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := 0; i < t.count; i++ {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Dump writes the snapshot to w in format f.
func (t *RingTracer) Dump(w io.Writer, f Format) error {
	for _, ev := range t.Snapshot() {
		if _, err := w.Write(FormatEvent(&ev, f)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error    { return nil }
func (t *RingTracer) Close() error    { return nil }
func (t *RingTracer) Level() Level    { return t.level }
func (t *RingTracer) Enabled() bool   { return t.level > LevelOff }
func (t *RingTracer) Session() string { return t.session }
