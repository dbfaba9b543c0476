package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a liveness event at a fixed interval. Each event carries
// the number of open spans and the time since the heartbeat started, so a
// hung compilation shows up as beats with no span ends in between.
type Heartbeat struct {
	tracer Tracer
	every  time.Duration
	start  time.Time
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// StartHeartbeat starts beating on tracer. It returns nil when tracing is
// off or interval is not positive; Stop on nil is a no-op.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer: tracer,
		every:  interval,
		start:  time.Now(),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Heartbeat) loop() {
	defer close(h.exited)
	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for beat := 1; ; beat++ {
		select {
		case now := <-ticker.C:
			h.tracer.Emit(&Event{
				Time:   now,
				Seq:    nextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				Name:   "heartbeat",
				Detail: "#" + strconv.Itoa(beat),
				Extra: map[string]string{
					"open":    strconv.FormatInt(OpenSpans(), 10),
					"elapsed": now.Sub(h.start).Round(time.Millisecond).String(),
				},
			})
		case <-h.done:
			return
		}
	}
}

// Stop ends the heartbeat and waits for its goroutine to exit.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.done) })
	<-h.exited
}
