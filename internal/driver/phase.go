package driver

import (
	"context"
	"errors"
	"time"

	"kestrel/internal/observ"
	"kestrel/internal/trace"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	PhaseStart PhaseStatus = iota
	PhaseEnd
	// DocumentDone closes the events of one document. Err is ErrFailed when
	// the document produced errors.
	DocumentDone
)

// ErrFailed marks a document whose compilation reported errors.
var ErrFailed = errors.New("compilation failed")

// PhaseEvent describes a phase boundary. Path is empty for programs compiled
// without a document.
type PhaseEvent struct {
	Path    string
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
	Cached  bool
	Err     error
}

// PhaseObserver receives phase events. CompileAll calls it from several
// goroutines at once.
type PhaseObserver func(PhaseEvent)

type phaseRunner struct {
	tracer   trace.Tracer
	parent   uint64
	timer    *observ.Timer
	observer PhaseObserver
	path     string
}

func newPhaseRunner(ctx context.Context, observer PhaseObserver, path string) phaseRunner {
	return phaseRunner{
		tracer:   trace.FromContext(ctx),
		parent:   trace.CurrentSpan(ctx).SpanID,
		timer:    observ.NewTimer(),
		observer: observer,
		path:     path,
	}
}

func (p phaseRunner) emit(ev PhaseEvent) {
	if p.observer != nil {
		ev.Path = p.path
		p.observer(ev)
	}
}

// run times fn as one phase. A cancelled context skips the phase.
func (p phaseRunner) run(ctx context.Context, name string, fn func() (string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.emit(PhaseEvent{Name: name, Status: PhaseStart})
	span := trace.Begin(p.tracer, trace.ScopePass, name, p.parent)
	idx := p.timer.Begin(name)
	start := time.Now()
	note, err := fn()
	elapsed := time.Since(start)
	if err != nil {
		note = "failed"
	}
	p.timer.End(idx, note)
	span.End(note)
	p.emit(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: elapsed, Err: err})
	return err
}

func (p phaseRunner) finish(r *Result) {
	var err error
	if r.Failed() {
		err = ErrFailed
	}
	p.emit(PhaseEvent{Status: DocumentDone, Cached: r.Cached, Err: err})
}
