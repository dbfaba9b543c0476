package trace

import (
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
	openSpans   atomic.Int64
)

func nextSeq() uint64 { return seqCounter.Add(1) }

// OpenSpans reports how many spans have begun and not yet ended across all
// tracers. A heartbeat that keeps seeing the same non-zero count points at a
// stuck phase.
func OpenSpans() int64 { return openSpans.Load() }

// Span is one timed region: a build, a document or a pipeline phase. A span
// whose scope the tracer filters out is inert, so callers never check.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
	ended   bool
}

// Begin emits the begin event of a span under parent (0 for a root).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return &Span{tracer: Nop, parent: parent}
	}
	s := &Span{
		tracer:  t,
		id:      spanCounter.Add(1),
		parent:  parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	openSpans.Add(1)
	t.Emit(&Event{
		Time:     s.started,
		Seq:      nextSeq(),
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		Name:     name,
	})
	return s
}

// End emits the end event once and returns the span's duration. Inert spans
// return 0.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.id == 0 || s.ended {
		return 0
	}
	s.ended = true
	openSpans.Add(-1)
	dur := time.Since(s.started)
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Seq:      nextSeq(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Elapsed:  dur,
		Name:     s.name,
		Detail:   detail,
		Extra:    s.extra,
	})
	return dur
}

// WithExtra attaches a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.id == 0 {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 2)
	}
	s.extra[key] = value
	return s
}

// ID returns the span id, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Context returns what children of s need to attach to it. An inert span
// passes its own parent through, so filtered levels do not break the chain.
func (s *Span) Context() SpanContext {
	if s == nil {
		return SpanContext{}
	}
	if s.id == 0 {
		return SpanContext{SpanID: s.parent}
	}
	return SpanContext{SpanID: s.id}
}
