package trace

import "time"

// Kind tells span boundaries from instants and heartbeats.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if k != 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event; a smaller value is coarser.
type Scope uint8

const (
	ScopeDriver  Scope = iota + 1 // a whole invocation
	ScopePass                     // decode, check, lower, encode
	ScopeModule                   // one document
	ScopeRoutine                  // one routine of a document
)

var scopeNames = [...]string{
	ScopeDriver:  "driver",
	ScopePass:    "pass",
	ScopeModule:  "module",
	ScopeRoutine: "routine",
}

func (s Scope) String() string {
	if s != 0 && int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one record in a trace. Seq increases across every tracer of the
// process; ParentID is 0 for roots; Elapsed is only set on span ends.
type Event struct {
	Time     time.Time
	Seq      uint64
	Session  string
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Elapsed  time.Duration
	Name     string
	Detail   string
	Extra    map[string]string
}

// Point emits an instant event under parent when scope passes the level.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Seq:      nextSeq(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		Name:     name,
		Detail:   detail,
	})
}
