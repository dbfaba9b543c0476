package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"off", LevelOff, true},
		{"PHASE", LevelPhase, true},
		{"detail", LevelDetail, true},
		{"debug", LevelDebug, true},
		{"loud", LevelOff, false},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestLevelScopes(t *testing.T) {
	if !LevelPhase.ShouldEmit(ScopePass) || LevelPhase.ShouldEmit(ScopeModule) {
		t.Fatalf("phase level should stop at passes")
	}
	if !LevelDetail.ShouldEmit(ScopeModule) || LevelDetail.ShouldEmit(ScopeRoutine) {
		t.Fatalf("detail level should stop at modules")
	}
	if !LevelDebug.ShouldEmit(ScopeRoutine) || LevelError.ShouldEmit(ScopeDriver) {
		t.Fatalf("unexpected debug/error filtering")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Enabled() || tr.Session() != "" {
		t.Fatalf("expected nop tracer")
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDetail, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.Session()) != 36 {
		t.Fatalf("expected a generated session id, got %q", tr.Session())
	}
	span := Begin(tr, ScopePass, "lower", 0)
	Point(tr, ScopeRoutine, "routine:main", "", span.ID())
	span.WithExtra("instrs", "14").End("ok")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected begin and end events only, got %d:\n%s", len(lines), buf.String())
	}
	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if end["kind"] != "end" || end["name"] != "lower" || end["session"] != tr.Session() {
		t.Fatalf("unexpected end event %v", end)
	}
}

func TestTextFormatSortsExtra(t *testing.T) {
	ev := &Event{Seq: 3, Kind: KindSpanEnd, Name: "encode", Detail: "ok", Extra: map[string]string{"b": "2", "a": "1"}}
	got := string(FormatEvent(ev, FormatText))
	if !strings.Contains(got, "← encode (ok) {a=1, b=2}") {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(2, LevelDebug, "s")
	for _, name := range []string{"a", "b", "c"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopePass, Name: name})
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" || snap[0].Session != "s" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestMultiTracerFansOut(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Format: FormatText, Output: &buf, Session: "fixed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Begin(tr, ScopeDriver, "build", 0).End("")
	multi, ok := tr.(*MultiTracer)
	if !ok {
		t.Fatalf("expected multi tracer, got %T", tr)
	}
	ring, ok := multi.Ring()
	if !ok || len(ring.Snapshot()) != 2 {
		t.Fatalf("expected two ring events")
	}
	if tr.Session() != "fixed" || strings.Count(buf.String(), "build") != 2 {
		t.Fatalf("unexpected stream output %q", buf.String())
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected nop tracer by default")
	}
	r := NewRingTracer(4, LevelDebug, "s")
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("expected tracer from context")
	}
	ctx = WithSpanContext(ctx, SpanContext{SpanID: 7})
	if CurrentSpan(ctx).SpanID != 7 {
		t.Fatalf("expected span context")
	}
}

func TestStartSpanNestsAndTimes(t *testing.T) {
	r := NewRingTracer(8, LevelDetail, "s")
	ctx := WithTracer(context.Background(), r)
	outer, ctx := StartSpan(ctx, ScopePass, "lower")
	inner, _ := StartSpan(ctx, ScopeModule, "module:a.yaml")
	if OpenSpans() < 2 {
		t.Fatalf("expected open spans to be counted")
	}
	inner.End("")
	outer.End("")
	if outer.End("again") != 0 {
		t.Fatalf("second End must be a no-op")
	}
	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected four events, got %d", len(snap))
	}
	if snap[1].ParentID != outer.ID() || snap[2].Kind != KindSpanEnd || snap[3].Name != "lower" {
		t.Fatalf("unexpected nesting %+v", snap)
	}
}

func TestFilteredSpanPassesParentThrough(t *testing.T) {
	r := NewRingTracer(8, LevelPhase, "s")
	ctx := WithSpanContext(WithTracer(context.Background(), r), SpanContext{SpanID: 41})
	span, child := StartSpan(ctx, ScopeRoutine, "routine:main")
	if span.ID() != 0 || CurrentSpan(child).SpanID != 41 {
		t.Fatalf("filtered span must keep the parent, got %d", CurrentSpan(child).SpanID)
	}
	if span.End("") != 0 || r.Len() != 0 {
		t.Fatalf("filtered span must not emit")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]StorageMode{"": ModeStream, "Ring": ModeRing, "both": ModeBoth} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestHeartbeatStopIsIdempotent(t *testing.T) {
	if StartHeartbeat(Nop, 0) != nil {
		t.Fatalf("heartbeat on nop tracer should be nil")
	}
	r := NewRingTracer(64, LevelPhase, "s")
	hb := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for r.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	hb.Stop()
	hb.Stop()
	snap := r.Snapshot()
	if len(snap) == 0 || snap[0].Kind != KindHeartbeat || snap[0].Extra["open"] == "" {
		t.Fatalf("expected heartbeat events, got %+v", snap)
	}
}
