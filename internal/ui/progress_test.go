package ui

import (
	"strings"
	"testing"
	"time"

	"kestrel/internal/driver"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short.yaml", 20, "short.yaml"},
		{"abcdefghij", 8, "abcde..."},
		{"abcdef", 2, "ab"},
		{"日本語.yaml", 5, "日..."},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestProgressModelTracksDocuments(t *testing.T) {
	events := make(chan driver.PhaseEvent)
	m := NewProgressModel("build", []string{"a.yaml", "b.yaml"}, events).(*progressModel)

	m.observe(driver.PhaseEvent{Path: "a.yaml", Name: "check", Status: driver.PhaseStart})
	if got := m.docs[0].label(); got != "checking" {
		t.Fatalf("expected checking, got %q", got)
	}
	m.observe(driver.PhaseEvent{Path: "a.yaml", Name: "check", Status: driver.PhaseEnd, Elapsed: 3 * time.Millisecond})
	if m.docs[0].share != 0.5 || m.docs[0].elapsed != 3*time.Millisecond {
		t.Fatalf("unexpected row after check: %+v", m.docs[0])
	}
	m.observe(driver.PhaseEvent{Path: "a.yaml", Status: driver.DocumentDone})
	m.observe(driver.PhaseEvent{Path: "b.yaml", Status: driver.DocumentDone, Err: driver.ErrFailed})
	m.observe(driver.PhaseEvent{Path: "unknown.yaml", Status: driver.DocumentDone})

	if m.docs[0].label() != "done" || m.docs[1].label() != "error" {
		t.Fatalf("unexpected states %q, %q", m.docs[0].label(), m.docs[1].label())
	}
	if m.finished != 2 || m.failed != 1 {
		t.Fatalf("expected two finished and one failed, got %d/%d", m.finished, m.failed)
	}
	view := m.View()
	if !strings.Contains(view, "(2/2)") || !strings.Contains(view, "1 failed") || !strings.Contains(view, "b.yaml") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}
