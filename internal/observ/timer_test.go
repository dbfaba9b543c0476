package observ

import (
	"bytes"
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	check := tm.Begin("check")
	tm.End(check, "")
	lower := tm.Begin("lower")
	tm.End(lower, "3 routines")
	tm.End(99, "ignored")

	report := tm.Report()
	if len(report.Phases) != 2 || report.Phases[1].Note != "3 routines" {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.TotalMS < report.Phases[0].DurationMS {
		t.Fatalf("total below a single phase")
	}
	if tm.Total() < tm.phases[1].Dur {
		t.Fatalf("Total must cover every phase")
	}
}

func TestWriteTable(t *testing.T) {
	rep := Report{Phases: []PhaseReport{
		{Name: "decode", DurationMS: 1.5},
		{Name: "lower", DurationMS: 12.25, Note: "3 routines"},
	}}
	var buf bytes.Buffer
	if err := rep.WriteTable(&buf, "  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "12.25 ms") || !strings.Contains(lines[1], "3 routines") {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if strings.Index(lines[0], "ms") != strings.Index(lines[1], "ms") {
		t.Fatalf("durations are not aligned:\n%s", buf.String())
	}
	if strings.HasSuffix(lines[0], " ") {
		t.Fatalf("row without a note has trailing space: %q", lines[0])
	}
}

func TestWriteTableWidensForLongNames(t *testing.T) {
	long := strings.Repeat("p", 28)
	rep := Report{Phases: []PhaseReport{
		{Name: "decode", DurationMS: 1},
		{Name: long, DurationMS: 2},
	}}
	var buf bytes.Buffer
	if err := rep.WriteTable(&buf, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if !strings.HasPrefix(lines[1], long+" ") {
		t.Fatalf("long name was truncated: %q", lines[1])
	}
	if strings.Index(lines[0], "ms") != strings.Index(lines[1], "ms") {
		t.Fatalf("durations are not aligned:\n%s", buf.String())
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}
