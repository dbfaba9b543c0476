package observ

import (
	"fmt"
	"io"
	"time"
)

// Phase is one timed step of a compilation.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer records the phases of one document in the order they began. It is
// not safe for concurrent use; each document owns its timer.
type Timer struct {
	phases []Phase
}

func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 4)} }

// Begin opens a phase and returns the handle End expects.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase idx with an optional note. Unknown handles are
// ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].Dur = time.Since(t.phases[idx].Start)
	t.phases[idx].Note = note
}

// Total sums the durations of the closed phases.
func (t *Timer) Total() time.Duration {
	var sum time.Duration
	for _, p := range t.phases {
		sum += p.Dur
	}
	return sum
}

// PhaseReport is a phase as it appears in JSON timing notes.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the serializable view of a timer.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	var rep Report
	for _, p := range t.phases {
		rep.Phases = append(rep.Phases, PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note})
	}
	rep.TotalMS = millis(t.Total())
	return rep
}

// WriteTable prints the phases as aligned columns, each line prefixed by
// indent.
func (r Report) WriteTable(w io.Writer, indent string) error {
	width := 20
	for _, p := range r.Phases {
		width = max(width, len(p.Name))
	}
	for _, p := range r.Phases {
		line := fmt.Sprintf("%s%-*s %8.2f ms", indent, width, p.Name, p.DurationMS)
		if p.Note != "" {
			line += "  " + p.Note
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
