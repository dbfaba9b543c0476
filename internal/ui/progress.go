// Package ui renders build progress on a terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kestrel/internal/driver"
)

type docState uint8

const (
	stateQueued docState = iota
	stateRunning
	stateCached
	stateDone
	stateFailed
)

// pipeline lists the driver phases with the share of a document that is
// complete once each one ends.
var pipeline = map[string]struct {
	verb string
	done float64
}{
	"decode": {"decoding", 0.2},
	"check":  {"checking", 0.5},
	"lower":  {"lowering", 0.8},
	"encode": {"encoding", 0.95},
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

const stateColumn = 9

type document struct {
	path    string
	state   docState
	phase   string
	share   float64
	elapsed time.Duration
}

func (d *document) label() string {
	switch d.state {
	case stateRunning:
		if p, ok := pipeline[d.phase]; ok {
			return p.verb
		}
		return d.phase
	case stateCached:
		return "cached"
	case stateDone:
		return "done"
	case stateFailed:
		return "error"
	}
	return "queued"
}

func (d *document) style() lipgloss.Style {
	switch d.state {
	case stateRunning:
		return runningStyle
	case stateCached, stateDone:
		return okStyle
	case stateFailed:
		return failedStyle
	}
	return queuedStyle
}

type progressModel struct {
	title    string
	events   <-chan driver.PhaseEvent
	spin     spinner.Model
	bar      progress.Model
	docs     []document
	byPath   map[string]int
	width    int
	finished int
	failed   int
	closed   bool
}

type phaseMsg driver.PhaseEvent

type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model with one row per document. It
// quits once events is closed.
func NewProgressModel(title string, files []string, events <-chan driver.PhaseEvent) tea.Model {
	m := &progressModel{
		title:  title,
		events: events,
		spin:   spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(runningStyle)),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		docs:   make([]document, len(files)),
		byPath: make(map[string]int, len(files)),
		width:  80,
	}
	for i, f := range files {
		m.docs[i].path = f
		m.byPath[f] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.next)
}

// next blocks for the following driver event.
func (m *progressModel) next() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return closedMsg{}
	}
	return phaseMsg(ev)
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case phaseMsg:
		return m, tea.Batch(m.observe(driver.PhaseEvent(msg)), m.next)
	case closedMsg:
		m.closed = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
	case spinner.TickMsg:
		if !m.closed {
			m.spin, cmd = m.spin.Update(msg)
		}
	case progress.FrameMsg:
		var bar tea.Model
		bar, cmd = m.bar.Update(msg)
		m.bar = bar.(progress.Model)
	}
	return m, cmd
}

// observe folds ev into the row of its document and returns the command that
// animates the overall bar.
func (m *progressModel) observe(ev driver.PhaseEvent) tea.Cmd {
	i, ok := m.byPath[ev.Path]
	if !ok {
		return nil
	}
	d := &m.docs[i]
	switch ev.Status {
	case driver.PhaseStart:
		d.state, d.phase = stateRunning, ev.Name
	case driver.PhaseEnd:
		d.share = pipeline[ev.Name].done
		d.elapsed += ev.Elapsed
	case driver.DocumentDone:
		d.share = 1
		m.finished++
		switch {
		case ev.Err != nil:
			d.state = stateFailed
			m.failed++
		case ev.Cached:
			d.state = stateCached
		default:
			d.state = stateDone
		}
	}
	var sum float64
	for _, doc := range m.docs {
		sum += doc.share
	}
	return m.bar.SetPercent(sum / float64(len(m.docs)))
}

func (m *progressModel) View() string {
	if len(m.docs) == 0 {
		return ""
	}
	var b strings.Builder
	lead := m.spin.View()
	if m.closed {
		lead = "done:"
	}
	header := fmt.Sprintf("%s %s (%d/%d)", lead, m.title, m.finished, len(m.docs))
	if m.failed > 0 {
		header += failedStyle.Render(fmt.Sprintf(" %d failed", m.failed))
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n\n")

	pathWidth := max(m.width-stateColumn-16, 20)
	for i := range m.docs {
		d := &m.docs[i]
		state := d.style().Render(fmt.Sprintf("%*s", stateColumn, d.label()))
		fmt.Fprintf(&b, "  %s %s", state, Truncate(d.path, pathWidth))
		if d.elapsed > 0 {
			b.WriteString(queuedStyle.Render("  " + d.elapsed.Round(time.Millisecond).String()))
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.closed {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// Truncate shortens value to width terminal cells, marking the cut with an
// ellipsis when there is room for one.
func Truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	tail := "..."
	if width <= len(tail) {
		tail = ""
	}
	return runewidth.Truncate(value, width, tail)
}
