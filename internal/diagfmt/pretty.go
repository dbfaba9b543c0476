package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"kestrel/internal/diag"
)

// Pretty writes diagnostics in bag order, one block per diagnostic:
//
//	error[K2007]: p.yaml:4: routine main: return
//	  expected int, got real
//	  = note: ...
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	sevColor := map[diag.Severity]*color.Color{
		diag.SevError:   color.New(color.FgRed, color.Bold),
		diag.SevWarning: color.New(color.FgYellow, color.Bold),
		diag.SevInfo:    color.New(color.FgCyan, color.Bold),
	}
	locColor := color.New(color.Bold)
	noteColor := color.New(color.FgBlue)
	for _, c := range []*color.Color{sevColor[diag.SevError], sevColor[diag.SevWarning], sevColor[diag.SevInfo], locColor, noteColor} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	for _, d := range bag.Items() {
		head := sevColor[d.Severity].Sprintf("%s[%s]", d.Severity, d.Code.ID())
		if loc := formatLocation(d.Primary, opts.PathMode).String(); loc != "" {
			head += ": " + locColor.Sprint(loc)
		}
		if _, err := fmt.Fprintln(w, head); err != nil {
			return err
		}
		for _, line := range wrap(d.Message, opts.Width-2) {
			if _, err := fmt.Fprintf(w, "  %s\n", line); err != nil {
				return err
			}
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				if _, err := fmt.Fprintf(w, "  %s %s\n", noteColor.Sprint("= note:"), n); err != nil {
					return err
				}
			}
		}
		if opts.ShowTitle {
			if _, err := fmt.Fprintf(w, "  %s\n", noteColor.Sprintf("= %s: %s", d.Code.ID(), d.Code.Title())); err != nil {
				return err
			}
		}
	}
	return nil
}

// wrap breaks s on spaces so no line is wider than width columns. Words
// longer than width stay on their own line.
func wrap(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}
	var lines []string
	var cur strings.Builder
	curWidth := 0
	for _, word := range strings.Fields(s) {
		ww := runewidth.StringWidth(word)
		if curWidth > 0 && curWidth+1+ww > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curWidth = 0
		}
		if curWidth > 0 {
			cur.WriteByte(' ')
			curWidth++
		}
		cur.WriteString(word)
		curWidth += ww
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
