package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kestrel/internal/bytecode"
	"kestrel/internal/module"
)

func writePretty(w io.Writer, m *module.Module) error {
	r := lipgloss.NewRenderer(w)
	heading := r.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	dim := r.NewStyle().Foreground(lipgloss.Color("8"))

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", heading.Render("module"))
	fmt.Fprintf(&b, "  format     %d.%d\n", module.VersionMajor, module.VersionMinor)
	fmt.Fprintf(&b, "  globals    %d\n", m.GlobalCount)
	fmt.Fprintf(&b, "  functions  %d\n", len(m.Functions))
	fmt.Fprintf(&b, "  types      %d\n", m.RTTI.Len())
	fmt.Fprintf(&b, "  code       %d instructions, %d labels\n", len(m.Code), countLabels(m.Code))

	b.WriteString("\n" + heading.Render("functions") + "\n")
	names := make([]string, len(m.Functions))
	for i, f := range m.Functions {
		names[i] = f.Name
	}
	nameWidth := columnWidth(names)
	for _, f := range m.Functions {
		args := make([]string, len(f.Args))
		for i, a := range f.Args {
			args[i] = m.RTTI.Describe(a)
		}
		fmt.Fprintf(&b, "  %s  %s (%s) -> %s\n",
			padRight(f.Name, nameWidth),
			dim.Render(fmt.Sprintf("L%-3d", f.Label)),
			strings.Join(args, ", "),
			m.RTTI.Describe(f.Result))
	}

	b.WriteString("\n" + heading.Render("types") + "\n")
	for _, e := range m.RTTI.Entries {
		fmt.Fprintf(&b, "  %s  %-9s %s\n", dim.Render(fmt.Sprintf("#%-3d", e.ID)), e.Kind, m.RTTI.Describe(e.ID))
	}

	b.WriteString("\n" + heading.Render("code") + "\n")
	owners := labelOwners(m)
	for i, in := range m.Code {
		line := in.String()
		if in.Op == bytecode.OpLabel {
			if name, ok := owners[in.Label]; ok {
				line += "  " + dim.Render("; "+name)
			}
			fmt.Fprintf(&b, "%s %s\n", dim.Render(fmt.Sprintf("%5d", i)), line)
			continue
		}
		fmt.Fprintf(&b, "%s     %s\n", dim.Render(fmt.Sprintf("%5d", i)), line)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func labelOwners(m *module.Module) map[bytecode.LabelID]string {
	owners := make(map[bytecode.LabelID]string, len(m.Functions))
	for _, f := range m.Functions {
		owners[f.Label] = f.Name
	}
	return owners
}

func columnWidth(values []string) int {
	w := 0
	for _, v := range values {
		w = max(w, runewidth.StringWidth(v))
	}
	return w
}

func padRight(s string, width int) string {
	return s + strings.Repeat(" ", max(width-runewidth.StringWidth(s), 0))
}
