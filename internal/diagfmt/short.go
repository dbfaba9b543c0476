package diagfmt

import (
	"strings"

	"kestrel/internal/diag"
)

// Short renders one line per diagnostic in bag order, without colour. It
// is stable enough for golden files.
func Short(bag *diag.Bag, mode PathMode) string {
	var sb strings.Builder
	for _, d := range bag.Items() {
		d.Primary = formatLocation(d.Primary, mode)
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}
