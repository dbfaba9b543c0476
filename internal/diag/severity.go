package diag

import "fmt"

// Severity orders diagnostics; errors fail a document, warnings and infos
// are reported and otherwise ignored.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityLabels = [...]string{SevInfo: "info", SevWarning: "warning", SevError: "error"}

// String is the lowercase label used in rendered diagnostics.
func (s Severity) String() string {
	if int(s) < len(severityLabels) {
		return severityLabels[s]
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// ParseSeverity is the inverse of String.
func ParseSeverity(label string) (Severity, error) {
	for s, l := range severityLabels {
		if l == label {
			return Severity(s), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", label)
}
