package diag

import (
	"fmt"
	"strings"
)

// Location points at the part of an input a diagnostic is about. Any field
// may be empty.
type Location struct {
	Path  string // input document
	Line  int    // 1-based YAML line, 0 when unknown
	Where string // declaration path, e.g. "routine main: return"
}

func (l Location) String() string {
	var sb strings.Builder
	sb.WriteString(l.Path)
	if l.Line > 0 {
		fmt.Fprintf(&sb, ":%d", l.Line)
	}
	if l.Where != "" {
		if sb.Len() > 0 {
			sb.WriteString(": ")
		}
		sb.WriteString(l.Where)
	}
	return sb.String()
}

// Diagnostic is one finding.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Location
	Notes    []string
}

// New builds a diagnostic.
func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

// NewError builds an error diagnostic.
func NewError(code Code, primary Location, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

// WithNote returns d with an extra note.
func (d Diagnostic) WithNote(msg string) Diagnostic {
	d.Notes = append(d.Notes, msg)
	return d
}

func (d Diagnostic) Error() string {
	if loc := d.Primary.String(); loc != "" {
		return fmt.Sprintf("%s[%s]: %s: %s", d.Severity, d.Code.ID(), loc, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code.ID(), d.Message)
}
