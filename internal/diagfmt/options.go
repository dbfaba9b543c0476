package diagfmt

import (
	"fmt"
	"strings"
)

// PathMode selects how locations name their document.
type PathMode uint8

const (
	// PathModeAsIs prints the path as the driver received it.
	PathModeAsIs PathMode = iota
	// PathModeBasename keeps only the final element.
	PathModeBasename
)

// ParsePathMode accepts asis or basename; the empty string is asis.
func ParsePathMode(s string) (PathMode, error) {
	switch strings.ToLower(s) {
	case "", "asis":
		return PathModeAsIs, nil
	case "basename":
		return PathModeBasename, nil
	}
	return 0, fmt.Errorf("path mode %q: want asis or basename", s)
}

// PrettyOpts drives Pretty. Width wraps messages at that many terminal
// columns; 0 never wraps.
type PrettyOpts struct {
	Color     bool
	PathMode  PathMode
	Width     int
	ShowNotes bool
	ShowTitle bool
}

// JSONOpts drives JSON. Max caps the emitted list; Count still reports the
// whole bag.
type JSONOpts struct {
	PathMode     PathMode
	Max          int
	IncludeNotes bool
}
