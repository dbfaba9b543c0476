package diagfmt

import (
	"path/filepath"

	"kestrel/internal/diag"
)

func formatLocation(loc diag.Location, mode PathMode) diag.Location {
	if mode == PathModeBasename && loc.Path != "" {
		loc.Path = filepath.Base(loc.Path)
	}
	return loc
}
