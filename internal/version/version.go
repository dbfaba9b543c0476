package version

import (
	"fmt"

	"github.com/fatih/color"

	"kestrel/internal/module"
)

// Version information for the kestrel CLI. The variables can be overridden
// at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionColor = color.New(color.FgYellow, color.Bold)
	formatColor  = color.New(color.FgGreen, color.Bold)
	detailColor  = color.New(color.Faint)
)

// ModuleFormat is the module format version the compiler writes.
func ModuleFormat() string {
	return fmt.Sprintf("%d.%d", module.VersionMajor, module.VersionMinor)
}

// String renders the version line shown by `kestrel version`. Colour follows
// the fatih/color global switch.
func String() string {
	s := "kestrel " + versionColor.Sprint(Version) + " (module format " + formatColor.Sprint(ModuleFormat()) + ")"
	var extra string
	if GitCommit != "" {
		extra = GitCommit
	}
	if BuildDate != "" {
		if extra != "" {
			extra += ", "
		}
		extra += BuildDate
	}
	if extra != "" {
		s += " " + detailColor.Sprint("["+extra+"]")
	}
	return s
}

// CacheKey identifies this compiler build in cache keys.
func CacheKey() string {
	return Version + "+" + GitCommit + "/" + ModuleFormat()
}
