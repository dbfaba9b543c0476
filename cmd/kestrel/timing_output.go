package main

import (
	"fmt"
	"io"

	"kestrel/internal/driver"
)

// printTimings writes one header per document followed by its phase table.
func printTimings(out io.Writer, results []*driver.Result) {
	for _, r := range results {
		if r == nil || r.Timer == nil {
			continue
		}
		rep := r.Timer.Report()
		state := "compiled"
		if r.Cached {
			state = "cached"
		}
		fmt.Fprintf(out, "%s: %s in %.1f ms\n", r.Path, state, rep.TotalMS)
		_ = rep.WriteTable(out, "  ")
	}
}
