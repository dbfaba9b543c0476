package driver

import (
	"encoding/json"
	"fmt"

	"kestrel/internal/diag"
	"kestrel/internal/observ"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// AppendTimings adds an info diagnostic with the phase timings of r. The
// JSON form of the report travels as the diagnostic's note.
func AppendTimings(r *Result) {
	if r == nil || r.Bag == nil || r.Timer == nil {
		return
	}
	rep := r.Timer.Report()
	kind := "pipeline"
	if r.Cached {
		kind = "cache"
	}
	appendTimingDiagnostic(r.Bag, timingPayload{Kind: kind, Path: r.Path, TotalMS: rep.TotalMS, Phases: rep.Phases})
}

func appendTimingDiagnostic(bag *diag.Bag, payload timingPayload) {
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	entry := diag.New(diag.SevInfo, diag.ModInfo, diag.Location{Path: payload.Path}, msg).WithNote(string(data))
	if bag.Add(entry) {
		return
	}
	overflow := diag.NewBag(1)
	overflow.Add(entry)
	bag.Merge(overflow)
}
