package main

import (
	"fmt"
	"strings"
)

// progressMode is the value of --ui.
type progressMode uint8

const (
	progressAuto progressMode = iota
	progressAlways
	progressNever
)

var progressModes = map[string]progressMode{
	"":     progressAuto,
	"auto": progressAuto,
	"on":   progressAlways,
	"off":  progressNever,
}

func parseProgressMode(value string) (progressMode, error) {
	m, ok := progressModes[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return 0, fmt.Errorf("--ui %q: want auto, on or off", value)
	}
	return m, nil
}

// wantsProgress reports whether build renders the live progress view. In
// auto mode one document is not worth a full-screen view, and a pipe never
// gets one.
func (m progressMode) wantsProgress(docs int, interactive bool) bool {
	switch m {
	case progressAlways:
		return true
	case progressNever:
		return false
	}
	return interactive && docs > 1
}
