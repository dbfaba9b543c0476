package trace

import (
	"fmt"
	"strings"
)

// Level selects how fine-grained the recorded spans are.
type Level uint8

const (
	LevelOff Level = iota
	LevelError
	// LevelPhase records the build and its pipeline phases.
	LevelPhase
	// LevelDetail adds one span per input document.
	LevelDetail
	// LevelDebug records routine-level events too.
	LevelDebug
)

var levelNames = [...]string{
	LevelOff:    "off",
	LevelError:  "error",
	LevelPhase:  "phase",
	LevelDetail: "detail",
	LevelDebug:  "debug",
}

// finest is the most detailed scope a level lets through; 0 admits nothing.
var finest = [...]Scope{
	LevelPhase:  ScopePass,
	LevelDetail: ScopeModule,
	LevelDebug:  ScopeRoutine,
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts a level name in any case; the empty string is off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for l, name := range levelNames {
		if name == s {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("trace level %q: want one of %s", s, strings.Join(levelNames[:], ", "))
}

// ShouldEmit reports whether events of scope are recorded at level l.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(finest) {
		return false
	}
	return scope != 0 && scope <= finest[l]
}
