package layout

import (
	"fmt"
	"strings"

	"kestrel/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a record that embeds itself through
	// record fields only, which would need unbounded storage.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrUnresolved indicates a type whose aliases cannot be resolved.
	LayoutErrUnresolved
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Cycle []types.TypeID // for LayoutErrRecursiveUnsized
	Err   error          // for LayoutErrUnresolved
	Names []string       // labels of Cycle, filled when an interner is available
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Names) > 0 {
			return fmt.Sprintf("record embeds itself directly (cycle: %s)", strings.Join(e.Names, " -> "))
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("record embeds itself directly (cycle: %s)", strings.Join(parts, " -> "))
	case LayoutErrUnresolved:
		return fmt.Sprintf("cannot lay out type#%d: %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}

func (e *LayoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
