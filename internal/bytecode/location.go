package bytecode

import "fmt"

// LocationKind selects one of the three variable slot spaces.
type LocationKind uint8

const (
	LocGlobal LocationKind = iota
	LocLocal
	LocArgument
)

func (k LocationKind) String() string {
	switch k {
	case LocGlobal:
		return "global"
	case LocLocal:
		return "local"
	case LocArgument:
		return "arg"
	default:
		return fmt.Sprintf("LocationKind(%d)", k)
	}
}

// Location addresses a variable slot.
type Location struct {
	Kind  LocationKind
	Index uint32
}

// Global addresses global slot i.
func Global(i uint32) Location { return Location{Kind: LocGlobal, Index: i} }

// Local addresses local slot i of the current frame.
func Local(i uint32) Location { return Location{Kind: LocLocal, Index: i} }

// Argument addresses argument slot i of the current frame.
func Argument(i uint32) Location { return Location{Kind: LocArgument, Index: i} }

func (l Location) String() string {
	return fmt.Sprintf("%s[%d]", l.Kind, l.Index)
}
