package symbols

import (
	"kestrel/internal/source"
	"kestrel/internal/types"
)

// SymbolID identifies a symbol inside one Table. Zero is never a valid symbol.
type SymbolID uint32

// NoSymbolID marks an unresolved reference.
const NoSymbolID SymbolID = 0

// IsValid reports whether id refers to a declared symbol.
func (id SymbolID) IsValid() bool { return id != NoSymbolID }

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolGlobal
	SymbolParam
	SymbolLocal
	SymbolFunction
	SymbolType
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolGlobal:
		return "global"
	case SymbolParam:
		return "param"
	case SymbolLocal:
		return "local"
	case SymbolFunction:
		return "function"
	case SymbolType:
		return "type"
	default:
		return "invalid"
	}
}

// IsVariable reports whether symbols of this kind name a storage slot.
func (k SymbolKind) IsVariable() bool {
	return k == SymbolGlobal || k == SymbolParam || k == SymbolLocal
}

// Signature describes a routine's parameter and result types.
type Signature struct {
	Params []types.TypeID
	Result types.TypeID
}

// Symbol is one declared name.
type Symbol struct {
	Name source.StringID
	Kind SymbolKind
	// Type is the variable type, the aliased type for SymbolType, and the
	// result type for SymbolFunction.
	Type types.TypeID
	// Index is the slot index for variables (global, argument or local
	// numbering) and the declaration ordinal for functions.
	Index uint32
	// Owner is the routine a parameter or local belongs to.
	Owner     SymbolID
	Signature *Signature
}
