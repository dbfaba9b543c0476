package rtti

import (
	"fmt"
	"slices"
)

// TypeID indexes the RTTI table of one module. Primitives are fixed.
type TypeID uint32

const (
	IntID  TypeID = 0
	RealID TypeID = 1
	BoolID TypeID = 2

	// PrimitiveCount is the number of fixed primitive entries.
	PrimitiveCount = 3
)

// EntryKind is the variant of an RTTI entry. Values are part of the module
// format.
type EntryKind uint8

const (
	EntryPrimitive EntryKind = iota
	EntryRecord
	EntryArray
)

func (k EntryKind) String() string {
	switch k {
	case EntryPrimitive:
		return "primitive"
	case EntryRecord:
		return "record"
	case EntryArray:
		return "array"
	default:
		return fmt.Sprintf("EntryKind(%d)", k)
	}
}

// Entry is one runtime type descriptor. Records use Fields (in declaration
// order), arrays use Elem. Array lengths are per allocation and not stored.
type Entry struct {
	Kind   EntryKind
	ID     TypeID
	Fields []TypeID
	Elem   TypeID
}

// Primitive describes one of the three primitive types.
func Primitive(id TypeID) Entry { return Entry{Kind: EntryPrimitive, ID: id} }

// Record describes a record with the given field types.
func Record(id TypeID, fields ...TypeID) Entry {
	return Entry{Kind: EntryRecord, ID: id, Fields: slices.Clone(fields)}
}

// Array describes an array of elem.
func Array(id TypeID, elem TypeID) Entry { return Entry{Kind: EntryArray, ID: id, Elem: elem} }

// Equal reports structural equality.
func (e Entry) Equal(o Entry) bool {
	return e.Kind == o.Kind && e.ID == o.ID && e.Elem == o.Elem && slices.Equal(e.Fields, o.Fields)
}

func (e Entry) String() string {
	switch e.Kind {
	case EntryPrimitive:
		return fmt.Sprintf("Primitive{id=%d}", e.ID)
	case EntryRecord:
		return fmt.Sprintf("Record{id=%d, field_ids=%v}", e.ID, e.Fields)
	case EntryArray:
		return fmt.Sprintf("Array{id=%d, element_id=%d}", e.ID, e.Elem)
	default:
		return e.Kind.String()
	}
}

// PrimitiveName names the primitive ids.
func PrimitiveName(id TypeID) string {
	switch id {
	case IntID:
		return "int"
	case RealID:
		return "real"
	case BoolID:
		return "bool"
	default:
		return fmt.Sprintf("type#%d", id)
	}
}
