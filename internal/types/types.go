package types

import "fmt"

// TypeID identifies a type inside one Interner. Primitives occupy the first
// ids in a fixed order: Int=0, Real=1, Bool=2.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = ^TypeID(0)

// Kind enumerates the supported type kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindReal
	KindBool
	KindAlias
	KindRecord
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindAlias:
		return "alias"
	case KindRecord:
		return "record"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor. Records and aliases keep their details in
// side tables addressed by Payload.
type Type struct {
	Kind    Kind
	Elem    TypeID // arrays
	Length  uint32 // arrays, meaningful when Fixed
	Fixed   bool   // arrays with a compile-time length
	Payload uint32 // record or alias slot
}

// MakeArray describes an array of elem. An unsized array passes fixed=false.
func MakeArray(elem TypeID, length uint32, fixed bool) Type {
	if !fixed {
		length = 0
	}
	return Type{Kind: KindArray, Elem: elem, Length: length, Fixed: fixed}
}

// IsPrimitive reports whether k is Int, Real or Bool.
func (k Kind) IsPrimitive() bool {
	return k == KindInt || k == KindReal || k == KindBool
}

// IsReference reports whether values of kind k are heap references at runtime.
func (k Kind) IsReference() bool {
	return k == KindRecord || k == KindArray
}

// FamilyMask groups kinds for operator checks.
type FamilyMask uint8

const (
	FamilyNone FamilyMask = 0
	FamilyInt  FamilyMask = 1 << iota
	FamilyReal
	FamilyBool
	FamilyRecord
	FamilyArray
)

const (
	FamilyNumeric   = FamilyInt | FamilyReal
	FamilyPrimitive = FamilyNumeric | FamilyBool
)

// Family maps a kind onto its operator family.
func (k Kind) Family() FamilyMask {
	switch k {
	case KindInt:
		return FamilyInt
	case KindReal:
		return FamilyReal
	case KindBool:
		return FamilyBool
	case KindRecord:
		return FamilyRecord
	case KindArray:
		return FamilyArray
	default:
		return FamilyNone
	}
}
