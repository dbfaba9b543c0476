package bytecode

import (
	"fmt"
	"math"
)

// Tag is the runtime tag of an operand stack value.
type Tag uint8

const (
	TagInt Tag = iota
	TagReal
	TagBool
	TagRef
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "int"
	case TagReal:
		return "real"
	case TagBool:
		return "bool"
	case TagRef:
		return "ref"
	default:
		return fmt.Sprintf("Tag(%d)", t)
	}
}

// Value is a tagged operand stack value. Bool shares the Int
// representation: false is 0 and true is 1.
type Value struct {
	Tag  Tag
	Int  int64
	Real float64
	Ref  uint64
}

func IntValue(v int64) Value    { return Value{Tag: TagInt, Int: v} }
func RealValue(v float64) Value { return Value{Tag: TagReal, Real: v} }
func RefValue(ref uint64) Value { return Value{Tag: TagRef, Ref: ref} }

// BoolValue returns the Bool value for b.
func BoolValue(b bool) Value {
	if b {
		return Value{Tag: TagBool, Int: 1}
	}
	return Value{Tag: TagBool}
}

// Bool reports the truth of a Bool value.
func (v Value) Bool() bool {
	return v.Int != 0
}

// intLike reports whether v uses the shared Int/Bool representation.
func (v Value) intLike() bool {
	return v.Tag == TagInt || v.Tag == TagBool
}

// IsZero reports whether v is representation-zero, the branch condition of
// JumpZero. A zero reference is the null reference.
func IsZero(v Value) bool {
	switch v.Tag {
	case TagReal:
		return math.Float64bits(v.Real) == 0
	case TagRef:
		return v.Ref == 0
	default:
		return v.Int == 0
	}
}

func (v Value) String() string {
	switch v.Tag {
	case TagInt:
		return fmt.Sprintf("%d", v.Int)
	case TagReal:
		return fmt.Sprintf("%g", v.Real)
	case TagBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case TagRef:
		return fmt.Sprintf("ref#%d", v.Ref)
	default:
		return "?"
	}
}
