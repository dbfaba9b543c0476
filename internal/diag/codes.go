package diag

import "fmt"

// Code is a stable numeric identifier. The thousands digit names the phase.
type Code uint16

const (
	UnknownCode Code = 0

	// Input documents.
	InputInfo           Code = 1000
	InputUnreadable     Code = 1001
	InputMalformed      Code = 1002
	InputUnknownName    Code = 1003
	InputDuplicateName  Code = 1004
	InputUnknownType    Code = 1005
	InputUnknownNode    Code = 1006
	InputBadLiteral     Code = 1007
	InputMissingEntry   Code = 1009
	InputCacheCorrupted Code = 1010

	// Types and coercions.
	TypeInfo            Code = 2000
	TypeInference       Code = 2001
	TypeCoercion        Code = 2002
	TypeUnresolvedAlias Code = 2003
	TypeAliasCycle      Code = 2004
	TypeRecursiveRecord Code = 2005
	TypeDuplicateField  Code = 2006
	TypeMismatch        Code = 2007
	TypeLayout          Code = 2008

	// Program structure.
	ProgInfo           Code = 3000
	ProgInvalid        Code = 3001
	ProgReservedName   Code = 3002
	ProgSignatureArity Code = 3003
	ProgEvalNotCall    Code = 3004

	// Lowering and module encoding.
	ModInfo       Code = 4000
	ModLowering   Code = 4001
	ModFormat     Code = 4002
	ModValidation Code = 4003
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	InputInfo:           "Input information",
	InputUnreadable:     "Input document cannot be read",
	InputMalformed:      "Malformed input document",
	InputUnknownName:    "Unknown name",
	InputDuplicateName:  "Duplicate declaration",
	InputUnknownType:    "Unknown type",
	InputUnknownNode:    "Unknown node kind",
	InputBadLiteral:     "Invalid literal",
	InputMissingEntry:   "Missing required entry",
	InputCacheCorrupted: "Cache entry corrupted",
	TypeInfo:            "Type information",
	TypeInference:       "Type inference failed",
	TypeCoercion:        "Invalid type coercion",
	TypeUnresolvedAlias: "Unresolved type alias",
	TypeAliasCycle:      "Type alias cycle",
	TypeRecursiveRecord: "Record embeds itself",
	TypeDuplicateField:  "Duplicate record field",
	TypeMismatch:        "Type mismatch",
	TypeLayout:          "Layout failed",
	ProgInfo:            "Program information",
	ProgInvalid:         "Invalid program",
	ProgReservedName:    "Reserved routine name",
	ProgSignatureArity:  "Signature and body disagree",
	ProgEvalNotCall:     "Evaluated expression is not a call",
	ModInfo:             "Module information",
	ModLowering:         "Lowering failed",
	ModFormat:           "Malformed module",
	ModValidation:       "Module failed validation",
}

// ID renders the code as "K2001".
func (c Code) ID() string {
	return fmt.Sprintf("K%04d", uint16(c))
}

func (c Code) String() string {
	return c.ID()
}

// Title returns the short description of c.
func (c Code) Title() string {
	if d, ok := codeDescription[c]; ok {
		return d
	}
	return codeDescription[UnknownCode]
}
