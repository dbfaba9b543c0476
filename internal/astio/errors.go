package astio

import "fmt"

// ErrorKind classifies decode failures.
type ErrorKind uint8

const (
	ErrMalformed ErrorKind = iota + 1
	ErrUnknownName
	ErrDuplicate
	ErrUnknownType
	ErrUnknownNode
	ErrBadLiteral
	ErrMissing
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformed:
		return "malformed"
	case ErrUnknownName:
		return "unknown name"
	case ErrDuplicate:
		return "duplicate"
	case ErrUnknownType:
		return "unknown type"
	case ErrUnknownNode:
		return "unknown node"
	case ErrBadLiteral:
		return "bad literal"
	case ErrMissing:
		return "missing entry"
	default:
		return "invalid"
	}
}

// Error is a decode failure at a YAML line.
type Error struct {
	Line  int
	Kind  ErrorKind
	Where string
	Msg   string
}

func (e *Error) Error() string {
	if e.Where != "" {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Where, e.Msg)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}
