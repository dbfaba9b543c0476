package ir

import (
	"fmt"

	"kestrel/internal/source"
	"kestrel/internal/symbols"
)

// ExprKind enumerates expression node kinds.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIntLit
	ExprRealLit
	ExprBoolLit
	ExprLoad
	ExprCall
	ExprBinary
	ExprUnary
	ExprBoolToInt
	ExprRealToInt
	ExprIntToReal
	ExprIntToBool
)

func (k ExprKind) String() string {
	switch k {
	case ExprIntLit:
		return "int"
	case ExprRealLit:
		return "real"
	case ExprBoolLit:
		return "bool"
	case ExprLoad:
		return "load"
	case ExprCall:
		return "call"
	case ExprBinary:
		return "binary"
	case ExprUnary:
		return "unary"
	case ExprBoolToInt:
		return "bool_to_int"
	case ExprRealToInt:
		return "real_to_int"
	case ExprIntToReal:
		return "int_to_real"
	case ExprIntToBool:
		return "int_to_bool"
	default:
		return "invalid"
	}
}

// IsConversion reports whether k is one of the explicit conversion nodes.
func (k ExprKind) IsConversion() bool {
	return k >= ExprBoolToInt && k <= ExprIntToBool
}

// BinaryOp is a syntactic binary operator; the operand types select the
// semantic operator during lowering.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota + 1
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpXor
)

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "==", OpNeq: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", op)
}

// ParseBinaryOp maps an operator spelling onto a BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op, name := range binaryOpNames {
		if name == s {
			return op, true
		}
	}
	return 0, false
}

// UnaryOp is a syntactic unary operator.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota + 1
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "not"
	default:
		return fmt.Sprintf("UnaryOp(%d)", op)
	}
}

// Expr is one immutable expression node. Fields are meaningful per Kind:
// literals use Int/Real/Bool (and Text for the source spelling), loads use
// Lvalue, calls use Callee/Args, binary nodes Op/Lhs/Rhs, unary nodes
// Unary/Lhs, and conversions Lhs as their operand.
type Expr struct {
	Kind   ExprKind
	Int    int64
	Real   float64
	Bool   bool
	Text   string
	Op     BinaryOp
	Unary  UnaryOp
	Lhs    ExprID
	Rhs    ExprID
	Lvalue LvalueID
	Callee symbols.SymbolID
	Args   []ExprID
}

// Operand returns the single operand of unary and conversion nodes.
func (e Expr) Operand() ExprID {
	return e.Lhs
}

// LvalueKind enumerates assignable place kinds.
type LvalueKind uint8

const (
	LvalueInvalid LvalueKind = iota
	LvalueIdent
	LvalueMember
	LvalueIndex
)

// Lvalue is one immutable place node. Identifiers carry the resolved symbol,
// so two identical identifiers always denote the same variable.
type Lvalue struct {
	Kind  LvalueKind
	Sym   symbols.SymbolID
	Base  LvalueID
	Field source.StringID
	Index ExprID
}
