package bytecode

import "fmt"

// BinaryOperator is the semantic operator of a BinOp instruction. The
// operand tag is part of the operator.
type BinaryOperator uint8

const (
	RealAdd BinaryOperator = iota + 1
	RealSub
	RealMul
	RealDiv
	RealLt
	RealLe
	RealGt
	RealGe
	RealEq
	RealNeq
	IntAdd
	IntSub
	IntMul
	IntDiv
	IntMod
	IntLt
	IntLe
	IntGt
	IntGe
	IntEq
	IntNeq
	BoolAnd
	BoolXor
	BoolOr

	operatorCount
)

var operatorNames = [operatorCount]string{
	RealAdd: "RealAdd", RealSub: "RealSub", RealMul: "RealMul", RealDiv: "RealDiv",
	RealLt: "RealLt", RealLe: "RealLe", RealGt: "RealGt", RealGe: "RealGe",
	RealEq: "RealEq", RealNeq: "RealNeq",
	IntAdd: "IntAdd", IntSub: "IntSub", IntMul: "IntMul", IntDiv: "IntDiv", IntMod: "IntMod",
	IntLt: "IntLt", IntLe: "IntLe", IntGt: "IntGt", IntGe: "IntGe",
	IntEq: "IntEq", IntNeq: "IntNeq",
	BoolAnd: "BoolAnd", BoolXor: "BoolXor", BoolOr: "BoolOr",
}

// Valid reports whether op is a known operator.
func (op BinaryOperator) Valid() bool {
	return op > 0 && op < operatorCount
}

func (op BinaryOperator) String() string {
	if !op.Valid() {
		return fmt.Sprintf("BinaryOperator(%d)", op)
	}
	return operatorNames[op]
}

// OperandTag is the value tag both operands must carry.
func (op BinaryOperator) OperandTag() Tag {
	switch {
	case op >= RealAdd && op <= RealNeq:
		return TagReal
	case op >= IntAdd && op <= IntNeq:
		return TagInt
	default:
		return TagBool
	}
}

// IsComparison reports whether op yields a Bool.
func (op BinaryOperator) IsComparison() bool {
	switch op {
	case RealLt, RealLe, RealGt, RealGe, RealEq, RealNeq,
		IntLt, IntLe, IntGt, IntGe, IntEq, IntNeq:
		return true
	}
	return false
}
