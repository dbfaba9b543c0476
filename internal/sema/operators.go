package sema

import (
	"kestrel/internal/ir"
	"kestrel/internal/types"
)

type resultRule uint8

const (
	resultOperand resultRule = iota // same type as the operands
	resultBool
)

type operatorRule struct {
	operands types.FamilyMask
	result   resultRule
}

// binaryRules lists the operand families accepted by each binary operator.
// Both operands must have the same type.
var binaryRules = map[ir.BinaryOp]operatorRule{
	ir.OpAdd: {types.FamilyNumeric, resultOperand},
	ir.OpSub: {types.FamilyNumeric, resultOperand},
	ir.OpMul: {types.FamilyNumeric, resultOperand},
	ir.OpDiv: {types.FamilyNumeric, resultOperand},
	ir.OpMod: {types.FamilyInt, resultOperand},
	ir.OpLt:  {types.FamilyNumeric, resultBool},
	ir.OpLe:  {types.FamilyNumeric, resultBool},
	ir.OpGt:  {types.FamilyNumeric, resultBool},
	ir.OpGe:  {types.FamilyNumeric, resultBool},
	ir.OpEq:  {types.FamilyPrimitive, resultBool},
	ir.OpNeq: {types.FamilyPrimitive, resultBool},
	ir.OpAnd: {types.FamilyBool, resultOperand},
	ir.OpOr:  {types.FamilyBool, resultOperand},
	ir.OpXor: {types.FamilyBool, resultOperand},
}

var unaryRules = map[ir.UnaryOp]types.FamilyMask{
	ir.OpNeg: types.FamilyNumeric,
	ir.OpNot: types.FamilyBool,
}

// coercions is the complete table of legal non-identity conversions.
var coercions = map[[2]types.Kind]ir.ExprKind{
	{types.KindBool, types.KindInt}: ir.ExprBoolToInt,
	{types.KindReal, types.KindInt}: ir.ExprRealToInt,
	{types.KindInt, types.KindReal}: ir.ExprIntToReal,
	{types.KindInt, types.KindBool}: ir.ExprIntToBool,
}

// CoercionFor returns the conversion node kind turning from into to. Identity
// and illegal pairs report false.
func CoercionFor(from, to types.Kind) (ir.ExprKind, bool) {
	k, ok := coercions[[2]types.Kind{from, to}]
	return k, ok
}

// conversionSignature returns the fixed source and target kinds of a
// conversion node.
func conversionSignature(k ir.ExprKind) (from, to types.Kind) {
	switch k {
	case ir.ExprBoolToInt:
		return types.KindBool, types.KindInt
	case ir.ExprRealToInt:
		return types.KindReal, types.KindInt
	case ir.ExprIntToReal:
		return types.KindInt, types.KindReal
	case ir.ExprIntToBool:
		return types.KindInt, types.KindBool
	default:
		return types.KindInvalid, types.KindInvalid
	}
}
