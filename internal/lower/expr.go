package lower

import (
	"fmt"

	"kestrel/internal/bytecode"
	"kestrel/internal/ir"
	"kestrel/internal/types"
)

func (fl *funcLowerer) expr(id ir.ExprID) error {
	e, ok := fl.prog.Graph.Expr(id)
	if !ok {
		return fmt.Errorf("unknown expression #%d", id)
	}
	switch e.Kind {
	case ir.ExprIntLit:
		fl.emit(bytecode.IntConst(e.Int))
	case ir.ExprRealLit:
		fl.emit(bytecode.RealConst(e.Real))
	case ir.ExprBoolLit:
		v := int64(0)
		if e.Bool {
			v = 1
		}
		fl.emit(bytecode.IntConst(v))
	case ir.ExprLoad:
		return fl.load(e.Lvalue)
	case ir.ExprCall:
		for _, a := range e.Args {
			if err := fl.expr(a); err != nil {
				return err
			}
		}
		label, ok := fl.funcLabel[e.Callee]
		if !ok {
			return fmt.Errorf("call to %s without a body", fl.prog.Symbols.Name(e.Callee))
		}
		fl.emit(bytecode.Call(label))
	case ir.ExprBinary:
		op, err := fl.binaryOperator(e)
		if err != nil {
			return err
		}
		if err := fl.expr(e.Lhs); err != nil {
			return err
		}
		if err := fl.expr(e.Rhs); err != nil {
			return err
		}
		fl.emit(bytecode.BinOp(op))
	case ir.ExprUnary:
		return fl.unary(e)
	case ir.ExprBoolToInt:
		// Bool and Int share a representation.
		return fl.expr(e.Operand())
	case ir.ExprRealToInt, ir.ExprIntToReal, ir.ExprIntToBool:
		if err := fl.expr(e.Operand()); err != nil {
			return err
		}
		fl.emit(conversionOps[e.Kind])
	default:
		return fmt.Errorf("cannot lower %s expression", e.Kind)
	}
	return nil
}

var conversionOps = map[ir.ExprKind]bytecode.Instr{
	ir.ExprRealToInt: bytecode.RealToIntOp(),
	ir.ExprIntToReal: bytecode.IntToRealOp(),
	ir.ExprIntToBool: bytecode.IntToBoolOp(),
}

var (
	intOperators = map[ir.BinaryOp]bytecode.BinaryOperator{
		ir.OpAdd: bytecode.IntAdd, ir.OpSub: bytecode.IntSub, ir.OpMul: bytecode.IntMul,
		ir.OpDiv: bytecode.IntDiv, ir.OpMod: bytecode.IntMod,
		ir.OpLt: bytecode.IntLt, ir.OpLe: bytecode.IntLe, ir.OpGt: bytecode.IntGt, ir.OpGe: bytecode.IntGe,
		ir.OpEq: bytecode.IntEq, ir.OpNeq: bytecode.IntNeq,
	}
	realOperators = map[ir.BinaryOp]bytecode.BinaryOperator{
		ir.OpAdd: bytecode.RealAdd, ir.OpSub: bytecode.RealSub, ir.OpMul: bytecode.RealMul,
		ir.OpDiv: bytecode.RealDiv,
		ir.OpLt:  bytecode.RealLt, ir.OpLe: bytecode.RealLe, ir.OpGt: bytecode.RealGt, ir.OpGe: bytecode.RealGe,
		ir.OpEq: bytecode.RealEq, ir.OpNeq: bytecode.RealNeq,
	}
	// Bool equality compares the shared Int representation.
	boolOperators = map[ir.BinaryOp]bytecode.BinaryOperator{
		ir.OpEq: bytecode.IntEq, ir.OpNeq: bytecode.IntNeq,
		ir.OpAnd: bytecode.BoolAnd, ir.OpOr: bytecode.BoolOr, ir.OpXor: bytecode.BoolXor,
	}
)

// binaryOperator selects the semantic operator from the operand type.
func (fl *funcLowerer) binaryOperator(e ir.Expr) (bytecode.BinaryOperator, error) {
	var table map[ir.BinaryOp]bytecode.BinaryOperator
	operand := fl.exprType(e.Lhs)
	switch fl.kindOf(operand) {
	case types.KindInt:
		table = intOperators
	case types.KindReal:
		table = realOperators
	case types.KindBool:
		table = boolOperators
	}
	op, ok := table[e.Op]
	if !ok {
		return 0, fmt.Errorf("operator %s is not defined for %s", e.Op, types.Label(fl.prog.Types, operand))
	}
	return op, nil
}

// unary lowers -x as 0 - x for Int and -1 * x for Real, and not x as x xor 1.
func (fl *funcLowerer) unary(e ir.Expr) error {
	operand := fl.exprType(e.Operand())
	switch {
	case e.Unary == ir.OpNeg && fl.kindOf(operand) == types.KindInt:
		fl.emit(bytecode.IntConst(0))
		if err := fl.expr(e.Operand()); err != nil {
			return err
		}
		fl.emit(bytecode.BinOp(bytecode.IntSub))
	case e.Unary == ir.OpNeg && fl.kindOf(operand) == types.KindReal:
		fl.emit(bytecode.RealConst(-1))
		if err := fl.expr(e.Operand()); err != nil {
			return err
		}
		fl.emit(bytecode.BinOp(bytecode.RealMul))
	case e.Unary == ir.OpNot && fl.kindOf(operand) == types.KindBool:
		if err := fl.expr(e.Operand()); err != nil {
			return err
		}
		fl.emit(bytecode.IntConst(1), bytecode.BinOp(bytecode.BoolXor))
	default:
		return fmt.Errorf("operator %s is not defined for %s", e.Unary, types.Label(fl.prog.Types, operand))
	}
	return nil
}
