package bytecode

import (
	"errors"
	"fmt"
	"math"
)

// ErrTagMismatch reports operands whose tags do not match the instruction.
// Well-typed modules never produce it.
var ErrTagMismatch = errors.New("operand tag mismatch")

// Bounds of the int64 range as float64. The upper bound itself is not
// representable as int64.
const (
	minIntAsReal = -9223372036854775808.0
	maxIntAsReal = 9223372036854775808.0
)

func tagError(op string, got ...Value) error {
	tags := make([]any, len(got))
	for i, v := range got {
		tags[i] = v.Tag
	}
	return fmt.Errorf("%w: %s on %v", ErrTagMismatch, op, tags)
}

// IntToBool converts 0 to false and 1 to true; every other value panics
// with PanicIntToBoolRange.
func IntToBool(v Value) (Value, error) {
	if !v.intLike() {
		return Value{}, tagError("IntToBool", v)
	}
	switch v.Int {
	case 0:
		return BoolValue(false), nil
	case 1:
		return BoolValue(true), nil
	default:
		return Value{}, raise(PanicIntToBoolRange, "%d is not a bool", v.Int)
	}
}

// RealToInt truncates toward zero. NaN, infinities and values outside the
// int64 range panic with PanicInvalidConversion.
func RealToInt(v Value) (Value, error) {
	if v.Tag != TagReal {
		return Value{}, tagError("RealToInt", v)
	}
	f := math.Trunc(v.Real)
	if math.IsNaN(f) || f < minIntAsReal || f >= maxIntAsReal {
		return Value{}, raise(PanicInvalidConversion, "%g cannot be converted to int", v.Real)
	}
	return IntValue(int64(f)), nil
}

// IntToReal widens an Int to a Real.
func IntToReal(v Value) (Value, error) {
	if !v.intLike() {
		return Value{}, tagError("IntToReal", v)
	}
	return RealValue(float64(v.Int)), nil
}

// CheckIndex validates index against an array of length n.
func CheckIndex(n, index int64) error {
	if index < 0 || index >= n {
		return raise(PanicBounds, "index %d out of bounds for length %d", index, n)
	}
	return nil
}

// IndexValue reads elems[index] under the GetIndex contract.
func IndexValue(elems []Value, index Value) (Value, error) {
	if !index.intLike() {
		return Value{}, tagError("GetIndex", index)
	}
	if err := CheckIndex(int64(len(elems)), index.Int); err != nil {
		return Value{}, err
	}
	return elems[index.Int], nil
}

// ApplyBinary evaluates a BinOp. Integer arithmetic wraps, IntDiv truncates
// toward zero and IntMod takes the sign of the dividend; a zero divisor
// panics with PanicDivisionByZero. Bool operators accept Int operands
// because both share one representation.
func ApplyBinary(op BinaryOperator, lhs, rhs Value) (Value, error) {
	if !op.Valid() {
		return Value{}, fmt.Errorf("bytecode: unknown operator %d", op)
	}
	if op.OperandTag() == TagReal {
		if lhs.Tag != TagReal || rhs.Tag != TagReal {
			return Value{}, tagError(op.String(), lhs, rhs)
		}
		return applyReal(op, lhs.Real, rhs.Real), nil
	}
	if !lhs.intLike() || !rhs.intLike() {
		return Value{}, tagError(op.String(), lhs, rhs)
	}
	a, b := lhs.Int, rhs.Int
	switch op {
	case IntAdd:
		return IntValue(a + b), nil
	case IntSub:
		return IntValue(a - b), nil
	case IntMul:
		return IntValue(a * b), nil
	case IntDiv, IntMod:
		if b == 0 {
			return Value{}, raise(PanicDivisionByZero, "%s by zero", op)
		}
		if op == IntDiv {
			return IntValue(a / b), nil
		}
		return IntValue(a % b), nil
	case IntLt:
		return BoolValue(a < b), nil
	case IntLe:
		return BoolValue(a <= b), nil
	case IntGt:
		return BoolValue(a > b), nil
	case IntGe:
		return BoolValue(a >= b), nil
	case IntEq:
		return BoolValue(a == b), nil
	case IntNeq:
		return BoolValue(a != b), nil
	case BoolAnd:
		return BoolValue(a != 0 && b != 0), nil
	case BoolOr:
		return BoolValue(a != 0 || b != 0), nil
	default: // BoolXor
		return BoolValue((a != 0) != (b != 0)), nil
	}
}

func applyReal(op BinaryOperator, a, b float64) Value {
	switch op {
	case RealAdd:
		return RealValue(a + b)
	case RealSub:
		return RealValue(a - b)
	case RealMul:
		return RealValue(a * b)
	case RealDiv:
		return RealValue(a / b)
	case RealLt:
		return BoolValue(a < b)
	case RealLe:
		return BoolValue(a <= b)
	case RealGt:
		return BoolValue(a > b)
	case RealGe:
		return BoolValue(a >= b)
	case RealEq:
		return BoolValue(a == b)
	default: // RealNeq
		return BoolValue(a != b)
	}
}
