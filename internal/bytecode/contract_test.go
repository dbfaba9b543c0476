package bytecode

import (
	"errors"
	"math"
	"testing"
)

func panicCode(t *testing.T, err error) PanicCode {
	t.Helper()
	var p *Panic
	if !errors.As(err, &p) {
		t.Fatalf("expected *Panic, got %v", err)
	}
	return p.Code
}

func TestIntToBool(t *testing.T) {
	v, err := IntToBool(IntValue(0))
	if err != nil || v.Tag != TagBool || v.Bool() {
		t.Fatalf("0: expected false, got %v, %v", v, err)
	}
	v, err = IntToBool(IntValue(1))
	if err != nil || v.Tag != TagBool || !v.Bool() {
		t.Fatalf("1: expected true, got %v, %v", v, err)
	}
	for _, bad := range []int64{2, -1, math.MaxInt64} {
		_, err = IntToBool(IntValue(bad))
		if code := panicCode(t, err); code != PanicIntToBoolRange {
			t.Fatalf("%d: expected %s, got %s", bad, PanicIntToBoolRange, code)
		}
	}
}

func TestRealToIntTruncatesTowardZero(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{2.9, 2},
		{-2.9, -2},
		{0.5, 0},
		{-0.5, 0},
		{-9223372036854775808.0, math.MinInt64},
	}
	for _, tc := range cases {
		v, err := RealToInt(RealValue(tc.in))
		if err != nil || v.Int != tc.want {
			t.Fatalf("%g: expected %d, got %v, %v", tc.in, tc.want, v, err)
		}
	}
}

func TestRealToIntRejectsInvalid(t *testing.T) {
	for _, in := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 9223372036854775808.0, -1e19} {
		_, err := RealToInt(RealValue(in))
		if code := panicCode(t, err); code != PanicInvalidConversion {
			t.Fatalf("%g: expected %s, got %s", in, PanicInvalidConversion, code)
		}
	}
}

func TestIndexValueBounds(t *testing.T) {
	elems := []Value{IntValue(10), IntValue(20), IntValue(30)}
	for i, want := range []int64{10, 20, 30} {
		v, err := IndexValue(elems, IntValue(int64(i)))
		if err != nil || v.Int != want {
			t.Fatalf("index %d: expected %d, got %v, %v", i, want, v, err)
		}
	}
	for _, bad := range []int64{3, -1} {
		_, err := IndexValue(elems, IntValue(bad))
		if code := panicCode(t, err); code != PanicBounds {
			t.Fatalf("index %d: expected %s, got %s", bad, PanicBounds, code)
		}
	}
}

func TestApplyBinary(t *testing.T) {
	cases := []struct {
		name     string
		op       BinaryOperator
		lhs, rhs Value
		want     Value
	}{
		{"add wraps", IntAdd, IntValue(math.MaxInt64), IntValue(1), IntValue(math.MinInt64)},
		{"div truncates", IntDiv, IntValue(-7), IntValue(2), IntValue(-3)},
		{"mod sign of dividend", IntMod, IntValue(-7), IntValue(2), IntValue(-1)},
		{"div overflow wraps", IntDiv, IntValue(math.MinInt64), IntValue(-1), IntValue(math.MinInt64)},
		{"real div", RealDiv, RealValue(1), RealValue(4), RealValue(0.25)},
		{"real lt", RealLt, RealValue(1), RealValue(2), BoolValue(true)},
		{"bool eq via int", IntEq, BoolValue(true), BoolValue(true), BoolValue(true)},
		{"not via xor", BoolXor, BoolValue(true), IntValue(1), BoolValue(false)},
		{"or", BoolOr, BoolValue(false), BoolValue(true), BoolValue(true)},
	}
	for _, tc := range cases {
		got, err := ApplyBinary(tc.op, tc.lhs, tc.rhs)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestApplyBinaryFailures(t *testing.T) {
	_, err := ApplyBinary(IntMod, IntValue(1), IntValue(0))
	if code := panicCode(t, err); code != PanicDivisionByZero {
		t.Fatalf("expected %s, got %s", PanicDivisionByZero, code)
	}
	_, err = ApplyBinary(RealAdd, IntValue(1), RealValue(1))
	if !errors.Is(err, ErrTagMismatch) {
		t.Fatalf("expected tag mismatch, got %v", err)
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero(BoolValue(false)) || IsZero(BoolValue(true)) {
		t.Fatalf("bool zero mismatch")
	}
	if IsZero(RealValue(math.Copysign(0, -1))) {
		t.Fatalf("-0.0 is not representation-zero")
	}
	if !IsZero(RefValue(0)) || IsZero(IntValue(-1)) {
		t.Fatalf("zero mismatch")
	}
}
