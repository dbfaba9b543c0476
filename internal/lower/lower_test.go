package lower

import (
	"math"
	"strings"
	"testing"

	"kestrel/internal/bytecode"
	"kestrel/internal/ir"
	"kestrel/internal/layout"
	"kestrel/internal/module"
	"kestrel/internal/rtti"
	"kestrel/internal/sema"
	"kestrel/internal/testkit"
	"kestrel/internal/types"
)

func lowerProgram(t *testing.T, p *ir.Program) *module.Module {
	t.Helper()
	res, err := sema.CheckProgram(p, layout.Portable())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	m, err := Module(p, res)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("lowered module is invalid: %v", err)
	}
	if err := testkit.CheckCodeInvariants(m); err != nil {
		t.Fatalf("lowered code breaks an invariant: %v", err)
	}
	return m
}

func disasm(code []bytecode.Instr) string {
	var sb strings.Builder
	_ = bytecode.Disassemble(&sb, code)
	return sb.String()
}

func expectCode(t *testing.T, got, want []bytecode.Instr) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d:\n%s", len(want), len(got), disasm(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d: expected %s, got %s\n%s", i, want[i], got[i], disasm(got))
		}
	}
}

func TestLowerRecordFields(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	rec := p.Types.Record([]types.Field{
		{Name: p.Strings.Intern("x"), Type: b.Int},
		{Name: p.Strings.Intern("y"), Type: b.Int},
	})
	point, err := p.DeclareType("Point", rec)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	fb, err := p.DeclareFunc("main", nil, b.Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	pt, _ := fb.Scope.DeclareLocal("p", point)
	x := g.Member(g.Ident(pt), p.Strings.Intern("x"))
	y := g.Member(g.Ident(pt), p.Strings.Intern("y"))

	var body ir.Block
	body.Declare(pt, ir.NoExprID)
	body.Append(ir.Assign(x, g.IntLit(1, "1")))
	body.Append(ir.Print(g.Load(y)))
	body.Append(ir.Return(g.Load(x)))
	fb.Finish(body)

	m := lowerProgram(t, p)
	if !m.RTTI.Equal(&rtti.Table{Entries: []rtti.Entry{
		rtti.Primitive(rtti.IntID), rtti.Primitive(rtti.RealID), rtti.Primitive(rtti.BoolID),
		rtti.Record(3, rtti.IntID, rtti.IntID),
	}}) {
		t.Fatalf("unexpected rtti table %+v", m.RTTI.Entries)
	}
	p0 := bytecode.Local(0)
	expectCode(t, m.Code, []bytecode.Instr{
		bytecode.Label(0),
		bytecode.Enter(0, 1),
		bytecode.AllocRecord(16),
		bytecode.Store(p0),
		bytecode.Load(p0),
		bytecode.FieldAddress(0),
		bytecode.IntConst(1),
		bytecode.StoreAddress(),
		bytecode.Load(p0),
		bytecode.GetField(8),
		bytecode.Print(uint32(rtti.IntID)),
		bytecode.Load(p0),
		bytecode.GetField(0),
		bytecode.Ret(),
	})
	fn, ok := m.Functions.Lookup("main")
	if !ok || fn.Label != 0 || len(fn.Args) != 0 || fn.Result != rtti.IntID {
		t.Fatalf("unexpected function record %+v", fn)
	}
}

func TestLowerGlobalInitRoutine(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	count, err := p.DeclareGlobal("count", b.Int, g.IntLit(5, "5"))
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	fb, err := p.DeclareFunc("main", nil, b.Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	fb.Finish(ir.Stmts(ir.Return(g.Load(g.Ident(count)))))

	m := lowerProgram(t, p)
	expectCode(t, m.Code, []bytecode.Instr{
		bytecode.Label(0),
		bytecode.Enter(0, 0),
		bytecode.IntConst(5),
		bytecode.Store(bytecode.Global(0)),
		bytecode.IntConst(0),
		bytecode.Ret(),
		bytecode.Label(1),
		bytecode.Enter(0, 0),
		bytecode.Load(bytecode.Global(0)),
		bytecode.Ret(),
	})
	if len(m.Functions) != 2 || m.Functions[0].Name != InitRoutine || m.Functions[1].Label != 1 {
		t.Fatalf("unexpected function table %+v", m.Functions)
	}
	if m.GlobalCount != 1 {
		t.Fatalf("expected 1 global, got %d", m.GlobalCount)
	}
}

func TestLowerWithoutGlobalsHasNoInit(t *testing.T) {
	p := ir.NewProgram()
	fb, err := p.DeclareFunc("main", nil, p.Types.Builtins().Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	fb.Finish(ir.Block{})
	m := lowerProgram(t, p)
	if _, ok := m.Functions.Lookup(InitRoutine); ok {
		t.Fatalf("unexpected init routine")
	}
	expectCode(t, m.Code, []bytecode.Instr{
		bytecode.Label(0),
		bytecode.Enter(0, 0),
		bytecode.IntConst(0),
		bytecode.Ret(),
	})
}

func TestLowerFallthroughEpilogues(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	arr := p.Types.Array(b.Int, 2, true)
	cases := []struct {
		name   string
		result types.TypeID
		tail   []bytecode.Instr
	}{
		{"int", b.Int, []bytecode.Instr{bytecode.IntConst(0), bytecode.Ret()}},
		{"bool", b.Bool, []bytecode.Instr{bytecode.IntConst(0), bytecode.Ret()}},
		{"real", b.Real, []bytecode.Instr{bytecode.RealConst(0), bytecode.Ret()}},
		{"array", arr, []bytecode.Instr{bytecode.Raise(bytecode.PanicMissingReturn)}},
	}
	for _, tc := range cases {
		fb, err := p.DeclareFunc("f_"+tc.name, nil, tc.result)
		if err != nil {
			t.Fatalf("declare: %v", err)
		}
		fb.Finish(ir.Block{})
	}
	m := lowerProgram(t, p)
	pos := 0
	for i, tc := range cases {
		want := append([]bytecode.Instr{bytecode.Label(bytecode.LabelID(i)), bytecode.Enter(0, 0)}, tc.tail...)
		expectCode(t, m.Code[pos:pos+len(want)], want)
		pos += len(want)
	}
}

func TestLowerControlFlow(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	fb, err := p.DeclareFunc("abs", []ir.Param{{Name: "n", Type: b.Int}}, b.Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	n := g.Ident(fb.Param(0))
	neg := g.Binary(ir.OpLt, g.Load(n), g.IntLit(0, "0"))
	fb.Finish(ir.Stmts(
		ir.While(g.BoolLit(false), ir.Stmts(ir.Print(g.Load(n)))),
		ir.If(neg, ir.Stmts(ir.Return(g.Unary(ir.OpNeg, g.Load(n)))), &ir.Block{Items: ir.Stmts(ir.Return(g.Load(n))).Items}),
	))

	m := lowerProgram(t, p)
	arg := bytecode.Argument(0)
	expectCode(t, m.Code, []bytecode.Instr{
		bytecode.Label(0),
		bytecode.Enter(1, 0),
		bytecode.Label(1),
		bytecode.IntConst(0),
		bytecode.JumpZero(2),
		bytecode.Load(arg),
		bytecode.Print(uint32(rtti.IntID)),
		bytecode.Jump(1),
		bytecode.Label(2),
		bytecode.Load(arg),
		bytecode.IntConst(0),
		bytecode.BinOp(bytecode.IntLt),
		bytecode.JumpZero(3),
		bytecode.IntConst(0),
		bytecode.Load(arg),
		bytecode.BinOp(bytecode.IntSub),
		bytecode.Ret(),
		bytecode.Jump(4),
		bytecode.Label(3),
		bytecode.Load(arg),
		bytecode.Ret(),
		bytecode.Label(4),
	})
}

func TestLowerReverseRange(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	fb, err := p.DeclareFunc("countdown", nil, b.Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	i, _ := fb.Scope.Nested().DeclareLocal("i", b.Int)
	fb.Finish(ir.Stmts(
		ir.ForRange(i, g.IntLit(1, "1"), g.IntLit(3, "3"), true, ir.Stmts(ir.Print(g.Load(g.Ident(i))))),
		ir.Return(g.IntLit(0, "0")),
	))

	m := lowerProgram(t, p)
	iv, bound := bytecode.Local(0), bytecode.Local(1)
	expectCode(t, m.Code, []bytecode.Instr{
		bytecode.Label(0),
		bytecode.Enter(0, 2),
		bytecode.IntConst(1),
		bytecode.Store(bound),
		bytecode.IntConst(3),
		bytecode.Store(iv),
		bytecode.Load(iv),
		bytecode.Load(bound),
		bytecode.BinOp(bytecode.IntGe),
		bytecode.JumpZero(2),
		bytecode.Label(1),
		bytecode.Load(iv),
		bytecode.Print(uint32(rtti.IntID)),
		bytecode.Load(iv),
		bytecode.Load(bound),
		bytecode.BinOp(bytecode.IntGt),
		bytecode.JumpZero(2),
		bytecode.AddressOf(iv),
		bytecode.Dup(),
		bytecode.LoadAddress(),
		bytecode.IntConst(1),
		bytecode.BinOp(bytecode.IntSub),
		bytecode.StoreAddress(),
		bytecode.Jump(1),
		bytecode.Label(2),
		bytecode.IntConst(0),
		bytecode.Ret(),
	})
}

func TestLowerRangeToMaxInt(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	fb, err := p.DeclareFunc("tail", nil, b.Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	i, _ := fb.Scope.Nested().DeclareLocal("i", b.Int)
	fb.Finish(ir.Stmts(
		ir.ForRange(i, g.IntLit(math.MaxInt64-1, "9223372036854775806"), g.IntLit(math.MaxInt64, "9223372036854775807"), false,
			ir.Stmts(ir.Print(g.Load(g.Ident(i))))),
		ir.Return(g.IntLit(0, "0")),
	))

	m := lowerProgram(t, p)
	iv, bound := bytecode.Local(0), bytecode.Local(1)
	expectCode(t, m.Code, []bytecode.Instr{
		bytecode.Label(0),
		bytecode.Enter(0, 2),
		bytecode.IntConst(math.MaxInt64 - 1),
		bytecode.Store(iv),
		bytecode.IntConst(math.MaxInt64),
		bytecode.Store(bound),
		bytecode.Load(iv),
		bytecode.Load(bound),
		bytecode.BinOp(bytecode.IntLe),
		bytecode.JumpZero(2),
		bytecode.Label(1),
		bytecode.Load(iv),
		bytecode.Print(uint32(rtti.IntID)),
		bytecode.Load(iv),
		bytecode.Load(bound),
		bytecode.BinOp(bytecode.IntLt),
		bytecode.JumpZero(2),
		bytecode.AddressOf(iv),
		bytecode.Dup(),
		bytecode.LoadAddress(),
		bytecode.IntConst(1),
		bytecode.BinOp(bytecode.IntAdd),
		bytecode.StoreAddress(),
		bytecode.Jump(1),
		bytecode.Label(2),
		bytecode.IntConst(0),
		bytecode.Ret(),
	})
	trace := simulateRange(m.Code, math.MaxInt64-1, math.MaxInt64)
	if len(trace) != 2 || trace[0] != math.MaxInt64-1 || trace[1] != math.MaxInt64 {
		t.Fatalf("expected two iterations ending at MaxInt64, got %v", trace)
	}
}

// simulateRange follows the counter of a lowered forward range loop with
// Local(0) as the counter and Local(1) as the bound, returning the values the
// body observes. It stops after a few iterations more than expected.
func simulateRange(code []bytecode.Instr, from, to int64) []int64 {
	labels := make(map[bytecode.LabelID]int)
	for pc, in := range code {
		if in.Op == bytecode.OpLabel {
			labels[in.Label] = pc
		}
	}
	locals := [2]int64{from, to}
	var seen []int64
	var stack []int64
	pop := func() int64 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	for pc := 2; pc < len(code) && len(seen) < 8; pc++ {
		in := code[pc]
		switch in.Op {
		case bytecode.OpIntConst, bytecode.OpStore:
			// bounds are preloaded into locals
		case bytecode.OpLoad:
			stack = append(stack, locals[in.Loc.Index])
		case bytecode.OpBinOp:
			r, l := pop(), pop()
			switch in.Operator {
			case bytecode.IntLe:
				stack = append(stack, boolInt(l <= r))
			case bytecode.IntLt:
				stack = append(stack, boolInt(l < r))
			}
		case bytecode.OpJumpZero:
			if pop() == 0 {
				return seen
			}
		case bytecode.OpPrint:
			seen = append(seen, pop())
		case bytecode.OpAddressOf:
			locals[0]++
			pc += 5
		case bytecode.OpJump:
			pc = labels[in.Label]
		}
	}
	return seen
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func TestLowerOperatorSelection(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	fb, err := p.DeclareFunc("ops", nil, b.Bool)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	eq := g.Binary(ir.OpEq, g.BoolLit(true), g.Unary(ir.OpNot, g.BoolLit(false)))
	fb.Finish(ir.Stmts(
		ir.Print(g.Unary(ir.OpNeg, g.RealLit(2.5, "2.5"))),
		ir.Print(g.Convert(ir.ExprBoolToInt, g.BoolLit(true))),
		ir.Return(eq),
	))

	m := lowerProgram(t, p)
	expectCode(t, m.Code, []bytecode.Instr{
		bytecode.Label(0),
		bytecode.Enter(0, 0),
		bytecode.RealConst(-1),
		bytecode.RealConst(2.5),
		bytecode.BinOp(bytecode.RealMul),
		bytecode.Print(uint32(rtti.RealID)),
		bytecode.IntConst(1),
		bytecode.Print(uint32(rtti.IntID)),
		bytecode.IntConst(1),
		bytecode.IntConst(0),
		bytecode.IntConst(1),
		bytecode.BinOp(bytecode.BoolXor),
		bytecode.BinOp(bytecode.IntEq),
		bytecode.Ret(),
	})
}

func TestLowerEvalDropsResult(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	one, err := p.DeclareFunc("one", nil, b.Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	one.Finish(ir.Stmts(ir.Return(g.IntLit(1, "1"))))
	main, err := p.DeclareFunc("main", nil, b.Int)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	main.Finish(ir.Stmts(ir.Eval(g.Call(one.Sym(), nil)), ir.Return(g.IntLit(0, "0"))))

	m := lowerProgram(t, p)
	expectCode(t, m.Code[4:], []bytecode.Instr{
		bytecode.Label(1),
		bytecode.Enter(0, 0),
		bytecode.Call(0),
		bytecode.Drop(),
		bytecode.IntConst(0),
		bytecode.Ret(),
	})
}

func TestLowerArraysRoundTrip(t *testing.T) {
	p := ir.NewProgram()
	b := p.Types.Builtins()
	g := p.Graph
	nums := p.Types.Array(b.Real, 3, true)
	if _, err := p.DeclareGlobal("data", nums, ir.NoExprID); err != nil {
		t.Fatalf("declare: %v", err)
	}
	fb, err := p.DeclareFunc("sum", []ir.Param{{Name: "xs", Type: nums}}, b.Real)
	if err != nil {
		t.Fatalf("declare: %v", err)
	}
	total, _ := fb.Scope.DeclareLocal("total", b.Real)
	x, _ := fb.Scope.Nested().DeclareLocal("x", b.Real)
	xs := g.Ident(fb.Param(0))

	var body ir.Block
	body.Declare(total, ir.NoExprID)
	body.Append(ir.Assign(g.Index(xs, g.IntLit(0, "0")), g.Convert(ir.ExprIntToReal, g.IntLit(4, "4"))))
	body.Append(ir.ForEach(x, g.Load(xs), ir.Stmts(
		ir.Assign(g.Ident(total), g.Binary(ir.OpAdd, g.Load(g.Ident(total)), g.Load(g.Ident(x)))),
	)))
	body.Append(ir.Return(g.Load(g.Ident(total))))
	fb.Finish(body)

	m := lowerProgram(t, p)
	if m.RTTI.Len() != 4 || m.RTTI.Entries[3].Kind != rtti.EntryArray || m.RTTI.Entries[3].Elem != rtti.RealID {
		t.Fatalf("unexpected rtti table %+v", m.RTTI.Entries)
	}
	if m.Code[2] != bytecode.AllocArray(8, 3) {
		t.Fatalf("expected global array allocation, got %s", m.Code[2])
	}
	sum, ok := m.Functions.Lookup("sum")
	if !ok || len(sum.Args) != 1 || sum.Args[0] != 3 || sum.Result != rtti.RealID {
		t.Fatalf("unexpected function record %+v", sum)
	}

	data, err := module.Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := module.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !back.Equal(m) {
		t.Fatalf("round trip mismatch:\n%s\nvs\n%s", disasm(m.Code), disasm(back.Code))
	}
}

func TestModuleRequiresCheckedProgram(t *testing.T) {
	if _, err := Module(ir.NewProgram(), nil); err == nil {
		t.Fatalf("expected error for unchecked program")
	}
}
