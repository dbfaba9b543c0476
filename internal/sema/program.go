package sema

import (
	"errors"
	"fmt"
	"strings"

	"kestrel/internal/ir"
	"kestrel/internal/layout"
	"kestrel/internal/source"
	"kestrel/internal/symbols"
	"kestrel/internal/types"
)

// ReservedPrefix starts names the compiler synthesizes; user routines may not
// use it.
const ReservedPrefix = "$"

// Result carries the artefacts lowering needs after a successful check.
type Result struct {
	Checker *Checker
	Layout  *layout.LayoutEngine
}

// CheckProgram validates declarations, statements and expressions of p and
// returns every error joined. A nil error means the program is safe to lower.
func CheckProgram(p *ir.Program, target layout.Target) (*Result, error) {
	pc := &programChecker{
		prog:    p,
		c:       NewChecker(p.Graph, p.Types, p.Symbols),
		layout:  layout.New(target, p.Types),
		checked: make(map[types.TypeID]struct{}),
	}
	pc.run()
	if len(pc.errs) > 0 {
		return nil, errors.Join(pc.errs...)
	}
	return &Result{Checker: pc.c, Layout: pc.layout}, nil
}

type programChecker struct {
	prog    *ir.Program
	c       *Checker
	layout  *layout.LayoutEngine
	errs    []error
	checked map[types.TypeID]struct{}

	fn     symbols.SymbolID
	result types.TypeID
}

func (pc *programChecker) report(where string, kind Problem, format string, args ...any) {
	pc.errs = append(pc.errs, &ProgramError{Where: where, Kind: kind, Reason: fmt.Sprintf(format, args...)})
}

func (pc *programChecker) wrap(where string, errs ...error) {
	for _, err := range errs {
		pc.errs = append(pc.errs, &ProgramError{Where: where, Err: err})
	}
}

func (pc *programChecker) name(sym symbols.SymbolID) string {
	return pc.prog.Symbols.Name(sym)
}

func (pc *programChecker) run() {
	for _, td := range pc.prog.TypeDecls {
		pc.checkType("type "+pc.prog.Strings.MustLookup(td.Name), td.Alias)
	}
	for i := range pc.prog.Globals {
		g := &pc.prog.Globals[i]
		where := "global " + pc.name(g.Sym)
		sym, _ := pc.prog.Symbols.Symbol(g.Sym)
		if pc.checkType(where, sym.Type) && g.Init.IsValid() {
			pc.coerceValue(where, &g.Init, sym.Type)
		}
	}
	for i := range pc.prog.Funcs {
		pc.checkFunc(&pc.prog.Funcs[i])
	}
}

// checkType verifies that t and everything it reaches resolves, that records
// carry unique field names and that no record embeds itself.
func (pc *programChecker) checkType(where string, t types.TypeID) bool {
	resolved, err := pc.prog.Types.Resolve(t)
	if err != nil {
		pc.wrap(where, err)
		return false
	}
	if _, done := pc.checked[resolved]; done {
		return true
	}
	pc.checked[resolved] = struct{}{}
	in := pc.prog.Types
	ok := true
	switch in.KindOf(resolved) {
	case types.KindRecord:
		seen := make(map[source.StringID]struct{})
		for _, f := range in.RecordFields(resolved) {
			if _, dup := seen[f.Name]; dup {
				pc.report(where, ProblemDuplicateField, "duplicate field %q in %s", in.Strings.MustLookup(f.Name), types.Label(in, resolved))
				ok = false
			}
			seen[f.Name] = struct{}{}
			ok = pc.checkType(where, f.Type) && ok
		}
		if ok {
			if _, err := pc.layout.LayoutOf(resolved); err != nil {
				pc.wrap(where, err)
				ok = false
			}
		}
	case types.KindArray:
		ok = pc.checkType(where, in.MustLookup(resolved).Elem)
	}
	if !ok {
		delete(pc.checked, resolved)
	}
	return ok
}

// typecheck elaborates *expr in place and validates the result.
func (pc *programChecker) typecheck(where string, expr *ir.ExprID) (types.TypeID, bool) {
	*expr = pc.c.Elaborate(*expr)
	if errs := pc.c.Typecheck(*expr); len(errs) > 0 {
		pc.wrap(where, errs...)
		return types.NoTypeID, false
	}
	t, _ := pc.c.TypeOf(*expr)
	return t, true
}

// coerceValue typechecks *expr and converts it to want, storing the
// conversion node back into *expr. Pairs with no legal conversion are a
// mismatch.
func (pc *programChecker) coerceValue(where string, expr *ir.ExprID, want types.TypeID) bool {
	got, ok := pc.typecheck(where, expr)
	if !ok {
		return false
	}
	conv, err := pc.c.Coerce(*expr, got, want)
	if err != nil {
		pc.report(where, ProblemMismatch, "expected %s, got %s", pc.c.Label(want), pc.c.Label(got))
		return false
	}
	*expr = conv
	return true
}

// checkValue typechecks *expr and requires it to have exactly type want.
func (pc *programChecker) checkValue(where string, expr *ir.ExprID, want types.TypeID) bool {
	got, ok := pc.typecheck(where, expr)
	if !ok {
		return false
	}
	if !pc.c.Same(got, want) {
		pc.report(where, ProblemMismatch, "expected %s, got %s", pc.c.Label(want), pc.c.Label(got))
		return false
	}
	return true
}

func (pc *programChecker) checkFunc(fn *ir.Func) {
	name := pc.name(fn.Sym)
	where := "routine " + name
	if strings.HasPrefix(name, ReservedPrefix) {
		pc.report(where, ProblemReserved, "names starting with %q are reserved", ReservedPrefix)
	}
	sym, ok := pc.prog.Symbols.Symbol(fn.Sym)
	if !ok || sym.Kind != symbols.SymbolFunction || sym.Signature == nil {
		pc.report(where, ProblemInvalid, "not a declared routine")
		return
	}
	if len(fn.Params) != len(sym.Signature.Params) {
		pc.report(where, ProblemArity, "signature lists %d parameters, body binds %d", len(sym.Signature.Params), len(fn.Params))
	}
	for _, p := range sym.Signature.Params {
		pc.checkType(where, p)
	}
	pc.checkType(where, sym.Signature.Result)
	pc.fn = fn.Sym
	pc.result = sym.Signature.Result
	pc.checkBlock(where, &fn.Body)
	pc.fn = symbols.NoSymbolID
}

func (pc *programChecker) checkBlock(where string, b *ir.Block) {
	for _, item := range b.Items {
		switch {
		case item.Decl != nil:
			pc.checkDecl(where, item.Decl)
		case item.Stmt != nil:
			pc.checkStmt(where, item.Stmt)
		default:
			pc.report(where, ProblemInvalid, "empty block item")
		}
	}
}

func (pc *programChecker) checkDecl(where string, d *ir.LocalDecl) {
	sym, ok := pc.prog.Symbols.Symbol(d.Sym)
	if !ok || sym.Kind != symbols.SymbolLocal || sym.Owner != pc.fn {
		pc.report(where, ProblemInvalid, "declaration of %q is not a local of this routine", pc.name(d.Sym))
		return
	}
	at := where + ": local " + pc.name(d.Sym)
	if pc.checkType(at, sym.Type) && d.Init.IsValid() {
		pc.coerceValue(at, &d.Init, sym.Type)
	}
}

func (pc *programChecker) checkStmt(where string, s *ir.Stmt) {
	b := pc.prog.Types.Builtins()
	switch s.Kind {
	case ir.StmtAssign:
		s.Target = pc.c.ElaboratePlace(s.Target)
		target, errs := pc.c.CheckPlace(s.Target)
		if len(errs) > 0 {
			pc.wrap(where+": assignment target", errs...)
			return
		}
		pc.coerceValue(where+": assignment", &s.Value, target)
	case ir.StmtWhile:
		pc.checkValue(where+": while condition", &s.Cond, b.Bool)
		pc.checkBlock(where, &s.Body)
	case ir.StmtIf:
		pc.checkValue(where+": if condition", &s.Cond, b.Bool)
		pc.checkBlock(where, &s.Body)
		if s.Else != nil {
			pc.checkBlock(where, s.Else)
		}
	case ir.StmtFor:
		pc.checkFor(where, s)
	case ir.StmtPrint:
		if t, ok := pc.typecheck(where+": print", &s.Value); ok {
			pc.checkType(where+": print", t)
		}
	case ir.StmtReturn:
		pc.coerceValue(where+": return", &s.Value, pc.result)
	case ir.StmtEval:
		e, ok := pc.prog.Graph.Expr(s.Value)
		if !ok || e.Kind != ir.ExprCall {
			pc.report(where, ProblemEvalNotCall, "eval requires a call expression")
			return
		}
		pc.typecheck(where+": eval", &s.Value)
	default:
		pc.report(where, ProblemInvalid, "invalid statement kind %s", s.Kind)
	}
}

func (pc *programChecker) checkFor(where string, s *ir.Stmt) {
	at := where + ": for"
	sym, ok := pc.prog.Symbols.Symbol(s.Var)
	if !ok || sym.Kind != symbols.SymbolLocal || sym.Owner != pc.fn {
		pc.report(at, ProblemInvalid, "loop variable is not a local of this routine")
		return
	}
	in := pc.prog.Types
	if s.To.IsValid() {
		if !pc.c.Same(sym.Type, in.Builtins().Int) {
			pc.report(at, ProblemMismatch, "range loop variable %q must be int", pc.name(s.Var))
		}
		pc.checkValue(at+" lower bound", &s.From, in.Builtins().Int)
		pc.checkValue(at+" upper bound", &s.To, in.Builtins().Int)
	} else if t, ok := pc.typecheck(at, &s.From); ok {
		if in.KindOf(t) != types.KindArray {
			pc.report(at, ProblemMismatch, "cannot iterate over %s", pc.c.Label(t))
		} else if elem := in.MustLookup(t).Elem; !pc.c.Same(sym.Type, elem) {
			pc.report(at, ProblemMismatch, "loop variable %q is %s, elements are %s", pc.name(s.Var), pc.c.Label(sym.Type), pc.c.Label(elem))
		}
	}
	pc.checkBlock(where, &s.Body)
}
