package sema

import (
	"kestrel/internal/ir"
	"kestrel/internal/types"
)

// Typecheck validates every node reachable from root and returns all errors
// found. Each shared node is visited once; a node whose operand already failed
// is not reported again.
func (c *Checker) Typecheck(root ir.ExprID) []error {
	v := &typecheckVisitor{
		c:      c,
		exprs:  make(map[ir.ExprID]bool),
		places: make(map[ir.LvalueID]bool),
	}
	v.expr(root)
	return v.errs
}

type typecheckVisitor struct {
	c    *Checker
	errs []error
	// exprs and places record whether a visited node is well-typed.
	exprs  map[ir.ExprID]bool
	places map[ir.LvalueID]bool
}

func (v *typecheckVisitor) fail(err error) bool {
	v.errs = append(v.errs, err)
	return false
}

func (v *typecheckVisitor) expr(id ir.ExprID) bool {
	if ok, seen := v.exprs[id]; seen {
		return ok
	}
	ok := v.checkExpr(id)
	v.exprs[id] = ok
	return ok
}

func (v *typecheckVisitor) checkExpr(id ir.ExprID) bool {
	e, found := v.c.Graph.Expr(id)
	if !found {
		return v.fail(inferErr(id, "unknown expression #%d", id))
	}
	ok := true
	switch e.Kind {
	case ir.ExprBinary:
		ok = v.expr(e.Lhs)
		ok = v.expr(e.Rhs) && ok
	case ir.ExprUnary, ir.ExprBoolToInt, ir.ExprRealToInt, ir.ExprIntToReal, ir.ExprIntToBool:
		ok = v.expr(e.Operand())
	case ir.ExprCall:
		for _, a := range e.Args {
			ok = v.expr(a) && ok
		}
	case ir.ExprLoad:
		ok = v.place(e.Lvalue)
	}
	if !ok {
		return false
	}
	if _, err := v.c.Infer(id); err != nil {
		return v.fail(err)
	}
	if e.Kind == ir.ExprCall {
		return v.checkCallArgs(id, e)
	}
	return true
}

// checkCallArgs requires the arity and every argument type to match the
// callee signature. Elaborate inserts the legal conversions beforehand.
func (v *typecheckVisitor) checkCallArgs(id ir.ExprID, e ir.Expr) bool {
	sym, err := v.c.routine(id, e.Callee)
	if err != nil {
		return v.fail(err)
	}
	name := v.c.Symbols.Name(e.Callee)
	params := sym.Signature.Params
	if len(params) != len(e.Args) {
		return v.fail(inferErr(id, "%s expects %d arguments, got %d", name, len(params), len(e.Args)))
	}
	ok := true
	for i, a := range e.Args {
		at, _ := v.c.TypeOf(a)
		if !v.c.Same(at, params[i]) {
			ok = v.fail(inferErr(a, "argument %d of %s: expected %s, got %s", i+1, name, v.c.Label(params[i]), v.c.Label(at)))
		}
	}
	return ok
}

func (v *typecheckVisitor) place(id ir.LvalueID) bool {
	if ok, seen := v.places[id]; seen {
		return ok
	}
	ok := v.checkPlace(id)
	v.places[id] = ok
	return ok
}

func (v *typecheckVisitor) checkPlace(id ir.LvalueID) bool {
	lv, found := v.c.Graph.Lvalue(id)
	if !found {
		return v.fail(inferErr(ir.NoExprID, "unknown place #%d", id))
	}
	ok := true
	switch lv.Kind {
	case ir.LvalueMember:
		ok = v.place(lv.Base)
	case ir.LvalueIndex:
		ok = v.place(lv.Base)
		ok = v.expr(lv.Index) && ok
	}
	if !ok {
		return false
	}
	if _, err := v.c.PlaceType(id); err != nil {
		return v.fail(err)
	}
	return true
}

// CheckPlace validates an lvalue used as an assignment target.
func (c *Checker) CheckPlace(id ir.LvalueID) (types.TypeID, []error) {
	v := &typecheckVisitor{
		c:      c,
		exprs:  make(map[ir.ExprID]bool),
		places: make(map[ir.LvalueID]bool),
	}
	if !v.place(id) {
		return types.NoTypeID, v.errs
	}
	t, _ := c.PlaceTypeOf(id)
	return t, nil
}
