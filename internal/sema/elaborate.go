package sema

import (
	"slices"

	"kestrel/internal/ir"
)

// Elaborate returns root with every call argument converted to its
// parameter type where a legal coercion exists. Nodes are never modified: a
// node whose operands change is rebuilt, and the graph shares the rebuilt
// nodes between users. Arguments that cannot be converted are left as they
// are for Typecheck to report.
func (c *Checker) Elaborate(root ir.ExprID) ir.ExprID {
	if out, ok := c.elaborated[root]; ok {
		return out
	}
	out := c.elaborate(root)
	c.elaborated[root] = out
	c.elaborated[out] = out
	return out
}

// ElaboratePlace rebuilds an lvalue whose index expressions need argument
// conversions.
func (c *Checker) ElaboratePlace(id ir.LvalueID) ir.LvalueID {
	if out, ok := c.elabPlaces[id]; ok {
		return out
	}
	out := id
	if lv, found := c.Graph.Lvalue(id); found {
		switch lv.Kind {
		case ir.LvalueMember:
			if base := c.ElaboratePlace(lv.Base); base != lv.Base {
				out = c.Graph.Member(base, lv.Field)
			}
		case ir.LvalueIndex:
			base, index := c.ElaboratePlace(lv.Base), c.Elaborate(lv.Index)
			if base != lv.Base || index != lv.Index {
				out = c.Graph.Index(base, index)
			}
		}
	}
	c.elabPlaces[id] = out
	c.elabPlaces[out] = out
	return out
}

func (c *Checker) elaborate(id ir.ExprID) ir.ExprID {
	e, found := c.Graph.Expr(id)
	if !found {
		return id
	}
	switch e.Kind {
	case ir.ExprBinary:
		lhs, rhs := c.Elaborate(e.Lhs), c.Elaborate(e.Rhs)
		if lhs != e.Lhs || rhs != e.Rhs {
			return c.Graph.Binary(e.Op, lhs, rhs)
		}
	case ir.ExprUnary:
		if x := c.Elaborate(e.Lhs); x != e.Lhs {
			return c.Graph.Unary(e.Unary, x)
		}
	case ir.ExprBoolToInt, ir.ExprRealToInt, ir.ExprIntToReal, ir.ExprIntToBool:
		if x := c.Elaborate(e.Lhs); x != e.Lhs {
			return c.Graph.Convert(e.Kind, x)
		}
	case ir.ExprLoad:
		if lv := c.ElaboratePlace(e.Lvalue); lv != e.Lvalue {
			return c.Graph.Load(lv)
		}
	case ir.ExprCall:
		return c.elaborateCall(id, e)
	}
	return id
}

func (c *Checker) elaborateCall(id ir.ExprID, e ir.Expr) ir.ExprID {
	args := slices.Clone(e.Args)
	for i, a := range args {
		args[i] = c.Elaborate(a)
	}
	sym, err := c.routine(id, e.Callee)
	if err == nil && len(sym.Signature.Params) == len(args) {
		for i, a := range args {
			at, err := c.Infer(a)
			if err != nil {
				continue
			}
			if conv, err := c.Coerce(a, at, sym.Signature.Params[i]); err == nil {
				args[i] = conv
			}
		}
	}
	if slices.Equal(args, e.Args) {
		return id
	}
	return c.Graph.Call(e.Callee, args)
}
