package astio

import (
	"gopkg.in/yaml.v3"

	"kestrel/internal/ir"
	"kestrel/internal/symbols"
)

var conversions = map[string]ir.ExprKind{
	"bool_to_int": ir.ExprBoolToInt,
	"real_to_int": ir.ExprRealToInt,
	"int_to_real": ir.ExprIntToReal,
	"int_to_bool": ir.ExprIntToBool,
}

// expr decodes an expression. Plain scalars are shorthand: integers, floats
// and booleans are literals, any other word loads the named variable.
func (d *decoder) expr(scope *symbols.Scope, n *yaml.Node) (ir.ExprID, error) {
	g := d.prog.Graph
	n = deref(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		switch n.Tag {
		case "!!int":
			return d.intLit(n)
		case "!!float":
			return d.realLit(n)
		case "!!bool":
			v, err := d.boolean(n, "literal")
			return g.BoolLit(v), err
		case "!!str":
			sym, err := d.lookup(scope, n, "variable")
			if err != nil {
				return ir.NoExprID, err
			}
			return g.Load(g.Ident(sym)), nil
		}
	}
	tag, body, err := d.single(n, "expression")
	if err != nil {
		return ir.NoExprID, err
	}
	switch tag {
	case "int":
		return d.intLit(body)
	case "real":
		return d.realLit(body)
	case "bool":
		v, err := d.boolean(body, "bool literal")
		return g.BoolLit(v), err
	case "var", "field", "index":
		lv, err := d.place(scope, n)
		if err != nil {
			return ir.NoExprID, err
		}
		return g.Load(lv), nil
	case "call":
		return d.call(scope, body)
	case "binary":
		return d.binary(scope, body)
	case "unary":
		return d.unary(scope, body)
	}
	if kind, ok := conversions[tag]; ok {
		operand, err := d.expr(scope, body)
		if err != nil {
			return ir.NoExprID, err
		}
		return g.Convert(kind, operand), nil
	}
	return ir.NoExprID, d.errorf(n, ErrUnknownNode, "unknown expression %q", tag)
}

func (d *decoder) intLit(n *yaml.Node) (ir.ExprID, error) {
	var v int64
	n = deref(n)
	if n == nil || n.Decode(&v) != nil {
		return ir.NoExprID, d.errorf(n, ErrBadLiteral, "invalid int literal")
	}
	return d.prog.Graph.IntLit(v, n.Value), nil
}

func (d *decoder) realLit(n *yaml.Node) (ir.ExprID, error) {
	var v float64
	n = deref(n)
	if n == nil || n.Decode(&v) != nil {
		return ir.NoExprID, d.errorf(n, ErrBadLiteral, "invalid real literal")
	}
	return d.prog.Graph.RealLit(v, n.Value), nil
}

// place decodes {var: name}, {field: {base, name}} or {index: {base, at}}.
func (d *decoder) place(scope *symbols.Scope, n *yaml.Node) (ir.LvalueID, error) {
	g := d.prog.Graph
	n = deref(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		sym, err := d.lookup(scope, n, "variable")
		if err != nil {
			return ir.NoLvalueID, err
		}
		return g.Ident(sym), nil
	}
	tag, body, err := d.single(n, "place")
	if err != nil {
		return ir.NoLvalueID, err
	}
	switch tag {
	case "var":
		sym, err := d.lookup(scope, body, "variable")
		if err != nil {
			return ir.NoLvalueID, err
		}
		return g.Ident(sym), nil
	case "field":
		f, err := d.mapping(body, "field access")
		if err != nil {
			return ir.NoLvalueID, err
		}
		bn, err := d.require(f, "base", "field access")
		if err != nil {
			return ir.NoLvalueID, err
		}
		base, err := d.place(scope, bn)
		if err != nil {
			return ir.NoLvalueID, err
		}
		nn, err := d.require(f, "name", "field access")
		if err != nil {
			return ir.NoLvalueID, err
		}
		name, err := d.scalar(nn, "field name")
		if err != nil {
			return ir.NoLvalueID, err
		}
		if err := d.done(f, "field access"); err != nil {
			return ir.NoLvalueID, err
		}
		return g.Member(base, d.prog.Strings.Intern(name)), nil
	case "index":
		f, err := d.mapping(body, "index access")
		if err != nil {
			return ir.NoLvalueID, err
		}
		bn, err := d.require(f, "base", "index access")
		if err != nil {
			return ir.NoLvalueID, err
		}
		base, err := d.place(scope, bn)
		if err != nil {
			return ir.NoLvalueID, err
		}
		an, err := d.require(f, "at", "index access")
		if err != nil {
			return ir.NoLvalueID, err
		}
		at, err := d.expr(scope, an)
		if err != nil {
			return ir.NoLvalueID, err
		}
		if err := d.done(f, "index access"); err != nil {
			return ir.NoLvalueID, err
		}
		return g.Index(base, at), nil
	default:
		return ir.NoLvalueID, d.errorf(n, ErrUnknownNode, "%q is not assignable", tag)
	}
}

func (d *decoder) call(scope *symbols.Scope, n *yaml.Node) (ir.ExprID, error) {
	f, err := d.mapping(n, "call")
	if err != nil {
		return ir.NoExprID, err
	}
	fn, err := d.require(f, "fn", "call")
	if err != nil {
		return ir.NoExprID, err
	}
	callee, err := d.lookup(scope, fn, "routine")
	if err != nil {
		return ir.NoExprID, err
	}
	var args []ir.ExprID
	if an, ok := f.get("args"); ok {
		items, err := d.sequence(an, "call arguments")
		if err != nil {
			return ir.NoExprID, err
		}
		for _, item := range items {
			a, err := d.expr(scope, item)
			if err != nil {
				return ir.NoExprID, err
			}
			args = append(args, a)
		}
	}
	if err := d.done(f, "call"); err != nil {
		return ir.NoExprID, err
	}
	return d.prog.Graph.Call(callee, args), nil
}

func (d *decoder) binary(scope *symbols.Scope, n *yaml.Node) (ir.ExprID, error) {
	f, err := d.mapping(n, "binary expression")
	if err != nil {
		return ir.NoExprID, err
	}
	on, err := d.require(f, "op", "binary expression")
	if err != nil {
		return ir.NoExprID, err
	}
	spelling, err := d.scalar(on, "operator")
	if err != nil {
		return ir.NoExprID, err
	}
	op, ok := ir.ParseBinaryOp(spelling)
	if !ok {
		return ir.NoExprID, d.errorf(on, ErrUnknownNode, "unknown binary operator %q", spelling)
	}
	operands := [2]ir.ExprID{}
	for i, key := range []string{"lhs", "rhs"} {
		en, err := d.require(f, key, "binary expression")
		if err != nil {
			return ir.NoExprID, err
		}
		if operands[i], err = d.expr(scope, en); err != nil {
			return ir.NoExprID, err
		}
	}
	if err := d.done(f, "binary expression"); err != nil {
		return ir.NoExprID, err
	}
	return d.prog.Graph.Binary(op, operands[0], operands[1]), nil
}

func (d *decoder) unary(scope *symbols.Scope, n *yaml.Node) (ir.ExprID, error) {
	f, err := d.mapping(n, "unary expression")
	if err != nil {
		return ir.NoExprID, err
	}
	on, err := d.require(f, "op", "unary expression")
	if err != nil {
		return ir.NoExprID, err
	}
	spelling, err := d.scalar(on, "operator")
	if err != nil {
		return ir.NoExprID, err
	}
	var op ir.UnaryOp
	switch spelling {
	case "-", "neg":
		op = ir.OpNeg
	case "not":
		op = ir.OpNot
	default:
		return ir.NoExprID, d.errorf(on, ErrUnknownNode, "unknown unary operator %q", spelling)
	}
	en, err := d.require(f, "operand", "unary expression")
	if err != nil {
		return ir.NoExprID, err
	}
	operand, err := d.expr(scope, en)
	if err != nil {
		return ir.NoExprID, err
	}
	if err := d.done(f, "unary expression"); err != nil {
		return ir.NoExprID, err
	}
	return d.prog.Graph.Unary(op, operand), nil
}
