package astio

import (
	"gopkg.in/yaml.v3"

	"kestrel/internal/ir"
	"kestrel/internal/symbols"
	"kestrel/internal/types"
)

// block decodes a statement list in scope. Declarations are visible to the
// statements after them.
func (d *decoder) block(scope *symbols.Scope, n *yaml.Node) (ir.Block, error) {
	var b ir.Block
	items, err := d.sequence(n, "block")
	if err != nil {
		return b, err
	}
	for _, item := range items {
		tag, body, err := d.single(item, "statement")
		if err != nil {
			return b, err
		}
		if tag == "decl" {
			if err := d.decl(scope, &b, body); err != nil {
				return b, err
			}
			continue
		}
		s, err := d.stmt(scope, tag, item, body)
		if err != nil {
			return b, err
		}
		b.Append(s)
	}
	return b, nil
}

func (d *decoder) decl(scope *symbols.Scope, b *ir.Block, n *yaml.Node) error {
	f, err := d.mapping(n, "declaration")
	if err != nil {
		return err
	}
	name, typ, err := d.nameAndType(f, "declaration")
	if err != nil {
		return err
	}
	// The initializer cannot see the variable it initializes.
	init := ir.NoExprID
	if in, ok := f.get("init"); ok {
		if init, err = d.expr(scope, in); err != nil {
			return err
		}
	}
	if err := d.done(f, "declaration"); err != nil {
		return err
	}
	sym, err := scope.DeclareLocal(name, typ)
	if err != nil {
		return d.wrap(n, err)
	}
	b.Declare(sym, init)
	return nil
}

func (d *decoder) stmt(scope *symbols.Scope, tag string, item, body *yaml.Node) (*ir.Stmt, error) {
	switch tag {
	case "assign":
		return d.assign(scope, body)
	case "while":
		f, err := d.mapping(body, "while")
		if err != nil {
			return nil, err
		}
		cond, err := d.requireExpr(scope, f, "cond", "while")
		if err != nil {
			return nil, err
		}
		loop, err := d.nestedBlock(scope, f, "body")
		if err != nil {
			return nil, err
		}
		return ir.While(cond, loop), d.done(f, "while")
	case "if":
		return d.ifStmt(scope, body)
	case "for":
		return d.forStmt(scope, body)
	case "print":
		v, err := d.expr(scope, body)
		return ir.Print(v), err
	case "return":
		v, err := d.expr(scope, body)
		return ir.Return(v), err
	case "eval":
		v, err := d.expr(scope, body)
		return ir.Eval(v), err
	default:
		return nil, d.errorf(item, ErrUnknownNode, "unknown statement %q", tag)
	}
}

func (d *decoder) requireExpr(scope *symbols.Scope, f *fields, key, what string) (ir.ExprID, error) {
	n, err := d.require(f, key, what)
	if err != nil {
		return ir.NoExprID, err
	}
	return d.expr(scope, n)
}

func (d *decoder) nestedBlock(scope *symbols.Scope, f *fields, key string) (ir.Block, error) {
	n, _ := f.get(key)
	return d.block(scope.Nested(), n)
}

func (d *decoder) assign(scope *symbols.Scope, n *yaml.Node) (*ir.Stmt, error) {
	f, err := d.mapping(n, "assignment")
	if err != nil {
		return nil, err
	}
	tn, err := d.require(f, "target", "assignment")
	if err != nil {
		return nil, err
	}
	target, err := d.place(scope, tn)
	if err != nil {
		return nil, err
	}
	value, err := d.requireExpr(scope, f, "value", "assignment")
	if err != nil {
		return nil, err
	}
	return ir.Assign(target, value), d.done(f, "assignment")
}

func (d *decoder) ifStmt(scope *symbols.Scope, n *yaml.Node) (*ir.Stmt, error) {
	f, err := d.mapping(n, "if")
	if err != nil {
		return nil, err
	}
	cond, err := d.requireExpr(scope, f, "cond", "if")
	if err != nil {
		return nil, err
	}
	then, err := d.nestedBlock(scope, f, "then")
	if err != nil {
		return nil, err
	}
	var els *ir.Block
	if _, ok := f.keys["else"]; ok {
		b, err := d.nestedBlock(scope, f, "else")
		if err != nil {
			return nil, err
		}
		els = &b
	}
	return ir.If(cond, then, els), d.done(f, "if")
}

// forStmt decodes {var, from, to, reverse?, body} ranges and {var, in, body}
// element loops. The loop variable is declared in the loop's own scope: Int
// for ranges, the element type for element loops.
func (d *decoder) forStmt(scope *symbols.Scope, n *yaml.Node) (*ir.Stmt, error) {
	f, err := d.mapping(n, "for")
	if err != nil {
		return nil, err
	}
	vn, err := d.require(f, "var", "for")
	if err != nil {
		return nil, err
	}
	name, err := d.scalar(vn, "loop variable")
	if err != nil {
		return nil, err
	}
	inner := scope.Nested()
	var s *ir.Stmt
	if in, each := f.get("in"); each {
		array, err := d.expr(scope, in)
		if err != nil {
			return nil, err
		}
		elem, err := d.elemType(in, array)
		if err != nil {
			return nil, err
		}
		v, err := inner.DeclareLocal(name, elem)
		if err != nil {
			return nil, d.wrap(vn, err)
		}
		body, err := d.nestedBlock(inner, f, "body")
		if err != nil {
			return nil, err
		}
		s = ir.ForEach(v, array, body)
	} else {
		from, err := d.requireExpr(scope, f, "from", "for")
		if err != nil {
			return nil, err
		}
		to, err := d.requireExpr(scope, f, "to", "for")
		if err != nil {
			return nil, err
		}
		reverse := false
		if rn, ok := f.get("reverse"); ok {
			if reverse, err = d.boolean(rn, "reverse"); err != nil {
				return nil, err
			}
		}
		v, err := inner.DeclareLocal(name, d.prog.Types.Builtins().Int)
		if err != nil {
			return nil, d.wrap(vn, err)
		}
		body, err := d.nestedBlock(inner, f, "body")
		if err != nil {
			return nil, err
		}
		s = ir.ForRange(v, from, to, reverse, body)
	}
	return s, d.done(f, "for")
}

func (d *decoder) elemType(n *yaml.Node, array ir.ExprID) (types.TypeID, error) {
	t, err := d.check.Infer(array)
	if err != nil {
		return types.NoTypeID, d.errorf(n, ErrMalformed, "cannot type loop sequence: %v", err)
	}
	if d.prog.Types.KindOf(t) != types.KindArray {
		return types.NoTypeID, d.errorf(n, ErrMalformed, "cannot iterate over %s", types.Label(d.prog.Types, t))
	}
	return d.prog.Types.MustLookup(t).Elem, nil
}
