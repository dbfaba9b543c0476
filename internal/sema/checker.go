package sema

import (
	"fmt"

	"kestrel/internal/ir"
	"kestrel/internal/symbols"
	"kestrel/internal/types"
)

// Checker infers and validates types over one expression graph. Inferred
// types are alias-resolved and memoized per node, so shared subexpressions
// are analysed once.
type Checker struct {
	Graph   *ir.Graph
	Types   *types.Interner
	Symbols *symbols.Table

	exprTypes  map[ir.ExprID]types.TypeID
	placeTypes map[ir.LvalueID]types.TypeID
	// elaborated maps a node to its rebuilt form with argument conversions.
	elaborated map[ir.ExprID]ir.ExprID
	elabPlaces map[ir.LvalueID]ir.LvalueID
}

// NewChecker builds a checker. A nil symbol table is allowed; any load or
// call then fails inference.
func NewChecker(g *ir.Graph, in *types.Interner, syms *symbols.Table) *Checker {
	return &Checker{
		Graph:      g,
		Types:      in,
		Symbols:    syms,
		exprTypes:  make(map[ir.ExprID]types.TypeID, 64),
		placeTypes: make(map[ir.LvalueID]types.TypeID, 16),
		elaborated: make(map[ir.ExprID]ir.ExprID, 64),
		elabPlaces: make(map[ir.LvalueID]ir.LvalueID, 16),
	}
}

// TypeOf returns the memoized type of a node that has already been inferred.
func (c *Checker) TypeOf(id ir.ExprID) (types.TypeID, bool) {
	t, ok := c.exprTypes[id]
	return t, ok
}

// PlaceTypeOf returns the memoized type of an lvalue that has been inferred.
func (c *Checker) PlaceTypeOf(id ir.LvalueID) (types.TypeID, bool) {
	t, ok := c.placeTypes[id]
	return t, ok
}

// Label renders a type for messages.
func (c *Checker) Label(id types.TypeID) string {
	return types.Label(c.Types, id)
}

// Infer returns the canonical type of the node. Literals map to their
// primitive, conversions to their fixed target, loads and calls to the type
// bound in the symbol table, and operators to the type selected by their
// operand family.
func (c *Checker) Infer(id ir.ExprID) (types.TypeID, error) {
	if t, ok := c.exprTypes[id]; ok {
		return t, nil
	}
	t, err := c.infer(id)
	if err != nil {
		return types.NoTypeID, err
	}
	c.exprTypes[id] = t
	return t, nil
}

func (c *Checker) infer(id ir.ExprID) (types.TypeID, error) {
	e, ok := c.Graph.Expr(id)
	if !ok {
		return types.NoTypeID, inferErr(id, "unknown expression #%d", id)
	}
	b := c.Types.Builtins()
	switch e.Kind {
	case ir.ExprIntLit:
		return b.Int, nil
	case ir.ExprRealLit:
		return b.Real, nil
	case ir.ExprBoolLit:
		return b.Bool, nil
	case ir.ExprBoolToInt, ir.ExprRealToInt, ir.ExprIntToReal, ir.ExprIntToBool:
		return c.inferConversion(id, e)
	case ir.ExprLoad:
		t, err := c.PlaceType(e.Lvalue)
		if err != nil {
			return types.NoTypeID, withExpr(err, id)
		}
		return t, nil
	case ir.ExprCall:
		sym, err := c.routine(id, e.Callee)
		if err != nil {
			return types.NoTypeID, err
		}
		return c.resolve(id, sym.Signature.Result)
	case ir.ExprBinary:
		return c.inferBinary(id, e)
	case ir.ExprUnary:
		return c.inferUnary(id, e)
	default:
		return types.NoTypeID, inferErr(id, "invalid expression kind %s", e.Kind)
	}
}

func (c *Checker) inferBinary(id ir.ExprID, e ir.Expr) (types.TypeID, error) {
	rule, ok := binaryRules[e.Op]
	if !ok {
		return types.NoTypeID, inferErr(id, "unknown binary operator %s", e.Op)
	}
	lt, err := c.Infer(e.Lhs)
	if err != nil {
		return types.NoTypeID, err
	}
	rt, err := c.Infer(e.Rhs)
	if err != nil {
		return types.NoTypeID, err
	}
	if lt != rt {
		return types.NoTypeID, inferErr(id, "operator %s: mismatched operands %s and %s", e.Op, c.Label(lt), c.Label(rt))
	}
	if c.Types.KindOf(lt).Family()&rule.operands == 0 {
		return types.NoTypeID, inferErr(id, "operator %s is not defined for %s", e.Op, c.Label(lt))
	}
	if rule.result == resultBool {
		return c.Types.Builtins().Bool, nil
	}
	return lt, nil
}

// inferConversion requires the operand to have the conversion's source kind
// and returns its fixed target primitive.
func (c *Checker) inferConversion(id ir.ExprID, e ir.Expr) (types.TypeID, error) {
	from, to := conversionSignature(e.Kind)
	t, err := c.Infer(e.Operand())
	if err != nil {
		return types.NoTypeID, err
	}
	if c.Types.KindOf(t) != from {
		return types.NoTypeID, inferErr(id, "%s applied to %s, want %s", e.Kind, c.Label(t), from)
	}
	b := c.Types.Builtins()
	switch to {
	case types.KindInt:
		return b.Int, nil
	case types.KindReal:
		return b.Real, nil
	default:
		return b.Bool, nil
	}
}

func (c *Checker) inferUnary(id ir.ExprID, e ir.Expr) (types.TypeID, error) {
	family, ok := unaryRules[e.Unary]
	if !ok {
		return types.NoTypeID, inferErr(id, "unknown unary operator %s", e.Unary)
	}
	t, err := c.Infer(e.Operand())
	if err != nil {
		return types.NoTypeID, err
	}
	if c.Types.KindOf(t).Family()&family == 0 {
		return types.NoTypeID, inferErr(id, "operator %s is not defined for %s", e.Unary, c.Label(t))
	}
	return t, nil
}

// PlaceType returns the canonical type of the value stored at an lvalue.
func (c *Checker) PlaceType(id ir.LvalueID) (types.TypeID, error) {
	if t, ok := c.placeTypes[id]; ok {
		return t, nil
	}
	t, err := c.placeType(id)
	if err != nil {
		return types.NoTypeID, err
	}
	c.placeTypes[id] = t
	return t, nil
}

func (c *Checker) placeType(id ir.LvalueID) (types.TypeID, error) {
	lv, ok := c.Graph.Lvalue(id)
	if !ok {
		return types.NoTypeID, inferErr(ir.NoExprID, "unknown place #%d", id)
	}
	switch lv.Kind {
	case ir.LvalueIdent:
		if c.Symbols == nil {
			return types.NoTypeID, inferErr(ir.NoExprID, "no symbol table to resolve identifier")
		}
		sym, ok := c.Symbols.Symbol(lv.Sym)
		if !ok {
			return types.NoTypeID, inferErr(ir.NoExprID, "unresolved identifier #%d", lv.Sym)
		}
		if !sym.Kind.IsVariable() {
			return types.NoTypeID, inferErr(ir.NoExprID, "%s %q is not a variable", sym.Kind, c.Symbols.Name(lv.Sym))
		}
		return c.resolve(ir.NoExprID, sym.Type)
	case ir.LvalueMember:
		base, err := c.PlaceType(lv.Base)
		if err != nil {
			return types.NoTypeID, err
		}
		name := c.Types.Strings.MustLookup(lv.Field)
		if c.Types.KindOf(base) != types.KindRecord {
			return types.NoTypeID, inferErr(ir.NoExprID, "field %q of non-record %s", name, c.Label(base))
		}
		_, field, ok := c.Types.FieldIndex(base, lv.Field)
		if !ok {
			return types.NoTypeID, inferErr(ir.NoExprID, "%s has no field %q", c.Label(base), name)
		}
		return c.resolve(ir.NoExprID, field.Type)
	case ir.LvalueIndex:
		base, err := c.PlaceType(lv.Base)
		if err != nil {
			return types.NoTypeID, err
		}
		if c.Types.KindOf(base) != types.KindArray {
			return types.NoTypeID, inferErr(lv.Index, "indexing non-array %s", c.Label(base))
		}
		it, err := c.Infer(lv.Index)
		if err != nil {
			return types.NoTypeID, err
		}
		if it != c.Types.Builtins().Int {
			return types.NoTypeID, inferErr(lv.Index, "array index must be int, got %s", c.Label(it))
		}
		return c.resolve(ir.NoExprID, c.Types.MustLookup(base).Elem)
	default:
		return types.NoTypeID, inferErr(ir.NoExprID, "invalid place kind %d", lv.Kind)
	}
}

func (c *Checker) routine(id ir.ExprID, callee symbols.SymbolID) (symbols.Symbol, error) {
	if c.Symbols == nil {
		return symbols.Symbol{}, inferErr(id, "no symbol table to resolve call")
	}
	sym, ok := c.Symbols.Symbol(callee)
	if !ok {
		return symbols.Symbol{}, inferErr(id, "unresolved routine #%d", callee)
	}
	if sym.Kind != symbols.SymbolFunction || sym.Signature == nil {
		return symbols.Symbol{}, inferErr(id, "%s %q is not a routine", sym.Kind, c.Symbols.Name(callee))
	}
	return sym, nil
}

func (c *Checker) resolve(id ir.ExprID, t types.TypeID) (types.TypeID, error) {
	r, err := c.Types.Resolve(t)
	if err != nil {
		return types.NoTypeID, &TypeInferenceError{Expr: id, Reason: err.Error()}
	}
	return r, nil
}

// Same reports whether a and b denote one type after alias resolution.
func (c *Checker) Same(a, b types.TypeID) bool {
	ra, err := c.Types.Resolve(a)
	if err != nil {
		return false
	}
	rb, err := c.Types.Resolve(b)
	return err == nil && ra == rb
}

// Coerce wraps expr in the conversion node turning source into dest, or
// returns expr unchanged when both denote the same type. Every other pair is
// a TypeCoercionError. The type of a new node is inferred before it is
// returned.
func (c *Checker) Coerce(expr ir.ExprID, source, dest types.TypeID) (ir.ExprID, error) {
	if c.Same(source, dest) {
		return expr, nil
	}
	kind, ok := CoercionFor(c.Types.KindOf(source), c.Types.KindOf(dest))
	if !ok {
		return ir.NoExprID, &TypeCoercionError{
			Reason: fmt.Sprintf("no conversion from %s to %s", c.Label(source), c.Label(dest)),
		}
	}
	out := c.Graph.Convert(kind, expr)
	if _, err := c.Infer(out); err != nil {
		return ir.NoExprID, err
	}
	return out, nil
}

func withExpr(err error, id ir.ExprID) error {
	if ie, ok := err.(*TypeInferenceError); ok && ie.Expr == ir.NoExprID {
		return &TypeInferenceError{Expr: id, Reason: ie.Reason}
	}
	return err
}
