package ir

import (
	"encoding/binary"
	"math"
	"slices"

	"kestrel/internal/source"
	"kestrel/internal/symbols"
)

// Graph owns the expression and lvalue nodes of one compilation. Nodes are
// hash-consed: building a node structurally equal to an existing one returns
// the existing id, so identical subexpressions are shared and node identity
// is id equality.
type Graph struct {
	exprs   *Arena[Expr]
	lvalues *Arena[Lvalue]
	exprIdx map[string]ExprID
	lvalIdx map[string]LvalueID
	scratch []byte
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		exprs:   NewArena[Expr](64),
		lvalues: NewArena[Lvalue](16),
		exprIdx: make(map[string]ExprID, 64),
		lvalIdx: make(map[string]LvalueID, 16),
	}
}

// Expr returns a copy of the node. The Args slice is shared with the graph
// and must not be modified.
func (g *Graph) Expr(id ExprID) (Expr, bool) {
	e := g.exprs.Get(uint32(id))
	if e == nil {
		return Expr{}, false
	}
	return *e, true
}

// Lvalue returns a copy of the place node.
func (g *Graph) Lvalue(id LvalueID) (Lvalue, bool) {
	lv := g.lvalues.Get(uint32(id))
	if lv == nil {
		return Lvalue{}, false
	}
	return *lv, true
}

// ExprCount reports the number of distinct expression nodes.
func (g *Graph) ExprCount() int {
	return g.exprs.Len()
}

// IntLit builds an integer literal; text is the source spelling.
func (g *Graph) IntLit(v int64, text string) ExprID {
	return g.intern(Expr{Kind: ExprIntLit, Int: v, Text: text})
}

// RealLit builds a real literal; text is the source spelling.
func (g *Graph) RealLit(v float64, text string) ExprID {
	return g.intern(Expr{Kind: ExprRealLit, Real: v, Text: text})
}

// BoolLit builds a boolean literal.
func (g *Graph) BoolLit(v bool) ExprID {
	return g.intern(Expr{Kind: ExprBoolLit, Bool: v})
}

// Load reads the value stored at lv.
func (g *Graph) Load(lv LvalueID) ExprID {
	return g.intern(Expr{Kind: ExprLoad, Lvalue: lv})
}

// Call invokes routine callee with args in declared order.
func (g *Graph) Call(callee symbols.SymbolID, args []ExprID) ExprID {
	return g.intern(Expr{Kind: ExprCall, Callee: callee, Args: slices.Clone(args)})
}

// Binary applies op to lhs and rhs.
func (g *Graph) Binary(op BinaryOp, lhs, rhs ExprID) ExprID {
	return g.intern(Expr{Kind: ExprBinary, Op: op, Lhs: lhs, Rhs: rhs})
}

// Unary applies op to operand.
func (g *Graph) Unary(op UnaryOp, operand ExprID) ExprID {
	return g.intern(Expr{Kind: ExprUnary, Unary: op, Lhs: operand})
}

// Convert wraps operand in the conversion node of the given kind.
func (g *Graph) Convert(kind ExprKind, operand ExprID) ExprID {
	if !kind.IsConversion() {
		panic("ir: Convert called with non-conversion kind " + kind.String())
	}
	return g.intern(Expr{Kind: kind, Lhs: operand})
}

// Ident builds a place naming a resolved variable.
func (g *Graph) Ident(sym symbols.SymbolID) LvalueID {
	return g.internLvalue(Lvalue{Kind: LvalueIdent, Sym: sym})
}

// Member builds a place naming a record field of base.
func (g *Graph) Member(base LvalueID, field source.StringID) LvalueID {
	return g.internLvalue(Lvalue{Kind: LvalueMember, Base: base, Field: field})
}

// Index builds a place naming an array element of base.
func (g *Graph) Index(base LvalueID, index ExprID) LvalueID {
	return g.internLvalue(Lvalue{Kind: LvalueIndex, Base: base, Index: index})
}

func (g *Graph) intern(e Expr) ExprID {
	key := g.exprKey(e)
	if id, ok := g.exprIdx[key]; ok {
		return id
	}
	id := ExprID(g.exprs.Allocate(e))
	g.exprIdx[key] = id
	return id
}

func (g *Graph) internLvalue(lv Lvalue) LvalueID {
	b := g.scratch[:0]
	b = append(b, byte(lv.Kind))
	b = binary.LittleEndian.AppendUint32(b, uint32(lv.Sym))
	b = binary.LittleEndian.AppendUint32(b, uint32(lv.Base))
	b = binary.LittleEndian.AppendUint32(b, uint32(lv.Field))
	b = binary.LittleEndian.AppendUint32(b, uint32(lv.Index))
	g.scratch = b
	key := string(b)
	if id, ok := g.lvalIdx[key]; ok {
		return id
	}
	id := LvalueID(g.lvalues.Allocate(lv))
	g.lvalIdx[key] = id
	return id
}

// exprKey encodes the structural identity of e. Literal text is left out and
// reals contribute their bit pattern, so 1.0 and 1.00 are one node while
// 0.0 and -0.0, or two NaNs with different payloads, stay distinct.
func (g *Graph) exprKey(e Expr) string {
	b := g.scratch[:0]
	b = append(b, byte(e.Kind))
	switch e.Kind {
	case ExprIntLit:
		b = binary.LittleEndian.AppendUint64(b, uint64(e.Int))
	case ExprRealLit:
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(e.Real))
	case ExprBoolLit:
		if e.Bool {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	case ExprLoad:
		b = binary.LittleEndian.AppendUint32(b, uint32(e.Lvalue))
	case ExprCall:
		b = binary.LittleEndian.AppendUint32(b, uint32(e.Callee))
		for _, a := range e.Args {
			b = binary.LittleEndian.AppendUint32(b, uint32(a))
		}
	case ExprBinary:
		b = append(b, byte(e.Op))
		b = binary.LittleEndian.AppendUint32(b, uint32(e.Lhs))
		b = binary.LittleEndian.AppendUint32(b, uint32(e.Rhs))
	case ExprUnary:
		b = append(b, byte(e.Unary))
		b = binary.LittleEndian.AppendUint32(b, uint32(e.Lhs))
	default:
		b = binary.LittleEndian.AppendUint32(b, uint32(e.Lhs))
	}
	g.scratch = b
	return string(b)
}
