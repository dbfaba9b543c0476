package sema

import "kestrel/internal/ir"

// Terminates reports whether no path through b falls off its end. A while
// loop never falls through only when its condition is the literal true.
func Terminates(g *ir.Graph, b *ir.Block) bool {
	for _, item := range b.Items {
		if item.Stmt != nil && stmtTerminates(g, item.Stmt) {
			return true
		}
	}
	return false
}

func stmtTerminates(g *ir.Graph, s *ir.Stmt) bool {
	switch s.Kind {
	case ir.StmtReturn:
		return true
	case ir.StmtIf:
		return s.Else != nil && Terminates(g, &s.Body) && Terminates(g, s.Else)
	case ir.StmtWhile:
		e, ok := g.Expr(s.Cond)
		return ok && e.Kind == ir.ExprBoolLit && e.Bool
	default:
		return false
	}
}
