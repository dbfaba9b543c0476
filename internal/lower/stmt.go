package lower

import (
	"fmt"

	"kestrel/internal/bytecode"
	"kestrel/internal/ir"
)

func (fl *funcLowerer) block(b *ir.Block) error {
	for _, item := range b.Items {
		var err error
		if item.Decl != nil {
			err = fl.decl(item.Decl)
		} else {
			err = fl.stmt(item.Stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (fl *funcLowerer) decl(d *ir.LocalDecl) error {
	loc, err := fl.location(d.Sym)
	if err != nil {
		return err
	}
	if d.Init.IsValid() {
		err = fl.expr(d.Init)
	} else {
		err = fl.zeroValue(fl.symbolType(d.Sym))
	}
	if err != nil {
		return err
	}
	fl.emit(bytecode.Store(loc))
	return nil
}

func (fl *funcLowerer) stmt(s *ir.Stmt) error {
	switch s.Kind {
	case ir.StmtAssign:
		return fl.assign(s)
	case ir.StmtWhile:
		return fl.while(s)
	case ir.StmtIf:
		return fl.ifStmt(s)
	case ir.StmtFor:
		if s.To.IsValid() {
			return fl.forRange(s)
		}
		return fl.forEach(s)
	case ir.StmtPrint:
		if err := fl.expr(s.Value); err != nil {
			return err
		}
		id, ok := fl.rtti.Lookup(fl.exprType(s.Value))
		if !ok {
			return fmt.Errorf("print operand has no runtime type")
		}
		fl.emit(bytecode.Print(uint32(id)))
	case ir.StmtReturn:
		if err := fl.expr(s.Value); err != nil {
			return err
		}
		fl.emit(bytecode.Ret())
	case ir.StmtEval:
		if err := fl.expr(s.Value); err != nil {
			return err
		}
		fl.emit(bytecode.Drop())
	default:
		return fmt.Errorf("cannot lower %s statement", s.Kind)
	}
	return nil
}

func (fl *funcLowerer) while(s *ir.Stmt) error {
	start, end := fl.newLabel(), fl.newLabel()
	fl.emit(bytecode.Label(start))
	if err := fl.expr(s.Cond); err != nil {
		return err
	}
	fl.emit(bytecode.JumpZero(end))
	if err := fl.block(&s.Body); err != nil {
		return err
	}
	fl.emit(bytecode.Jump(start), bytecode.Label(end))
	return nil
}

func (fl *funcLowerer) ifStmt(s *ir.Stmt) error {
	if err := fl.expr(s.Cond); err != nil {
		return err
	}
	elseLabel := fl.newLabel()
	fl.emit(bytecode.JumpZero(elseLabel))
	if err := fl.block(&s.Body); err != nil {
		return err
	}
	if s.Else == nil {
		fl.emit(bytecode.Label(elseLabel))
		return nil
	}
	end := fl.newLabel()
	fl.emit(bytecode.Jump(end), bytecode.Label(elseLabel))
	if err := fl.block(s.Else); err != nil {
		return err
	}
	fl.emit(bytecode.Label(end))
	return nil
}

// increment steps the integer at loc by one in place.
func (fl *funcLowerer) increment(loc bytecode.Location, op bytecode.BinaryOperator) {
	fl.emit(
		bytecode.AddressOf(loc),
		bytecode.Dup(),
		bytecode.LoadAddress(),
		bytecode.IntConst(1),
		bytecode.BinOp(op),
		bytecode.StoreAddress(),
	)
}

// forRange walks the inclusive range [From, To], downwards when reversed.
// From is evaluated before To in both directions, each once; the far end is
// kept in a hidden local. The exit test runs before the step so a bound at
// the edge of the Int range never overflows the counter.
func (fl *funcLowerer) forRange(s *ir.Stmt) error {
	v, err := fl.location(s.Var)
	if err != nil {
		return err
	}
	bound := fl.temp()
	start, stop := v, bound
	enter, more, step := bytecode.IntLe, bytecode.IntLt, bytecode.IntAdd
	if s.Reverse {
		start, stop = bound, v
		enter, more, step = bytecode.IntGe, bytecode.IntGt, bytecode.IntSub
	}
	if err := fl.expr(s.From); err != nil {
		return err
	}
	fl.emit(bytecode.Store(start))
	if err := fl.expr(s.To); err != nil {
		return err
	}
	fl.emit(bytecode.Store(stop))

	top, end := fl.newLabel(), fl.newLabel()
	fl.emit(
		bytecode.Load(v),
		bytecode.Load(bound),
		bytecode.BinOp(enter),
		bytecode.JumpZero(end),
		bytecode.Label(top),
	)
	if err := fl.block(&s.Body); err != nil {
		return err
	}
	fl.emit(
		bytecode.Load(v),
		bytecode.Load(bound),
		bytecode.BinOp(more),
		bytecode.JumpZero(end),
	)
	fl.increment(v, step)
	fl.emit(bytecode.Jump(top), bytecode.Label(end))
	return nil
}

// forEach binds the loop variable to each element of an array evaluated
// once into a hidden local.
func (fl *funcLowerer) forEach(s *ir.Stmt) error {
	v, err := fl.location(s.Var)
	if err != nil {
		return err
	}
	arr, idx := fl.temp(), fl.temp()
	if err := fl.expr(s.From); err != nil {
		return err
	}
	fl.emit(bytecode.Store(arr), bytecode.IntConst(0), bytecode.Store(idx))

	cond, end := fl.newLabel(), fl.newLabel()
	fl.emit(
		bytecode.Label(cond),
		bytecode.Load(idx),
		bytecode.Load(arr),
		bytecode.ArraySize(),
		bytecode.BinOp(bytecode.IntLt),
		bytecode.JumpZero(end),
		bytecode.Load(arr),
		bytecode.Load(idx),
		bytecode.GetIndex(),
		bytecode.Store(v),
	)
	if err := fl.block(&s.Body); err != nil {
		return err
	}
	fl.increment(idx, bytecode.IntAdd)
	fl.emit(bytecode.Jump(cond), bytecode.Label(end))
	return nil
}
