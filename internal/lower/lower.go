package lower

import (
	"fmt"

	"fortio.org/safecast"

	"kestrel/internal/bytecode"
	"kestrel/internal/ir"
	"kestrel/internal/layout"
	"kestrel/internal/module"
	"kestrel/internal/rtti"
	"kestrel/internal/sema"
	"kestrel/internal/symbols"
	"kestrel/internal/types"
)

// InitRoutine is the name of the synthetic routine that initializes globals.
// Hosts call it before any other routine.
const InitRoutine = sema.ReservedPrefix + "init"

// lowerer holds the module-wide state of one lowering run.
type lowerer struct {
	prog   *ir.Program
	check  *sema.Checker
	layout *layout.LayoutEngine
	rtti   *rtti.Builder

	code      []bytecode.Instr
	nextLabel bytecode.LabelID
	funcLabel map[symbols.SymbolID]bytecode.LabelID
	functions module.FunctionTable
}

// Module lowers a checked program into a module: one flat code stream with a
// labelled routine per function, the RTTI table and the function table.
func Module(p *ir.Program, res *sema.Result) (*module.Module, error) {
	if p == nil || res == nil || res.Checker == nil || res.Layout == nil {
		return nil, fmt.Errorf("lower: program has not been checked")
	}
	l := &lowerer{
		prog:      p,
		check:     res.Checker,
		layout:    res.Layout,
		rtti:      rtti.NewBuilder(p.Types),
		funcLabel: make(map[symbols.SymbolID]bytecode.LabelID, len(p.Funcs)),
	}
	if err := l.assignTypeIDs(); err != nil {
		return nil, err
	}
	table := l.rtti.Freeze()

	needsInit := l.needsInit()
	if needsInit {
		l.newLabel()
	}
	for _, fn := range p.Funcs {
		l.funcLabel[fn.Sym] = l.newLabel()
	}

	if needsInit {
		if err := l.lowerInit(); err != nil {
			return nil, err
		}
	}
	for i := range p.Funcs {
		if err := l.lowerFunc(&p.Funcs[i]); err != nil {
			return nil, err
		}
	}
	return &module.Module{
		Code:        l.code,
		Functions:   l.functions,
		RTTI:        *table,
		GlobalCount: p.Symbols.GlobalCount(),
	}, nil
}

func (l *lowerer) newLabel() bytecode.LabelID {
	id := l.nextLabel
	l.nextLabel++
	return id
}

func (l *lowerer) emit(in ...bytecode.Instr) {
	l.code = append(l.code, in...)
}

// assignTypeIDs fixes the RTTI order: type declarations, globals, routine
// signatures (parameters then result), then routine bodies.
func (l *lowerer) assignTypeIDs() error {
	for _, td := range l.prog.TypeDecls {
		if _, err := l.rtti.Assign(td.Alias); err != nil {
			return fmt.Errorf("lower: type %s: %w", l.prog.Strings.MustLookup(td.Name), err)
		}
	}
	for _, g := range l.prog.Globals {
		if _, err := l.rtti.Assign(l.symbolType(g.Sym)); err != nil {
			return fmt.Errorf("lower: global %s: %w", l.prog.Symbols.Name(g.Sym), err)
		}
	}
	for _, fn := range l.prog.Funcs {
		sig := l.signature(fn.Sym)
		for _, p := range sig.Params {
			if _, err := l.rtti.Assign(p); err != nil {
				return err
			}
		}
		if _, err := l.rtti.Assign(sig.Result); err != nil {
			return err
		}
	}
	for i := range l.prog.Funcs {
		if err := l.assignBlock(&l.prog.Funcs[i].Body); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) assignBlock(b *ir.Block) error {
	for _, item := range b.Items {
		if item.Decl != nil {
			if _, err := l.rtti.Assign(l.symbolType(item.Decl.Sym)); err != nil {
				return err
			}
			continue
		}
		s := item.Stmt
		switch s.Kind {
		case ir.StmtPrint:
			if _, err := l.rtti.Assign(l.exprType(s.Value)); err != nil {
				return err
			}
		case ir.StmtWhile, ir.StmtIf, ir.StmtFor:
			if err := l.assignBlock(&s.Body); err != nil {
				return err
			}
			if s.Else != nil {
				if err := l.assignBlock(s.Else); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (l *lowerer) symbolType(sym symbols.SymbolID) types.TypeID {
	s, _ := l.prog.Symbols.Symbol(sym)
	return s.Type
}

func (l *lowerer) signature(fn symbols.SymbolID) symbols.Signature {
	s, _ := l.prog.Symbols.Symbol(fn)
	if s.Signature == nil {
		return symbols.Signature{Result: types.NoTypeID}
	}
	return *s.Signature
}

// exprType returns the checked type of a node.
func (l *lowerer) exprType(id ir.ExprID) types.TypeID {
	if t, ok := l.check.TypeOf(id); ok {
		return t
	}
	t, err := l.check.Infer(id)
	if err != nil {
		return types.NoTypeID
	}
	return t
}

func (l *lowerer) kindOf(t types.TypeID) types.Kind {
	return l.prog.Types.KindOf(t)
}

// needsInit reports whether any global has an initializer or a composite
// type that must be allocated before use.
func (l *lowerer) needsInit() bool {
	for _, g := range l.prog.Globals {
		if g.Init.IsValid() || l.kindOf(l.symbolType(g.Sym)).IsReference() {
			return true
		}
	}
	return false
}

func (l *lowerer) lowerInit() error {
	label := bytecode.LabelID(0)
	l.emit(bytecode.Label(label), bytecode.Enter(0, 0))
	fl := &funcLowerer{lowerer: l}
	for _, g := range l.prog.Globals {
		sym, _ := l.prog.Symbols.Symbol(g.Sym)
		switch {
		case g.Init.IsValid():
			if err := fl.expr(g.Init); err != nil {
				return fmt.Errorf("lower: global %s: %w", l.prog.Symbols.Name(g.Sym), err)
			}
		case sym.Type != types.NoTypeID && l.kindOf(sym.Type).IsReference():
			if err := fl.zeroValue(sym.Type); err != nil {
				return err
			}
		default:
			continue
		}
		l.emit(bytecode.Store(bytecode.Global(sym.Index)))
	}
	l.emit(bytecode.IntConst(0), bytecode.Ret())
	l.functions = append(l.functions, module.FunctionRecord{
		Name:   InitRoutine,
		Label:  label,
		Result: rtti.IntID,
	})
	return nil
}

func u32(v int, what string) (uint32, error) {
	n, err := safecast.Conv[uint32](v)
	if err != nil {
		return 0, fmt.Errorf("lower: %s: %w", what, err)
	}
	return n, nil
}
