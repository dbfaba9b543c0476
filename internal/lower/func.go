package lower

import (
	"fmt"

	"kestrel/internal/bytecode"
	"kestrel/internal/ir"
	"kestrel/internal/module"
	"kestrel/internal/rtti"
	"kestrel/internal/sema"
	"kestrel/internal/symbols"
	"kestrel/internal/types"
)

// funcLowerer lowers one routine body. Hidden temporaries are numbered after
// the declared locals.
type funcLowerer struct {
	*lowerer
	fn       symbols.SymbolID
	declared uint32
	temps    uint32
}

func (l *lowerer) lowerFunc(fn *ir.Func) error {
	name := l.prog.Symbols.Name(fn.Sym)
	sig := l.signature(fn.Sym)
	label := l.funcLabel[fn.Sym]

	args, err := u32(len(fn.Params), "argument count")
	if err != nil {
		return err
	}
	fl := &funcLowerer{lowerer: l, fn: fn.Sym, declared: l.prog.Symbols.LocalCount(fn.Sym)}
	l.emit(bytecode.Label(label), bytecode.Enter(args, 0))
	enterAt := len(l.code) - 1

	if err := fl.block(&fn.Body); err != nil {
		return fmt.Errorf("lower: routine %s: %w", name, err)
	}
	if !sema.Terminates(l.prog.Graph, &fn.Body) {
		if err := fl.epilogue(sig.Result); err != nil {
			return fmt.Errorf("lower: routine %s: %w", name, err)
		}
	}
	l.code[enterAt].Locals = fl.declared + fl.temps

	rec := module.FunctionRecord{Name: name, Label: label, Args: make([]rtti.TypeID, len(sig.Params))}
	for i, p := range sig.Params {
		rec.Args[i] = l.rtti.MustLookup(p)
	}
	rec.Result = l.rtti.MustLookup(sig.Result)
	l.functions = append(l.functions, rec)
	return nil
}

// epilogue ends a routine that can fall off its end: primitive results
// return their zero value, reference results panic.
func (fl *funcLowerer) epilogue(result types.TypeID) error {
	switch fl.kindOf(result) {
	case types.KindInt, types.KindBool:
		fl.emit(bytecode.IntConst(0), bytecode.Ret())
	case types.KindReal:
		fl.emit(bytecode.RealConst(0), bytecode.Ret())
	case types.KindRecord, types.KindArray:
		fl.emit(bytecode.Raise(bytecode.PanicMissingReturn))
	default:
		return fmt.Errorf("unresolved result type")
	}
	return nil
}

// temp allocates a hidden local slot.
func (fl *funcLowerer) temp() bytecode.Location {
	loc := bytecode.Local(fl.declared + fl.temps)
	fl.temps++
	return loc
}

func (fl *funcLowerer) location(sym symbols.SymbolID) (bytecode.Location, error) {
	s, ok := fl.prog.Symbols.Symbol(sym)
	if !ok {
		return bytecode.Location{}, fmt.Errorf("unknown symbol #%d", sym)
	}
	switch s.Kind {
	case symbols.SymbolGlobal:
		return bytecode.Global(s.Index), nil
	case symbols.SymbolParam:
		return bytecode.Argument(s.Index), nil
	case symbols.SymbolLocal:
		return bytecode.Local(s.Index), nil
	default:
		return bytecode.Location{}, fmt.Errorf("%s %q has no storage", s.Kind, fl.prog.Symbols.Name(sym))
	}
}

// zeroValue pushes the default value of t: zero for primitives, a fresh
// block for records and arrays. Unsized arrays start empty.
func (fl *funcLowerer) zeroValue(t types.TypeID) error {
	resolved, err := fl.prog.Types.Resolve(t)
	if err != nil {
		return err
	}
	tt := fl.prog.Types.MustLookup(resolved)
	switch tt.Kind {
	case types.KindInt, types.KindBool:
		fl.emit(bytecode.IntConst(0))
	case types.KindReal:
		fl.emit(bytecode.RealConst(0))
	case types.KindRecord:
		size, err := fl.layout.SizeOf(resolved)
		if err != nil {
			return err
		}
		n, err := u32(size, "record size")
		if err != nil {
			return err
		}
		fl.emit(bytecode.AllocRecord(n))
	case types.KindArray:
		elem, err := fl.layout.ElemSize(resolved)
		if err != nil {
			return err
		}
		n, err := u32(elem, "element size")
		if err != nil {
			return err
		}
		fl.emit(bytecode.AllocArray(n, tt.Length))
	default:
		return fmt.Errorf("no zero value for %s", types.Label(fl.prog.Types, t))
	}
	return nil
}
