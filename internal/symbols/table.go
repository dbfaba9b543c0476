package symbols

import (
	"errors"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"kestrel/internal/source"
	"kestrel/internal/types"
)

var (
	// ErrDuplicate reports a name declared twice in one scope.
	ErrDuplicate = errors.New("duplicate declaration")
	// ErrUndefined reports a name with no visible declaration.
	ErrUndefined = errors.New("undefined name")
)

// Table owns every symbol of one compilation.
type Table struct {
	Strings *source.Interner

	syms    []Symbol
	root    *Scope
	globals uint32
	funcs   uint32
	params  map[SymbolID]uint32
	locals  map[SymbolID]uint32
}

// NewTable builds an empty table. If strings is nil a fresh interner is
// allocated.
func NewTable(strings *source.Interner) *Table {
	if strings == nil {
		strings = source.NewInterner()
	}
	t := &Table{
		Strings: strings,
		syms:    []Symbol{{}},
		params:  make(map[SymbolID]uint32),
		locals:  make(map[SymbolID]uint32),
	}
	t.root = &Scope{table: t, names: make(map[source.StringID]SymbolID)}
	return t
}

// Root returns the module scope holding globals, routines and type names.
func (t *Table) Root() *Scope {
	return t.root
}

func (t *Table) add(sym Symbol) SymbolID {
	n, err := safecast.Conv[uint32](len(t.syms))
	if err != nil {
		panic(fmt.Errorf("symbol table overflow: %w", err))
	}
	t.syms = append(t.syms, sym)
	return SymbolID(n)
}

// Symbol returns the symbol for id.
func (t *Table) Symbol(id SymbolID) (Symbol, bool) {
	if t == nil || id == NoSymbolID || int(id) >= len(t.syms) {
		return Symbol{}, false
	}
	return t.syms[id], true
}

// Name returns the declared name of id.
func (t *Table) Name(id SymbolID) string {
	sym, ok := t.Symbol(id)
	if !ok {
		return "?"
	}
	return t.Strings.MustLookup(sym.Name)
}

// Len counts declared symbols.
func (t *Table) Len() int {
	return len(t.syms) - 1
}

// DeclareGlobal adds a global variable to the root scope.
func (t *Table) DeclareGlobal(name string, typ types.TypeID) (SymbolID, error) {
	id, err := t.root.declare(name, Symbol{Kind: SymbolGlobal, Type: typ, Index: t.globals})
	if err != nil {
		return NoSymbolID, err
	}
	t.globals++
	return id, nil
}

// DeclareFunction adds a routine to the root scope.
func (t *Table) DeclareFunction(name string, sig Signature) (SymbolID, error) {
	sig.Params = slices.Clone(sig.Params)
	id, err := t.root.declare(name, Symbol{Kind: SymbolFunction, Type: sig.Result, Index: t.funcs, Signature: &sig})
	if err != nil {
		return NoSymbolID, err
	}
	t.funcs++
	return id, nil
}

// DeclareType adds a named type to the root scope.
func (t *Table) DeclareType(name string, typ types.TypeID) (SymbolID, error) {
	return t.root.declare(name, Symbol{Kind: SymbolType, Type: typ})
}

// GlobalCount is the size of the Global slot space.
func (t *Table) GlobalCount() uint32 {
	return t.globals
}

// ParamCount returns the number of declared parameters of fn.
func (t *Table) ParamCount(fn SymbolID) uint32 {
	return t.params[fn]
}

// LocalCount returns the number of declared locals of fn.
func (t *Table) LocalCount(fn SymbolID) uint32 {
	return t.locals[fn]
}
