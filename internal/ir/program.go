package ir

import (
	"kestrel/internal/source"
	"kestrel/internal/symbols"
	"kestrel/internal/types"
)

// TypeDecl binds a type name (an alias in the interner) to its definition.
type TypeDecl struct {
	Name  source.StringID
	Alias types.TypeID
	Type  types.TypeID
}

// GlobalDecl declares a global variable with an optional initializer.
type GlobalDecl struct {
	Sym  symbols.SymbolID
	Init ExprID
}

// Func is one routine. Parameter symbols are listed in declaration order.
type Func struct {
	Sym    symbols.SymbolID
	Params []symbols.SymbolID
	Body   Block
}

// Program is the whole input of one compilation together with the
// registries it was built against. Nothing in a Program is shared with
// another compilation.
type Program struct {
	Strings *source.Interner
	Types   *types.Interner
	Symbols *symbols.Table
	Graph   *Graph

	TypeDecls []TypeDecl
	Globals   []GlobalDecl
	Funcs     []Func
}

// NewProgram creates an empty program with fresh registries.
func NewProgram() *Program {
	strs := source.NewInterner()
	return &Program{
		Strings: strs,
		Types:   types.NewInterner(strs),
		Symbols: symbols.NewTable(strs),
		Graph:   NewGraph(),
	}
}

// DeclareType registers name as an alias for typ and records the declaration.
func (p *Program) DeclareType(name string, typ types.TypeID) (types.TypeID, error) {
	id := p.Strings.Intern(name)
	alias := p.Types.Alias(id)
	if err := p.Types.DefineAlias(alias, typ); err != nil {
		return types.NoTypeID, err
	}
	if _, err := p.Symbols.DeclareType(name, alias); err != nil {
		return types.NoTypeID, err
	}
	p.TypeDecls = append(p.TypeDecls, TypeDecl{Name: id, Alias: alias, Type: typ})
	return alias, nil
}

// DeclareGlobal declares a global with an optional initializer.
func (p *Program) DeclareGlobal(name string, typ types.TypeID, init ExprID) (symbols.SymbolID, error) {
	sym, err := p.Symbols.DeclareGlobal(name, typ)
	if err != nil {
		return symbols.NoSymbolID, err
	}
	p.Globals = append(p.Globals, GlobalDecl{Sym: sym, Init: init})
	return sym, nil
}

// FuncBuilder collects a routine's parameters and body.
type FuncBuilder struct {
	prog  *Program
	fn    *Func
	Scope *symbols.Scope
}

// Param is a routine parameter in a FuncBuilder request.
type Param struct {
	Name string
	Type types.TypeID
}

// DeclareFunc declares a routine and returns a builder for its body. The
// body is attached to the program when Finish is called.
func (p *Program) DeclareFunc(name string, params []Param, result types.TypeID) (*FuncBuilder, error) {
	sig := symbols.Signature{Result: result}
	for _, prm := range params {
		sig.Params = append(sig.Params, prm.Type)
	}
	sym, err := p.Symbols.DeclareFunction(name, sig)
	if err != nil {
		return nil, err
	}
	fb := &FuncBuilder{prog: p, fn: &Func{Sym: sym}, Scope: p.Symbols.Function(sym)}
	for _, prm := range params {
		ps, err := fb.Scope.DeclareParam(prm.Name, prm.Type)
		if err != nil {
			return nil, err
		}
		fb.fn.Params = append(fb.fn.Params, ps)
	}
	return fb, nil
}

// Sym returns the routine symbol.
func (fb *FuncBuilder) Sym() symbols.SymbolID {
	return fb.fn.Sym
}

// Param returns the symbol of the i-th parameter.
func (fb *FuncBuilder) Param(i int) symbols.SymbolID {
	return fb.fn.Params[i]
}

// Finish attaches body and appends the routine to the program.
func (fb *FuncBuilder) Finish(body Block) {
	fb.fn.Body = body
	fb.prog.Funcs = append(fb.prog.Funcs, *fb.fn)
}
