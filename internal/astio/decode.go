// Package astio reads kestrel program documents.
//
// A document is YAML (JSON is accepted as its subset) with three optional
// top-level lists: types, globals and functions. Names are resolved while
// decoding, so the resulting ir.Program carries symbols, not spellings.
// See testdata/ for complete examples.
package astio

import (
	"bytes"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"kestrel/internal/ir"
	"kestrel/internal/sema"
	"kestrel/internal/symbols"
	"kestrel/internal/types"
)

type decoder struct {
	prog  *ir.Program
	check *sema.Checker
	where string

	typeNames map[string]types.TypeID
}

// Decode reads a whole document and builds the program it describes.
// Failures inside separate top-level declarations are all reported, joined.
func Decode(r io.Reader) (*ir.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*ir.Program, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return ir.NewProgram(), nil
		}
		return nil, &Error{Kind: ErrMalformed, Msg: err.Error()}
	}
	if isEmptyDocument(&root) {
		return ir.NewProgram(), nil
	}
	p := ir.NewProgram()
	d := &decoder{
		prog:      p,
		check:     sema.NewChecker(p.Graph, p.Types, p.Symbols),
		typeNames: make(map[string]types.TypeID),
	}
	if err := d.document(root.Content[0]); err != nil {
		return nil, err
	}
	return p, nil
}

// isEmptyDocument reports whether root carries no declarations at all: a bare
// "---", or a null such as "~" or "null".
func isEmptyDocument(root *yaml.Node) bool {
	if len(root.Content) == 0 {
		return true
	}
	n := root.Content[0]
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func (d *decoder) document(n *yaml.Node) error {
	top, err := d.mapping(n, "document")
	if err != nil {
		return err
	}
	var errs []error
	if tn, ok := top.get("types"); ok {
		errs = append(errs, d.types(tn)...)
	}
	if gn, ok := top.get("globals"); ok {
		errs = append(errs, d.globals(gn)...)
	}
	if fn, ok := top.get("functions"); ok {
		errs = append(errs, d.functions(fn)...)
	}
	d.where = ""
	errs = append(errs, d.done(top, "document"))
	return errors.Join(errs...)
}

type typeEntry struct {
	name string
	body *yaml.Node
}

func (d *decoder) types(n *yaml.Node) []error {
	items, err := d.sequence(n, "types")
	if err != nil {
		return []error{err}
	}
	// Names first, so definitions may refer to later and to themselves.
	var entries []typeEntry
	var errs []error
	for _, item := range items {
		d.where = ""
		f, err := d.mapping(item, "type declaration")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nameNode, err := d.require(f, "name", "type declaration")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		name, err := d.scalar(nameNode, "type name")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, builtin := d.builtin(name); builtin {
			errs = append(errs, d.errorf(nameNode, ErrDuplicate, "type %q shadows a builtin", name))
			continue
		}
		if _, dup := d.typeNames[name]; dup {
			errs = append(errs, d.errorf(nameNode, ErrDuplicate, "type %q declared twice", name))
			continue
		}
		d.typeNames[name] = d.prog.Types.Alias(d.prog.Strings.Intern(name))
		body, err := d.require(f, "type", "type declaration")
		if err == nil {
			err = d.done(f, "type declaration")
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, typeEntry{name: name, body: body})
	}
	for _, e := range entries {
		d.where = "type " + e.name
		t, err := d.typeExpr(e.body)
		if err == nil {
			_, err = d.prog.DeclareType(e.name, t)
		}
		if err != nil {
			errs = append(errs, d.wrap(e.body, err))
		}
	}
	return errs
}

func (d *decoder) globals(n *yaml.Node) []error {
	items, err := d.sequence(n, "globals")
	if err != nil {
		return []error{err}
	}
	var errs []error
	for _, item := range items {
		d.where = ""
		if err := d.global(item); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (d *decoder) global(n *yaml.Node) error {
	f, err := d.mapping(n, "global")
	if err != nil {
		return err
	}
	name, typ, err := d.nameAndType(f, "global")
	if err != nil {
		return err
	}
	d.where = "global " + name
	init := ir.NoExprID
	if in, ok := f.get("init"); ok {
		if init, err = d.expr(d.prog.Symbols.Root(), in); err != nil {
			return err
		}
	}
	if err := d.done(f, "global"); err != nil {
		return err
	}
	if _, err := d.prog.DeclareGlobal(name, typ, init); err != nil {
		return d.wrap(n, err)
	}
	return nil
}

type pendingFunc struct {
	name string
	fb   *ir.FuncBuilder
	body *yaml.Node
}

func (d *decoder) functions(n *yaml.Node) []error {
	items, err := d.sequence(n, "functions")
	if err != nil {
		return []error{err}
	}
	// Signatures first, so bodies may call any routine.
	var pending []pendingFunc
	var errs []error
	for _, item := range items {
		d.where = ""
		pf, err := d.signature(item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pending = append(pending, pf)
	}
	for _, pf := range pending {
		d.where = "routine " + pf.name
		body, err := d.block(pf.fb.Scope, pf.body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pf.fb.Finish(body)
	}
	return errs
}

func (d *decoder) signature(n *yaml.Node) (pendingFunc, error) {
	f, err := d.mapping(n, "function")
	if err != nil {
		return pendingFunc{}, err
	}
	nameNode, err := d.require(f, "name", "function")
	if err != nil {
		return pendingFunc{}, err
	}
	name, err := d.scalar(nameNode, "function name")
	if err != nil {
		return pendingFunc{}, err
	}
	d.where = "routine " + name
	var params []ir.Param
	if pn, ok := f.get("params"); ok {
		items, err := d.sequence(pn, "params")
		if err != nil {
			return pendingFunc{}, err
		}
		for _, item := range items {
			pf, err := d.mapping(item, "parameter")
			if err != nil {
				return pendingFunc{}, err
			}
			pname, ptype, err := d.nameAndType(pf, "parameter")
			if err != nil {
				return pendingFunc{}, err
			}
			if err := d.done(pf, "parameter"); err != nil {
				return pendingFunc{}, err
			}
			params = append(params, ir.Param{Name: pname, Type: ptype})
		}
	}
	rn, err := d.require(f, "result", "function")
	if err != nil {
		return pendingFunc{}, err
	}
	result, err := d.typeExpr(rn)
	if err != nil {
		return pendingFunc{}, err
	}
	body, _ := f.get("body")
	if err := d.done(f, "function"); err != nil {
		return pendingFunc{}, err
	}
	fb, err := d.prog.DeclareFunc(name, params, result)
	if err != nil {
		return pendingFunc{}, d.wrap(nameNode, err)
	}
	return pendingFunc{name: name, fb: fb, body: body}, nil
}

func (d *decoder) nameAndType(f *fields, what string) (string, types.TypeID, error) {
	nameNode, err := d.require(f, "name", what)
	if err != nil {
		return "", types.NoTypeID, err
	}
	name, err := d.scalar(nameNode, what+" name")
	if err != nil {
		return "", types.NoTypeID, err
	}
	tn, err := d.require(f, "type", what)
	if err != nil {
		return "", types.NoTypeID, err
	}
	t, err := d.typeExpr(tn)
	return name, t, err
}

// wrap attaches a position to errors from the registries.
func (d *decoder) wrap(n *yaml.Node, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	kind := ErrMalformed
	switch {
	case errors.Is(err, symbols.ErrDuplicate), errors.Is(err, types.ErrAliasRedefined):
		kind = ErrDuplicate
	case errors.Is(err, symbols.ErrUndefined):
		kind = ErrUnknownName
	}
	return d.errorf(n, kind, "%s", err)
}

func (d *decoder) lookup(scope *symbols.Scope, n *yaml.Node, what string) (symbols.SymbolID, error) {
	name, err := d.scalar(n, what)
	if err != nil {
		return symbols.NoSymbolID, err
	}
	sym, err := scope.Lookup(name)
	if err != nil {
		return symbols.NoSymbolID, d.errorf(n, ErrUnknownName, "%s %q is not declared", what, name)
	}
	return sym, nil
}

func (d *decoder) builtin(name string) (types.TypeID, bool) {
	b := d.prog.Types.Builtins()
	switch name {
	case "int":
		return b.Int, true
	case "real":
		return b.Real, true
	case "bool":
		return b.Bool, true
	}
	return types.NoTypeID, false
}
