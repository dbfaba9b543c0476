package symbols

import (
	"fmt"

	"kestrel/internal/source"
	"kestrel/internal/types"
)

// Scope models a lexical scope. Lookups walk parents up to the root.
type Scope struct {
	table  *Table
	parent *Scope
	owner  SymbolID
	names  map[source.StringID]SymbolID
}

// Function opens the scope of routine fn directly below the root.
func (t *Table) Function(fn SymbolID) *Scope {
	return &Scope{table: t, parent: t.root, owner: fn, names: make(map[source.StringID]SymbolID)}
}

// Nested opens a block scope inside s.
func (s *Scope) Nested() *Scope {
	return &Scope{table: s.table, parent: s, owner: s.owner, names: make(map[source.StringID]SymbolID)}
}

// Owner returns the routine the scope belongs to, or NoSymbolID at the root.
func (s *Scope) Owner() SymbolID {
	return s.owner
}

func (s *Scope) declare(name string, sym Symbol) (SymbolID, error) {
	key := s.table.Strings.Intern(name)
	if prev, ok := s.names[key]; ok {
		return prev, fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	sym.Name = key
	id := s.table.add(sym)
	s.names[key] = id
	return id, nil
}

// DeclareParam adds the next parameter of the owning routine.
func (s *Scope) DeclareParam(name string, typ types.TypeID) (SymbolID, error) {
	idx := s.table.params[s.owner]
	id, err := s.declare(name, Symbol{Kind: SymbolParam, Type: typ, Index: idx, Owner: s.owner})
	if err != nil {
		return NoSymbolID, err
	}
	s.table.params[s.owner] = idx + 1
	return id, nil
}

// DeclareLocal adds a local variable. Local slots are never reused, so the
// index is unique within the owning routine.
func (s *Scope) DeclareLocal(name string, typ types.TypeID) (SymbolID, error) {
	idx := s.table.locals[s.owner]
	id, err := s.declare(name, Symbol{Kind: SymbolLocal, Type: typ, Index: idx, Owner: s.owner})
	if err != nil {
		return NoSymbolID, err
	}
	s.table.locals[s.owner] = idx + 1
	return id, nil
}

// Lookup resolves name in s and its parents.
func (s *Scope) Lookup(name string) (SymbolID, error) {
	key, ok := s.table.Strings.Find(name)
	if ok {
		for cur := s; cur != nil; cur = cur.parent {
			if id, found := cur.names[key]; found {
				return id, nil
			}
		}
	}
	return NoSymbolID, fmt.Errorf("%w: %s", ErrUndefined, name)
}
