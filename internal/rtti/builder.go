package rtti

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"kestrel/internal/types"
)

// ErrFrozen reports an assignment after the table was finalized.
var ErrFrozen = errors.New("rtti builder is frozen")

// Builder assigns module TypeIDs. Ids follow first encounter, and a composite
// type receives its id before its components are visited, so ids are a
// depth-first pre-order and recursive types terminate. Aliases never get an
// id of their own.
type Builder struct {
	types  *types.Interner
	ids    map[types.TypeID]TypeID
	table  Table
	frozen bool
}

// NewBuilder seeds the three primitives.
func NewBuilder(in *types.Interner) *Builder {
	b := &Builder{types: in, ids: make(map[types.TypeID]TypeID, 16)}
	bi := in.Builtins()
	b.ids[bi.Int] = IntID
	b.ids[bi.Real] = RealID
	b.ids[bi.Bool] = BoolID
	b.table.Entries = []Entry{Primitive(IntID), Primitive(RealID), Primitive(BoolID)}
	return b
}

// Assign returns the module id of t, assigning ids to t and everything it
// reaches on first encounter.
func (b *Builder) Assign(t types.TypeID) (TypeID, error) {
	resolved, err := b.types.Resolve(t)
	if err != nil {
		return 0, err
	}
	if id, ok := b.ids[resolved]; ok {
		return id, nil
	}
	if b.frozen {
		return 0, fmt.Errorf("%w: %s", ErrFrozen, types.Label(b.types, resolved))
	}
	n, err := safecast.Conv[uint32](len(b.table.Entries))
	if err != nil {
		return 0, fmt.Errorf("rtti table overflow: %w", err)
	}
	id := TypeID(n)
	b.ids[resolved] = id
	tt := b.types.MustLookup(resolved)
	switch tt.Kind {
	case types.KindArray:
		b.table.Entries = append(b.table.Entries, Array(id, 0))
		elem, err := b.Assign(tt.Elem)
		if err != nil {
			return 0, err
		}
		b.table.Entries[id].Elem = elem
	case types.KindRecord:
		fields := b.types.RecordFields(resolved)
		b.table.Entries = append(b.table.Entries, Entry{Kind: EntryRecord, ID: id, Fields: make([]TypeID, len(fields))})
		for i, f := range fields {
			fid, err := b.Assign(f.Type)
			if err != nil {
				return 0, err
			}
			b.table.Entries[id].Fields[i] = fid
		}
	default:
		return 0, fmt.Errorf("rtti: cannot describe %s", types.Label(b.types, resolved))
	}
	return id, nil
}

// Lookup returns the id already assigned to t.
func (b *Builder) Lookup(t types.TypeID) (TypeID, bool) {
	resolved, err := b.types.Resolve(t)
	if err != nil {
		return 0, false
	}
	id, ok := b.ids[resolved]
	return id, ok
}

// MustLookup is Lookup for types known to be assigned.
func (b *Builder) MustLookup(t types.TypeID) TypeID {
	id, ok := b.Lookup(t)
	if !ok {
		panic(fmt.Sprintf("rtti: %s has no id", types.Label(b.types, t)))
	}
	return id
}

// Freeze finalizes the table. Later assignments of new types fail.
func (b *Builder) Freeze() *Table {
	b.frozen = true
	out := &Table{Entries: make([]Entry, len(b.table.Entries))}
	for i, e := range b.table.Entries {
		out.Entries[i] = Entry{Kind: e.Kind, ID: e.ID, Elem: e.Elem}
		if e.Fields != nil {
			out.Entries[i].Fields = append([]TypeID(nil), e.Fields...)
		}
	}
	return out
}
