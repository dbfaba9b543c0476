package rtti

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrDanglingTypeID reports a reference past the end of the table.
	ErrDanglingTypeID = errors.New("dangling type id")
	// ErrMalformedEntry reports an entry that is out of place or of an
	// unknown kind.
	ErrMalformedEntry = errors.New("malformed rtti entry")
)

// Table is the ordered list of descriptors; an entry's position is its id.
type Table struct {
	Entries []Entry
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.Entries)
}

// Entry returns the descriptor for id.
func (t *Table) Entry(id TypeID) (Entry, bool) {
	if int64(id) >= int64(len(t.Entries)) {
		return Entry{}, false
	}
	return t.Entries[id], true
}

// Has reports whether id is a valid index.
func (t *Table) Has(id TypeID) bool {
	return int64(id) < int64(len(t.Entries))
}

// Equal reports whether both tables hold the same entries.
func (t *Table) Equal(o *Table) bool {
	return slices.EqualFunc(t.Entries, o.Entries, Entry.Equal)
}

// Validate checks that ids match positions, that primitives occupy exactly
// the fixed leading slots and that every referenced id is in the table.
func (t *Table) Validate() error {
	if len(t.Entries) < PrimitiveCount {
		return fmt.Errorf("%w: %d entries, primitives need %d", ErrMalformedEntry, len(t.Entries), PrimitiveCount)
	}
	for i, e := range t.Entries {
		if int64(e.ID) != int64(i) {
			return fmt.Errorf("%w: entry %d carries id %d", ErrMalformedEntry, i, e.ID)
		}
		switch e.Kind {
		case EntryPrimitive:
			if i >= PrimitiveCount {
				return fmt.Errorf("%w: primitive at %d", ErrMalformedEntry, i)
			}
			continue
		case EntryRecord:
			for j, f := range e.Fields {
				if !t.Has(f) {
					return fmt.Errorf("%w: record %d field %d references %d of %d", ErrDanglingTypeID, i, j, f, len(t.Entries))
				}
			}
		case EntryArray:
			if !t.Has(e.Elem) {
				return fmt.Errorf("%w: array %d element references %d of %d", ErrDanglingTypeID, i, e.Elem, len(t.Entries))
			}
		default:
			return fmt.Errorf("%w: entry %d has kind %d", ErrMalformedEntry, i, e.Kind)
		}
		if i < PrimitiveCount {
			return fmt.Errorf("%w: %s in primitive slot %d", ErrMalformedEntry, e.Kind, i)
		}
	}
	return nil
}

// Describe renders id as a type expression using the table itself.
func (t *Table) Describe(id TypeID) string {
	var sb strings.Builder
	t.describe(&sb, id, 0)
	return sb.String()
}

func (t *Table) describe(sb *strings.Builder, id TypeID, depth int) {
	e, ok := t.Entry(id)
	if !ok || depth > 4 {
		fmt.Fprintf(sb, "type#%d", id)
		return
	}
	switch e.Kind {
	case EntryPrimitive:
		sb.WriteString(PrimitiveName(id))
	case EntryArray:
		sb.WriteByte('[')
		t.describe(sb, e.Elem, depth+1)
		sb.WriteByte(']')
	case EntryRecord:
		sb.WriteByte('{')
		for i, f := range e.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			t.describe(sb, f, depth+1)
		}
		sb.WriteByte('}')
	}
}
