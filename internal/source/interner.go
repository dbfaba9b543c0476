package source

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// StringID identifies an interned name.
type StringID uint32

// NoStringID is reserved for the empty string.
const NoStringID StringID = 0

// Interner maps names to dense ids. Names are NFC-normalized first, so two
// spellings of the same identifier share one id.
type Interner struct {
	byID  []string
	index map[string]StringID
}

// NewInterner returns an interner with only the empty string registered.
func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": NoStringID},
	}
}

// Intern inserts s and returns its id; an already known name keeps its id.
func (i *Interner) Intern(s string) StringID {
	s = norm.NFC.String(s)
	if id, ok := i.index[s]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(i.byID))
	if err != nil {
		panic(fmt.Errorf("string interner overflow: %w", err))
	}
	cpy := string([]byte(s))
	id := StringID(n)
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Find returns the id of s without inserting it.
func (i *Interner) Find(s string) (StringID, bool) {
	id, ok := i.index[norm.NFC.String(s)]
	return id, ok
}

// Lookup returns the string for id.
func (i *Interner) Lookup(id StringID) (string, bool) {
	if !i.Has(id) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup panics when id is unknown.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("source: invalid string ID")
	}
	return s
}

// Has reports whether id was produced by this interner.
func (i *Interner) Has(id StringID) bool {
	return int(id) < len(i.byID)
}

// Len counts interned strings, NoStringID included.
func (i *Interner) Len() int {
	return len(i.byID)
}

// Snapshot returns a copy of all strings in id order.
func (i *Interner) Snapshot() []string {
	return slices.Clone(i.byID)
}
