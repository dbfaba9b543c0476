package types

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"kestrel/internal/source"
)

var (
	// ErrUnresolvedAlias reports an alias without a definition.
	ErrUnresolvedAlias = errors.New("unresolved type alias")
	// ErrAliasCycle reports aliases that only resolve to each other.
	ErrAliasCycle = errors.New("type alias cycle")
	// ErrAliasRedefined reports a second definition for one alias name.
	ErrAliasRedefined = errors.New("type alias redefined")
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Int  TypeID
	Real TypeID
	Bool TypeID
}

// Field is one named record member.
type Field struct {
	Name source.StringID
	Type TypeID
}

// RecordInfo stores the ordered fields of a record type.
type RecordInfo struct {
	Fields []Field
}

// AliasInfo stores a nominal alias and its target once defined.
type AliasInfo struct {
	Name   source.StringID
	Target TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Records compare by field sequence, arrays by element and length, aliases
// by name.
type Interner struct {
	Strings *source.Interner

	types    []Type
	index    map[typeKey]TypeID
	records  []RecordInfo
	recIndex map[string]TypeID
	aliases  []AliasInfo
	builtins Builtins
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Length  uint32
	Fixed   bool
	Payload uint32
}

// NewInterner constructs an interner seeded with the primitives. A nil
// strings interner gets a fresh one.
func NewInterner(strs *source.Interner) *Interner {
	if strs == nil {
		strs = source.NewInterner()
	}
	in := &Interner{
		Strings:  strs,
		index:    make(map[typeKey]TypeID, 32),
		recIndex: make(map[string]TypeID, 8),
	}
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Real = in.Intern(Type{Kind: KindReal})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures a primitive or array descriptor has a stable TypeID.
// Records and aliases go through Record and Alias.
func (in *Interner) Intern(t Type) TypeID {
	switch t.Kind {
	case KindInvalid:
		return NoTypeID
	case KindRecord, KindAlias:
		panic(fmt.Sprintf("types: %s must be interned through its constructor", t.Kind))
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Array interns an array of elem; fixed=false describes an unsized array.
func (in *Interner) Array(elem TypeID, length uint32, fixed bool) TypeID {
	return in.Intern(MakeArray(elem, length, fixed))
}

// Record interns a record with the given ordered fields. Two records with the
// same field names and field types in the same order share one TypeID.
func (in *Interner) Record(fields []Field) TypeID {
	key := recordKey(fields)
	if id, ok := in.recIndex[key]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.records))
	if err != nil {
		panic(fmt.Errorf("record info overflow: %w", err))
	}
	in.records = append(in.records, RecordInfo{Fields: slices.Clone(fields)})
	id := in.internRaw(Type{Kind: KindRecord, Payload: slot})
	in.recIndex[key] = id
	return id
}

func recordKey(fields []Field) string {
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(strconv.FormatUint(uint64(f.Name), 10))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(f.Type), 10))
		sb.WriteByte(';')
	}
	return sb.String()
}

// Alias interns a nominal reference to the type named name.
func (in *Interner) Alias(name source.StringID) TypeID {
	key := typeKey{Kind: KindAlias, Payload: uint32(name)}
	if id, ok := in.index[key]; ok {
		return id
	}
	in.aliases = append(in.aliases, AliasInfo{Name: name, Target: NoTypeID})
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, Type{Kind: KindAlias, Payload: uint32(len(in.aliases) - 1)})
	in.index[key] = id
	return id
}

// DefineAlias binds the alias id to target.
func (in *Interner) DefineAlias(alias, target TypeID) error {
	info := in.aliasInfo(alias)
	if info == nil {
		return fmt.Errorf("types: type#%d is not an alias", alias)
	}
	if info.Target != NoTypeID {
		return fmt.Errorf("%w: %s", ErrAliasRedefined, in.Strings.MustLookup(info.Name))
	}
	info.Target = target
	return nil
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if int64(id) >= int64(len(in.types)) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len reports how many descriptors were interned.
func (in *Interner) Len() int {
	return len(in.types)
}

// RecordFields returns a copy of the record's fields.
func (in *Interner) RecordFields(id TypeID) []Field {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindRecord {
		return nil
	}
	return slices.Clone(in.records[tt.Payload].Fields)
}

// FieldIndex finds a field by name.
func (in *Interner) FieldIndex(id TypeID, name source.StringID) (int, Field, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindRecord {
		return -1, Field{}, false
	}
	for i, f := range in.records[tt.Payload].Fields {
		if f.Name == name {
			return i, f, true
		}
	}
	return -1, Field{}, false
}

// AliasInfo returns alias metadata.
func (in *Interner) AliasInfo(id TypeID) (AliasInfo, bool) {
	info := in.aliasInfo(id)
	if info == nil {
		return AliasInfo{}, false
	}
	return *info, true
}

func (in *Interner) aliasInfo(id TypeID) *AliasInfo {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindAlias {
		return nil
	}
	return &in.aliases[tt.Payload]
}

// Resolve follows alias chains until a structural type is reached.
func (in *Interner) Resolve(id TypeID) (TypeID, error) {
	seen := make(map[TypeID]struct{}, 4)
	for {
		tt, ok := in.Lookup(id)
		if !ok {
			return NoTypeID, fmt.Errorf("types: invalid TypeID %d", id)
		}
		if tt.Kind != KindAlias {
			return id, nil
		}
		if _, dup := seen[id]; dup {
			return NoTypeID, fmt.Errorf("%w: %s", ErrAliasCycle, in.Strings.MustLookup(in.aliases[tt.Payload].Name))
		}
		seen[id] = struct{}{}
		info := in.aliases[tt.Payload]
		if info.Target == NoTypeID {
			return NoTypeID, fmt.Errorf("%w: %s", ErrUnresolvedAlias, in.Strings.MustLookup(info.Name))
		}
		id = info.Target
	}
}

// KindOf resolves aliases and returns the resulting kind, or KindInvalid.
func (in *Interner) KindOf(id TypeID) Kind {
	resolved, err := in.Resolve(id)
	if err != nil {
		return KindInvalid
	}
	return in.types[resolved].Kind
}
