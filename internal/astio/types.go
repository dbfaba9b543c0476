package astio

import (
	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"kestrel/internal/source"
	"kestrel/internal/types"
)

// typeExpr decodes a type: a scalar name, {record: [{name, type}...]} or
// {array: {elem, length?}}. Omitting length makes an unsized array.
func (d *decoder) typeExpr(n *yaml.Node) (types.TypeID, error) {
	n = deref(n)
	if n != nil && n.Kind == yaml.ScalarNode {
		if t, ok := d.builtin(n.Value); ok {
			return t, nil
		}
		if t, ok := d.typeNames[n.Value]; ok {
			return t, nil
		}
		return types.NoTypeID, d.errorf(n, ErrUnknownType, "unknown type %q", n.Value)
	}
	tag, body, err := d.single(n, "type")
	if err != nil {
		return types.NoTypeID, err
	}
	switch tag {
	case "record":
		return d.recordType(body)
	case "array":
		return d.arrayType(body)
	default:
		return types.NoTypeID, d.errorf(n, ErrUnknownType, "unknown type constructor %q", tag)
	}
}

func (d *decoder) recordType(n *yaml.Node) (types.TypeID, error) {
	items, err := d.sequence(n, "record fields")
	if err != nil {
		return types.NoTypeID, err
	}
	fields := make([]types.Field, 0, len(items))
	seen := make(map[source.StringID]bool, len(items))
	for _, item := range items {
		f, err := d.mapping(item, "record field")
		if err != nil {
			return types.NoTypeID, err
		}
		name, t, err := d.nameAndType(f, "record field")
		if err != nil {
			return types.NoTypeID, err
		}
		if err := d.done(f, "record field"); err != nil {
			return types.NoTypeID, err
		}
		id := d.prog.Strings.Intern(name)
		if seen[id] {
			return types.NoTypeID, d.errorf(item, ErrDuplicate, "field %q declared twice", name)
		}
		seen[id] = true
		fields = append(fields, types.Field{Name: id, Type: t})
	}
	return d.prog.Types.Record(fields), nil
}

func (d *decoder) arrayType(n *yaml.Node) (types.TypeID, error) {
	f, err := d.mapping(n, "array type")
	if err != nil {
		return types.NoTypeID, err
	}
	en, err := d.require(f, "elem", "array type")
	if err != nil {
		return types.NoTypeID, err
	}
	elem, err := d.typeExpr(en)
	if err != nil {
		return types.NoTypeID, err
	}
	var length uint32
	ln, fixed := f.get("length")
	if fixed {
		var v int64
		if err := deref(ln).Decode(&v); err != nil {
			return types.NoTypeID, d.errorf(ln, ErrBadLiteral, "array length must be an integer")
		}
		if length, err = safecast.Conv[uint32](v); err != nil {
			return types.NoTypeID, d.errorf(ln, ErrBadLiteral, "array length %d out of range", v)
		}
	}
	if err := d.done(f, "array type"); err != nil {
		return types.NoTypeID, err
	}
	return d.prog.Types.Array(elem, length, fixed), nil
}
