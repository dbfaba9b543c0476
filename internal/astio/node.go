package astio

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// fields is a decoded YAML mapping that remembers which keys were read.
type fields struct {
	node *yaml.Node
	keys map[string]*yaml.Node
	used map[string]bool
}

func (d *decoder) errorf(n *yaml.Node, kind ErrorKind, format string, args ...any) *Error {
	line := 0
	if n != nil {
		line = n.Line
	}
	return &Error{Line: line, Kind: kind, Where: d.where, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) mapping(n *yaml.Node, what string) (*fields, error) {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, ErrMalformed, "%s must be a mapping", what)
	}
	f := &fields{node: n, keys: make(map[string]*yaml.Node, len(n.Content)/2), used: make(map[string]bool)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if _, dup := f.keys[k.Value]; dup {
			return nil, d.errorf(k, ErrDuplicate, "duplicate key %q in %s", k.Value, what)
		}
		f.keys[k.Value] = n.Content[i+1]
	}
	return f, nil
}

func (f *fields) get(key string) (*yaml.Node, bool) {
	n, ok := f.keys[key]
	if ok {
		f.used[key] = true
	}
	return n, ok
}

func (d *decoder) require(f *fields, key, what string) (*yaml.Node, error) {
	n, ok := f.get(key)
	if !ok {
		return nil, d.errorf(f.node, ErrMissing, "%s needs %q", what, key)
	}
	return n, nil
}

// done rejects keys that were never read.
func (d *decoder) done(f *fields, what string) error {
	for i := 0; i+1 < len(f.node.Content); i += 2 {
		k := f.node.Content[i]
		if !f.used[k.Value] {
			return d.errorf(k, ErrUnknownNode, "unexpected key %q in %s", k.Value, what)
		}
	}
	return nil
}

// single splits a one-key mapping into its tag and value.
func (d *decoder) single(n *yaml.Node, what string) (string, *yaml.Node, error) {
	n = deref(n)
	if n == nil || n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, d.errorf(n, ErrMalformed, "%s must be a single-key mapping", what)
	}
	return n.Content[0].Value, n.Content[1], nil
}

func (d *decoder) sequence(n *yaml.Node, what string) ([]*yaml.Node, error) {
	n = deref(n)
	if n == nil {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, ErrMalformed, "%s must be a list", what)
	}
	return n.Content, nil
}

func (d *decoder) scalar(n *yaml.Node, what string) (string, error) {
	n = deref(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.Value == "" {
		return "", d.errorf(n, ErrMalformed, "%s must be a non-empty scalar", what)
	}
	return n.Value, nil
}

func (d *decoder) boolean(n *yaml.Node, what string) (bool, error) {
	var v bool
	n = deref(n)
	if n == nil || n.Decode(&v) != nil {
		return false, d.errorf(n, ErrBadLiteral, "%s must be true or false", what)
	}
	return v, nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
