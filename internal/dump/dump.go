// Package dump renders compiled modules for people and tools.
package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"kestrel/internal/bytecode"
	"kestrel/internal/module"
	"kestrel/internal/rtti"
)

// Format selects the rendering.
type Format string

const (
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatCBOR   Format = "cbor"
)

// ParseFormat parses a format name. The empty string selects pretty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatPretty, nil
	case FormatPretty, FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("unknown dump format %q (expected pretty|json|yaml|cbor)", s)
	}
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Document is the structured view of a module shared by the machine formats.
type Document struct {
	Format    string     `json:"format" yaml:"format" cbor:"format"`
	Globals   uint32     `json:"globals" yaml:"globals" cbor:"globals"`
	Functions []Function `json:"functions" yaml:"functions" cbor:"functions"`
	Types     []Type     `json:"types" yaml:"types" cbor:"types"`
	Code      []string   `json:"code" yaml:"code" cbor:"code"`
}

// Function is one function table record with its types spelled out.
type Function struct {
	Name   string   `json:"name" yaml:"name" cbor:"name"`
	Label  uint64   `json:"label" yaml:"label" cbor:"label"`
	Args   []string `json:"args" yaml:"args" cbor:"args"`
	Result string   `json:"result" yaml:"result" cbor:"result"`
}

// Type is one RTTI entry.
type Type struct {
	ID     uint32   `json:"id" yaml:"id" cbor:"id"`
	Kind   string   `json:"kind" yaml:"kind" cbor:"kind"`
	Fields []uint32 `json:"fields,omitempty" yaml:"fields,omitempty" cbor:"fields,omitempty"`
	Elem   *uint32  `json:"elem,omitempty" yaml:"elem,omitempty" cbor:"elem,omitempty"`
	Text   string   `json:"text" yaml:"text" cbor:"text"`
}

// Build converts m to its structured view.
func Build(m *module.Module) *Document {
	doc := &Document{
		Format:    fmt.Sprintf("%d.%d", module.VersionMajor, module.VersionMinor),
		Globals:   m.GlobalCount,
		Functions: make([]Function, 0, len(m.Functions)),
		Types:     make([]Type, 0, m.RTTI.Len()),
		Code:      make([]string, 0, len(m.Code)),
	}
	for _, f := range m.Functions {
		fn := Function{Name: f.Name, Label: uint64(f.Label), Args: make([]string, len(f.Args)), Result: m.RTTI.Describe(f.Result)}
		for i, a := range f.Args {
			fn.Args[i] = m.RTTI.Describe(a)
		}
		doc.Functions = append(doc.Functions, fn)
	}
	for _, e := range m.RTTI.Entries {
		t := Type{ID: uint32(e.ID), Kind: e.Kind.String(), Text: m.RTTI.Describe(e.ID)}
		switch e.Kind {
		case rtti.EntryRecord:
			t.Fields = make([]uint32, len(e.Fields))
			for i, f := range e.Fields {
				t.Fields[i] = uint32(f)
			}
		case rtti.EntryArray:
			elem := uint32(e.Elem)
			t.Elem = &elem
		}
		doc.Types = append(doc.Types, t)
	}
	for _, in := range m.Code {
		doc.Code = append(doc.Code, in.String())
	}
	return doc
}

// Write renders m in format f.
func Write(w io.Writer, m *module.Module, f Format) error {
	if m == nil {
		return fmt.Errorf("dump: nil module")
	}
	switch f {
	case FormatPretty, "":
		return writePretty(w, m)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Build(m))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Build(m)); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		data, err := cborEncMode.Marshal(Build(m))
		if err != nil {
			return fmt.Errorf("dump: marshal cbor: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("dump: unknown format %q", f)
	}
}

// DecodeCBOR reads a document written with FormatCBOR.
func DecodeCBOR(data []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dump: unmarshal cbor: %w", err)
	}
	return &doc, nil
}

// countLabels returns the number of label markers in code.
func countLabels(code []bytecode.Instr) int {
	n := 0
	for _, in := range code {
		if in.Op == bytecode.OpLabel {
			n++
		}
	}
	return n
}
