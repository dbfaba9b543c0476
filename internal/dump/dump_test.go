package dump

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"kestrel/internal/driver"
	"kestrel/internal/module"
)

func compiled(t *testing.T, name string) *module.Module {
	t.Helper()
	r, err := driver.CompileFile(context.Background(), filepath.Join("..", "astio", "testdata", name), driver.Options{})
	if err != nil || r.Failed() {
		t.Fatalf("compile %s: %v %v", name, err, r.Bag.Items())
	}
	return r.Module
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPretty, "JSON": FormatJSON, " yaml ": FormatYAML, "cbor": FormatCBOR} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected an error for xml")
	}
}

func TestWritePretty(t *testing.T) {
	m := compiled(t, "sum.yaml")
	var buf bytes.Buffer
	if err := Write(&buf, m, FormatPretty); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"module", "functions", "types", "code", "$init", "sum", "[real]", "Enter args=1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("pretty output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("pretty output to a buffer must not carry escapes")
	}
}

func TestWriteJSON(t *testing.T) {
	m := compiled(t, "point.yaml")
	var buf bytes.Buffer
	if err := Write(&buf, m, FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Format != "1.0" || len(doc.Code) != len(m.Code) {
		t.Fatalf("unexpected document %+v", doc)
	}
	if len(doc.Functions) != 1 || doc.Functions[0].Name != "main" || doc.Functions[0].Result != "int" {
		t.Fatalf("unexpected functions %+v", doc.Functions)
	}
	last := doc.Types[len(doc.Types)-1]
	if last.Kind != "record" || len(last.Fields) != 2 || last.Text != "{int, int}" {
		t.Fatalf("unexpected record entry %+v", last)
	}
}

func TestWriteYAML(t *testing.T) {
	m := compiled(t, "sum.yaml")
	var buf bytes.Buffer
	if err := Write(&buf, m, FormatYAML); err != nil {
		t.Fatalf("write: %v", err)
	}
	var doc Document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Globals != m.GlobalCount || len(doc.Functions) != len(m.Functions) {
		t.Fatalf("unexpected document %+v", doc)
	}
	var arrays int
	for _, ty := range doc.Types {
		if ty.Kind == "array" {
			arrays++
			if ty.Elem == nil || *ty.Elem != 1 {
				t.Fatalf("expected an array of real, got %+v", ty)
			}
		}
	}
	if arrays != 1 {
		t.Fatalf("expected one array entry, got %d", arrays)
	}
}

func TestWriteCBORIsCanonical(t *testing.T) {
	m := compiled(t, "countdown.json")
	var a, b bytes.Buffer
	if err := Write(&a, m, FormatCBOR); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Write(&b, m, FormatCBOR); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("cbor output is not deterministic")
	}
	doc, err := DecodeCBOR(a.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Build(m)
	if doc.Format != want.Format || strings.Join(doc.Code, "\n") != strings.Join(want.Code, "\n") {
		t.Fatalf("cbor document differs from the module")
	}
}

func TestWriteRejectsNil(t *testing.T) {
	if err := Write(&bytes.Buffer{}, nil, FormatJSON); err == nil {
		t.Fatalf("expected an error for a nil module")
	}
}
