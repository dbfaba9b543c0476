package astio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kestrel/internal/ir"
	"kestrel/internal/layout"
	"kestrel/internal/sema"
	"kestrel/internal/types"
)

func decodeFile(t *testing.T, name string) *ir.Program {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	p, err := Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	return p
}

func TestDecodeTestdataChecks(t *testing.T) {
	for _, name := range []string{"point.yaml", "sum.yaml", "countdown.json"} {
		p := decodeFile(t, name)
		if _, err := sema.CheckProgram(p, layout.Portable()); err != nil {
			t.Fatalf("%s: check failed: %v", name, err)
		}
	}
}

func TestDecodePointShape(t *testing.T) {
	p := decodeFile(t, "point.yaml")
	if len(p.TypeDecls) != 1 || len(p.Funcs) != 1 || len(p.Globals) != 0 {
		t.Fatalf("unexpected program shape: %d types, %d funcs, %d globals", len(p.TypeDecls), len(p.Funcs), len(p.Globals))
	}
	rec := p.TypeDecls[0].Type
	if p.Types.KindOf(rec) != types.KindRecord || len(p.Types.RecordFields(rec)) != 2 {
		t.Fatalf("expected a two-field record, got %s", types.Label(p.Types, rec))
	}
	body := p.Funcs[0].Body
	if len(body.Items) != 4 || body.Items[0].Decl == nil || body.Items[1].Stmt.Kind != ir.StmtAssign {
		t.Fatalf("unexpected body %+v", body.Items)
	}
	// Both loads of p.x share one node.
	x1 := body.Items[1].Stmt.Target
	ret, _ := p.Graph.Expr(body.Items[3].Stmt.Value)
	if ret.Kind != ir.ExprLoad || ret.Lvalue != x1 {
		t.Fatalf("expected the return to load the assigned place")
	}
}

func TestDecodeForEachTypesLoopVariable(t *testing.T) {
	p := decodeFile(t, "sum.yaml")
	sum := p.Funcs[0]
	loop := sum.Body.Items[1].Stmt
	if loop.Kind != ir.StmtFor || loop.To.IsValid() {
		t.Fatalf("expected an element loop, got %+v", loop)
	}
	sym, _ := p.Symbols.Symbol(loop.Var)
	if sym.Type != p.Types.Builtins().Real {
		t.Fatalf("expected real loop variable, got %s", types.Label(p.Types, sym.Type))
	}
	main := p.Funcs[1]
	rev := main.Body.Items[2].Stmt
	if rev.Kind != ir.StmtFor || !rev.Reverse {
		t.Fatalf("expected reversed range loop")
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	for _, doc := range []string{
		"",
		"# nothing here\n",
		"---\n",
		"--- # header only\n",
		"~\n",
		"null\n",
		"---\n~\n",
	} {
		p, err := DecodeBytes([]byte(doc))
		if err != nil {
			t.Fatalf("%q: expected empty program, got %v", doc, err)
		}
		if len(p.Funcs) != 0 || len(p.Globals) != 0 || len(p.TypeDecls) != 0 {
			t.Fatalf("%q: expected no declarations, got %+v", doc, p)
		}
	}
	if _, err := DecodeBytes([]byte("42\n")); err == nil {
		t.Fatalf("a non-null scalar document must be rejected")
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		kind ErrorKind
		line int
	}{
		{"not a mapping", "- 1\n", ErrMalformed, 1},
		{"unknown top key", "modules: []\n", ErrUnknownNode, 1},
		{"unknown type", "globals:\n  - {name: g, type: Vec}\n", ErrUnknownType, 2},
		{"builtin shadow", "types:\n  - {name: int, type: real}\n", ErrDuplicate, 2},
		{"duplicate type", "types:\n  - {name: A, type: int}\n  - {name: A, type: real}\n", ErrDuplicate, 3},
		{"duplicate field", "types:\n  - name: R\n    type:\n      record:\n        - {name: a, type: int}\n        - {name: a, type: int}\n", ErrDuplicate, 6},
		{"bad length", "types:\n  - {name: A, type: {array: {elem: int, length: -1}}}\n", ErrBadLiteral, 2},
		{"unknown variable", "functions:\n  - name: f\n    result: int\n    body:\n      - return: missing\n", ErrUnknownName, 5},
		{"unknown statement", "functions:\n  - name: f\n    result: int\n    body:\n      - loop: 1\n", ErrUnknownNode, 5},
		{"unknown operator", "functions:\n  - name: f\n    result: int\n    body:\n      - return: {binary: {op: '**', lhs: 1, rhs: 2}}\n", ErrUnknownNode, 5},
		{"missing result", "functions:\n  - name: f\n", ErrMissing, 2},
		{"duplicate local", "functions:\n  - name: f\n    result: int\n    body:\n      - decl: {name: a, type: int}\n      - decl: {name: a, type: int}\n", ErrDuplicate, 6},
		{"iterate int", "functions:\n  - name: f\n    result: int\n    body:\n      - for: {var: x, in: 3, body: []}\n", ErrMalformed, 5},
	}
	for _, tc := range cases {
		_, err := DecodeBytes([]byte(tc.doc))
		var de *Error
		if !errors.As(err, &de) {
			t.Fatalf("%s: expected *Error, got %v", tc.name, err)
		}
		if de.Kind != tc.kind || de.Line != tc.line {
			t.Fatalf("%s: expected %s at line %d, got %s at line %d (%v)", tc.name, tc.kind, tc.line, de.Kind, de.Line, de)
		}
	}
}

func TestDecodeReportsEveryDeclaration(t *testing.T) {
	doc := "globals:\n  - {name: a, type: Nope}\n  - {name: b, type: Nada}\n"
	_, err := DecodeBytes([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "Nope") || !strings.Contains(err.Error(), "Nada") {
		t.Fatalf("expected both failures, got %v", err)
	}
}

func TestDecodeRoutineLocation(t *testing.T) {
	doc := "functions:\n  - name: f\n    result: int\n    body:\n      - return: missing\n"
	_, err := DecodeBytes([]byte(doc))
	var de *Error
	if !errors.As(err, &de) || de.Where != "routine f" {
		t.Fatalf("expected error inside routine f, got %v", err)
	}
}
