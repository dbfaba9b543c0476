package driver

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"kestrel/internal/bytecode"
	"kestrel/internal/diag"
	"kestrel/internal/module"
	"kestrel/internal/sema"
	"kestrel/internal/testkit"
)

func testdata(name string) string {
	return filepath.Join("..", "astio", "testdata", name)
}

func codes(r *Result) []diag.Code {
	var out []diag.Code
	for _, d := range r.Bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestCompileFileProducesModule(t *testing.T) {
	for _, name := range []string{"point.yaml", "sum.yaml", "countdown.json"} {
		r, err := CompileFile(context.Background(), testdata(name), Options{})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if r.Failed() || r.Module == nil {
			t.Fatalf("%s: unexpected diagnostics %v", name, codes(r))
		}
		back, err := module.Decode(r.Bytes)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if !back.Equal(r.Module) {
			t.Fatalf("%s: encoded module does not round trip", name)
		}
		if err := testkit.CheckCodeInvariants(back); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestCompileFileMissing(t *testing.T) {
	r, err := CompileFile(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := codes(r); len(got) != 1 || got[0] != diag.InputUnreadable {
		t.Fatalf("expected one unreadable diagnostic, got %v", got)
	}
}

func TestCompileDocumentDiagnostics(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want diag.Code
	}{
		{
			name: "unknown type",
			doc:  "globals:\n  - {name: g, type: Nope}\n",
			want: diag.InputUnknownType,
		},
		{
			name: "unknown node",
			doc:  "functions:\n  - name: main\n    result: int\n    body:\n      - loop: {}\n",
			want: diag.InputUnknownNode,
		},
		{
			name: "return mismatch",
			doc:  "functions:\n  - name: main\n    result: bool\n    body:\n      - return: 1.5\n",
			want: diag.TypeMismatch,
		},
		{
			name: "assignment without conversion",
			doc:  "functions:\n  - name: main\n    result: int\n    body:\n      - decl: {name: b, type: bool}\n      - assign: {target: b, value: 1.5}\n      - return: 0\n",
			want: diag.TypeMismatch,
		},
		{
			name: "operand mismatch",
			doc:  "functions:\n  - name: main\n    result: int\n    body:\n      - return: {binary: {op: \"+\", lhs: 1, rhs: 2.0}}\n",
			want: diag.TypeInference,
		},
		{
			name: "reserved routine",
			doc:  "functions:\n  - name: $init\n    result: int\n    body:\n      - return: 0\n",
			want: diag.ProgReservedName,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := CompileDocument(context.Background(), "doc.yaml", []byte(tc.doc), Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !r.Failed() || r.Module != nil {
				t.Fatalf("expected a failed compilation")
			}
			got := codes(r)
			found := false
			for _, c := range got {
				found = found || c == tc.want
			}
			if !found {
				t.Fatalf("expected %s among %v", tc.want.ID(), got)
			}
			for _, d := range r.Bag.Items() {
				if d.Primary.Path != "doc.yaml" {
					t.Fatalf("diagnostic lost its path: %+v", d)
				}
			}
		})
	}
}

func countOps(m *module.Module, op bytecode.Opcode) int {
	n := 0
	for _, in := range m.Code {
		if in.Op == op {
			n++
		}
	}
	return n
}

func TestCompileDocumentInsertsConversions(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		op   bytecode.Opcode
	}{
		{
			name: "assignment",
			doc:  "functions:\n  - name: main\n    result: int\n    body:\n      - decl: {name: r, type: real}\n      - assign: {target: r, value: 1}\n      - return: 0\n",
			op:   bytecode.OpIntToReal,
		},
		{
			name: "local initializer",
			doc:  "functions:\n  - name: main\n    result: int\n    body:\n      - decl: {name: r, type: real, init: 1}\n      - return: 0\n",
			op:   bytecode.OpIntToReal,
		},
		{
			name: "global initializer",
			doc:  "globals:\n  - {name: g, type: real, init: 1}\nfunctions:\n  - name: main\n    result: int\n    body:\n      - return: 0\n",
			op:   bytecode.OpIntToReal,
		},
		{
			name: "return value",
			doc:  "functions:\n  - name: main\n    result: real\n    body:\n      - return: 1\n",
			op:   bytecode.OpIntToReal,
		},
		{
			name: "call argument",
			doc: "functions:\n  - name: half\n    params:\n      - {name: x, type: real}\n    result: real\n    body:\n      - return: {binary: {op: \"/\", lhs: x, rhs: 2.0}}\n" +
				"  - name: main\n    result: real\n    body:\n      - return: {call: {fn: half, args: [3]}}\n",
			op: bytecode.OpIntToReal,
		},
		{
			name: "int to bool",
			doc:  "functions:\n  - name: main\n    result: int\n    body:\n      - decl: {name: b, type: bool, init: 1}\n      - return: 0\n",
			op:   bytecode.OpIntToBool,
		},
		{
			name: "real to int",
			doc:  "functions:\n  - name: main\n    result: int\n    body:\n      - return: 2.5\n",
			op:   bytecode.OpRealToInt,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := CompileDocument(context.Background(), "doc.yaml", []byte(tc.doc), Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Failed() {
				t.Fatalf("unexpected diagnostics %v", codes(r))
			}
			if got := countOps(r.Module, tc.op); got != 1 {
				t.Fatalf("expected one %s, got %d", tc.op, got)
			}
			if err := testkit.CheckCodeInvariants(r.Module); err != nil {
				t.Fatalf("%v", err)
			}
		})
	}
}

func TestDiagnoseJoinedErrors(t *testing.T) {
	err := errors.Join(
		&sema.ProgramError{Where: "routine a", Kind: sema.ProblemArity, Reason: "arity"},
		&sema.ProgramError{Where: "routine b", Err: &sema.TypeCoercionError{Reason: "no"}},
		errors.New("boom"),
	)
	bag := diag.NewBag(10)
	Report(diag.BagReporter{Bag: bag}, "p.yaml", err)
	want := []diag.Code{diag.ProgSignatureArity, diag.TypeCoercion, diag.ModLowering}
	if bag.Len() != len(want) {
		t.Fatalf("expected %d diagnostics, got %d", len(want), bag.Len())
	}
	for i, d := range bag.Items() {
		if d.Code != want[i] {
			t.Fatalf("diagnostic %d: expected %s, got %s", i, want[i].ID(), d.Code.ID())
		}
	}
	if where := bag.Items()[1].Primary.Where; where != "routine b" {
		t.Fatalf("expected location from the program error, got %q", where)
	}
}

func TestCompileCacheRoundTrip(t *testing.T) {
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts := Options{Cache: cache}
	first, err := CompileFile(context.Background(), testdata("sum.yaml"), opts)
	if err != nil || first.Failed() {
		t.Fatalf("first compile failed: %v", err)
	}
	if first.Cached {
		t.Fatalf("empty cache reported a hit")
	}
	second, err := CompileFile(context.Background(), testdata("sum.yaml"), opts)
	if err != nil || second.Failed() {
		t.Fatalf("second compile failed: %v", err)
	}
	if !second.Cached {
		t.Fatalf("expected a cache hit")
	}
	if !bytes.Equal(first.Bytes, second.Bytes) || !second.Module.Equal(first.Module) {
		t.Fatalf("cached module differs from the compiled one")
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	third, err := CompileFile(context.Background(), testdata("sum.yaml"), opts)
	if err != nil || third.Cached {
		t.Fatalf("expected a miss after DropAll")
	}
}

func TestCacheRejectsOtherSchema(t *testing.T) {
	cache, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts := Options{}.withDefaults()
	key := cache.Key(opts.Target, []byte("doc"))
	if err := cache.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion + 1, Module: []byte("junk")}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, _, ok := cache.Lookup(key); ok {
		t.Fatalf("foreign schema accepted")
	}
	if err := cache.Store(key, "doc", []byte("junk")); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, _, ok := cache.Lookup(key); ok {
		t.Fatalf("undecodable module accepted")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *DiskCache
	if _, _, ok := c.Lookup(c.Key(Options{}.withDefaults().Target, nil)); ok {
		t.Fatalf("nil cache hit")
	}
	if err := c.Store(Digest{}, "", nil); err != nil {
		t.Fatalf("nil store: %v", err)
	}
}

func TestCompileAllDeterministic(t *testing.T) {
	paths := []string{testdata("sum.yaml"), testdata("point.yaml"), testdata("countdown.json"), testdata("sum.yaml")}
	a, err := CompileAll(context.Background(), paths, Options{}, 4)
	if err != nil {
		t.Fatalf("compile all: %v", err)
	}
	b, err := CompileAll(context.Background(), paths, Options{}, 1)
	if err != nil {
		t.Fatalf("compile all: %v", err)
	}
	for i := range paths {
		if a[i].Path != paths[i] {
			t.Fatalf("result %d is for %s", i, a[i].Path)
		}
		if !bytes.Equal(a[i].Bytes, b[i].Bytes) {
			t.Fatalf("%s: output depends on parallelism", paths[i])
		}
	}
	if !bytes.Equal(a[0].Bytes, a[3].Bytes) {
		t.Fatalf("same document produced different bytes")
	}
}

func TestCompileObserverSeesPhases(t *testing.T) {
	var names []string
	done := 0
	path := testdata("point.yaml")
	opts := Options{Observer: func(ev PhaseEvent) {
		if ev.Path != path {
			t.Errorf("event for %q", ev.Path)
		}
		switch ev.Status {
		case PhaseEnd:
			names = append(names, ev.Name)
		case DocumentDone:
			done++
			if ev.Err != nil {
				t.Errorf("document reported %v", ev.Err)
			}
		}
	}}
	if _, err := CompileFile(context.Background(), path, opts); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := strings.Join(names, ","); got != "decode,check,lower,encode" {
		t.Fatalf("unexpected phases %q", got)
	}
	if done != 1 {
		t.Fatalf("expected one completion event, got %d", done)
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := CompileFile(ctx, testdata("point.yaml"), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestAppendTimings(t *testing.T) {
	r, err := CompileFile(context.Background(), testdata("point.yaml"), Options{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	AppendTimings(r)
	items := r.Bag.Items()
	last := items[len(items)-1]
	if last.Code != diag.ModInfo || last.Severity != diag.SevInfo {
		t.Fatalf("expected a timing info diagnostic, got %+v", last)
	}
	if len(last.Notes) != 1 || !strings.Contains(last.Notes[0], `"phases"`) {
		t.Fatalf("expected JSON phases note, got %v", last.Notes)
	}
}
