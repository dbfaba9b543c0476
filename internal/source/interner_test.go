package source

import "testing"

func TestInternerBasic(t *testing.T) {
	in := NewInterner()
	if s, ok := in.Lookup(NoStringID); !ok || s != "" {
		t.Fatalf("NoStringID should map to the empty string, got %q ok=%v", s, ok)
	}
	a := in.Intern("point")
	if a == NoStringID {
		t.Fatalf("non-empty name must not get NoStringID")
	}
	if b := in.Intern("point"); b != a {
		t.Fatalf("repeated intern returned %d, want %d", b, a)
	}
	if c := in.Intern("vector"); c == a {
		t.Fatalf("distinct names share id %d", c)
	}
	if s := in.MustLookup(a); s != "point" {
		t.Fatalf("lookup: got %q", s)
	}
	if in.Len() != 3 {
		t.Fatalf("len: got %d, want 3", in.Len())
	}
}

func TestInternerNormalizesNames(t *testing.T) {
	in := NewInterner()
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC-equivalent names should share an id: %d vs %d", composed, decomposed)
	}
	if _, ok := in.Find("cafe\u0301"); !ok {
		t.Fatalf("Find should normalize its argument")
	}
	if _, ok := in.Find("missing"); ok {
		t.Fatalf("Find must not insert")
	}
}
