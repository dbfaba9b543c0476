package diag

import "testing"

func TestBagLimitAndErrors(t *testing.T) {
	b := NewBag(2)
	b.Add(New(SevWarning, TypeMismatch, Location{}, "w"))
	if b.HasErrors() || !b.HasWarnings() {
		t.Fatalf("unexpected severity summary")
	}
	b.Add(NewError(TypeInference, Location{}, "e"))
	if b.Add(NewError(TypeInference, Location{}, "dropped")) {
		t.Fatalf("expected limit to reject the third diagnostic")
	}
	if !b.HasErrors() || b.Len() != 2 {
		t.Fatalf("expected two diagnostics with an error")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	b.Add(NewError(TypeCoercion, Location{Path: "b.yaml", Line: 3}, "x"))
	b.Add(New(SevWarning, TypeMismatch, Location{Path: "a.yaml", Line: 9}, "y"))
	b.Add(NewError(TypeInference, Location{Path: "a.yaml", Line: 9}, "z"))
	b.Add(NewError(TypeCoercion, Location{Path: "b.yaml", Line: 3}, "x"))
	b.Dedup()
	b.Sort()
	items := b.Items()
	if len(items) != 3 {
		t.Fatalf("expected duplicate to be removed, got %d", len(items))
	}
	if items[0].Code != TypeInference || items[1].Code != TypeMismatch || items[2].Primary.Path != "b.yaml" {
		t.Fatalf("unexpected order %+v", items)
	}
}

func TestBagMergeGrowsLimit(t *testing.T) {
	a, b := NewBag(1), NewBag(1)
	a.Add(NewError(ProgInvalid, Location{}, "a"))
	b.Add(NewError(ProgInvalid, Location{}, "b"))
	a.Merge(b)
	if a.Len() != 2 || a.Cap() < 2 {
		t.Fatalf("expected merged bag of two, got %d/%d", a.Len(), a.Cap())
	}
}

func TestDiagnosticError(t *testing.T) {
	d := NewError(TypeMismatch, Location{Path: "p.yaml", Line: 4, Where: "routine main: return"}, "expected int, got real")
	want := "error[K2007]: p.yaml:4: routine main: return: expected int, got real"
	if d.Error() != want {
		t.Fatalf("expected %q, got %q", want, d.Error())
	}
	if TypeMismatch.Title() != "Type mismatch" || Code(9999).Title() != "Unknown error" {
		t.Fatalf("unexpected code titles")
	}
}

func TestReporters(t *testing.T) {
	a, b := NewBag(4), NewBag(4)
	var r Reporter = MultiReporter{BagReporter{Bag: a}, BagReporter{Bag: b}, NopReporter{}}
	r.Report(NewError(ModFormat, Location{}, "bad"))
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("expected fan-out to both bags")
	}
}

func TestSeverityLabels(t *testing.T) {
	for _, s := range []Severity{SevInfo, SevWarning, SevError} {
		got, err := ParseSeverity(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseSeverity(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseSeverity("fatal"); err == nil {
		t.Fatalf("expected unknown severity to fail")
	}
	if Severity(9).String() != "severity(9)" {
		t.Fatalf("unexpected label for out-of-range severity")
	}
}

func TestBagKeep(t *testing.T) {
	b := NewBag(4)
	b.Add(New(SevInfo, ModInfo, Location{}, "timings"))
	b.Add(New(SevWarning, TypeMismatch, Location{}, "w"))
	b.Add(NewError(TypeInference, Location{}, "e"))
	b.Keep(SevWarning)
	if b.Len() != 2 || b.Items()[0].Severity != SevWarning {
		t.Fatalf("expected info to be dropped, got %+v", b.Items())
	}
}
