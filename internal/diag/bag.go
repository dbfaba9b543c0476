package diag

import (
	"cmp"
	"slices"
)

// Bag collects diagnostics up to a limit.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag holding at most max diagnostics.
func NewBag(max int) *Bag {
	if max <= 0 {
		max = 1
	}
	return &Bag{items: make([]Diagnostic, 0, min(max, 64)), max: max}
}

// Add appends d and reports false once the limit is reached.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Cap returns the limit.
func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any diagnostic is an error.
func (b *Bag) HasErrors() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

// HasWarnings reports whether any diagnostic is a warning or worse.
func (b *Bag) HasWarnings() bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevWarning })
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the collected diagnostics. The slice is shared with the bag.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends the diagnostics of other, growing the limit as needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.max = max(b.max, len(b.items)+len(other.items))
	b.items = append(b.items, other.items...)
}

// Sort orders by path, line, severity (desc) then code for stable output.
// Diagnostics with equal keys keep their emission order.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.Path, y.Primary.Path),
			cmp.Compare(x.Primary.Line, y.Primary.Line),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

// Dedup drops diagnostics repeating an earlier code, location and message.
func (b *Bag) Dedup() {
	type key struct {
		code Code
		loc  Location
		msg  string
	}
	seen := make(map[key]struct{}, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		k := key{d.Code, d.Primary, d.Message}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

// Keep drops diagnostics below floor.
func (b *Bag) Keep(floor Severity) {
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool { return d.Severity < floor })
}
