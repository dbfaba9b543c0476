package module

import (
	"math"
	"slices"

	"kestrel/internal/bytecode"
	"kestrel/internal/rtti"
)

// FunctionRecord describes one routine: its entry label and its signature as
// module TypeIDs.
type FunctionRecord struct {
	Name   string
	Label  bytecode.LabelID
	Args   []rtti.TypeID
	Result rtti.TypeID
}

// Equal reports field-wise equality.
func (r FunctionRecord) Equal(o FunctionRecord) bool {
	return r.Name == o.Name && r.Label == o.Label && r.Result == o.Result && slices.Equal(r.Args, o.Args)
}

// FunctionTable is the ordered list of routines of a module.
type FunctionTable []FunctionRecord

// Lookup finds a routine by name.
func (ft FunctionTable) Lookup(name string) (FunctionRecord, bool) {
	for _, r := range ft {
		if r.Name == name {
			return r, true
		}
	}
	return FunctionRecord{}, false
}

// Module is the pre-encoding form of a compiled program and the result of
// decoding one.
type Module struct {
	Code        []bytecode.Instr
	Functions   FunctionTable
	RTTI        rtti.Table
	GlobalCount uint32
}

// Equal reports whether two modules have identical contents. Real constants
// compare by bit pattern.
func (m *Module) Equal(o *Module) bool {
	if m.GlobalCount != o.GlobalCount || !m.RTTI.Equal(&o.RTTI) {
		return false
	}
	if !slices.EqualFunc(m.Functions, o.Functions, FunctionRecord.Equal) {
		return false
	}
	return slices.EqualFunc(m.Code, o.Code, func(a, b bytecode.Instr) bool {
		if a.Op == bytecode.OpRealConst && b.Op == bytecode.OpRealConst {
			return math.Float64bits(a.Real) == math.Float64bits(b.Real)
		}
		return a == b
	})
}
