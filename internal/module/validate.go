package module

import (
	"fmt"

	"kestrel/internal/bytecode"
	"kestrel/internal/rtti"
)

// Validate checks the cross-references of a module: unique labels, branch
// and call targets, function entries, RTTI integrity, TypeIDs used by
// signatures and Print, and global slot indices.
func (m *Module) Validate() error {
	return validate(m, nil, nil)
}

// validate reports errors at byte offsets taken from codePos and fnPos when
// the module was decoded, or at -1 otherwise.
func validate(m *Module, codePos, fnPos []int64) error {
	at := func(pos []int64, i int) int64 {
		if pos == nil {
			return -1
		}
		return pos[i]
	}
	labels := make(map[bytecode.LabelID]int, len(m.Functions)*2)
	for i, in := range m.Code {
		if in.Op != bytecode.OpLabel {
			continue
		}
		if _, dup := labels[in.Label]; dup {
			return formatErr(fmt.Sprintf("code[%d]", i), at(codePos, i), fmt.Errorf("%w: L%d", ErrDuplicateLabel, in.Label))
		}
		labels[in.Label] = i
	}

	if err := m.RTTI.Validate(); err != nil {
		return formatErr("rtti", -1, err)
	}

	for i, in := range m.Code {
		field := fmt.Sprintf("code[%d]", i)
		switch in.Op {
		case bytecode.OpJump, bytecode.OpJumpZero, bytecode.OpJumpNotZero, bytecode.OpCall:
			if _, ok := labels[in.Label]; !ok {
				return formatErr(field, at(codePos, i), fmt.Errorf("%w: %s targets L%d", ErrDanglingLabel, in.Op, in.Label))
			}
		case bytecode.OpPrint:
			if !m.RTTI.Has(rtti.TypeID(in.Type)) {
				return formatErr(field, at(codePos, i), fmt.Errorf("%w: Print type#%d", ErrDanglingTypeID, in.Type))
			}
		case bytecode.OpLoad, bytecode.OpStore, bytecode.OpAddressOf:
			if in.Loc.Kind == bytecode.LocGlobal && in.Loc.Index >= m.GlobalCount {
				return formatErr(field, at(codePos, i), fmt.Errorf("%w: %s with %d globals", ErrBadOperand, in.Loc, m.GlobalCount))
			}
		}
	}

	for i, r := range m.Functions {
		field := fmt.Sprintf("functions[%d] %s", i, r.Name)
		pos := at(fnPos, i)
		idx, ok := labels[r.Label]
		if !ok {
			return formatErr(field, pos, fmt.Errorf("%w: entry L%d is not a label", ErrBadFunctionEntry, r.Label))
		}
		if idx+1 >= len(m.Code) || m.Code[idx+1].Op != bytecode.OpEnter {
			return formatErr(field, pos, fmt.Errorf("%w: L%d is not followed by Enter", ErrBadFunctionEntry, r.Label))
		}
		if enter := m.Code[idx+1]; int64(enter.Args) != int64(len(r.Args)) {
			return formatErr(field, pos, fmt.Errorf("%w: Enter takes %d arguments, signature has %d", ErrBadFunctionEntry, enter.Args, len(r.Args)))
		}
		for j, a := range r.Args {
			if !m.RTTI.Has(a) {
				return formatErr(field, pos, fmt.Errorf("%w: argument %d type#%d", ErrDanglingTypeID, j, a))
			}
		}
		if !m.RTTI.Has(r.Result) {
			return formatErr(field, pos, fmt.Errorf("%w: result type#%d", ErrDanglingTypeID, r.Result))
		}
	}
	return nil
}
