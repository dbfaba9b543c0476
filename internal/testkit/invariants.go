// Package testkit holds structural checks shared by tests and fuzz harnesses.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"kestrel/internal/bytecode"
	"kestrel/internal/module"
	"kestrel/internal/rtti"
)

// CheckCodeInvariants verifies the shape lowering promises for every module:
// 1) labels are unique and every jump or call targets one of them
// 2) each routine starts at its label with Enter carrying its arity
// 3) routines are laid out in function table order and cover the code
// 4) the last non-label instruction of a routine is Ret, Panic or Jump
// 5) every type id in the function table or a Print exists in the RTTI
func CheckCodeInvariants(m *module.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	defined := make(map[bytecode.LabelID]int, len(m.Functions))
	for i, in := range m.Code {
		if in.Op != bytecode.OpLabel {
			continue
		}
		if prev, dup := defined[in.Label]; dup {
			return fmt.Errorf("label L%d defined at %d and %d", in.Label, prev, i)
		}
		defined[in.Label] = i
	}
	for i, in := range m.Code {
		switch in.Op {
		case bytecode.OpJump, bytecode.OpJumpZero, bytecode.OpJumpNotZero, bytecode.OpCall:
			if _, ok := defined[in.Label]; !ok {
				return fmt.Errorf("instruction %d (%s) targets an undefined label", i, in)
			}
		case bytecode.OpPrint:
			if !m.RTTI.Has(rtti.TypeID(in.Type)) {
				return fmt.Errorf("instruction %d prints unknown type #%d", i, in.Type)
			}
		}
	}

	next := 0
	for fi, f := range m.Functions {
		start, ok := defined[f.Label]
		if !ok {
			return fmt.Errorf("routine %s: label L%d not in code", f.Name, f.Label)
		}
		if start != next {
			return fmt.Errorf("routine %s: starts at %d, expected %d", f.Name, start, next)
		}
		if start+1 >= len(m.Code) || m.Code[start+1].Op != bytecode.OpEnter {
			return fmt.Errorf("routine %s: label not followed by Enter", f.Name)
		}
		arity, err := safecast.Conv[uint32](len(f.Args))
		if err != nil {
			return fmt.Errorf("routine %s: %w", f.Name, err)
		}
		if got := m.Code[start+1].Args; got != arity {
			return fmt.Errorf("routine %s: Enter declares %d arguments, table lists %d", f.Name, got, arity)
		}
		for _, t := range append(f.Args[:len(f.Args):len(f.Args)], f.Result) {
			if !m.RTTI.Has(t) {
				return fmt.Errorf("routine %s: unknown type #%d", f.Name, t)
			}
		}

		end := len(m.Code)
		if fi+1 < len(m.Functions) {
			if e, ok := defined[m.Functions[fi+1].Label]; ok {
				end = e
			}
		}
		if err := checkTail(f.Name, m.Code[start:end]); err != nil {
			return err
		}
		next = end
	}
	if len(m.Functions) > 0 && next != len(m.Code) {
		return fmt.Errorf("code continues past the last routine at %d", next)
	}
	return nil
}

func checkTail(name string, body []bytecode.Instr) error {
	for i := len(body) - 1; i >= 0; i-- {
		switch body[i].Op {
		case bytecode.OpLabel:
			continue
		case bytecode.OpRet, bytecode.OpPanic, bytecode.OpJump:
			return nil
		default:
			return fmt.Errorf("routine %s: falls off its end after %s", name, body[i])
		}
	}
	return fmt.Errorf("routine %s: empty body", name)
}
