package lower

import (
	"fmt"

	"kestrel/internal/bytecode"
	"kestrel/internal/ir"
)

// load pushes the value stored at lv.
func (fl *funcLowerer) load(id ir.LvalueID) error {
	lv, ok := fl.prog.Graph.Lvalue(id)
	if !ok {
		return fmt.Errorf("unknown place #%d", id)
	}
	switch lv.Kind {
	case ir.LvalueIdent:
		loc, err := fl.location(lv.Sym)
		if err != nil {
			return err
		}
		fl.emit(bytecode.Load(loc))
	case ir.LvalueMember:
		offset, err := fl.fieldOffset(lv)
		if err != nil {
			return err
		}
		if err := fl.load(lv.Base); err != nil {
			return err
		}
		fl.emit(bytecode.GetField(offset))
	case ir.LvalueIndex:
		if err := fl.load(lv.Base); err != nil {
			return err
		}
		if err := fl.expr(lv.Index); err != nil {
			return err
		}
		fl.emit(bytecode.GetIndex())
	default:
		return fmt.Errorf("invalid place kind %d", lv.Kind)
	}
	return nil
}

// fieldOffset returns the byte offset of a member place within its record.
func (fl *funcLowerer) fieldOffset(lv ir.Lvalue) (uint32, error) {
	base, ok := fl.check.PlaceTypeOf(lv.Base)
	if !ok {
		t, err := fl.check.PlaceType(lv.Base)
		if err != nil {
			return 0, err
		}
		base = t
	}
	idx, _, found := fl.prog.Types.FieldIndex(base, lv.Field)
	if !found {
		return 0, fmt.Errorf("no field %q", fl.prog.Strings.MustLookup(lv.Field))
	}
	off, err := fl.layout.FieldOffset(base, idx)
	if err != nil {
		return 0, err
	}
	return u32(off, "field offset")
}

// assign stores into a variable directly, and into a record field or array
// element through an address.
func (fl *funcLowerer) assign(s *ir.Stmt) error {
	lv, ok := fl.prog.Graph.Lvalue(s.Target)
	if !ok {
		return fmt.Errorf("unknown place #%d", s.Target)
	}
	switch lv.Kind {
	case ir.LvalueIdent:
		loc, err := fl.location(lv.Sym)
		if err != nil {
			return err
		}
		if err := fl.expr(s.Value); err != nil {
			return err
		}
		fl.emit(bytecode.Store(loc))
		return nil
	case ir.LvalueMember:
		offset, err := fl.fieldOffset(lv)
		if err != nil {
			return err
		}
		if err := fl.load(lv.Base); err != nil {
			return err
		}
		fl.emit(bytecode.FieldAddress(offset))
	case ir.LvalueIndex:
		if err := fl.load(lv.Base); err != nil {
			return err
		}
		if err := fl.expr(lv.Index); err != nil {
			return err
		}
		fl.emit(bytecode.IndexAddress())
	default:
		return fmt.Errorf("invalid place kind %d", lv.Kind)
	}
	if err := fl.expr(s.Value); err != nil {
		return err
	}
	fl.emit(bytecode.StoreAddress())
	return nil
}
