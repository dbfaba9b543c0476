package layout

import "kestrel/internal/types"

func (e *LayoutEngine) slotLayout() TypeLayout {
	size := e.Target.SlotSize
	if size <= 0 {
		size = 8
	}
	return TypeLayout{Size: size, Align: size}
}

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	tt := e.Types.MustLookup(id)
	switch tt.Kind {
	case types.KindInt, types.KindReal, types.KindBool:
		return e.slotLayout(), nil

	case types.KindArray:
		// The element is stored by reference when composite, so a recursive
		// element type never needs to be expanded here.
		if _, err := e.Types.Resolve(tt.Elem); err != nil {
			return e.slotLayout(), &LayoutError{Kind: LayoutErrUnresolved, Type: tt.Elem, Err: err}
		}
		l := e.slotLayout()
		l.ElemSize = l.Size
		return l, nil

	case types.KindRecord:
		return e.recordLayout(id, state)

	default:
		return e.slotLayout(), nil
	}
}

func (e *LayoutEngine) recordLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	slot := e.slotLayout()
	fields := e.Types.RecordFields(id)
	offsets := make([]int, len(fields))
	for i, f := range fields {
		kind := e.Types.KindOf(f.Type)
		switch kind {
		case types.KindInvalid:
			_, err := e.Types.Resolve(f.Type)
			return slot, &LayoutError{Kind: LayoutErrUnresolved, Type: f.Type, Err: err}
		case types.KindRecord:
			// A record field counts as embedded for the self-containment
			// rule even though it is stored as a reference.
			if _, err := e.layoutOf(f.Type, state); err != nil {
				return slot, err
			}
		case types.KindArray:
			if _, err := e.layoutOf(f.Type, state); err != nil {
				return slot, err
			}
		}
		offsets[i] = i * slot.Size
	}
	return TypeLayout{
		Size:         len(fields) * slot.Size,
		Align:        slot.Align,
		FieldOffsets: offsets,
	}, nil
}
