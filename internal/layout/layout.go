package layout

import (
	"kestrel/internal/types"
)

// TypeLayout is the storage shape of a type.
//
// Size is the number of bytes a value of the type occupies in a slot for
// primitives and arrays (arrays are references). For records, Size is the
// byte size of the heap block AllocRecord must reserve, and FieldOffsets
// lists the byte offset of each field inside that block.
type TypeLayout struct {
	Size  int
	Align int

	// Record-only.
	FieldOffsets []int

	// Array-only: bytes per element inside the heap block.
	ElemSize int
}

// LayoutEngine computes memory layout for types.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner

	cache map[types.TypeID]cacheEntry
}

type cacheEntry struct {
	Layout TypeLayout
	Err    *LayoutError
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *types.Interner) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Types:  typesIn,
		cache:  make(map[types.TypeID]cacheEntry, 16),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{index: make(map[types.TypeID]int, 8)}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	layout, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return layout, err
	}
	return layout, nil
}

func (e *LayoutEngine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	canon, rerr := e.Types.Resolve(t)
	if rerr != nil {
		return e.slotLayout(), &LayoutError{Kind: LayoutErrUnresolved, Type: t, Err: rerr}
	}
	if cached, ok := e.cache[canon]; ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[canon]; ok {
		cycle := append([]types.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, canon)
		err := &LayoutError{Kind: LayoutErrRecursiveUnsized, Type: canon, Cycle: cycle}
		err.Names = make([]string, len(cycle))
		for i, id := range cycle {
			err.Names[i] = types.Label(e.Types, id)
		}
		e.cache[canon] = cacheEntry{Layout: e.slotLayout(), Err: err}
		return e.slotLayout(), err
	}

	state.index[canon] = len(state.stack)
	state.stack = append(state.stack, canon)
	layout, err := e.computeLayout(canon, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, canon)

	e.cache[canon] = cacheEntry{Layout: layout, Err: err}
	return layout, err
}

// SizeOf returns the size of a type in bytes (block size for records).
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// FieldOffset returns the byte offset of a record field.
func (e *LayoutEngine) FieldOffset(recordT types.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(recordT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}

// ElemSize returns the per-element byte size of an array type.
func (e *LayoutEngine) ElemSize(arrayT types.TypeID) (int, error) {
	l, err := e.LayoutOf(arrayT)
	return l.ElemSize, err
}
