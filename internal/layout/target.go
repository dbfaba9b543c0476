package layout

// Target describes the slot geometry a module is laid out for.
type Target struct {
	Name     string
	SlotSize int // bytes per field or element slot
}

// Portable is the only target modules are produced for: every field kind,
// references included, occupies one 8-byte slot.
func Portable() Target {
	return Target{Name: "portable64", SlotSize: 8}
}
