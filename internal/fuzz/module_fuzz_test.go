package fuzztests

import (
	"testing"

	"kestrel/internal/module"
)

// FuzzModuleDecode feeds arbitrary bytes to the loader. Anything it accepts
// must validate, re-encode and load back unchanged.
func FuzzModuleDecode(f *testing.F) {
	addModuleSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)
		m, err := module.Decode(input)
		if err != nil {
			return
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("decoded module fails validation: %v", err)
		}
		again, err := module.Encode(m)
		if err != nil {
			t.Fatalf("decoded module does not re-encode: %v", err)
		}
		back, err := module.Decode(again)
		if err != nil {
			t.Fatalf("re-encoded module does not load: %v", err)
		}
		if !back.Equal(m) {
			t.Fatalf("re-encoding changed the module")
		}
	})
}
