package module

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	bc "kestrel/internal/bytecode"
	"kestrel/internal/rtti"
)

func sampleModule() *Module {
	return &Module{
		Code: []bc.Instr{
			bc.Label(0), bc.Enter(0, 1),
			bc.AllocRecord(16), bc.Store(bc.Local(0)),
			bc.Load(bc.Local(0)), bc.GetField(0), bc.Print(uint32(rtti.IntID)),
			bc.Load(bc.Local(0)), bc.GetField(8), bc.Store(bc.Global(0)),
			bc.Load(bc.Local(0)), bc.Print(3),
			bc.RealConst(math.Copysign(0, -1)), bc.RealToIntOp(), bc.Drop(),
			bc.IntConst(1), bc.IntConst(1), bc.BinOp(bc.BoolXor), bc.Drop(),
			bc.IntConst(1), bc.Call(1), bc.Ret(),
			bc.Label(1), bc.Enter(1, 0),
			bc.Load(bc.Argument(0)), bc.JumpZero(2),
			bc.IntConst(1), bc.Ret(),
			bc.Label(2), bc.IntConst(0), bc.Ret(),
		},
		Functions: FunctionTable{
			{Name: "main", Label: 0, Result: rtti.IntID},
			{Name: "pick", Label: 1, Args: []rtti.TypeID{rtti.BoolID}, Result: rtti.IntID},
		},
		RTTI: rtti.Table{Entries: []rtti.Entry{
			rtti.Primitive(0), rtti.Primitive(1), rtti.Primitive(2),
			rtti.Record(3, rtti.IntID, rtti.IntID),
		}},
		GlobalCount: 1,
	}
}

func mustEncode(t *testing.T, m *Module) []byte {
	t.Helper()
	data, err := Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func expectFormatError(t *testing.T, err error, want error) *FormatError {
	t.Helper()
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FormatError, got %v", err)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
	return fe
}

func TestRoundTrip(t *testing.T) {
	m := sampleModule()
	data := mustEncode(t, m)
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Equal(m) {
		t.Fatalf("decoded module differs:\n got %+v\nwant %+v", got, m)
	}
	again := mustEncode(t, got)
	if !bytes.Equal(again, data) {
		t.Fatalf("re-encoding a decoded module changed the bytes")
	}
}

func TestHeaderLayout(t *testing.T) {
	m := sampleModule()
	data := mustEncode(t, m)
	if string(data[:4]) != "KSTL" {
		t.Fatalf("unexpected magic bytes %q", data[:4])
	}
	h, err := ReadHeader(data)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Version != CurrentVersion || h.FunctionCount != 2 || h.GlobalCount != 1 {
		t.Fatalf("unexpected header %+v", h)
	}
	if h.Code.Offset != HeaderSize || h.Functions.Offset != h.Code.Offset+h.Code.Length ||
		h.RTTI.Offset != h.Functions.Offset+h.Functions.Length || int(h.RTTI.End()) != len(data) {
		t.Fatalf("sections are not contiguous: %+v", h)
	}
	var codeLen int
	for _, in := range m.Code {
		codeLen += in.Width()
	}
	if int(h.Code.Length) != codeLen {
		t.Fatalf("expected code length %d, got %d", codeLen, h.Code.Length)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a := mustEncode(t, sampleModule())
	b := mustEncode(t, sampleModule())
	if !bytes.Equal(a, b) {
		t.Fatalf("identical modules encoded differently")
	}
}

func TestBranchOperandsArePatched(t *testing.T) {
	m := sampleModule()
	data := mustEncode(t, m)
	var off, label2 int
	jumpAt := -1
	for _, in := range m.Code {
		if in.Op == bc.OpLabel && in.Label == 2 {
			label2 = off
		}
		if in.Op == bc.OpJumpZero {
			jumpAt = off
		}
		off += in.Width()
	}
	got := binary.LittleEndian.Uint32(data[HeaderSize+jumpAt+1:])
	if int(got) != label2 {
		t.Fatalf("expected JumpZero to target %d, got %d", label2, got)
	}
}

func TestDecodeRejectsBadMagicBeforeSpans(t *testing.T) {
	data := mustEncode(t, sampleModule())
	data[0] ^= 0xFF
	binary.LittleEndian.PutUint32(data[12:], math.MaxUint32)
	_, err := Decode(data)
	fe := expectFormatError(t, err, ErrBadMagic)
	if fe.Field != "magic" || fe.Offset != 0 {
		t.Fatalf("unexpected error location %s@%d", fe.Field, fe.Offset)
	}
}

func TestDecodeVersionPolicy(t *testing.T) {
	data := mustEncode(t, sampleModule())
	binary.LittleEndian.PutUint32(data[4:], Version(2, 0))
	_, err := Decode(data)
	expectFormatError(t, err, ErrUnsupportedVersion)

	binary.LittleEndian.PutUint32(data[4:], Version(VersionMajor, 7))
	if _, err := Decode(data); err != nil {
		t.Fatalf("newer minor version must load: %v", err)
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	m := sampleModule()
	base := mustEncode(t, m)
	h, err := ReadHeader(base)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	var jumpAt int
	for off, i := 0, 0; i < len(m.Code); i++ {
		if m.Code[i].Op == bc.OpJumpZero {
			jumpAt = int(h.Code.Offset) + off
		}
		off += m.Code[i].Width()
	}

	cases := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"short header", func(b []byte) []byte { return b[:HeaderSize-1] }, ErrTruncated},
		{"truncated module", func(b []byte) []byte { return b[:len(b)-1] }, ErrSpanOutOfBounds},
		{"trailing bytes", func(b []byte) []byte { return append(b, 0) }, ErrSpanOutOfBounds},
		{"code span past end", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[12:], uint32(len(b)))
			return b
		}, ErrSpanOutOfBounds},
		{"dangling rtti field", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[len(b)-4:], 4)
			return b
		}, ErrDanglingTypeID},
		{"unknown opcode", func(b []byte) []byte {
			b[HeaderSize] = 0xEE
			return b
		}, ErrUnknownOpcode},
		{"jump into instruction", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[jumpAt+1:], 1)
			return b
		}, ErrDanglingLabel},
		{"function count", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[32:], 3)
			return b
		}, ErrCountMismatch},
		{"global count", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[36:], 0)
			return b
		}, ErrBadOperand},
	}
	for _, tc := range cases {
		data := tc.mutate(append([]byte(nil), base...))
		m, err := Decode(data)
		if m != nil {
			t.Fatalf("%s: partial module returned", tc.name)
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDecodeReportsFirstDanglingBranch(t *testing.T) {
	m := &Module{
		Code: []bc.Instr{
			bc.Label(0), bc.Enter(0, 0),
			bc.IntConst(0), bc.JumpZero(1),
			bc.IntConst(0), bc.JumpZero(1),
			bc.IntConst(0), bc.JumpZero(1),
			bc.Label(1), bc.IntConst(0), bc.Ret(),
		},
		Functions: FunctionTable{{Name: "main", Label: 0, Result: rtti.IntID}},
		RTTI:      rtti.Table{Entries: []rtti.Entry{rtti.Primitive(0), rtti.Primitive(1), rtti.Primitive(2)}},
	}
	base := mustEncode(t, m)
	var jumps []int
	for off, i := HeaderSize, 0; i < len(m.Code); i++ {
		if m.Code[i].Op == bc.OpJumpZero {
			jumps = append(jumps, off)
		}
		off += m.Code[i].Width()
	}
	for _, at := range jumps {
		binary.LittleEndian.PutUint32(base[at+1:], 1)
	}
	for range 20 {
		_, err := Decode(append([]byte(nil), base...))
		fe := expectFormatError(t, err, ErrDanglingLabel)
		if fe.Field != "code[3]" || fe.Offset != int64(jumps[0]) {
			t.Fatalf("expected the first jump at code[3]@%d, got %s@%d", jumps[0], fe.Field, fe.Offset)
		}
	}
}

func TestEncodeRejectsInvalidModules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Module)
		want   error
	}{
		{"dangling jump", func(m *Module) { m.Code[25] = bc.JumpZero(99) }, ErrDanglingLabel},
		{"duplicate label", func(m *Module) { m.Code[28] = bc.Label(1) }, ErrDuplicateLabel},
		{"entry without enter", func(m *Module) { m.Code[1] = bc.Dup() }, ErrBadFunctionEntry},
		{"arity mismatch", func(m *Module) { m.Functions[1].Args = nil }, ErrBadFunctionEntry},
		{"dangling print", func(m *Module) { m.Code[11] = bc.Print(9) }, ErrDanglingTypeID},
		{"dangling result", func(m *Module) { m.Functions[0].Result = 4 }, ErrDanglingTypeID},
		{"dangling rtti", func(m *Module) { m.RTTI.Entries[3] = rtti.Record(3, 7) }, ErrDanglingTypeID},
	}
	for _, tc := range cases {
		m := sampleModule()
		tc.mutate(m)
		data, err := Encode(m)
		if data != nil {
			t.Fatalf("%s: bytes returned on error", tc.name)
		}
		expectFormatError(t, err, tc.want)
	}
}
