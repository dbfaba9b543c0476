package module

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"
	"unicode/utf8"

	"kestrel/internal/bytecode"
	"kestrel/internal/rtti"
)

// ReadHeader parses and checks the header: magic and version first, then the
// section spans. Spans must lie inside data and be contiguous in the order
// code, function table, RTTI, ending at the end of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, formatErr("header", 0, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data)))
	}
	le := binary.LittleEndian
	h := Header{Magic: le.Uint32(data[0:]), Version: le.Uint32(data[4:])}
	if h.Magic != Magic {
		return Header{}, formatErr("magic", 0, fmt.Errorf("%w: 0x%08x", ErrBadMagic, h.Magic))
	}
	if h.Major() != VersionMajor {
		return Header{}, formatErr("version", 4, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, h.Major(), h.Minor()))
	}
	h.Code = MemorySpan{Offset: le.Uint32(data[8:]), Length: le.Uint32(data[12:])}
	h.Functions = MemorySpan{Offset: le.Uint32(data[16:]), Length: le.Uint32(data[20:])}
	h.RTTI = MemorySpan{Offset: le.Uint32(data[24:]), Length: le.Uint32(data[28:])}
	h.FunctionCount = le.Uint32(data[32:])
	h.GlobalCount = le.Uint32(data[36:])

	size := uint64(len(data))
	spans := []struct {
		field string
		at    int64
		span  MemorySpan
		start uint64
	}{
		{"code_span", 8, h.Code, HeaderSize},
		{"function_table_span", 16, h.Functions, h.Code.End()},
		{"rtti_span", 24, h.RTTI, h.Functions.End()},
	}
	for _, s := range spans {
		if s.span.End() > size {
			return Header{}, formatErr(s.field, s.at, fmt.Errorf("%w: [%d, %d) exceeds %d bytes", ErrSpanOutOfBounds, s.span.Offset, s.span.End(), size))
		}
		if uint64(s.span.Offset) != s.start {
			return Header{}, formatErr(s.field, s.at, fmt.Errorf("%w: starts at %d, expected %d", ErrSpanOutOfBounds, s.span.Offset, s.start))
		}
	}
	if h.RTTI.End() != size {
		return Header{}, formatErr("rtti_span", 24, fmt.Errorf("%w: %d trailing bytes", ErrSpanOutOfBounds, size-h.RTTI.End()))
	}
	return h, nil
}

// Decode is the inverse of Encode. The whole module is validated and no
// partial module is returned.
func Decode(data []byte) (*Module, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	m := &Module{GlobalCount: h.GlobalCount}

	codePos, labels, err := decodeCode(m, data, h.Code)
	if err != nil {
		return nil, err
	}
	fnPos, err := decodeFunctions(m, data, h, labels)
	if err != nil {
		return nil, err
	}
	if err := decodeRTTI(m, data, h.RTTI); err != nil {
		return nil, err
	}
	if err := validate(m, codePos, fnPos); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeCode returns the byte offset of every instruction and the label
// found at each code offset.
func decodeCode(m *Module, data []byte, span MemorySpan) ([]int64, map[uint32]bytecode.LabelID, error) {
	code := data[span.Offset:span.End()]
	var (
		pos     []int64
		targets = make(map[int]uint32)
		labels  = make(map[uint32]bytecode.LabelID)
	)
	for off := 0; off < len(code); {
		abs := int64(span.Offset) + int64(off)
		in, target, n, err := bytecode.ReadInstr(code[off:])
		if err != nil {
			return nil, nil, formatErr(fmt.Sprintf("code[%d]", len(m.Code)), abs, err)
		}
		if in.Op == bytecode.OpLabel {
			labels[uint32(off)] = in.Label
		}
		if in.Op.IsBranch() {
			targets[len(m.Code)] = target
		}
		m.Code = append(m.Code, in)
		pos = append(pos, abs)
		off += n
	}
	for _, i := range slices.Sorted(maps.Keys(targets)) {
		target := targets[i]
		id, ok := labels[target]
		if !ok {
			return nil, nil, formatErr(fmt.Sprintf("code[%d]", i), pos[i], fmt.Errorf("%w: offset %d is not a label", ErrDanglingLabel, target))
		}
		m.Code[i].Label = id
	}
	return pos, labels, nil
}

// reader walks one section and reports truncation against it.
type reader struct {
	data  []byte
	off   int
	base  int64
	field string
	err   error
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.data)-r.off < 4 {
		r.err = formatErr(r.field, r.base+int64(r.off), ErrTruncated)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) u8() byte {
	if r.err != nil {
		return 0
	}
	if r.off >= len(r.data) {
		r.err = formatErr(r.field, r.base+int64(r.off), ErrTruncated)
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) bytes(n uint32) []byte {
	if r.err != nil {
		return nil
	}
	if uint64(len(r.data)-r.off) < uint64(n) {
		r.err = formatErr(r.field, r.base+int64(r.off), ErrTruncated)
		return nil
	}
	v := r.data[r.off : r.off+int(n)]
	r.off += int(n)
	return v
}

// count reads a length prefix whose elements take at least width bytes each,
// rejecting lengths the rest of the section cannot hold.
func (r *reader) count(width int) uint32 {
	n := r.u32()
	if r.err == nil && uint64(n)*uint64(width) > uint64(len(r.data)-r.off) {
		r.err = formatErr(r.field, r.base+int64(r.off-4), fmt.Errorf("%w: %d elements", ErrTruncated, n))
		return 0
	}
	return n
}

func (r *reader) done() bool {
	return r.err != nil || r.off >= len(r.data)
}

func decodeFunctions(m *Module, data []byte, h Header, labels map[uint32]bytecode.LabelID) ([]int64, error) {
	r := &reader{data: data[h.Functions.Offset:h.Functions.End()], base: int64(h.Functions.Offset)}
	var pos []int64
	for !r.done() {
		start := r.base + int64(r.off)
		r.field = fmt.Sprintf("functions[%d]", len(m.Functions))
		name := r.bytes(r.count(1))
		entry := r.u32()
		args := make([]rtti.TypeID, r.count(4))
		for i := range args {
			args[i] = rtti.TypeID(r.u32())
		}
		result := rtti.TypeID(r.u32())
		if r.err != nil {
			return nil, r.err
		}
		if !utf8.Valid(name) {
			return nil, formatErr(r.field, start, fmt.Errorf("%w: name is not UTF-8", ErrBadFunctionEntry))
		}
		label, ok := labels[entry]
		if !ok {
			return nil, formatErr(r.field, start, fmt.Errorf("%w: entry offset %d is not a label", ErrBadFunctionEntry, entry))
		}
		m.Functions = append(m.Functions, FunctionRecord{Name: string(name), Label: label, Args: args, Result: result})
		pos = append(pos, start)
	}
	if int64(len(m.Functions)) != int64(h.FunctionCount) {
		return nil, formatErr("function_count", 32, fmt.Errorf("%w: header says %d, section holds %d", ErrCountMismatch, h.FunctionCount, len(m.Functions)))
	}
	return pos, nil
}

func decodeRTTI(m *Module, data []byte, span MemorySpan) error {
	r := &reader{data: data[span.Offset:span.End()], base: int64(span.Offset)}
	for !r.done() {
		start := r.base + int64(r.off)
		r.field = fmt.Sprintf("rtti[%d]", len(m.RTTI.Entries))
		tag := r.u8()
		id := rtti.TypeID(r.u32())
		var e rtti.Entry
		switch tag {
		case tagPrimitive:
			e = rtti.Primitive(id)
		case tagRecord:
			fields := make([]rtti.TypeID, r.count(4))
			for i := range fields {
				fields[i] = rtti.TypeID(r.u32())
			}
			e = rtti.Entry{Kind: rtti.EntryRecord, ID: id, Fields: fields}
			if len(fields) == 0 {
				e.Fields = nil
			}
		case tagArray:
			e = rtti.Array(id, rtti.TypeID(r.u32()))
		default:
			if r.err == nil {
				return formatErr(r.field, start, fmt.Errorf("%w: tag %d", ErrMalformedRTTI, tag))
			}
		}
		if r.err != nil {
			return r.err
		}
		m.RTTI.Entries = append(m.RTTI.Entries, e)
	}
	if err := m.RTTI.Validate(); err != nil {
		return formatErr("rtti", int64(span.Offset), err)
	}
	return nil
}
