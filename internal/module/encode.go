package module

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"

	"kestrel/internal/bytecode"
	"kestrel/internal/rtti"
)

type patch struct {
	at    int // index of the u32 operand in the buffer
	label bytecode.LabelID
	instr int
}

// Encode validates m and serializes it: header, code, function table, RTTI.
// Code is written in two passes; the first records label offsets and leaves
// branch operands zero, the second patches them. The header is written last
// into the reserved prefix. No bytes are returned on error.
func Encode(m *Module) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	le := binary.LittleEndian
	buf := make([]byte, HeaderSize, HeaderSize+len(m.Code)*6+len(m.Functions)*32+m.RTTI.Len()*12)

	labels := make(map[bytecode.LabelID]uint32, len(m.Functions)*2)
	var patches []patch
	for i, in := range m.Code {
		off, err := safecast.Conv[uint32](len(buf) - HeaderSize)
		if err != nil {
			return nil, formatErr("code", int64(len(buf)), fmt.Errorf("code section too large: %w", err))
		}
		if in.Op == bytecode.OpLabel {
			labels[in.Label] = off
		}
		start := len(buf)
		buf, err = bytecode.AppendInstr(buf, in, 0)
		if err != nil {
			return nil, formatErr(fmt.Sprintf("code[%d]", i), int64(start), err)
		}
		if in.Op.IsBranch() {
			patches = append(patches, patch{at: start + 1, label: in.Label, instr: i})
		}
	}
	for _, p := range patches {
		target, ok := labels[p.label]
		if !ok {
			return nil, formatErr(fmt.Sprintf("code[%d]", p.instr), int64(p.at-1), fmt.Errorf("%w: L%d", ErrDanglingLabel, p.label))
		}
		le.PutUint32(buf[p.at:], target)
	}
	code, err := spanFrom(HeaderSize, len(buf))
	if err != nil {
		return nil, formatErr("code", HeaderSize, err)
	}

	fnStart := len(buf)
	for _, r := range m.Functions {
		if buf, err = appendFunction(buf, r, labels[r.Label]); err != nil {
			return nil, formatErr("functions "+r.Name, int64(len(buf)), err)
		}
	}
	functions, err := spanFrom(fnStart, len(buf))
	if err != nil {
		return nil, formatErr("functions", int64(fnStart), err)
	}

	rttiStart := len(buf)
	for _, e := range m.RTTI.Entries {
		if buf, err = appendEntry(buf, e); err != nil {
			return nil, formatErr(fmt.Sprintf("rtti[%d]", e.ID), int64(len(buf)), err)
		}
	}
	rttiSpan, err := spanFrom(rttiStart, len(buf))
	if err != nil {
		return nil, formatErr("rtti", int64(rttiStart), err)
	}

	count, err := safecast.Conv[uint32](len(m.Functions))
	if err != nil {
		return nil, formatErr("function_count", -1, err)
	}
	putHeader(buf, Header{
		Magic:         Magic,
		Version:       CurrentVersion,
		Code:          code,
		Functions:     functions,
		RTTI:          rttiSpan,
		FunctionCount: count,
		GlobalCount:   m.GlobalCount,
	})
	return buf, nil
}

func spanFrom(start, end int) (MemorySpan, error) {
	off, err := safecast.Conv[uint32](start)
	if err != nil {
		return MemorySpan{}, err
	}
	n, err := safecast.Conv[uint32](end - start)
	if err != nil {
		return MemorySpan{}, err
	}
	return MemorySpan{Offset: off, Length: n}, nil
}

func appendU32Len(dst []byte, n int) ([]byte, error) {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return dst, err
	}
	return binary.LittleEndian.AppendUint32(dst, v), nil
}

func appendFunction(dst []byte, r FunctionRecord, entry uint32) ([]byte, error) {
	le := binary.LittleEndian
	dst, err := appendU32Len(dst, len(r.Name))
	if err != nil {
		return dst, err
	}
	dst = append(dst, r.Name...)
	dst = le.AppendUint32(dst, entry)
	if dst, err = appendU32Len(dst, len(r.Args)); err != nil {
		return dst, err
	}
	for _, a := range r.Args {
		dst = le.AppendUint32(dst, uint32(a))
	}
	return le.AppendUint32(dst, uint32(r.Result)), nil
}

func appendEntry(dst []byte, e rtti.Entry) ([]byte, error) {
	le := binary.LittleEndian
	var err error
	switch e.Kind {
	case rtti.EntryPrimitive:
		dst = append(dst, tagPrimitive)
		dst = le.AppendUint32(dst, uint32(e.ID))
	case rtti.EntryRecord:
		dst = append(dst, tagRecord)
		dst = le.AppendUint32(dst, uint32(e.ID))
		if dst, err = appendU32Len(dst, len(e.Fields)); err != nil {
			return dst, err
		}
		for _, f := range e.Fields {
			dst = le.AppendUint32(dst, uint32(f))
		}
	case rtti.EntryArray:
		dst = append(dst, tagArray)
		dst = le.AppendUint32(dst, uint32(e.ID))
		dst = le.AppendUint32(dst, uint32(e.Elem))
	default:
		return dst, fmt.Errorf("%w: kind %d", ErrMalformedRTTI, e.Kind)
	}
	return dst, nil
}

func putHeader(dst []byte, h Header) {
	le := binary.LittleEndian
	le.PutUint32(dst[0:], h.Magic)
	le.PutUint32(dst[4:], h.Version)
	le.PutUint32(dst[8:], h.Code.Offset)
	le.PutUint32(dst[12:], h.Code.Length)
	le.PutUint32(dst[16:], h.Functions.Offset)
	le.PutUint32(dst[20:], h.Functions.Length)
	le.PutUint32(dst[24:], h.RTTI.Offset)
	le.PutUint32(dst[28:], h.RTTI.Length)
	le.PutUint32(dst[32:], h.FunctionCount)
	le.PutUint32(dst[36:], h.GlobalCount)
}
