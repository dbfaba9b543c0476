package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownOpcode reports an opcode byte outside the instruction set.
	ErrUnknownOpcode = errors.New("unknown opcode")
	// ErrTruncated reports an instruction cut off by the end of the code.
	ErrTruncated = errors.New("truncated instruction")
	// ErrBadOperand reports an operand outside its domain.
	ErrBadOperand = errors.New("invalid operand")
)

// AppendInstr appends the encoding of in to dst. Branch instructions encode
// target in place of their label; callers resolving labels in two passes
// pass zero first and patch the u32 at offset 1 of the instruction later.
func AppendInstr(dst []byte, in Instr, target uint32) ([]byte, error) {
	info, ok := in.Op.Info()
	if !ok {
		return dst, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, byte(in.Op))
	}
	dst = append(dst, byte(in.Op))
	le := binary.LittleEndian
	switch in.Op {
	case OpIntConst:
		dst = le.AppendUint64(dst, uint64(in.Int))
	case OpRealConst:
		dst = le.AppendUint64(dst, math.Float64bits(in.Real))
	case OpLoad, OpStore, OpAddressOf:
		dst = append(dst, byte(in.Loc.Kind))
		dst = le.AppendUint32(dst, in.Loc.Index)
	case OpBinOp:
		dst = append(dst, byte(in.Operator))
	case OpAllocRecord:
		dst = le.AppendUint32(dst, in.Size)
	case OpAllocArray:
		dst = le.AppendUint32(dst, in.ElemSize)
		dst = le.AppendUint32(dst, in.Size)
	case OpGetField, OpFieldAddress:
		dst = le.AppendUint32(dst, in.Offset)
	case OpLabel:
		dst = le.AppendUint64(dst, uint64(in.Label))
	case OpJump, OpJumpZero, OpJumpNotZero, OpCall:
		dst = le.AppendUint32(dst, target)
	case OpEnter:
		dst = le.AppendUint32(dst, in.Args)
		dst = le.AppendUint32(dst, in.Locals)
	case OpPrint:
		dst = le.AppendUint32(dst, in.Type)
	case OpPanic:
		dst = le.AppendUint32(dst, uint32(in.Code))
	default:
		if len(info.Operands) != 0 {
			return dst, fmt.Errorf("bytecode: no encoder for %s", in.Op)
		}
	}
	return dst, nil
}

// ReadInstr decodes the instruction at the start of src and returns it with
// its encoded width. For branches the Label field is left zero and the raw
// code offset is returned as target.
func ReadInstr(src []byte) (in Instr, target uint32, n int, err error) {
	if len(src) == 0 {
		return Instr{}, 0, 0, ErrTruncated
	}
	op := Opcode(src[0])
	info, ok := op.Info()
	if !ok {
		return Instr{}, 0, 0, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, src[0])
	}
	n = info.Width()
	if len(src) < n {
		return Instr{}, 0, 0, fmt.Errorf("%w: %s needs %d bytes, %d left", ErrTruncated, op, n, len(src))
	}
	in.Op = op
	b := src[1:n]
	le := binary.LittleEndian
	switch op {
	case OpIntConst:
		in.Int = int64(le.Uint64(b))
	case OpRealConst:
		in.Real = math.Float64frombits(le.Uint64(b))
	case OpLoad, OpStore, OpAddressOf:
		kind := LocationKind(b[0])
		if kind > LocArgument {
			return Instr{}, 0, 0, fmt.Errorf("%w: location kind %d", ErrBadOperand, b[0])
		}
		in.Loc = Location{Kind: kind, Index: le.Uint32(b[1:])}
	case OpBinOp:
		in.Operator = BinaryOperator(b[0])
		if !in.Operator.Valid() {
			return Instr{}, 0, 0, fmt.Errorf("%w: operator %d", ErrBadOperand, b[0])
		}
	case OpAllocRecord:
		in.Size = le.Uint32(b)
	case OpAllocArray:
		in.ElemSize = le.Uint32(b)
		in.Size = le.Uint32(b[4:])
	case OpGetField, OpFieldAddress:
		in.Offset = le.Uint32(b)
	case OpLabel:
		in.Label = LabelID(le.Uint64(b))
	case OpJump, OpJumpZero, OpJumpNotZero, OpCall:
		target = le.Uint32(b)
	case OpEnter:
		in.Args = le.Uint32(b)
		in.Locals = le.Uint32(b[4:])
	case OpPrint:
		in.Type = le.Uint32(b)
	case OpPanic:
		in.Code = PanicCode(le.Uint32(b))
	}
	return in, target, n, nil
}
