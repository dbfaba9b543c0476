package bytecode

import "fmt"

// Opcode identifies one stack-machine instruction. Values are part of the
// module format and must not change.
type Opcode byte

const (
	OpInvalid Opcode = iota
	OpIntConst
	OpRealConst
	OpLoad
	OpStore
	OpAddressOf
	OpDup
	OpDrop
	OpBinOp
	OpStoreAddress
	OpLoadAddress
	OpAllocRecord
	OpAllocArray
	OpArraySize
	OpGetIndex
	OpGetField
	OpFieldAddress
	OpIndexAddress
	OpLabel
	OpJump
	OpJumpZero
	OpJumpNotZero
	OpEnter
	OpRet
	OpCall
	OpPrint
	OpPanic
	OpIntToBool
	OpRealToInt
	OpIntToReal

	opcodeCount
)

// OperandKind describes one fixed-width operand in the encoded form.
type OperandKind uint8

const (
	OperandI64      OperandKind = iota + 1 // signed 64-bit integer
	OperandF64                             // IEEE-754 binary64
	OperandU64                             // label id
	OperandU32                             // sizes, offsets, counts, ids
	OperandTarget                          // u32 code offset patched from a label
	OperandLocation                        // kind u8 + index u32
	OperandOperator                        // u8
)

// Width is the encoded size of the operand in bytes.
func (k OperandKind) Width() int {
	switch k {
	case OperandI64, OperandF64, OperandU64:
		return 8
	case OperandU32, OperandTarget:
		return 4
	case OperandLocation:
		return 5
	case OperandOperator:
		return 1
	default:
		return 0
	}
}

// VariableArity marks a stack effect that depends on the instruction.
const VariableArity = -1

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name     string
	Pops     int // VariableArity for Call
	Pushes   int
	Operands []OperandKind
}

// Width is the encoded size of an instruction with this opcode, including
// the opcode byte.
func (info OpcodeInfo) Width() int {
	w := 1
	for _, k := range info.Operands {
		w += k.Width()
	}
	return w
}

var (
	noOperands = []OperandKind(nil)
	oneU32     = []OperandKind{OperandU32}
	oneLoc     = []OperandKind{OperandLocation}
	oneTarget  = []OperandKind{OperandTarget}
)

var opcodeTable = [opcodeCount]OpcodeInfo{
	OpIntConst:     {"IntConst", 0, 1, []OperandKind{OperandI64}},
	OpRealConst:    {"RealConst", 0, 1, []OperandKind{OperandF64}},
	OpLoad:         {"Load", 0, 1, oneLoc},
	OpStore:        {"Store", 1, 0, oneLoc},
	OpAddressOf:    {"AddressOf", 0, 1, oneLoc},
	OpDup:          {"Dup", 1, 2, noOperands},
	OpDrop:         {"Drop", 1, 0, noOperands},
	OpBinOp:        {"BinOp", 2, 1, []OperandKind{OperandOperator}},
	OpStoreAddress: {"StoreAddress", 2, 0, noOperands},
	OpLoadAddress:  {"LoadAddress", 1, 1, noOperands},
	OpAllocRecord:  {"AllocRecord", 0, 1, oneU32},
	OpAllocArray:   {"AllocArray", 0, 1, []OperandKind{OperandU32, OperandU32}},
	OpArraySize:    {"ArraySize", 1, 1, noOperands},
	OpGetIndex:     {"GetIndex", 2, 1, noOperands},
	OpGetField:     {"GetField", 1, 1, oneU32},
	OpFieldAddress: {"FieldAddress", 1, 1, oneU32},
	OpIndexAddress: {"IndexAddress", 2, 1, noOperands},
	OpLabel:        {"Label", 0, 0, []OperandKind{OperandU64}},
	OpJump:         {"Jump", 0, 0, oneTarget},
	OpJumpZero:     {"JumpZero", 1, 0, oneTarget},
	OpJumpNotZero:  {"JumpNotZero", 1, 0, oneTarget},
	OpEnter:        {"Enter", 0, 0, []OperandKind{OperandU32, OperandU32}},
	OpRet:          {"Ret", 1, 0, noOperands},
	OpCall:         {"Call", VariableArity, 1, oneTarget},
	OpPrint:        {"Print", 1, 0, oneU32},
	OpPanic:        {"Panic", 0, 0, oneU32},
	OpIntToBool:    {"IntToBool", 1, 1, noOperands},
	OpRealToInt:    {"RealToInt", 1, 1, noOperands},
	OpIntToReal:    {"IntToReal", 1, 1, noOperands},
}

// Valid reports whether op is a known opcode.
func (op Opcode) Valid() bool {
	return op > OpInvalid && op < opcodeCount
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() (OpcodeInfo, bool) {
	if !op.Valid() {
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op))}, false
	}
	return opcodeTable[op], true
}

// IsBranch reports whether the operand of op is a code target.
func (op Opcode) IsBranch() bool {
	return op == OpJump || op == OpJumpZero || op == OpJumpNotZero || op == OpCall
}

func (op Opcode) String() string {
	info, _ := op.Info()
	return info.Name
}
