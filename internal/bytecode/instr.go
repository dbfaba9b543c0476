package bytecode

// LabelID names a code position inside one module. Labels are resolved to
// byte offsets when the module is encoded.
type LabelID uint64

// Instr is one instruction. Only the fields named for Op are meaningful:
//
//	IntConst      Int
//	RealConst     Real
//	Load, Store, AddressOf  Loc
//	BinOp         Operator
//	AllocRecord   Size (bytes)
//	AllocArray    ElemSize (bytes), Size (element count)
//	GetField, FieldAddress  Offset
//	Label, Jump, JumpZero, JumpNotZero, Call  Label
//	Enter         Args, Locals
//	Print         Type
//	Panic         Code
type Instr struct {
	Op       Opcode
	Int      int64
	Real     float64
	Loc      Location
	Operator BinaryOperator
	Size     uint32
	ElemSize uint32
	Offset   uint32
	Label    LabelID
	Args     uint32
	Locals   uint32
	Type     uint32
	Code     PanicCode
}

func IntConst(v int64) Instr        { return Instr{Op: OpIntConst, Int: v} }
func RealConst(v float64) Instr     { return Instr{Op: OpRealConst, Real: v} }
func Load(loc Location) Instr       { return Instr{Op: OpLoad, Loc: loc} }
func Store(loc Location) Instr      { return Instr{Op: OpStore, Loc: loc} }
func AddressOf(loc Location) Instr  { return Instr{Op: OpAddressOf, Loc: loc} }
func Dup() Instr                    { return Instr{Op: OpDup} }
func Drop() Instr                   { return Instr{Op: OpDrop} }
func BinOp(op BinaryOperator) Instr { return Instr{Op: OpBinOp, Operator: op} }
func StoreAddress() Instr           { return Instr{Op: OpStoreAddress} }
func LoadAddress() Instr            { return Instr{Op: OpLoadAddress} }
func ArraySize() Instr              { return Instr{Op: OpArraySize} }
func GetIndex() Instr               { return Instr{Op: OpGetIndex} }
func IndexAddress() Instr           { return Instr{Op: OpIndexAddress} }
func Ret() Instr                    { return Instr{Op: OpRet} }
func IntToBoolOp() Instr            { return Instr{Op: OpIntToBool} }
func RealToIntOp() Instr            { return Instr{Op: OpRealToInt} }
func IntToRealOp() Instr            { return Instr{Op: OpIntToReal} }

// AllocRecord allocates a record block of size bytes.
func AllocRecord(size uint32) Instr { return Instr{Op: OpAllocRecord, Size: size} }

// AllocArray allocates count elements of elemSize bytes each.
func AllocArray(elemSize, count uint32) Instr {
	return Instr{Op: OpAllocArray, ElemSize: elemSize, Size: count}
}

func GetField(offset uint32) Instr     { return Instr{Op: OpGetField, Offset: offset} }
func FieldAddress(offset uint32) Instr { return Instr{Op: OpFieldAddress, Offset: offset} }

func Label(id LabelID) Instr       { return Instr{Op: OpLabel, Label: id} }
func Jump(id LabelID) Instr        { return Instr{Op: OpJump, Label: id} }
func JumpZero(id LabelID) Instr    { return Instr{Op: OpJumpZero, Label: id} }
func JumpNotZero(id LabelID) Instr { return Instr{Op: OpJumpNotZero, Label: id} }
func Call(id LabelID) Instr        { return Instr{Op: OpCall, Label: id} }

// Enter establishes a frame with the given argument and local slot counts.
func Enter(args, locals uint32) Instr { return Instr{Op: OpEnter, Args: args, Locals: locals} }

// Print formats the popped value using RTTI entry typeID.
func Print(typeID uint32) Instr { return Instr{Op: OpPrint, Type: typeID} }

// Raise terminates execution with code.
func Raise(code PanicCode) Instr { return Instr{Op: OpPanic, Code: code} }

// Width is the encoded size of the instruction in bytes.
func (in Instr) Width() int {
	info, ok := in.Op.Info()
	if !ok {
		return 0
	}
	return info.Width()
}
