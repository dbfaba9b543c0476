package bytecode

import (
	"fmt"
	"io"
	"strconv"
)

func (in Instr) String() string {
	switch in.Op {
	case OpIntConst:
		return fmt.Sprintf("IntConst %d", in.Int)
	case OpRealConst:
		return "RealConst " + strconv.FormatFloat(in.Real, 'g', -1, 64)
	case OpLoad, OpStore, OpAddressOf:
		return fmt.Sprintf("%s %s", in.Op, in.Loc)
	case OpBinOp:
		return "BinOp " + in.Operator.String()
	case OpAllocRecord:
		return fmt.Sprintf("AllocRecord size=%d", in.Size)
	case OpAllocArray:
		return fmt.Sprintf("AllocArray elem=%d size=%d", in.ElemSize, in.Size)
	case OpGetField, OpFieldAddress:
		return fmt.Sprintf("%s +%d", in.Op, in.Offset)
	case OpLabel:
		return fmt.Sprintf("L%d:", in.Label)
	case OpJump, OpJumpZero, OpJumpNotZero, OpCall:
		return fmt.Sprintf("%s L%d", in.Op, in.Label)
	case OpEnter:
		return fmt.Sprintf("Enter args=%d locals=%d", in.Args, in.Locals)
	case OpPrint:
		return fmt.Sprintf("Print type#%d", in.Type)
	case OpPanic:
		return "Panic " + in.Code.String()
	default:
		return in.Op.String()
	}
}

// Disassemble writes one instruction per line. Labels start a line of their
// own; other instructions are indented.
func Disassemble(w io.Writer, code []Instr) error {
	for _, in := range code {
		prefix := "  "
		if in.Op == OpLabel {
			prefix = ""
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", prefix, in); err != nil {
			return err
		}
	}
	return nil
}
