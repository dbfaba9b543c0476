package bytecode

import "fmt"

// PanicCode identifies a defined runtime failure.
type PanicCode uint32

// Stable panic codes - do not change values.
const (
	PanicBounds            PanicCode = 1001 // VM1001: index out of bounds
	PanicIntToBoolRange    PanicCode = 1002 // VM1002: IntToBool operand not 0 or 1
	PanicInvalidConversion PanicCode = 1003 // VM1003: RealToInt of NaN or out of range
	PanicDivisionByZero    PanicCode = 1004 // VM1004: IntDiv or IntMod by zero
	PanicMissingReturn     PanicCode = 1005 // VM1005: routine ended without a value
)

// String returns the code as "VM1001".
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", uint32(c))
}

// Panic is a defined runtime outcome reported by the opcode contract. It is
// never recovered.
type Panic struct {
	Code    PanicCode
	Message string
}

func (p *Panic) Error() string {
	return fmt.Sprintf("panic %s: %s", p.Code, p.Message)
}

func raise(code PanicCode, format string, args ...any) *Panic {
	return &Panic{Code: code, Message: fmt.Sprintf(format, args...)}
}
