package module

import (
	"errors"
	"fmt"

	"kestrel/internal/bytecode"
	"kestrel/internal/rtti"
)

// Format constants. All multi-byte fields are little-endian.
const (
	Magic        uint32 = 0x4C54534B // "KSTL" in file byte order
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
	HeaderSize          = 40
)

// Version packs a major.minor pair.
func Version(major, minor uint16) uint32 {
	return uint32(major)<<16 | uint32(minor)
}

// CurrentVersion is the version written by this encoder.
var CurrentVersion = Version(VersionMajor, VersionMinor)

// RTTI entry tags in the encoded form.
const (
	tagPrimitive byte = 0
	tagRecord    byte = 1
	tagArray     byte = 2
)

// Sentinels carried by FormatError.
var (
	ErrBadMagic           = errors.New("bad magic")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrSpanOutOfBounds    = errors.New("span out of bounds")
	ErrTruncated          = bytecode.ErrTruncated
	ErrUnknownOpcode      = bytecode.ErrUnknownOpcode
	ErrBadOperand         = bytecode.ErrBadOperand
	ErrDanglingLabel      = errors.New("dangling label")
	ErrDuplicateLabel     = errors.New("duplicate label")
	ErrDanglingTypeID     = rtti.ErrDanglingTypeID
	ErrMalformedRTTI      = rtti.ErrMalformedEntry
	ErrBadFunctionEntry   = errors.New("bad function entry")
	ErrCountMismatch      = errors.New("count mismatch")
)

// FormatError reports a module that cannot be encoded or loaded. Offset is a
// byte offset from the start of the module, or -1 when the module was never
// encoded.
type FormatError struct {
	Field  string
	Offset int64
	Err    error
}

func (e *FormatError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("module format: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("module format: %s at offset %d: %v", e.Field, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(field string, offset int64, err error) *FormatError {
	return &FormatError{Field: field, Offset: offset, Err: err}
}

// MemorySpan is a byte range inside the encoded module.
type MemorySpan struct {
	Offset uint32
	Length uint32
}

// End returns the first offset past the span without overflowing.
func (s MemorySpan) End() uint64 {
	return uint64(s.Offset) + uint64(s.Length)
}

// Header is the fixed prefix of an encoded module.
type Header struct {
	Magic         uint32
	Version       uint32
	Code          MemorySpan
	Functions     MemorySpan
	RTTI          MemorySpan
	FunctionCount uint32
	GlobalCount   uint32
}

// Major returns the major version.
func (h Header) Major() uint16 { return uint16(h.Version >> 16) }

// Minor returns the minor version.
func (h Header) Minor() uint16 { return uint16(h.Version) }
