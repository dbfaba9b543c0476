package sema

import (
	"fmt"

	"kestrel/internal/ir"
)

// TypeInferenceError reports an expression whose type cannot be determined:
// an unresolved name, a missing symbol table, or operands outside every
// operator family.
type TypeInferenceError struct {
	Expr   ir.ExprID
	Reason string
}

func (e *TypeInferenceError) Error() string {
	return "type inference: " + e.Reason
}

// TypeCoercionError reports a conversion outside the legal coercion table.
type TypeCoercionError struct {
	Reason string
}

func (e *TypeCoercionError) Error() string {
	return "type coercion: " + e.Reason
}

// Problem classifies a ProgramError that does not wrap another error.
type Problem uint8

const (
	ProblemWrapped Problem = iota
	ProblemMismatch
	ProblemDuplicateField
	ProblemReserved
	ProblemArity
	ProblemEvalNotCall
	ProblemInvalid
)

// ProgramError reports a declaration or statement that is ill-typed. It
// wraps the underlying inference or coercion error when there is one.
type ProgramError struct {
	Where  string
	Kind   Problem
	Reason string
	Err    error
}

func (e *ProgramError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Where, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Where, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Where, e.Reason)
	}
}

func (e *ProgramError) Unwrap() error {
	return e.Err
}

func inferErr(id ir.ExprID, format string, args ...any) *TypeInferenceError {
	return &TypeInferenceError{Expr: id, Reason: fmt.Sprintf(format, args...)}
}
