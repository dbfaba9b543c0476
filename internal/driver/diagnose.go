package driver

import (
	"errors"

	"kestrel/internal/astio"
	"kestrel/internal/diag"
	"kestrel/internal/layout"
	"kestrel/internal/module"
	"kestrel/internal/sema"
	"kestrel/internal/types"
)

// Report converts a pipeline error into diagnostics. Joined errors become
// one diagnostic each.
func Report(r diag.Reporter, path string, err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			Report(r, path, e)
		}
		return
	}
	r.Report(Diagnose(path, err))
}

// Diagnose classifies a single error.
func Diagnose(path string, err error) diag.Diagnostic {
	loc := diag.Location{Path: path}

	var de *astio.Error
	if errors.As(err, &de) {
		loc.Line, loc.Where = de.Line, de.Where
		return diag.NewError(astioCode(de.Kind), loc, de.Msg)
	}

	msg := err.Error()
	var pe *sema.ProgramError
	if errors.As(err, &pe) {
		loc.Where = pe.Where
		if pe.Err != nil {
			msg = pe.Err.Error()
			if pe.Reason != "" {
				msg = pe.Reason + ": " + msg
			}
		} else {
			msg = pe.Reason
		}
	}
	return diag.NewError(codeFor(err, pe), loc, msg)
}

func codeFor(err error, pe *sema.ProgramError) diag.Code {
	var (
		ie *sema.TypeInferenceError
		ce *sema.TypeCoercionError
		le *layout.LayoutError
		fe *module.FormatError
	)
	switch {
	case errors.As(err, &ie):
		return diag.TypeInference
	case errors.As(err, &ce):
		return diag.TypeCoercion
	case errors.As(err, &le):
		if le.Kind == layout.LayoutErrRecursiveUnsized {
			return diag.TypeRecursiveRecord
		}
		return diag.TypeLayout
	case errors.Is(err, types.ErrAliasCycle):
		return diag.TypeAliasCycle
	case errors.Is(err, types.ErrUnresolvedAlias):
		return diag.TypeUnresolvedAlias
	case errors.As(err, &fe):
		return diag.ModFormat
	}
	if pe != nil {
		switch pe.Kind {
		case sema.ProblemMismatch:
			return diag.TypeMismatch
		case sema.ProblemDuplicateField:
			return diag.TypeDuplicateField
		case sema.ProblemReserved:
			return diag.ProgReservedName
		case sema.ProblemArity:
			return diag.ProgSignatureArity
		case sema.ProblemEvalNotCall:
			return diag.ProgEvalNotCall
		}
		return diag.ProgInvalid
	}
	return diag.ModLowering
}

func astioCode(k astio.ErrorKind) diag.Code {
	switch k {
	case astio.ErrUnknownName:
		return diag.InputUnknownName
	case astio.ErrDuplicate:
		return diag.InputDuplicateName
	case astio.ErrUnknownType:
		return diag.InputUnknownType
	case astio.ErrUnknownNode:
		return diag.InputUnknownNode
	case astio.ErrBadLiteral:
		return diag.InputBadLiteral
	case astio.ErrMissing:
		return diag.InputMissingEntry
	default:
		return diag.InputMalformed
	}
}
