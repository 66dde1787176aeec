// Package perr provides the structured error type used across fpgapack.
//
// Every error the packer surfaces to a caller (as opposed to the internal,
// non-error try-pack statuses in package trypack) carries one of four
// codes, a human message, file name and line number when the error
// originates from a parsed file, and an optional wrapped cause.
package perr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

const (
	// ArchError marks a pb-type/model inconsistency or a missing
	// architectural capability to host an atom model.
	ArchError Code = "ARCH_ERROR"

	// NetlistError marks a packed-netlist parse or semantic mismatch:
	// unknown primitive, extra/missing pins, inconsistent port widths,
	// duplicate block, mode name not found, mismatched top instance.
	NetlistError Code = "NETLIST_ERROR"

	// PlacementFileError marks a placement-file inconsistency: duplicate
	// headers, block not in the current netlist, grid size mismatch,
	// out-of-range coordinates.
	PlacementFileError Code = "PLACEMENT_FILE_ERROR"

	// PackError marks a packing impossibility: a clock net fanning in to
	// a combinational input, an architecture too small for any molecule,
	// or a chain that cannot fit.
	PackError Code = "PACK_ERROR"
)

// Error is a structured fpgapack error.
type Error struct {
	Code    Code
	Message string
	File    string // source file the error was raised about, if any
	Line    int    // 1-based line number within File, 0 if not applicable
	Cause   error
}

// Error implements the error interface, always including file/line context
// per spec: "Errors carry file name, line number, and context message."
func (e *Error) Error() string {
	loc := ""
	if e.File != "" {
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d: ", e.File, e.Line)
		} else {
			loc = fmt.Sprintf("%s: ", e.File)
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s%s: %s: %v", loc, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s%s: %s", loc, e.Code, e.Message)
}

// Unwrap returns the wrapped cause, for errors.Is/errors.As compatibility.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with no file/line context.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// At creates an Error anchored to a file and line.
func At(code Code, file string, line int, format string, args ...any) *Error {
	return &Error{Code: code, File: file, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause, with no file/line context.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WrapAt creates an Error wrapping cause, anchored to a file and line.
func WrapAt(code Code, file string, line int, cause error, format string, args ...any) *Error {
	return &Error{Code: code, File: file, Line: line, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
