// Package spyreerr implements the single fatal-error type that every
// compiler and VM stage in this module funnels through, per the "fatal-exit
// control flow" design note: a result type carrying kind, message, and
// source location, leaving the decision to exit or propagate to the
// outermost driver.
package spyreerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a fatal error by the stage that raised it.
type Kind int

const (
	IO Kind = iota
	Lex
	Parse
	Type
	Assembly
	Runtime
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "io"
	case Lex:
		return "lex"
	case Parse:
		return "parse"
	case Type:
		return "type"
	case Assembly:
		return "assembly"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Error is a fatal Spyre diagnostic: a kind, a message, and the source
// location (file, line) it occurred at, where applicable. Line is zero when
// not meaningful (e.g. IO errors opening the input file).
type Error struct {
	Kind  Kind
	File  string
	Line  int
	cause error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("spyre %s error: %s (file %s, line %d)", e.Kind, e.cause, e.File, e.Line)
	}
	return fmt.Sprintf("spyre %s error: %s (file %s)", e.Kind, e.cause, e.File)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a fatal error of the given kind at the given file/line,
// wrapping the formatted message with a stack trace via pkg/errors so the
// original call site survives into diagnostics.
func New(kind Kind, file string, line int, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		File:  file,
		Line:  line,
		cause: errors.Errorf(format, args...),
	}
}

// Wrap attaches kind/file/line to an existing error, preserving it as the
// cause chain.
func Wrap(kind Kind, file string, line int, err error, msg string) *Error {
	return &Error{
		Kind:  kind,
		File:  file,
		Line:  line,
		cause: errors.Wrap(err, msg),
	}
}

// As reports whether err is (or wraps) a *Error, and returns it.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
