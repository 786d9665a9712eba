// Package celerrors defines the structured error taxonomy evaluation and
// compilation surface with (spec §7). It is intentionally independent of
// internal/celvalue (taking type names and formatted operands as strings)
// so that the value domain can return celerrors.Error without an import
// cycle.
package celerrors

import (
	"fmt"
	"io"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

// Kind identifies one of the normative error kinds from spec §7.
type Kind string

const (
	KindUndeclaredReference    Kind = "UndeclaredReference"
	KindNoSuchKey              Kind = "NoSuchKey"
	KindNoSuchOverload         Kind = "NoSuchOverload"
	KindUnexpectedType         Kind = "UnexpectedType"
	KindUnsupportedBinaryOp    Kind = "UnsupportedBinaryOperator"
	KindUnsupportedUnaryOp     Kind = "UnsupportedUnaryOperator"
	KindUnsupportedIndex       Kind = "UnsupportedIndex"
	KindUnsupportedListIndex   Kind = "UnsupportedListIndex"
	KindUnsupportedMapIndex    Kind = "UnsupportedMapIndex"
	KindUnsupportedKeyType     Kind = "UnsupportedKeyType"
	KindIndexOutOfBounds       Kind = "IndexOutOfBounds"
	KindValuesNotComparable    Kind = "ValuesNotComparable"
	KindOverflow               Kind = "Overflow"
	KindDivisionByZero         Kind = "DivisionByZero"
	KindRemainderByZero        Kind = "RemainderByZero"
	KindConversion             Kind = "Conversion"
	KindFunctionError          Kind = "FunctionError"
)

// Error is the single structured error type every evaluation failure
// surfaces as. Evaluation never partially succeeds; the first error
// encountered in source order is the one returned (§7).
type Error struct {
	Kind Kind
	// NodeID is the id of the AST node that raised the error, when known.
	NodeID int64
	// Detail is a short human-readable description specific to Kind, e.g.
	// the undeclared name, the out-of-range index, or the offending
	// function name.
	Detail string
	// cause is set only for FunctionError, wrapping the user-raised error.
	cause error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the wrapped user cause for FunctionError so callers can
// errors.As/errors.Is their way back to it.
func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// UndeclaredReference reports a failed identifier or function lookup.
func UndeclaredReference(name string) *Error {
	return newErr(KindUndeclaredReference, name)
}

// NoSuchKey reports a missing map or object field.
func NoSuchKey(key string) *Error {
	return newErr(KindNoSuchKey, key)
}

// NoSuchOverload reports a call whose argument types matched no registered overload.
func NoSuchOverload(function string) *Error {
	return newErr(KindNoSuchOverload, function)
}

// UnexpectedType reports a coercion or operator applied to the wrong kind.
func UnexpectedType(got, want string) *Error {
	return newErr(KindUnexpectedType, fmt.Sprintf("got %s, want %s", got, want))
}

// UnsupportedBinaryOperator reports a binary operator with no defined
// semantics for the operand kinds.
func UnsupportedBinaryOperator(op, left, right string) *Error {
	return newErr(KindUnsupportedBinaryOp, fmt.Sprintf("%s %s %s", left, op, right))
}

// UnsupportedUnaryOperator reports a unary operator with no defined
// semantics for the operand kind.
func UnsupportedUnaryOperator(op, value string) *Error {
	return newErr(KindUnsupportedUnaryOp, fmt.Sprintf("%s%s", op, value))
}

// UnsupportedIndex reports indexing a non-indexable target.
func UnsupportedIndex(target, index string) *Error {
	return newErr(KindUnsupportedIndex, fmt.Sprintf("%s[%s]", target, index))
}

// UnsupportedListIndex reports a list index of the wrong kind.
func UnsupportedListIndex(index string) *Error {
	return newErr(KindUnsupportedListIndex, index)
}

// UnsupportedMapIndex reports a map index of a kind unconvertible to Key.
func UnsupportedMapIndex(index string) *Error {
	return newErr(KindUnsupportedMapIndex, index)
}

// UnsupportedKeyType reports an attempt to build a map Key from a kind
// outside {int, uint, bool, string}.
func UnsupportedKeyType(value string) *Error {
	return newErr(KindUnsupportedKeyType, value)
}

// IndexOutOfBounds reports a list index outside [0, len).
func IndexOutOfBounds(index string) *Error {
	return newErr(KindIndexOutOfBounds, index)
}

// ValuesNotComparable reports an ordering comparison with no defined result
// (e.g. either operand is NaN).
func ValuesNotComparable(left, right string) *Error {
	return newErr(KindValuesNotComparable, fmt.Sprintf("%s, %s", left, right))
}

// Overflow reports an arithmetic or timestamp operation whose true result
// falls outside the representable range.
func Overflow(op, left, right string) *Error {
	return newErr(KindOverflow, fmt.Sprintf("%s %s %s", left, op, right))
}

// DivisionByZero reports integer division by zero.
func DivisionByZero(dividend string) *Error {
	return newErr(KindDivisionByZero, dividend)
}

// RemainderByZero reports integer remainder by zero.
func RemainderByZero(dividend string) *Error {
	return newErr(KindRemainderByZero, dividend)
}

// Conversion reports a failed coercion to targetType.
func Conversion(targetType, value string) *Error {
	return newErr(KindConversion, fmt.Sprintf("%s(%s)", targetType, value))
}

// FunctionError wraps an error raised by a host-supplied function, carrying
// a stack trace via github.com/pkg/errors; Unwrap exposes that wrapped cause,
// so callers reach the original error with errors.Is/errors.As.
func FunctionError(function string, cause error) *Error {
	return &Error{
		Kind:   KindFunctionError,
		Detail: function + ": " + cause.Error(),
		cause:  errors.WithStack(cause),
	}
}

// WithNode attaches the id of the AST node that raised e and returns e for
// chaining.
func (e *Error) WithNode(id int64) *Error {
	e.NodeID = id
	return e
}

// Fprint renders err to w, highlighting the error kind in bold red when w is
// a terminal (detected via isatty), matching the teacher's colorized CLI
// error texture without reviving its CLI.
func Fprint(w io.Writer, err *Error) {
	useColor := false
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if useColor {
		fmt.Fprintf(w, "\x1b[1;31m%s\x1b[0m", err.Kind)
	} else {
		fmt.Fprint(w, err.Kind)
	}
	if err.Detail != "" {
		fmt.Fprintf(w, ": %s", err.Detail)
	}
	if err.NodeID != 0 {
		fmt.Fprintf(w, " (node #%d)", err.NodeID)
	}
	fmt.Fprintln(w)
}
