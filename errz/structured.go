// Package errz defines the structured error types shared by the Lox compiler
// and virtual machine.
package errz

import (
	"bytes"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrCompile indicates a lexical, syntax, or compile-time semantic error.
	ErrCompile ErrorKind = iota
	// ErrRuntime indicates an error raised while executing bytecode.
	ErrRuntime
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrCompile:
		return "compile error"
	case ErrRuntime:
		return "runtime error"
	default:
		return "error"
	}
}

// StructuredError is an error with a kind, a source line, and optionally the
// offending lexeme, for actionable diagnostics from both compile and run time.
type StructuredError struct {
	Message string
	Kind    ErrorKind
	Line    int

	// Where names the offending lexeme, e.g. " at 'foo'" or " at end".
	// Empty when no lexeme is available.
	Where string

	Cause error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("%s%s: %s", e.Kind.String(), e.Where, e.Message)
	}
	return fmt.Sprintf("[line %d] %s%s: %s", e.Line, e.Kind.String(), e.Where, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// WithCause wraps the error with a cause.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// FriendlyErrorMessage returns a human-friendly, multi-line rendering of the
// error suitable for terminal output.
func (e *StructuredError) FriendlyErrorMessage() string {
	var msg bytes.Buffer
	msg.WriteString(e.Error())
	msg.WriteString("\n")
	return msg.String()
}

// NewCompileError creates a compile error at the given source line. The where
// argument names the offending lexeme and may be empty.
func NewCompileError(line int, where, message string) *StructuredError {
	return &StructuredError{
		Kind:    ErrCompile,
		Line:    line,
		Where:   where,
		Message: message,
	}
}

// NewRuntimeErrorf creates a runtime error at the given source line with a
// formatted message.
func NewRuntimeErrorf(line int, format string, args ...any) *StructuredError {
	return &StructuredError{
		Kind:    ErrRuntime,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}
