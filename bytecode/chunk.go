// Package bytecode defines the compiled representation of Lox code: the
// Chunk holding instructions, source lines, and the constant pool, the
// Function object produced by the compiler, and a disassembler.
package bytecode

import (
	"errors"

	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
)

// MaxConstants is the capacity of a chunk's constant pool. Indexes must fit
// in a single operand byte.
const MaxConstants = 256

// ErrTooManyConstants is returned when a constant pool is full.
var ErrTooManyConstants = errors.New("too many constants in one chunk")

// Chunk is a flat bytecode buffer with a parallel line-number table and a
// constant pool. Lines[i] is the source line of Code[i]; the two slices are
// always the same length.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []object.Value
}

// NewChunk returns an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one byte and its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte and its source line.
func (c *Chunk) WriteOp(code op.Code, line int) {
	c.Write(byte(code), line)
}

// AddConstant appends a value to the constant pool and returns its index.
// The pool holds at most MaxConstants values so the index fits in one byte.
func (c *Chunk) AddConstant(v object.Value) (int, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1, nil
}
