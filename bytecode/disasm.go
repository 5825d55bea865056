package bytecode

import (
	"fmt"
	"io"

	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
)

// Disassemble renders every instruction in the chunk to w under a header with
// the given name. The store resolves constant-pool handles for display.
func (c *Chunk) Disassemble(s *object.Store, name string, w io.Writer) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = c.DisassembleInstruction(s, w, offset)
	}
}

// DisassembleInstruction renders the instruction at the given offset and
// returns the offset of the next instruction. The source line is elided with
// a "|" placeholder when it matches the previous instruction's line.
func (c *Chunk) DisassembleInstruction(s *object.Store, w io.Writer, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Fprintf(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Lines[offset])
	}

	code := op.Code(c.Code[offset])
	info := op.GetInfo(code)

	switch code {
	case op.Constant, op.GetGlobal, op.DefineGlobal, op.SetGlobal,
		op.GetProperty, op.SetProperty, op.GetSuper, op.Class, op.Method:
		return c.constantInstruction(s, w, info.Name, offset)
	case op.GetLocal, op.SetLocal, op.GetUpvalue, op.SetUpvalue, op.Call:
		return c.byteInstruction(w, info.Name, offset)
	case op.Jump, op.JumpIfFalse:
		return c.jumpInstruction(w, info.Name, 1, offset)
	case op.Loop:
		return c.jumpInstruction(w, info.Name, -1, offset)
	case op.Invoke, op.SuperInvoke:
		return c.invokeInstruction(s, w, info.Name, offset)
	case op.Closure:
		return c.closureInstruction(s, w, info.Name, offset)
	default:
		if info.Name == "UNKNOWN" {
			fmt.Fprintf(w, "UNKNOWN %d\n", c.Code[offset])
			return offset + 1
		}
		fmt.Fprintf(w, "%s\n", info.Name)
		return offset + 1
	}
}

func (c *Chunk) constantInstruction(s *object.Store, w io.Writer, name string, offset int) int {
	constant := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", name, constant, c.inspectConstant(s, constant))
	return offset + 2
}

func (c *Chunk) byteInstruction(w io.Writer, name string, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", name, slot)
	return offset + 2
}

func (c *Chunk) jumpInstruction(w io.Writer, name string, sign, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", name, offset, offset+3+sign*jump)
	return offset + 3
}

func (c *Chunk) invokeInstruction(s *object.Store, w io.Writer, name string, offset int) int {
	constant := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", name, argCount, constant, c.inspectConstant(s, constant))
	return offset + 3
}

func (c *Chunk) closureInstruction(s *object.Store, w io.Writer, name string, offset int) int {
	constant := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d %s\n", name, constant, c.inspectConstant(s, constant))
	offset += 2

	// One (isLocal, index) pair follows per upvalue of the referenced
	// function, so the operand width depends on the constant.
	if fn := c.functionConstant(s, constant); fn != nil {
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := c.Code[offset]
			index := c.Code[offset+1]
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
			offset += 2
		}
	}
	return offset
}

func (c *Chunk) inspectConstant(s *object.Store, constant byte) string {
	if int(constant) >= len(c.Constants) {
		return "?"
	}
	return s.InspectValue(c.Constants[constant])
}

func (c *Chunk) functionConstant(s *object.Store, constant byte) *Function {
	if int(constant) >= len(c.Constants) {
		return nil
	}
	v := c.Constants[constant]
	if !v.IsObject() {
		return nil
	}
	return GetFunction(s, v.AsObject())
}
