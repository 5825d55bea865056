package bytecode

import (
	"bytes"
	"testing"

	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/stretchr/testify/require"
)

func disasm(t *testing.T, s *object.Store, c *Chunk, name string) string {
	t.Helper()
	var buf bytes.Buffer
	c.Disassemble(s, name, &buf)
	return buf.String()
}

func TestDisassembleSimpleInstructions(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	c.WriteOp(op.Nil, 1)
	c.WriteOp(op.Add, 1)
	c.WriteOp(op.Return, 2)

	expected := "== test ==\n" +
		"0000    1 NIL\n" +
		"0001    | ADD\n" +
		"0002    2 RETURN\n"
	require.Equal(t, expected, disasm(t, store, c, "test"))
}

func TestDisassembleConstantInstruction(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	idx, err := c.AddConstant(object.NewNumber(1.5))
	require.NoError(t, err)
	c.WriteOp(op.Constant, 10)
	c.Write(byte(idx), 10)

	expected := "== k ==\n" +
		"0000   10 CONSTANT            0 '1.5'\n"
	require.Equal(t, expected, disasm(t, store, c, "k"))
}

func TestDisassembleByteInstruction(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	c.WriteOp(op.GetLocal, 3)
	c.Write(2, 3)
	c.WriteOp(op.Call, 3)
	c.Write(1, 3)

	expected := "== b ==\n" +
		"0000    3 GET_LOCAL           2\n" +
		"0002    | CALL                1\n"
	require.Equal(t, expected, disasm(t, store, c, "b"))
}

func TestDisassembleJumpInstructions(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	// Jump forward 5 bytes from offset 0: target 0 + 3 + 5 = 8
	c.WriteOp(op.JumpIfFalse, 1)
	c.Write(0, 1)
	c.Write(5, 1)
	// Loop back 6 bytes from offset 3: target 3 + 3 - 6 = 0
	c.WriteOp(op.Loop, 1)
	c.Write(0, 1)
	c.Write(6, 1)

	expected := "== j ==\n" +
		"0000    1 JUMP_IF_FALSE       0 -> 8\n" +
		"0003    | LOOP                3 -> 0\n"
	require.Equal(t, expected, disasm(t, store, c, "j"))
}

func TestDisassembleInvokeInstruction(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	idx, err := c.AddConstant(object.NewObject(store.Intern("area")))
	require.NoError(t, err)
	c.WriteOp(op.Invoke, 4)
	c.Write(byte(idx), 4)
	c.Write(2, 4)

	expected := "== i ==\n" +
		"0000    4 INVOKE           (2 args)    0 'area'\n"
	require.Equal(t, expected, disasm(t, store, c, "i"))
}

func TestDisassembleClosureInstruction(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	fn := NewFunction("inner")
	fn.UpvalueCount = 2
	idx, err := c.AddConstant(object.NewObject(store.Alloc(fn)))
	require.NoError(t, err)

	c.WriteOp(op.Closure, 6)
	c.Write(byte(idx), 6)
	c.Write(1, 6) // local
	c.Write(0, 6)
	c.Write(0, 6) // upvalue
	c.Write(1, 6)
	c.WriteOp(op.Return, 7)

	expected := "== c ==\n" +
		"0000    6 CLOSURE             0 <fn inner>\n" +
		"0002      |                     local 0\n" +
		"0004      |                     upvalue 1\n" +
		"0006    7 RETURN\n"
	require.Equal(t, expected, disasm(t, store, c, "c"))
}

func TestDisassembleUnknownOpcode(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	c.Write(255, 1)
	c.Write(42, 1)

	expected := "== u ==\n" +
		"0000    1 UNKNOWN 255\n" +
		"0001    | UNKNOWN 42\n"
	require.Equal(t, expected, disasm(t, store, c, "u"))
}
