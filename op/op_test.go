package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	tests := []struct {
		code  Code
		name  string
		width int
	}{
		{Constant, "CONSTANT", 1},
		{Nil, "NIL", 0},
		{Pop, "POP", 0},
		{GetLocal, "GET_LOCAL", 1},
		{Jump, "JUMP", 2},
		{JumpIfFalse, "JUMP_IF_FALSE", 2},
		{Loop, "LOOP", 2},
		{Call, "CALL", 1},
		{Invoke, "INVOKE", 2},
		{SuperInvoke, "SUPER_INVOKE", 2},
		{Closure, "CLOSURE", VariableOperands},
		{Method, "METHOD", 1},
	}
	for _, tt := range tests {
		info := GetInfo(tt.code)
		require.Equal(t, tt.code, info.Code)
		require.Equal(t, tt.name, info.Name)
		require.Equal(t, tt.width, info.OperandWidth)
	}
}

func TestOpcodeValues(t *testing.T) {
	// The bytecode format assigns opcodes 0-36 with 255 reserved.
	require.Equal(t, Code(0), Constant)
	require.Equal(t, Code(36), Method)
	require.Equal(t, Code(255), Unknown)
}

func TestUnknownOpcode(t *testing.T) {
	info := GetInfo(Unknown)
	require.Equal(t, "UNKNOWN", info.Name)
	require.Equal(t, 0, info.OperandWidth)

	// Every byte value between Method and Unknown is also unassigned.
	info = GetInfo(Code(37))
	require.Equal(t, "UNKNOWN", info.Name)
}
