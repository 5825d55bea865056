// Package op defines opcodes used by the Lox compiler and virtual machine.
package op

// Code is a one-byte opcode that indicates an operation to execute.
type Code byte

const (
	// Constants and literals
	Constant Code = 0
	Nil      Code = 1
	True     Code = 2
	False    Code = 3

	// Stack
	Pop Code = 4

	// Variables
	GetLocal     Code = 5
	SetLocal     Code = 6
	GetGlobal    Code = 7
	DefineGlobal Code = 8
	SetGlobal    Code = 9
	GetUpvalue   Code = 10
	SetUpvalue   Code = 11

	// Properties
	GetProperty Code = 12
	SetProperty Code = 13
	GetSuper    Code = 14

	// Comparisons
	Equal   Code = 15
	Greater Code = 16
	Less    Code = 17

	// Arithmetic
	Add      Code = 18
	Subtract Code = 19
	Multiply Code = 20
	Divide   Code = 21
	Not      Code = 22
	Negate   Code = 23

	// Output
	Print Code = 24

	// Control flow
	Jump        Code = 25
	JumpIfFalse Code = 26
	Loop        Code = 27

	// Calls and closures
	Call         Code = 28
	Invoke       Code = 29
	SuperInvoke  Code = 30
	Closure      Code = 31
	CloseUpvalue Code = 32
	Return       Code = 33

	// Classes
	Class   Code = 34
	Inherit Code = 35
	Method  Code = 36

	// Unknown is reserved so the disassembler can render unrecognized
	// bytes without losing its place.
	Unknown Code = 255
)

// VariableOperands marks opcodes whose operand width depends on data in the
// constant pool. Closure instructions carry one (isLocal, index) byte pair
// per upvalue of the referenced function.
const VariableOperands = -1

// Info contains information about an opcode.
type Info struct {
	Code Code
	Name string

	// OperandWidth is the number of operand bytes that follow the opcode,
	// or VariableOperands for Closure.
	OperandWidth int
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op    Code
		name  string
		width int
	}
	ops := []opInfo{
		{Constant, "CONSTANT", 1},
		{Nil, "NIL", 0},
		{True, "TRUE", 0},
		{False, "FALSE", 0},
		{Pop, "POP", 0},
		{GetLocal, "GET_LOCAL", 1},
		{SetLocal, "SET_LOCAL", 1},
		{GetGlobal, "GET_GLOBAL", 1},
		{DefineGlobal, "DEFINE_GLOBAL", 1},
		{SetGlobal, "SET_GLOBAL", 1},
		{GetUpvalue, "GET_UPVALUE", 1},
		{SetUpvalue, "SET_UPVALUE", 1},
		{GetProperty, "GET_PROPERTY", 1},
		{SetProperty, "SET_PROPERTY", 1},
		{GetSuper, "GET_SUPER", 1},
		{Equal, "EQUAL", 0},
		{Greater, "GREATER", 0},
		{Less, "LESS", 0},
		{Add, "ADD", 0},
		{Subtract, "SUBTRACT", 0},
		{Multiply, "MULTIPLY", 0},
		{Divide, "DIVIDE", 0},
		{Not, "NOT", 0},
		{Negate, "NEGATE", 0},
		{Print, "PRINT", 0},
		{Jump, "JUMP", 2},
		{JumpIfFalse, "JUMP_IF_FALSE", 2},
		{Loop, "LOOP", 2},
		{Call, "CALL", 1},
		{Invoke, "INVOKE", 2},
		{SuperInvoke, "SUPER_INVOKE", 2},
		{Closure, "CLOSURE", VariableOperands},
		{CloseUpvalue, "CLOSE_UPVALUE", 0},
		{Return, "RETURN", 0},
		{Class, "CLASS", 1},
		{Inherit, "INHERIT", 0},
		{Method, "METHOD", 1},
	}
	for i := range infos {
		infos[i] = Info{Code: Code(i), Name: "UNKNOWN", OperandWidth: 0}
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:         o.op,
			Name:         o.name,
			OperandWidth: o.width,
		}
	}
}

// GetInfo returns information about the given opcode. Unrecognized opcodes,
// including the reserved value 255, report the name "UNKNOWN" with zero
// operands.
func GetInfo(c Code) Info {
	return infos[c]
}
