package compiler

import (
	"github.com/deepnoodle-ai/lox/token"
)

// bindingPower ranks how tightly operators bind during precedence climbing.
// There are 16 levels from powerGroup (lowest) to powerCallLeft (highest).
// Each infix operator carries a left and a right power: an operator is
// consumed while parsing another operator's operand when its right power
// exceeds the limit set by that operand. Left-associative operators have
// left > right so an equal-level neighbor terminates the operand;
// assignment has left < right and so nests to the right.
type bindingPower int

const (
	powerGroup bindingPower = iota + 1 // lowest; terminates every infix loop
	powerAssignLeft
	powerAssignRight
	powerOrRight
	powerOrLeft
	powerAndRight
	powerAndLeft
	powerEqualityRight
	powerEqualityLeft
	powerComparisonRight
	powerComparisonLeft
	powerTermRight
	powerTermLeft
	powerFactorRight
	powerFactorLeft
	powerCallLeft // highest; '.' and '(' bind tightest
)

type powers struct {
	Left  bindingPower
	Right bindingPower
}

// parseFn compiles a prefix or infix expression form. canAssign is true only
// at binding levels where an '=' following the form may begin an assignment.
type parseFn func(c *Compiler, canAssign bool)

type rule struct {
	prefix parseFn
	infix  parseFn
	power  powers
}

// rules maps each token type to its prefix/infix compilation functions and
// binding powers. Token types absent from the map have no role in
// expressions.
var rules map[token.Type]rule

func init() {
	rules = map[token.Type]rule{
		token.LPAREN: {(*Compiler).grouping, (*Compiler).call, powers{powerCallLeft, powerCallLeft}},
		token.DOT:    {nil, (*Compiler).dot, powers{powerCallLeft, powerCallLeft}},

		token.MINUS: {(*Compiler).unary, (*Compiler).binary, powers{powerTermLeft, powerTermRight}},
		token.PLUS:  {nil, (*Compiler).binary, powers{powerTermLeft, powerTermRight}},
		token.SLASH: {nil, (*Compiler).binary, powers{powerFactorLeft, powerFactorRight}},
		token.STAR:  {nil, (*Compiler).binary, powers{powerFactorLeft, powerFactorRight}},

		token.BANG:        {(*Compiler).unary, nil, powers{}},
		token.BANG_EQUAL:  {nil, (*Compiler).binary, powers{powerEqualityLeft, powerEqualityRight}},
		token.EQUAL_EQUAL: {nil, (*Compiler).binary, powers{powerEqualityLeft, powerEqualityRight}},

		// Assignment is compiled by the variable and property handlers when
		// canAssign permits; its powers only rank the level.
		token.EQUAL: {nil, nil, powers{}},

		token.GREATER:       {nil, (*Compiler).binary, powers{powerComparisonLeft, powerComparisonRight}},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, powers{powerComparisonLeft, powerComparisonRight}},
		token.LESS:          {nil, (*Compiler).binary, powers{powerComparisonLeft, powerComparisonRight}},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, powers{powerComparisonLeft, powerComparisonRight}},

		token.IDENT:  {(*Compiler).variable, nil, powers{}},
		token.STRING: {(*Compiler).stringLiteral, nil, powers{}},
		token.NUMBER: {(*Compiler).number, nil, powers{}},

		token.AND: {nil, (*Compiler).and, powers{powerAndLeft, powerAndRight}},
		token.OR:  {nil, (*Compiler).or, powers{powerOrLeft, powerOrRight}},

		token.FALSE: {(*Compiler).literal, nil, powers{}},
		token.TRUE:  {(*Compiler).literal, nil, powers{}},
		token.NIL:   {(*Compiler).literal, nil, powers{}},

		token.SUPER: {(*Compiler).super, nil, powers{}},
		token.THIS:  {(*Compiler).this, nil, powers{}},
	}
}
