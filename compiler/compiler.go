// Package compiler translates Lox source text into bytecode in a single
// pass, with no intermediate syntax tree. Tokens are pulled from the
// scanner on demand and instructions are appended to the chunk of the
// function being compiled as each construct is recognized.
package compiler

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/scanner"
	"github.com/deepnoodle-ai/lox/token"
)

// Compiler carries the state of one compilation: a two token lookahead
// window over the scanner, a stack of per-function contexts, a stack of
// enclosing class declarations, and the errors accumulated so far.
type Compiler struct {
	scanner   *scanner.Scanner
	store     *object.Store
	current   token.Token
	previous  token.Token
	hadError  bool
	panicMode bool
	errs      *multierror.Error
	contexts  []*Context
	classes   []*classContext
}

// classContext tracks the class declaration enclosing the code being
// compiled, which validates uses of 'this' and 'super'.
type classContext struct {
	hasSuperclass bool
}

// Compile turns source into the bytecode of an implicit top-level function
// and returns its handle in store. On failure the returned error aggregates
// every compile error found; the scanner and compiler recover at statement
// boundaries so one bad statement does not hide errors in the next.
func Compile(source string, store *object.Store) (object.Handle, error) {
	c := &Compiler{
		scanner: scanner.New(source),
		store:   store,
	}
	c.pushContext(KindScript, "")
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	ctx := c.popContext()
	if c.hadError {
		return object.Handle{}, c.errs.ErrorOrNil()
	}
	return ctx.handle, nil
}

// ---- token stream ----

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Type != token.ERROR {
			break
		}
		// Scan errors carry their message as the token literal.
		c.errorAtCurrent(c.current.Literal)
	}
}

func (c *Compiler) consume(typ token.Type, message string) {
	if c.current.Type == typ {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) check(typ token.Type) bool {
	return c.current.Type == typ
}

func (c *Compiler) match(typ token.Type) bool {
	if !c.check(typ) {
		return false
	}
	c.advance()
	return true
}

// ---- error handling ----

// errorAt records a compile error anchored to tok. While in panic mode
// further errors are suppressed until synchronize finds a statement
// boundary, so one mistake produces one message.
func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	var where string
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.ERROR:
		// No lexeme to point at.
	default:
		where = fmt.Sprintf(" at '%s'", tok.Literal)
	}
	c.errs = multierror.Append(c.errs, errz.NewCompileError(tok.Line, where, message))
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

// synchronize skips tokens until a likely statement boundary, then leaves
// panic mode so compilation resumes reporting.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// ---- bytecode emission ----

func (c *Compiler) emit(code op.Code) {
	c.chunk().WriteOp(code, c.previous.Line)
}

func (c *Compiler) emitByte(b byte) {
	c.chunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitWithOperand(code op.Code, operand byte) {
	c.emit(code)
	c.emitByte(operand)
}

// emitJump writes code with a two byte placeholder offset and returns the
// placeholder's position for patchJump.
func (c *Compiler) emitJump(code op.Code) int {
	c.emit(code)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

// patchJump back-fills the placeholder at offset with the distance from the
// instruction after the operand to the current end of the chunk.
func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > math.MaxUint16 {
		c.error("too much code to jump over")
	}
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump)
}

// emitLoop writes a backward jump to loopStart. The offset is stored as a
// positive magnitude the interpreter subtracts.
func (c *Compiler) emitLoop(loopStart int) {
	c.emit(op.Loop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > math.MaxUint16 {
		c.error("loop body too large")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

// emitReturn writes the implicit return reached when control falls off the
// end of a body. Initializers return the receiver in slot zero; everything
// else returns nil.
func (c *Compiler) emitReturn() {
	if c.ctx().kind == KindInitializer {
		c.emitWithOperand(op.GetLocal, 0)
	} else {
		c.emit(op.Nil)
	}
	c.emit(op.Return)
}

func (c *Compiler) makeConstant(v object.Value) byte {
	index, err := c.chunk().AddConstant(v)
	if err != nil {
		c.error("too many constants in one chunk")
		return 0
	}
	return byte(index)
}

func (c *Compiler) emitConstant(v object.Value) {
	c.emitWithOperand(op.Constant, c.makeConstant(v))
}

// identifierConstant interns name and returns its constant pool index,
// reusing the index on repeated references within the same function.
func (c *Compiler) identifierConstant(name token.Token) byte {
	ctx := c.ctx()
	if index, ok := ctx.idents[name.Literal]; ok {
		return index
	}
	h := c.store.Intern(name.Literal)
	index := c.makeConstant(object.NewObject(h))
	ctx.idents[name.Literal] = index
	return index
}

// ---- declarations ----

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expected variable name")
	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emit(op.Nil)
	}
	c.consume(token.SEMICOLON, "expected ';' after variable declaration")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expected function name")
	name := c.previous.Literal
	// A function may refer to itself recursively, so its name is usable
	// before the body finishes compiling.
	c.markInitialized()
	c.function(KindFunction, name)
	c.defineVariable(global)
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "expected class name")
	className := c.previous
	nameConstant := c.identifierConstant(c.previous)
	c.declareVariable()

	c.emitWithOperand(op.Class, nameConstant)
	c.defineVariable(nameConstant)

	c.classes = append(c.classes, &classContext{})

	if c.match(token.LESS) {
		c.consume(token.IDENT, "expected superclass name")
		c.variable(false)
		if className.Literal == c.previous.Literal {
			c.error("a class cannot inherit from itself")
		}
		// 'super' lives in a scope wrapped around the methods so every
		// method closure captures the superclass at declaration time.
		c.beginScope()
		c.addLocal(c.syntheticToken("super"))
		c.defineVariable(0)
		c.namedVariable(className, false)
		c.emit(op.Inherit)
		c.classes[len(c.classes)-1].hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(token.LBRACE, "expected '{' before class body")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "expected '}' after class body")
	c.emit(op.Pop)

	if c.classes[len(c.classes)-1].hasSuperclass {
		c.endScope()
	}
	c.classes = c.classes[:len(c.classes)-1]
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "expected method name")
	constant := c.identifierConstant(c.previous)
	name := c.previous.Literal
	kind := KindMethod
	if name == "init" {
		kind = KindInitializer
	}
	c.function(kind, name)
	c.emitWithOperand(op.Method, constant)
}

// function compiles a parameter list and body in a fresh context, then
// emits a Closure instruction in the enclosing function followed by one
// (isLocal, index) byte pair per captured variable.
func (c *Compiler) function(kind FunctionKind, name string) {
	c.pushContext(kind, name)
	c.beginScope()

	c.consume(token.LPAREN, "expected '(' after function name")
	if !c.check(token.RPAREN) {
		for {
			if c.ctx().function.Arity == MaxParameters {
				c.errorAtCurrent("cannot have more than 255 parameters")
			}
			c.ctx().function.Arity++
			constant := c.parseVariable("expected parameter name")
			c.defineVariable(constant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after parameters")
	c.consume(token.LBRACE, "expected '{' before function body")
	c.block()

	ctx := c.popContext()
	c.emitWithOperand(op.Closure, c.makeConstant(object.NewObject(ctx.handle)))
	for i := 0; i < ctx.function.UpvalueCount; i++ {
		var isLocal byte
		if ctx.upvalues[i].IsLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(ctx.upvalues[i].Index)
	}
}

// parseVariable consumes an identifier and declares it. Locals return 0;
// globals return the constant pool index of the name.
func (c *Compiler) parseVariable(message string) byte {
	c.consume(token.IDENT, message)
	c.declareVariable()
	if c.ctx().scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

// declareVariable adds the name just consumed as a local, rejecting a
// redeclaration in the same scope. Globals are late bound and not declared.
func (c *Compiler) declareVariable() {
	ctx := c.ctx()
	if ctx.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := ctx.localCount - 1; i >= 0; i-- {
		local := &ctx.locals[i]
		if local.Depth != -1 && local.Depth < ctx.scopeDepth {
			break
		}
		if local.Name.Literal == name.Literal {
			c.error("already a variable with this name in this scope")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.ctx().scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitWithOperand(op.DefineGlobal, global)
}

// ---- statements ----

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "expected '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after value")
	c.emit(op.Print)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after expression")
	c.emit(op.Pop)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "expected '(' after 'if'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	thenJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.statement()
	elseJump := c.emitJump(op.Jump)

	c.patchJump(thenJump)
	c.emit(op.Pop)
	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.consume(token.LPAREN, "expected '(' after 'while'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	exitJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(op.Pop)
}

// forStatement desugars the three clause form in place. The increment
// clause compiles before the body but runs after it, so the body jumps to
// the increment and the increment loops back to the condition.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expected '(' after 'for'")
	switch {
	case c.match(token.SEMICOLON):
		// No initializer.
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "expected ';' after loop condition")
		exitJump = c.emitJump(op.JumpIfFalse)
		c.emit(op.Pop)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(op.Jump)
		incrementStart := len(c.chunk().Code)
		c.expression()
		c.emit(op.Pop)
		c.consume(token.RPAREN, "expected ')' after for clauses")
		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(op.Pop)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.ctx().kind == KindScript {
		c.error("cannot return from top-level code")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.ctx().kind == KindInitializer {
		c.error("cannot return a value from an initializer")
	}
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after return value")
	c.emit(op.Return)
}

// ---- expressions ----

func (c *Compiler) expression() {
	c.parsePrecedence(powerGroup)
}

// parsePrecedence compiles an expression whose operators all bind more
// tightly than limit. It dispatches the prefix rule for the leading token,
// then folds in infix operators while their right power exceeds limit.
func (c *Compiler) parsePrecedence(limit bindingPower) {
	c.advance()
	prefix := rules[c.previous.Type].prefix
	if prefix == nil {
		c.error("expected expression")
		return
	}
	canAssign := limit <= powerAssignLeft
	prefix(c, canAssign)

	for rules[c.current.Type].power.Right > limit {
		c.advance()
		rules[c.previous.Type].infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("invalid assignment target")
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.consume(token.RPAREN, "expected ')' after expression")
}

func (c *Compiler) number(bool) {
	value, err := strconv.ParseFloat(c.previous.Literal, 64)
	if err != nil {
		c.error("invalid number literal")
		return
	}
	c.emitConstant(object.NewNumber(value))
}

func (c *Compiler) stringLiteral(bool) {
	lexeme := c.previous.Literal
	text := lexeme[1 : len(lexeme)-1]
	c.emitConstant(object.NewObject(c.store.Intern(text)))
}

func (c *Compiler) literal(bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emit(op.False)
	case token.TRUE:
		c.emit(op.True)
	case token.NIL:
		c.emit(op.Nil)
	}
}

func (c *Compiler) unary(bool) {
	opType := c.previous.Type
	// The operand binds tighter than any binary operator, so -a.b negates
	// the property value while -a * b negates only a.
	c.parsePrecedence(powerFactorLeft)
	switch opType {
	case token.BANG:
		c.emit(op.Not)
	case token.MINUS:
		c.emit(op.Negate)
	}
}

func (c *Compiler) binary(bool) {
	opType := c.previous.Type
	c.parsePrecedence(rules[opType].power.Left)
	switch opType {
	case token.PLUS:
		c.emit(op.Add)
	case token.MINUS:
		c.emit(op.Subtract)
	case token.STAR:
		c.emit(op.Multiply)
	case token.SLASH:
		c.emit(op.Divide)
	case token.BANG_EQUAL:
		c.emit(op.Equal)
		c.emit(op.Not)
	case token.EQUAL_EQUAL:
		c.emit(op.Equal)
	case token.GREATER:
		c.emit(op.Greater)
	case token.GREATER_EQUAL:
		c.emit(op.Less)
		c.emit(op.Not)
	case token.LESS:
		c.emit(op.Less)
	case token.LESS_EQUAL:
		c.emit(op.Greater)
		c.emit(op.Not)
	}
}

// and short-circuits by jumping over the right operand when the left is
// falsey, leaving the left operand as the result.
func (c *Compiler) and(bool) {
	endJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.parsePrecedence(powerAndLeft)
	c.patchJump(endJump)
}

func (c *Compiler) or(bool) {
	elseJump := c.emitJump(op.JumpIfFalse)
	endJump := c.emitJump(op.Jump)
	c.patchJump(elseJump)
	c.emit(op.Pop)
	c.parsePrecedence(powerOrLeft)
	c.patchJump(endJump)
}

func (c *Compiler) call(bool) {
	argc := c.argumentList()
	c.emitWithOperand(op.Call, argc)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "expected property name after '.'")
	name := c.identifierConstant(c.previous)
	switch {
	case canAssign && c.match(token.EQUAL):
		c.expression()
		c.emitWithOperand(op.SetProperty, name)
	case c.match(token.LPAREN):
		// Fused property access and call.
		argc := c.argumentList()
		c.emitWithOperand(op.Invoke, name)
		c.emitByte(argc)
	default:
		c.emitWithOperand(op.GetProperty, name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

// namedVariable emits the access for name, resolving it as a local, then a
// capture, then falling back to a global looked up by name at run time. An
// '=' here compiles the matching store instruction instead.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp op.Code
	var arg byte
	top := len(c.contexts) - 1
	if slot, ok := c.resolveLocal(top, name); ok {
		arg = byte(slot)
		getOp, setOp = op.GetLocal, op.SetLocal
	} else if index, ok := c.resolveUpvalue(top, name); ok {
		arg = byte(index)
		getOp, setOp = op.GetUpvalue, op.SetUpvalue
	} else {
		arg = c.identifierConstant(name)
		getOp, setOp = op.GetGlobal, op.SetGlobal
	}
	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitWithOperand(setOp, arg)
	} else {
		c.emitWithOperand(getOp, arg)
	}
}

func (c *Compiler) this(bool) {
	if len(c.classes) == 0 {
		c.error("cannot use 'this' outside of a class")
		return
	}
	c.variable(false)
}

func (c *Compiler) super(bool) {
	if len(c.classes) == 0 {
		c.error("cannot use 'super' outside of a class")
	} else if !c.classes[len(c.classes)-1].hasSuperclass {
		c.error("cannot use 'super' in a class with no superclass")
	}
	c.consume(token.DOT, "expected '.' after 'super'")
	c.consume(token.IDENT, "expected superclass method name")
	name := c.identifierConstant(c.previous)

	c.namedVariable(c.syntheticToken("this"), false)
	if c.match(token.LPAREN) {
		argc := c.argumentList()
		c.namedVariable(c.syntheticToken("super"), false)
		c.emitWithOperand(op.SuperInvoke, name)
		c.emitByte(argc)
	} else {
		c.namedVariable(c.syntheticToken("super"), false)
		c.emitWithOperand(op.GetSuper, name)
	}
}

func (c *Compiler) argumentList() byte {
	var argc byte
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argc == math.MaxUint8 {
				c.error("cannot have more than 255 arguments")
			} else {
				argc++
			}
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after arguments")
	return argc
}

func (c *Compiler) syntheticToken(text string) token.Token {
	return token.Token{Type: token.IDENT, Literal: text, Line: c.previous.Line}
}
