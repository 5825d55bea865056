package compiler

import (
	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/token"
)

const (
	// MaxLocals caps the user-declared locals of one function. With the
	// reserved slot zero a function occupies at most MaxLocals+1 stack
	// slots, and every slot index still fits a single byte operand.
	MaxLocals = 255

	// MaxUpvalues caps the captured variables of one function.
	MaxUpvalues = 255

	// MaxParameters caps declared parameters, matching the one byte
	// argument count carried by call instructions.
	MaxParameters = 255
)

// FunctionKind distinguishes the forms of function body being compiled.
// The kind decides the name of local slot zero and the shape of the
// implicit return.
type FunctionKind int

const (
	KindScript FunctionKind = iota
	KindFunction
	KindMethod
	KindInitializer
)

// Local records a variable declared in the function currently being
// compiled. Depth is -1 between declaration and initialization, which is
// how reads of a variable inside its own initializer are detected.
type Local struct {
	Name       token.Token
	Depth      int
	IsCaptured bool
}

// Upvalue records one captured variable. Index addresses a local slot of
// the enclosing function when IsLocal is true, otherwise an upvalue of the
// enclosing function.
type Upvalue struct {
	Index   uint8
	IsLocal bool
}

// Context holds the compile state for a single function body. Contexts form
// an explicit stack on the Compiler, one per lexically nested function, so
// that variable resolution can walk outward by index.
type Context struct {
	function   *bytecode.Function
	handle     object.Handle
	kind       FunctionKind
	locals     [MaxLocals + 1]Local
	localCount int
	upvalues   [MaxUpvalues]Upvalue
	scopeDepth int

	// idents caches constant pool indices for identifier names so a name
	// referenced repeatedly in one function occupies one pool slot.
	idents map[string]byte
}

func (c *Compiler) pushContext(kind FunctionKind, name string) {
	fn := bytecode.NewFunction(name)
	ctx := &Context{
		function: fn,
		handle:   c.store.Alloc(fn),
		kind:     kind,
		idents:   map[string]byte{},
	}
	// Slot zero holds the receiver in methods and is unnamed otherwise,
	// keeping it out of reach of user code.
	slot := &ctx.locals[0]
	ctx.localCount = 1
	if kind == KindMethod || kind == KindInitializer {
		slot.Name = token.Token{Type: token.THIS, Literal: "this"}
	}
	c.contexts = append(c.contexts, ctx)
}

// popContext finishes the current function body, emitting its implicit
// return, and hands back its context so the caller can read out upvalues.
func (c *Compiler) popContext() *Context {
	c.emitReturn()
	ctx := c.ctx()
	c.contexts = c.contexts[:len(c.contexts)-1]
	return ctx
}

func (c *Compiler) ctx() *Context {
	return c.contexts[len(c.contexts)-1]
}

func (c *Compiler) chunk() *bytecode.Chunk {
	return c.ctx().function.Chunk
}

func (c *Compiler) beginScope() {
	c.ctx().scopeDepth++
}

// endScope discards the locals of the closing scope. Captured locals are
// hoisted to the heap with CloseUpvalue; the rest are popped.
func (c *Compiler) endScope() {
	ctx := c.ctx()
	ctx.scopeDepth--
	for ctx.localCount > 0 && ctx.locals[ctx.localCount-1].Depth > ctx.scopeDepth {
		if ctx.locals[ctx.localCount-1].IsCaptured {
			c.emit(op.CloseUpvalue)
		} else {
			c.emit(op.Pop)
		}
		ctx.localCount--
	}
}

// resolveLocal searches the locals of the context at index i, innermost
// declaration first. The boolean reports whether the name was found.
func (c *Compiler) resolveLocal(i int, name token.Token) (int, bool) {
	ctx := c.contexts[i]
	for slot := ctx.localCount - 1; slot >= 0; slot-- {
		local := &ctx.locals[slot]
		if local.Name.Literal == name.Literal {
			if local.Depth == -1 {
				c.error("cannot read local variable in its own initializer")
			}
			return slot, true
		}
	}
	return 0, false
}

// resolveUpvalue resolves name as a capture for the context at index i,
// recursing outward through enclosing contexts. Each level that transports
// the variable gains an upvalue of its own, so a deeply nested capture is
// threaded through every intermediate function.
func (c *Compiler) resolveUpvalue(i int, name token.Token) (int, bool) {
	if i == 0 {
		return 0, false
	}
	if slot, ok := c.resolveLocal(i-1, name); ok {
		c.contexts[i-1].locals[slot].IsCaptured = true
		return c.addUpvalue(i, uint8(slot), true), true
	}
	if index, ok := c.resolveUpvalue(i-1, name); ok {
		return c.addUpvalue(i, uint8(index), false), true
	}
	return 0, false
}

// addUpvalue registers a capture on the context at index i and returns its
// upvalue index. Registering the same capture twice returns the existing
// index rather than growing the list.
func (c *Compiler) addUpvalue(i int, index uint8, isLocal bool) int {
	ctx := c.contexts[i]
	count := ctx.function.UpvalueCount
	for existing := 0; existing < count; existing++ {
		up := ctx.upvalues[existing]
		if up.Index == index && up.IsLocal == isLocal {
			return existing
		}
	}
	if count == MaxUpvalues {
		c.error("too many closure variables in function")
		return 0
	}
	ctx.upvalues[count] = Upvalue{Index: index, IsLocal: isLocal}
	ctx.function.UpvalueCount++
	return count
}

func (c *Compiler) addLocal(name token.Token) {
	ctx := c.ctx()
	if ctx.localCount == len(ctx.locals) {
		c.error("too many local variables in function")
		return
	}
	ctx.locals[ctx.localCount] = Local{Name: name, Depth: -1}
	ctx.localCount++
}

// markInitialized stamps the newest local with the current scope depth,
// making it resolvable. Has no effect at global scope, where names live in
// the globals table instead of stack slots.
func (c *Compiler) markInitialized() {
	ctx := c.ctx()
	if ctx.scopeDepth == 0 {
		return
	}
	ctx.locals[ctx.localCount-1].Depth = ctx.scopeDepth
}
