// Package vm executes Lox bytecode on a value stack with nested call
// frames. A VM persists its globals and object store across Interpret
// calls, which is what lets a REPL accumulate definitions.
package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/compiler"
	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
)

const (
	// MaxFrames bounds call depth. Exceeding it is reported as a stack
	// overflow rather than growing without limit.
	MaxFrames = 64

	// StackSize is sized so every frame can hold a full complement of
	// local slots.
	StackSize = MaxFrames * 256
)

// frame is one active function invocation. The resolved closure and
// function pointers are cached here so the dispatch loop never goes back
// through the store on the hot path.
type frame struct {
	closure *object.Closure
	fn      *bytecode.Function
	ip      int
	base    int
}

// VM is a Lox virtual machine. It is not safe for concurrent use; run
// independent scripts on independent VMs.
type VM struct {
	store        *object.Store
	globals      *object.Table
	frames       [MaxFrames]frame
	frameCount   int
	stack        [StackSize]object.Value
	sp           int
	openUpvalues object.Handle
	initString   object.Handle
	stdout       io.Writer
	stderr       io.Writer
	logger       zerolog.Logger
}

// New returns a VM with the built-in natives defined and output attached
// to the process's stdout and stderr unless options say otherwise.
func New(opts ...Option) *VM {
	vm := &VM{
		store:   object.NewStore(),
		globals: object.NewTable(),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  zerolog.Nop(),
	}
	vm.initString = vm.store.Intern("init")
	vm.defineNative("clock", clockNative)
	for _, opt := range opts {
		opt(vm)
	}
	if id, err := uuid.NewV4(); err == nil {
		vm.logger = vm.logger.With().Str("vm_id", id.String()).Logger()
	}
	return vm
}

// Store exposes the VM's object store, which rendering and disassembly
// need to resolve handles.
func (vm *VM) Store() *object.Store {
	return vm.store
}

// Interpret compiles source and runs it to completion. Compile errors are
// returned without touching VM state; runtime errors leave the globals and
// store intact so a subsequent Interpret sees prior definitions.
func (vm *VM) Interpret(source string) error {
	fnHandle, err := compiler.Compile(source, vm.store)
	if err != nil {
		return err
	}
	vm.resetStack()

	closure := &object.Closure{Function: fnHandle}
	closureHandle := vm.store.Alloc(closure)
	vm.push(object.NewObject(closureHandle))
	if err := vm.call(closure, 0); err != nil {
		return err
	}

	vm.logger.Debug().Int("code_bytes", len(bytecode.GetFunction(vm.store, fnHandle).Chunk.Code)).Msg("interpret")
	if err := vm.run(); err != nil {
		vm.logger.Debug().Err(err).Msg("runtime error")
		vm.printStackTrace()
		return err
	}
	return nil
}

// printStackTrace writes the call stack at the point of a runtime error,
// innermost frame first.
func (vm *VM) printStackTrace() {
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := 0
		if f.ip > 0 && f.ip <= len(f.fn.Chunk.Lines) {
			line = f.fn.Chunk.Lines[f.ip-1]
		}
		fmt.Fprintf(vm.stderr, "[line %d] in %s\n", line, f.fn.Inspect(vm.store))
	}
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = object.Handle{}
}

// ---- stack ----

func (vm *VM) push(v object.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() object.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) object.Value {
	return vm.stack[vm.sp-1-distance]
}

// ---- errors ----

func (vm *VM) runtimeError(format string, args ...any) error {
	line := 0
	if vm.frameCount > 0 {
		f := &vm.frames[vm.frameCount-1]
		if f.ip > 0 && f.ip <= len(f.fn.Chunk.Lines) {
			line = f.fn.Chunk.Lines[f.ip-1]
		}
	}
	return errz.NewRuntimeErrorf(line, format, args...)
}

// ---- dispatch ----

func (vm *VM) run() error {
	f := &vm.frames[vm.frameCount-1]
	trace := vm.logger.Trace().Enabled()
	for {
		if trace {
			vm.traceInstruction(f)
		}
		opcode := op.Code(f.fn.Chunk.Code[f.ip])
		f.ip++
		switch opcode {

		case op.Constant:
			vm.push(f.fn.Chunk.Constants[vm.readByte(f)])
		case op.Nil:
			vm.push(object.Nil)
		case op.True:
			vm.push(object.True)
		case op.False:
			vm.push(object.False)
		case op.Pop:
			vm.pop()

		case op.GetLocal:
			slot := vm.readByte(f)
			vm.push(vm.stack[f.base+int(slot)])
		case op.SetLocal:
			slot := vm.readByte(f)
			vm.stack[f.base+int(slot)] = vm.peek(0)

		case op.GetGlobal:
			name, handle := vm.readString(f)
			value, ok := vm.globals.Get(handle, name.Hash)
			if !ok {
				return vm.runtimeError("undefined variable '%s'", name.Text)
			}
			vm.push(value)
		case op.DefineGlobal:
			name, handle := vm.readString(f)
			vm.globals.Set(handle, name.Hash, vm.peek(0))
			vm.pop()
		case op.SetGlobal:
			name, handle := vm.readString(f)
			if isNew := vm.globals.Set(handle, name.Hash, vm.peek(0)); isNew {
				vm.globals.Delete(handle, name.Hash)
				return vm.runtimeError("undefined variable '%s'", name.Text)
			}

		case op.GetUpvalue:
			index := vm.readByte(f)
			uv := vm.store.GetUpvalue(f.closure.Upvalues[index])
			if uv.IsOpen() {
				vm.push(vm.stack[uv.Location])
			} else {
				vm.push(uv.Closed)
			}
		case op.SetUpvalue:
			index := vm.readByte(f)
			uv := vm.store.GetUpvalue(f.closure.Upvalues[index])
			if uv.IsOpen() {
				vm.stack[uv.Location] = vm.peek(0)
			} else {
				uv.Closed = vm.peek(0)
			}

		case op.GetProperty:
			instance := vm.instanceAt(0)
			if instance == nil {
				return vm.runtimeError("only instances have properties")
			}
			name, handle := vm.readString(f)
			if value, ok := instance.Fields.Get(handle, name.Hash); ok {
				vm.pop()
				vm.push(value)
				break
			}
			if !vm.bindMethod(instance.Class, handle, name.Hash) {
				return vm.runtimeError("undefined property '%s'", name.Text)
			}
		case op.SetProperty:
			instance := vm.instanceAt(1)
			if instance == nil {
				return vm.runtimeError("only instances have fields")
			}
			name, handle := vm.readString(f)
			instance.Fields.Set(handle, name.Hash, vm.peek(0))
			value := vm.pop()
			vm.pop()
			vm.push(value)
		case op.GetSuper:
			name, handle := vm.readString(f)
			superclass := vm.pop().AsObject()
			if !vm.bindMethod(superclass, handle, name.Hash) {
				return vm.runtimeError("undefined property '%s'", name.Text)
			}

		case op.Equal:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.NewBool(a.Equals(b)))
		case op.Greater:
			b, a, err := vm.popNumbers()
			if err != nil {
				return err
			}
			vm.push(object.NewBool(a > b))
		case op.Less:
			b, a, err := vm.popNumbers()
			if err != nil {
				return err
			}
			vm.push(object.NewBool(a < b))

		case op.Add:
			if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
				b := vm.pop().AsNumber()
				a := vm.pop().AsNumber()
				vm.push(object.NewNumber(a + b))
				break
			}
			left := vm.stringAt(1)
			right := vm.stringAt(0)
			if left == nil || right == nil {
				return vm.runtimeError("operands must be two numbers or two strings")
			}
			vm.pop()
			vm.pop()
			vm.push(object.NewObject(vm.store.Intern(left.Text + right.Text)))
		case op.Subtract:
			b, a, err := vm.popNumbers()
			if err != nil {
				return err
			}
			vm.push(object.NewNumber(a - b))
		case op.Multiply:
			b, a, err := vm.popNumbers()
			if err != nil {
				return err
			}
			vm.push(object.NewNumber(a * b))
		case op.Divide:
			b, a, err := vm.popNumbers()
			if err != nil {
				return err
			}
			vm.push(object.NewNumber(a / b))

		case op.Not:
			vm.push(object.NewBool(!vm.pop().IsTruthy()))
		case op.Negate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("operand must be a number")
			}
			vm.push(object.NewNumber(-vm.pop().AsNumber()))

		case op.Print:
			fmt.Fprintln(vm.stdout, vm.store.InspectValue(vm.pop()))

		case op.Jump:
			offset := vm.readShort(f)
			f.ip += offset
		case op.JumpIfFalse:
			offset := vm.readShort(f)
			if !vm.peek(0).IsTruthy() {
				f.ip += offset
			}
		case op.Loop:
			offset := vm.readShort(f)
			f.ip -= offset

		case op.Call:
			argc := int(vm.readByte(f))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]
		case op.Invoke:
			name, handle := vm.readString(f)
			argc := int(vm.readByte(f))
			if err := vm.invoke(handle, name, argc); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]
		case op.SuperInvoke:
			name, handle := vm.readString(f)
			argc := int(vm.readByte(f))
			superclass := vm.pop().AsObject()
			if err := vm.invokeFromClass(superclass, handle, name, argc); err != nil {
				return err
			}
			f = &vm.frames[vm.frameCount-1]

		case op.Closure:
			fnValue := f.fn.Chunk.Constants[vm.readByte(f)]
			fnHandle := fnValue.AsObject()
			fn := bytecode.GetFunction(vm.store, fnHandle)
			closure := &object.Closure{
				Function: fnHandle,
				Upvalues: make([]object.Handle, fn.UpvalueCount),
			}
			for i := range closure.Upvalues {
				isLocal := vm.readByte(f)
				index := vm.readByte(f)
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(f.base + int(index))
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
			vm.push(object.NewObject(vm.store.Alloc(closure)))
		case op.CloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case op.Return:
			result := vm.pop()
			vm.closeUpvalues(f.base)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.sp = f.base
			vm.push(result)
			f = &vm.frames[vm.frameCount-1]

		case op.Class:
			_, handle := vm.readString(f)
			class := &object.Class{Name: handle, Methods: object.NewTable()}
			vm.push(object.NewObject(vm.store.Alloc(class)))
		case op.Inherit:
			superclass := vm.classAt(1)
			if superclass == nil {
				return vm.runtimeError("superclass must be a class")
			}
			subclass := vm.store.GetClass(vm.peek(0).AsObject())
			// Copy-down inheritance: methods are resolved against this
			// snapshot, so later changes to the superclass do not leak.
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop()
		case op.Method:
			name, handle := vm.readString(f)
			class := vm.store.GetClass(vm.peek(1).AsObject())
			class.Methods.Set(handle, name.Hash, vm.peek(0))
			vm.pop()

		default:
			return vm.runtimeError("unknown opcode %d", opcode)
		}
	}
}

// ---- operand readers ----

func (vm *VM) readByte(f *frame) byte {
	b := f.fn.Chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort(f *frame) int {
	hi := int(f.fn.Chunk.Code[f.ip])
	lo := int(f.fn.Chunk.Code[f.ip+1])
	f.ip += 2
	return hi<<8 | lo
}

// readString reads a constant index operand and resolves it as an interned
// string, which is how identifiers travel through the constant pool.
func (vm *VM) readString(f *frame) (*object.String, object.Handle) {
	handle := f.fn.Chunk.Constants[vm.readByte(f)].AsObject()
	return vm.store.GetString(handle), handle
}

func (vm *VM) popNumbers() (b float64, a float64, err error) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return 0, 0, vm.runtimeError("operands must be numbers")
	}
	b = vm.pop().AsNumber()
	a = vm.pop().AsNumber()
	return b, a, nil
}

func (vm *VM) instanceAt(distance int) *object.Instance {
	v := vm.peek(distance)
	if !v.IsObject() {
		return nil
	}
	return vm.store.GetInstance(v.AsObject())
}

func (vm *VM) classAt(distance int) *object.Class {
	v := vm.peek(distance)
	if !v.IsObject() {
		return nil
	}
	return vm.store.GetClass(v.AsObject())
}

func (vm *VM) stringAt(distance int) *object.String {
	v := vm.peek(distance)
	if !v.IsObject() {
		return nil
	}
	return vm.store.GetString(v.AsObject())
}

// ---- calls ----

// callValue dispatches a call on callee with argc arguments already on the
// stack. On error the stack is left untouched, so the failed call's callee
// and arguments are still accounted for.
func (vm *VM) callValue(callee object.Value, argc int) error {
	if callee.IsObject() {
		switch obj := vm.store.Get(callee.AsObject()).(type) {
		case *object.Closure:
			return vm.call(obj, argc)
		case *object.Native:
			args := vm.stack[vm.sp-argc : vm.sp]
			result, err := obj.Fn(args)
			if err != nil {
				return vm.runtimeError("%s", err)
			}
			vm.sp -= argc + 1
			vm.push(result)
			return nil
		case *object.Class:
			return vm.callClass(callee.AsObject(), obj, argc)
		case *object.BoundMethod:
			vm.stack[vm.sp-argc-1] = obj.Receiver
			return vm.call(vm.store.GetClosure(obj.Method), argc)
		}
	}
	return vm.runtimeError("can only call functions and classes")
}

func (vm *VM) call(closure *object.Closure, argc int) error {
	fn := bytecode.GetFunction(vm.store, closure.Function)
	if argc != fn.Arity {
		return vm.runtimeError("expected %d arguments but got %d", fn.Arity, argc)
	}
	if vm.frameCount == MaxFrames {
		return vm.runtimeError("stack overflow")
	}
	f := &vm.frames[vm.frameCount]
	vm.frameCount++
	f.closure = closure
	f.fn = fn
	f.ip = 0
	f.base = vm.sp - argc - 1
	return nil
}

// callClass replaces the class on the stack with a fresh instance, then
// runs its initializer if one is declared.
func (vm *VM) callClass(classHandle object.Handle, class *object.Class, argc int) error {
	instance := &object.Instance{Class: classHandle, Fields: object.NewTable()}
	vm.stack[vm.sp-argc-1] = object.NewObject(vm.store.Alloc(instance))
	initName := vm.store.GetString(vm.initString)
	if init, ok := class.Methods.Get(vm.initString, initName.Hash); ok {
		return vm.call(vm.store.GetClosure(init.AsObject()), argc)
	}
	if argc != 0 {
		return vm.runtimeError("expected 0 arguments but got %d", argc)
	}
	return nil
}

func (vm *VM) invoke(name object.Handle, nameStr *object.String, argc int) error {
	receiver := vm.peek(argc)
	if !receiver.IsObject() {
		return vm.runtimeError("only instances have methods")
	}
	instance := vm.store.GetInstance(receiver.AsObject())
	if instance == nil {
		return vm.runtimeError("only instances have methods")
	}
	// A field shadowing the method name is called as a plain value.
	if field, ok := instance.Fields.Get(name, nameStr.Hash); ok {
		vm.stack[vm.sp-argc-1] = field
		return vm.callValue(field, argc)
	}
	return vm.invokeFromClass(instance.Class, name, nameStr, argc)
}

func (vm *VM) invokeFromClass(classHandle object.Handle, name object.Handle, nameStr *object.String, argc int) error {
	class := vm.store.GetClass(classHandle)
	method, ok := class.Methods.Get(name, nameStr.Hash)
	if !ok {
		return vm.runtimeError("undefined property '%s'", nameStr.Text)
	}
	return vm.call(vm.store.GetClosure(method.AsObject()), argc)
}

// bindMethod replaces the receiver on top of the stack with a bound method
// for name, reporting whether the class declares it.
func (vm *VM) bindMethod(classHandle object.Handle, name object.Handle, hash uint32) bool {
	class := vm.store.GetClass(classHandle)
	method, ok := class.Methods.Get(name, hash)
	if !ok {
		return false
	}
	bound := &object.BoundMethod{Receiver: vm.peek(0), Method: method.AsObject()}
	vm.pop()
	vm.push(object.NewObject(vm.store.Alloc(bound)))
	return true
}

// ---- upvalues ----

// captureUpvalue returns the open upvalue for the stack slot at location,
// creating one if needed. Open upvalues form a list ordered by descending
// location so different closures capturing the same variable share one
// upvalue.
func (vm *VM) captureUpvalue(location int) object.Handle {
	var prev object.Handle
	current := vm.openUpvalues
	for !current.IsZero() {
		uv := vm.store.GetUpvalue(current)
		if uv.Location <= location {
			if uv.Location == location {
				return current
			}
			break
		}
		prev = current
		current = uv.Next
	}
	created := &object.Upvalue{Location: location, Next: current}
	handle := vm.store.Alloc(created)
	if prev.IsZero() {
		vm.openUpvalues = handle
	} else {
		vm.store.GetUpvalue(prev).Next = handle
	}
	return handle
}

// closeUpvalues hoists every open upvalue at or above last off the stack
// and into the upvalue itself.
func (vm *VM) closeUpvalues(last int) {
	for !vm.openUpvalues.IsZero() {
		uv := vm.store.GetUpvalue(vm.openUpvalues)
		if uv.Location < last {
			break
		}
		uv.Close(vm.stack[uv.Location])
		vm.openUpvalues = uv.Next
	}
}

// ---- tracing ----

func (vm *VM) traceInstruction(f *frame) {
	var b strings.Builder
	f.fn.Chunk.DisassembleInstruction(vm.store, &b, f.ip)
	vm.logger.Trace().
		Int("sp", vm.sp).
		Int("frames", vm.frameCount).
		Str("instruction", strings.TrimRight(b.String(), "\n")).
		Msg("exec")
}
