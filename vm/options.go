package vm

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/lox/object"
)

// Option customizes a VM at construction time.
type Option func(*VM)

// WithStdout redirects print statement output.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) {
		vm.stdout = w
	}
}

// WithStderr redirects diagnostic output.
func WithStderr(w io.Writer) Option {
	return func(vm *VM) {
		vm.stderr = w
	}
}

// WithLogger attaches a logger. At trace level the VM logs every executed
// instruction, which is slow but invaluable when debugging bytecode.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VM) {
		vm.logger = logger
	}
}

// WithNative defines a native function as a global before any code runs.
func WithNative(name string, fn object.NativeFn) Option {
	return func(vm *VM) {
		vm.defineNative(name, fn)
	}
}

func (vm *VM) defineNative(name string, fn object.NativeFn) {
	handle := vm.store.Alloc(&object.Native{Name: name, Fn: fn})
	nameHandle := vm.store.Intern(name)
	nameStr := vm.store.GetString(nameHandle)
	vm.globals.Set(nameHandle, nameStr.Hash, object.NewObject(handle))
}

// clockNative reports elapsed seconds with sub-second resolution, enough
// for scripts to time themselves.
func clockNative([]object.Value) (object.Value, error) {
	return object.NewNumber(float64(time.Now().UnixNano()) / 1e9), nil
}
