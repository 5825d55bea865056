// Package lox is the entry point for embedding the Lox interpreter: a
// bytecode compiler and stack virtual machine for the Lox scripting
// language.
//
//	err := lox.Interpret(`print "hello";`)
//
// Longer-lived embedding should construct a vm.VM directly so globals
// persist between runs.
package lox

import (
	"io"

	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/compiler"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/vm"
)

// Interpret compiles and runs source in a fresh VM configured by opts.
func Interpret(source string, opts ...vm.Option) error {
	return vm.New(opts...).Interpret(source)
}

// Disassemble compiles source and writes a listing of the resulting
// bytecode to w, including every nested function.
func Disassemble(source string, w io.Writer) error {
	store := object.NewStore()
	handle, err := compiler.Compile(source, store)
	if err != nil {
		return err
	}
	disassembleFunction(store, bytecode.GetFunction(store, handle), w)
	return nil
}

func disassembleFunction(store *object.Store, fn *bytecode.Function, w io.Writer) {
	fn.Chunk.Disassemble(store, fn.Inspect(store), w)
	for _, constant := range fn.Chunk.Constants {
		if !constant.IsObject() {
			continue
		}
		if nested := bytecode.GetFunction(store, constant.AsObject()); nested != nil {
			disassembleFunction(store, nested, w)
		}
	}
}
