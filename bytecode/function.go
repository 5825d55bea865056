package bytecode

import (
	"fmt"

	"github.com/deepnoodle-ai/lox/object"
)

// Function is a compiled function: arity, captured upvalue count, and the
// chunk the compiler emitted for its body. A Function with an empty Name is
// the top-level script. Functions live in the object store like every other
// heap object and are referenced from chunks' constant pools by handle.
type Function struct {
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         string
}

// NewFunction returns a function with an empty chunk.
func NewFunction(name string) *Function {
	return &Function{Name: name, Chunk: NewChunk()}
}

// Type implements object.Object.
func (f *Function) Type() object.Type {
	return object.FUNCTION
}

// Inspect implements object.Inspector.
func (f *Function) Inspect(s *object.Store) string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

// GetFunction returns the Function at the handle, or nil if the handle does
// not reference a live function.
func GetFunction(s *object.Store, h object.Handle) *Function {
	f, _ := s.Get(h).(*Function)
	return f
}
