// Package object provides the Lox value model: the Value tagged union, the
// heap object kinds, the open-addressing Table used for method and field
// lookup, and the slot-arena Store that owns every heap object.
//
// Heap objects are addressed by generational handles rather than raw Go
// pointers, so object identity is stable and never depends on addresses:
//
//	store := object.NewStore()
//	h := store.Intern("hello")
//	str := store.GetString(h) // *object.String
package object

// Type of a heap object as a string.
type Type string

// Type constants
const (
	STRING       Type = "string"
	FUNCTION     Type = "function"
	CLOSURE      Type = "closure"
	UPVALUE      Type = "upvalue"
	CLASS        Type = "class"
	INSTANCE     Type = "instance"
	BOUND_METHOD Type = "bound_method"
	NATIVE       Type = "native"
)

// Object is the interface implemented by all heap object kinds.
type Object interface {
	// Type of the object.
	Type() Type
}

// String is an interned string with its precomputed FNV-1a hash. Two String
// objects with equal text are always the same Store entry, so handle equality
// doubles as content equality.
type String struct {
	Text string
	Hash uint32
}

func (s *String) Type() Type { return STRING }

// Inspector lets object kinds defined outside this package (the compiled
// Function in the bytecode package) render themselves for printing.
type Inspector interface {
	Inspect(s *Store) string
}

// Closure pairs a compiled function with the upvalues captured at the point
// the closure was created. The Function handle references a
// bytecode.Function; many closures may share one function.
type Closure struct {
	Function Handle
	Upvalues []Handle
}

func (c *Closure) Type() Type { return CLOSURE }

// Upvalue is a captured variable. While open it points at a live value stack
// slot (Location >= 0); once closed it owns a snapshot of the value
// (Location == -1). Open upvalues are threaded into a list ordered by
// descending stack slot through Next.
type Upvalue struct {
	Location int
	Closed   Value
	Next     Handle
}

func (u *Upvalue) Type() Type { return UPVALUE }

// IsOpen returns true while the upvalue still points into the value stack.
func (u *Upvalue) IsOpen() bool { return u.Location >= 0 }

// Close snapshots the given value and detaches the upvalue from the stack.
func (u *Upvalue) Close(v Value) {
	u.Closed = v
	u.Location = -1
}

// Class has a name and a method table mapping interned method names to
// closures.
type Class struct {
	Name    Handle // String
	Methods *Table
}

func (c *Class) Type() Type { return CLASS }

// Instance belongs to a class and carries a field table mapping interned
// field names to values.
type Instance struct {
	Class  Handle
	Fields *Table
}

func (i *Instance) Type() Type { return INSTANCE }

// BoundMethod joins a receiver value with a method closure so the method can
// be passed around as a first-class value.
type BoundMethod struct {
	Receiver Value
	Method   Handle // Closure
}

func (b *BoundMethod) Type() Type { return BOUND_METHOD }

// NativeFn is the signature of a host-provided function. A returned error is
// surfaced as a Lox runtime error.
type NativeFn func(args []Value) (Value, error)

// Native wraps a host-provided function exposed to Lox as a global binding.
type Native struct {
	Name string
	Fn   NativeFn
}

func (n *Native) Type() Type { return NATIVE }
