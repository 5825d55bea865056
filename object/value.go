package object

import "strconv"

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	// KindNil is the nil value.
	KindNil Kind = iota
	// KindBool is a boolean value.
	KindBool
	// KindNumber is a 64-bit floating point number.
	KindNumber
	// KindObject is a handle referencing a heap object in a Store.
	KindObject
)

// String returns the name of the kind, e.g. "number".
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is the tagged union of all Lox values: nil, booleans, numbers, and
// references to heap objects. The zero Value is nil.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	object  Handle
}

// Nil is the nil value.
var Nil = Value{}

// True and False are the two boolean values.
var (
	True  = Value{kind: KindBool, boolean: true}
	False = Value{kind: KindBool}
)

// NewBool returns a boolean value.
func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// NewNumber returns a number value.
func NewNumber(f float64) Value {
	return Value{kind: KindNumber, number: f}
}

// NewObject returns a value referencing the heap object with the given handle.
func NewObject(h Handle) Value {
	return Value{kind: KindObject, object: h}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNil returns true if the value is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsBool returns true if the value is a boolean.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsNumber returns true if the value is a number.
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// IsObject returns true if the value references a heap object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool returns the boolean payload. Only valid when IsBool is true.
func (v Value) AsBool() bool { return v.boolean }

// AsNumber returns the number payload. Only valid when IsNumber is true.
func (v Value) AsNumber() float64 { return v.number }

// AsObject returns the object handle. Only valid when IsObject is true.
func (v Value) AsObject() Handle { return v.object }

// IsTruthy returns true unless the value is nil or false.
func (v Value) IsTruthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.boolean
	default:
		return true
	}
}

// Equals reports Lox value equality: nil equals nil, booleans and numbers
// compare by value, and object references compare by handle identity. Strings
// are interned, so identity comparison doubles as content comparison.
func (v Value) Equals(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.boolean == other.boolean
	case KindNumber:
		return v.number == other.number
	case KindObject:
		return v.object == other.object
	default:
		return false
	}
}

// formatNumber renders a number the way Lox prints it: integers without a
// decimal point, everything else in shortest form.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
