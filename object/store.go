package object

// Handle is a stable, generational reference to a heap object in a Store.
// The zero Handle references nothing. Handles stay valid across any internal
// reorganization because identity is (slot index, generation), never an
// address.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero returns true for the null handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

type slot struct {
	gen uint32
	obj Object
}

// Store is a slot arena that owns every heap object created by one
// interpreter. Freed slots go on a free list and are reused with a bumped
// generation, so stale handles are detectable rather than dangling. The store
// also interns strings: equal text always maps to the same handle.
type Store struct {
	slots   []slot
	free    []uint32
	strings *Table
	size    int
}

// NewStore returns an empty object store.
func NewStore() *Store {
	return &Store{strings: NewTable()}
}

// Alloc places the object into a slot and returns its handle.
func (s *Store) Alloc(obj Object) Handle {
	if n := len(s.free); n > 0 {
		index := s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[index].obj = obj
		s.size++
		return Handle{Index: index, Gen: s.slots[index].gen}
	}
	s.slots = append(s.slots, slot{gen: 1, obj: obj})
	s.size++
	return Handle{Index: uint32(len(s.slots) - 1), Gen: 1}
}

// Get returns the object for the handle, or nil if the handle is zero, stale,
// or was freed.
func (s *Store) Get(h Handle) Object {
	if h.IsZero() || int(h.Index) >= len(s.slots) {
		return nil
	}
	sl := &s.slots[h.Index]
	if sl.gen != h.Gen {
		return nil
	}
	return sl.obj
}

// Free releases the object's slot for reuse. The generation is bumped so any
// outstanding handles to the freed object become stale. Freeing an already
// stale handle is a no-op. Freed strings are removed from the intern table so
// later interning never probes through a stale handle.
func (s *Store) Free(h Handle) {
	obj := s.Get(h)
	if obj == nil {
		return
	}
	if str, ok := obj.(*String); ok {
		s.strings.Delete(h, str.Hash)
	}
	sl := &s.slots[h.Index]
	sl.obj = nil
	sl.gen++
	s.free = append(s.free, h.Index)
	s.size--
}

// Size returns the number of live objects.
func (s *Store) Size() int {
	return s.size
}

// Intern returns the handle of the String object with the given text,
// allocating it on first use. Repeated calls with equal text return the same
// handle.
func (s *Store) Intern(text string) Handle {
	hash := HashString(text)
	if h, ok := s.strings.FindKey(text, hash, s.stringText); ok {
		return h
	}
	h := s.Alloc(&String{Text: text, Hash: hash})
	s.strings.Set(h, hash, Nil)
	return h
}

func (s *Store) stringText(h Handle) string {
	return s.GetString(h).Text
}

// GetString returns the String at the handle, or nil if the handle does not
// reference a live string.
func (s *Store) GetString(h Handle) *String {
	str, _ := s.Get(h).(*String)
	return str
}

// GetClosure returns the Closure at the handle, or nil.
func (s *Store) GetClosure(h Handle) *Closure {
	c, _ := s.Get(h).(*Closure)
	return c
}

// GetUpvalue returns the Upvalue at the handle, or nil.
func (s *Store) GetUpvalue(h Handle) *Upvalue {
	u, _ := s.Get(h).(*Upvalue)
	return u
}

// GetClass returns the Class at the handle, or nil.
func (s *Store) GetClass(h Handle) *Class {
	c, _ := s.Get(h).(*Class)
	return c
}

// GetInstance returns the Instance at the handle, or nil.
func (s *Store) GetInstance(h Handle) *Instance {
	i, _ := s.Get(h).(*Instance)
	return i
}

// InspectValue renders a value the way the print statement shows it.
func (s *Store) InspectValue(v Value) string {
	switch v.Kind() {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.AsNumber())
	case KindObject:
		return s.inspectObject(v.AsObject())
	default:
		return "invalid"
	}
}

func (s *Store) inspectObject(h Handle) string {
	switch obj := s.Get(h).(type) {
	case nil:
		return "<freed object>"
	case *String:
		return obj.Text
	case *Closure:
		return s.inspectObject(obj.Function)
	case *Upvalue:
		return "upvalue"
	case *Class:
		return s.GetString(obj.Name).Text
	case *Instance:
		return s.GetString(s.GetClass(obj.Class).Name).Text + " instance"
	case *BoundMethod:
		return s.inspectObject(obj.Method)
	case *Native:
		return "<native fn>"
	default:
		if insp, ok := obj.(Inspector); ok {
			return insp.Inspect(s)
		}
		return string(obj.Type())
	}
}

// HashString computes the FNV-1a hash used for interning and table probing.
func HashString(text string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(text); i++ {
		hash ^= uint32(text[i])
		hash *= 16777619
	}
	return hash
}
