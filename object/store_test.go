package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreAllocAndGet(t *testing.T) {
	store := NewStore()
	h := store.Alloc(&String{Text: "hi", Hash: HashString("hi")})
	require.False(t, h.IsZero())

	obj := store.Get(h)
	require.NotNil(t, obj)
	require.Equal(t, STRING, obj.Type())
	require.Equal(t, 1, store.Size())
}

func TestStoreFreeInvalidatesHandle(t *testing.T) {
	store := NewStore()
	h := store.Alloc(&Native{Name: "f"})
	store.Free(h)

	require.Nil(t, store.Get(h))
	require.Equal(t, 0, store.Size())

	// Double free is a no-op
	store.Free(h)
	require.Equal(t, 0, store.Size())
}

func TestStoreSlotReuseBumpsGeneration(t *testing.T) {
	store := NewStore()
	first := store.Alloc(&Native{Name: "a"})
	store.Free(first)

	second := store.Alloc(&Native{Name: "b"})
	require.Equal(t, first.Index, second.Index, "freed slot should be reused")
	require.NotEqual(t, first.Gen, second.Gen)

	// The stale handle resolves to nothing; the fresh one resolves
	require.Nil(t, store.Get(first))
	native, ok := store.Get(second).(*Native)
	require.True(t, ok)
	require.Equal(t, "b", native.Name)
}

func TestStoreZeroHandle(t *testing.T) {
	store := NewStore()
	require.Nil(t, store.Get(Handle{}))
	require.True(t, Handle{}.IsZero())
}

func TestInternReturnsSameHandle(t *testing.T) {
	store := NewStore()
	a := store.Intern("hello")
	b := store.Intern("hello")
	c := store.Intern("world")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	// Interned identity makes string values equal by handle comparison
	require.True(t, NewObject(a).Equals(NewObject(b)))
	require.False(t, NewObject(a).Equals(NewObject(c)))
}

func TestInspectValue(t *testing.T) {
	store := NewStore()
	str := store.Intern("text")
	className := store.Intern("Point")
	class := store.Alloc(&Class{Name: className, Methods: NewTable()})
	instance := store.Alloc(&Instance{Class: class, Fields: NewTable()})
	native := store.Alloc(&Native{Name: "clock"})

	tests := []struct {
		value Value
		want  string
	}{
		{Nil, "nil"},
		{True, "true"},
		{False, "false"},
		{NewNumber(3), "3"},
		{NewNumber(2.5), "2.5"},
		{NewObject(str), "text"},
		{NewObject(class), "Point"},
		{NewObject(instance), "Point instance"},
		{NewObject(native), "<native fn>"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, store.InspectValue(tt.value))
	}
}

func TestHashStringIsFNV1a(t *testing.T) {
	require.Equal(t, uint32(2166136261), HashString(""))
	require.Equal(t, HashString("abc"), HashString("abc"))
	require.NotEqual(t, HashString("abc"), HashString("abd"))
}

func TestFreeInternedString(t *testing.T) {
	store := NewStore()
	h := store.Intern("ephemeral")
	keep := store.Intern("keep")
	store.Free(h)
	require.Nil(t, store.GetString(h))

	// Re-interning the same text probes the bucket the freed string
	// occupied; it must allocate a fresh live string, not resolve the
	// stale handle.
	again := store.Intern("ephemeral")
	require.NotEqual(t, h, again)
	require.Equal(t, "ephemeral", store.GetString(again).Text)
	require.Equal(t, again, store.Intern("ephemeral"))

	// Unrelated interned strings are untouched.
	require.Equal(t, keep, store.Intern("keep"))
}
