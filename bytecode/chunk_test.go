package bytecode

import (
	"fmt"
	"testing"

	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/stretchr/testify/require"
)

func TestChunkWrite(t *testing.T) {
	c := NewChunk()
	c.WriteOp(op.Constant, 7)
	c.Write(0, 7)
	c.WriteOp(op.Return, 8)

	require.Equal(t, []byte{byte(op.Constant), 0, byte(op.Return)}, c.Code)
	require.Equal(t, []int{7, 7, 8}, c.Lines)
	require.Len(t, c.Lines, len(c.Code))
}

func TestAddConstant(t *testing.T) {
	c := NewChunk()
	idx, err := c.AddConstant(object.NewNumber(1.5))
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	idx, err = c.AddConstant(object.True)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
}

func TestAddConstantLimit(t *testing.T) {
	c := NewChunk()
	for i := 0; i < MaxConstants; i++ {
		idx, err := c.AddConstant(object.NewNumber(float64(i)))
		require.NoError(t, err, "constant %d", i)
		require.Equal(t, i, idx)
	}
	_, err := c.AddConstant(object.Nil)
	require.ErrorIs(t, err, ErrTooManyConstants)
	require.Len(t, c.Constants, MaxConstants)
}

func TestConstantPoolIsAppendOnly(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 10; i++ {
		idx, err := c.AddConstant(object.NewNumber(float64(i)))
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
	for i := 0; i < 10; i++ {
		require.Equal(t, object.NewNumber(float64(i)), c.Constants[i])
	}
}

func TestFunctionInspect(t *testing.T) {
	store := object.NewStore()
	script := NewFunction("")
	named := NewFunction("fib")
	require.Equal(t, "<script>", script.Inspect(store))
	require.Equal(t, "<fn fib>", named.Inspect(store))
	require.Equal(t, object.FUNCTION, named.Type())
}

func TestFunctionConstantsRoundTrip(t *testing.T) {
	store := object.NewStore()
	c := NewChunk()
	fn := NewFunction("inner")
	h := store.Alloc(fn)
	idx, err := c.AddConstant(object.NewObject(h))
	require.NoError(t, err)

	got := GetFunction(store, c.Constants[idx].AsObject())
	require.Equal(t, fn, got)
	require.Equal(t, "<fn inner>", store.InspectValue(c.Constants[idx]))
}

func TestConstantIndexFitsInOneByte(t *testing.T) {
	c := NewChunk()
	var lastIdx int
	for i := 0; i < MaxConstants; i++ {
		idx, err := c.AddConstant(object.NewNumber(float64(i)))
		require.NoError(t, err)
		lastIdx = idx
	}
	require.Equal(t, lastIdx, int(byte(lastIdx)), fmt.Sprintf("index %d overflows a byte", lastIdx))
}
