package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	require.True(t, Nil.IsNil())
	require.True(t, True.IsBool())
	require.True(t, NewNumber(1.5).IsNumber())
	require.Equal(t, 1.5, NewNumber(1.5).AsNumber())

	h := Handle{Index: 3, Gen: 1}
	v := NewObject(h)
	require.True(t, v.IsObject())
	require.Equal(t, h, v.AsObject())
}

func TestTruthiness(t *testing.T) {
	// Only nil and false are falsey
	require.False(t, Nil.IsTruthy())
	require.False(t, False.IsTruthy())
	require.True(t, True.IsTruthy())
	require.True(t, NewNumber(0).IsTruthy())
	require.True(t, NewObject(Handle{Index: 1, Gen: 1}).IsTruthy())
}

func TestValueEquality(t *testing.T) {
	require.True(t, Nil.Equals(Nil))
	require.True(t, True.Equals(NewBool(true)))
	require.False(t, True.Equals(False))
	require.True(t, NewNumber(2).Equals(NewNumber(2)))
	require.False(t, NewNumber(2).Equals(NewNumber(3)))

	// Mixed kinds are never equal
	require.False(t, Nil.Equals(False))
	require.False(t, NewNumber(0).Equals(False))

	a := NewObject(Handle{Index: 1, Gen: 1})
	b := NewObject(Handle{Index: 1, Gen: 1})
	c := NewObject(Handle{Index: 1, Gen: 2})
	require.True(t, a.Equals(b))
	require.False(t, a.Equals(c))
}

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "89", formatNumber(89))
	require.Equal(t, "-0.5", formatNumber(-0.5))
	require.Equal(t, "1e+21", formatNumber(1e21))
}
