package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	require.True(t, Equal(Int(1), Int(1)))
	require.False(t, Equal(Int(1), Float(1)))
	require.False(t, Equal(Name("a"), String("a")))
	require.True(t, Equal(Unit{}, Unit{}))
	require.True(t, Equal(Bool(false), Bool(false)))
	require.True(t, Equal(Char('x'), Char('x')))
	require.True(t, Equal(Float(math.NaN()), Float(math.NaN())))
	require.False(t, Equal(Float(0), Float(math.Copysign(0, -1))))
}

func TestEqualIdentity(t *testing.T) {
	type opaque struct{ n int }
	a, b := &opaque{1}, &opaque{1}
	require.True(t, Equal(a, a))
	require.False(t, Equal(a, b))
}

func TestString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Unit{}, "()"},
		{Bool(true), "true"},
		{Int(-12), "-12"},
		{Float(2), "2.0"},
		{Float(2.5), "2.5"},
		{Float(1e21), "1e+21"},
		{String("a\"b"), `"a\"b"`},
		{Char('a'), `#\a`},
		{Char(' '), `#\space`},
		{Name("foo"), "foo"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.v.String())
	}
}

func TestIsNumber(t *testing.T) {
	require.True(t, IsNumber(Int(1)))
	require.True(t, IsNumber(Float(1)))
	require.False(t, IsNumber(String("1")))
}
