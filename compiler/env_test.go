package compiler

import (
	"testing"

	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/stretchr/testify/require"
)

func TestEnvWithIsCopyOnWrite(t *testing.T) {
	a := NewEnv()
	b := a.WithDefinition("f", 2)
	c := b.WithConstant("k", value.Int(1))

	require.Equal(t, 0, a.Len())
	require.Equal(t, 1, b.Len())
	require.Equal(t, 2, c.Len())
	require.Equal(t, []string{"f", "k"}, c.Names())

	_, ok := b.Lookup("k")
	require.False(t, ok)

	sym, ok := c.Lookup("k")
	require.True(t, ok)
	require.Equal(t, ConstantSymbol, sym.Kind)
	require.Equal(t, value.Int(1), sym.Value)
	require.Equal(t, "constant", sym.Kind.String())

	sym, ok = c.Lookup("f")
	require.True(t, ok)
	require.Equal(t, DefinedSymbol, sym.Kind)
	require.Equal(t, 2, sym.Arity)
}

func TestNilEnv(t *testing.T) {
	var e *Env
	require.Equal(t, 0, e.Len())
	require.Nil(t, e.Names())
	_, ok := e.Lookup("x")
	require.False(t, ok)
	require.Equal(t, 1, e.WithDefinition("x", -1).Len())
}
