package compiler

import (
	"context"
	"math"
	"testing"

	"github.com/deepnoodle-ai/kestrel/parser"
	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/stretchr/testify/require"
)

// foldSource folds a single expression in an empty top-level context.
func foldSource(t *testing.T, src string, env *Env) (value.Value, bool) {
	t.Helper()
	nodes, err := parser.Parse(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	c := New()
	if env == nil {
		env = NewEnv()
	}
	c.env = env
	c.fn = newFuncState(nil, "", nil, nil)
	return c.fold(nodes[0])
}

func TestFold(t *testing.T) {
	tests := []struct {
		src  string
		want value.Value
	}{
		{"(+)", value.Int(0)},
		{"(+ 1 2 3)", value.Int(6)},
		{"(+ 1 2.5)", value.Float(3.5)},
		{"(- 5)", value.Int(-5)},
		{"(- 10 1 2)", value.Int(7)},
		{"(*)", value.Int(1)},
		{"(* 2 3 4)", value.Int(24)},
		{"(/ 8 2)", value.Int(4)},
		{"(/ 1.0 4)", value.Float(0.25)},
		{"(// 7 2)", value.Int(3)},
		{"(// -7 2)", value.Int(-4)},
		{"(// 7.5 2)", value.Float(3)},
		{"(rem 7 3)", value.Int(1)},
		{"(rem -7 3)", value.Int(-1)},
		{"(= 1 1 1)", value.Bool(true)},
		{"(= 1 1.0)", value.Bool(true)},
		{`(= "a" "b")`, value.Bool(false)},
		{"(/= 1 2 3)", value.Bool(true)},
		{"(/= 1 2 1)", value.Bool(false)},
		{"(< 1 2 3)", value.Bool(true)},
		{"(< 1 3 2)", value.Bool(false)},
		{"(>= 3 3 1)", value.Bool(true)},
		{`(< "a" "b")`, value.Bool(true)},
		{"(not false)", value.Bool(true)},
		{"(id 5)", value.Int(5)},
		{"(floor 2.7)", value.Float(2)},
		{"(floor 3)", value.Int(3)},
		{"(ceiling 2.1)", value.Float(3)},
		{"(round 2.5)", value.Float(3)},
		{"(truncate -2.7)", value.Float(-2)},
		{"(abs -4)", value.Int(4)},
		{"(abs -9223372036854775807)", value.Int(math.MaxInt64)},
		{"(min 3 1 2)", value.Int(1)},
		{"(max 3 1.5)", value.Int(3)},
		{"(if true 1 2)", value.Int(1)},
		{"(if false 1)", value.Unit{}},
		{"(+ (* 2 3) (- 4 1))", value.Int(9)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, ok := foldSource(t, tt.src, nil)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFoldFailures(t *testing.T) {
	tests := []string{
		"(+ 9223372036854775807 1)",
		"(- -9223372036854775807 2)",
		"(* 9223372036854775807 2)",
		"(/ 1 0)",
		"(/ 7 2)",
		"(// 1 0)",
		"(rem 1 0)",
		`(+ 1 "a")`,
		`(< 1 "a")`,
		"(not 1)",
		"(list 1 2)",
		"(if 1 2 3)",
		"(not 1 2)",
		"x",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, ok := foldSource(t, src, nil)
			require.False(t, ok)
		})
	}
}

func TestFoldUsesConstants(t *testing.T) {
	env := NewEnv().WithConstant("n", value.Int(4)).WithDefinition("d", -1)
	got, ok := foldSource(t, "(* n n)", env)
	require.True(t, ok)
	require.Equal(t, value.Int(16), got)

	_, ok = foldSource(t, "(* d 2)", env)
	require.False(t, ok)
}

func TestFoldRespectsShadowing(t *testing.T) {
	// A definition named like a builtin is not folded
	env := NewEnv().WithDefinition("+", 2)
	_, ok := foldSource(t, "(+ 1 2)", env)
	require.False(t, ok)
}
