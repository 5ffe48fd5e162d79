package compiler

import (
	"context"
	"testing"

	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/parser"
	"github.com/stretchr/testify/require"
)

// bc assembles expected code from opcodes, builtin ids and operands.
func bc(parts ...any) []byte {
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		switch p := p.(type) {
		case op.Code:
			out = append(out, byte(p))
		case builtins.ID:
			out = append(out, byte(p))
		case int:
			out = append(out, byte(p))
		default:
			panic("unexpected code part")
		}
	}
	return out
}

func compileSource(src string, opts ...Option) ([]*bytecode.Function, *Env, error) {
	nodes, err := parser.Parse(context.Background(), src)
	if err != nil {
		return nil, nil, err
	}
	return New(opts...).CompileAll(NewEnv(), nodes)
}

// compileLast compiles src and returns the code of its last form. For a
// define of a function, that is the function itself.
func compileLast(t *testing.T, src string, opts ...Option) *bytecode.Function {
	t.Helper()
	fns, _, err := compileSource(src, opts...)
	require.NoError(t, err)
	require.NoError(t, fns[len(fns)-1].Validate())
	last := fns[len(fns)-1]
	if last.ConstantCount() > 1 {
		if fn, ok := last.ConstantAt(1).(*bytecode.Function); ok {
			return fn
		}
	}
	return last
}

// requireCode compares decoded instructions first, for readable failures.
func requireCode(t *testing.T, want []byte, fn *bytecode.Function) {
	t.Helper()
	wantIns, err := bytecode.Decode(want)
	require.NoError(t, err)
	gotIns, err := bytecode.Decode(fn.Bytes())
	require.NoError(t, err)
	require.Equal(t, wantIns, gotIns)
	require.Equal(t, want, fn.Bytes())
}
