package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/stretchr/testify/require"
)

func requireCompileError(t *testing.T, err error, code errors.ErrorCode) *errors.CompileError {
	t.Helper()
	require.Error(t, err)
	var ce *errors.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, code, ce.Code, ce.Message)
	return ce
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.ErrorCode
		msg  string
	}{
		{"unbound", "(define (f) zzz)", errors.UnboundName, `unbound name "zzz"`},
		{"unbound top level", "(g 1)", errors.UnboundName, `unbound name "g"`},
		{"forward reference", "(define (f) (g)) (define (g) 1)", errors.ForwardReference,
			`"g" is referenced before its definition`},
		{"duplicate parameter", "(lambda (a a) a)", errors.DuplicateParameter, `duplicate parameter "a"`},
		{"duplicate top-level", "(define x 1) (define x 2)", errors.DuplicateTopLevelName, `"x" is already defined`},
		{"const and define clash", "(const x 1) (define x 2)", errors.DuplicateTopLevelName, `"x" is already defined`},
		{"self arity", "(define (f a) (f))", errors.ArityMismatch, `function "f" takes 1 arguments, called with 0`},
		{"builtin arity", "(not 1 2)", errors.ArityMismatch, `builtin "not" takes 1 arguments, called with 2`},
		{"global arity", "(define (g a) a) (g 1 2)", errors.ArityMismatch, `function "g" takes 1 arguments, called with 2`},
		{"apply without list", "(define (f) (apply f))", errors.ArityMismatch, "apply requires an argument list"},
		{"self apply leading", "(define (f a) (apply f 1 2 ()))", errors.ArityMismatch,
			`function "f" takes 1 arguments, applied with 2 leading arguments`},
		{"const not constant", "(const x (foo))", errors.NonConstantInConstExpr,
			`value of const "x" is not a constant expression: (foo)`},
		{"const division by zero", "(const x (// 1 0))", errors.NonConstantInConstExpr,
			`value of const "x" is not a constant expression: (// 1 0)`},
		{"nested define", "(do (define x 1))", errors.MisplacedDefinition, `define of "x" is only allowed at top level`},
		{"nested const", "(define (f) (const x 1))", errors.MisplacedDefinition, `const "x" is only allowed at top level`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compileSource(tt.src, WithGlobalNames("foo"))
			ce := requireCompileError(t, err, tt.code)
			require.Equal(t, tt.msg, ce.Message)
		})
	}
}

func TestUnboundSuggestions(t *testing.T) {
	_, _, err := compileSource("(define (f count) (+ coutn 1))")
	ce := requireCompileError(t, err, errors.UnboundName)
	require.NotEmpty(t, ce.Suggestions)
	require.Equal(t, "count", ce.Suggestions[0].Value)
	require.Contains(t, ce.FriendlyErrorMessage(), "did you mean 'count'?")
}

func TestUnboundSuggestsBuiltins(t *testing.T) {
	_, _, err := compileSource("(define (f a) (prinln a))")
	ce := requireCompileError(t, err, errors.UnboundName)
	require.NotEmpty(t, ce.Suggestions)
	require.Equal(t, "println", ce.Suggestions[0].Value)
}

func TestErrorLocation(t *testing.T) {
	src := "(define (f a)\n  (+ a b))"
	_, _, err := compileSource(src, WithFilename("f.ks"), WithSource(src))
	ce := requireCompileError(t, err, errors.UnboundName)
	require.Equal(t, "f.ks", ce.Filename)
	require.Equal(t, 2, ce.Line)
	require.Equal(t, 8, ce.Column)
	require.Equal(t, "  (+ a b))", ce.SourceLine)
	require.Contains(t, ce.Error(), "compile error: unbound name \"b\"")
	require.Contains(t, ce.Error(), "f.ks:2:8")
}

// intList returns the source text of the integers from..to-1.
func intList(from, to int) string {
	parts := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		parts = append(parts, fmt.Sprint(i))
	}
	return strings.Join(parts, " ")
}

func TestTooManyArguments(t *testing.T) {
	_, _, err := compileSource("(list " + intList(0, 256) + ")")
	requireCompileError(t, err, errors.TooManyArguments)

	_, _, err = compileSource("(list " + intList(0, 255) + ")")
	require.NoError(t, err)
}

func TestTooManyConstants(t *testing.T) {
	src := "(do (list " + intList(0, 200) + ") (list " + intList(200, 300) + "))"
	_, _, err := compileSource(src)
	requireCompileError(t, err, errors.TooManyConstants)
}

func TestTooManyLocals(t *testing.T) {
	var b strings.Builder
	b.WriteString("(let (")
	for i := 0; i < 257; i++ {
		fmt.Fprintf(&b, "(v%d 0)", i)
	}
	b.WriteString(") 1)")
	_, _, err := compileSource(b.String())
	requireCompileError(t, err, errors.TooManyLocals)
}

func TestTooManyCaptures(t *testing.T) {
	var params, body strings.Builder
	for i := 0; i < 255; i++ {
		fmt.Fprintf(&params, " a%d", i)
		fmt.Fprintf(&body, "a%d ", i)
	}
	src := fmt.Sprintf("(define (f%s) (let ((x 1)) (lambda () (do %sx))))",
		params.String(), body.String())
	_, _, err := compileSource(src)
	requireCompileError(t, err, errors.TooManyLocals)
	require.Contains(t, err.Error(), "captures 256 locals")

	// One fewer capture fits the operand
	src = fmt.Sprintf("(define (f%s) (lambda () (do %s)))", params.String(), body.String())
	fns, _, err := compileSource(src)
	require.NoError(t, err)
	require.NoError(t, fns[0].Validate())
}

func TestMaxLocalsInNonTailLet(t *testing.T) {
	var b strings.Builder
	b.WriteString("(do (let (")
	for i := 0; i < 256; i++ {
		fmt.Fprintf(&b, "(v%d 0)", i)
	}
	b.WriteString(") v255) ())")
	fns, _, err := compileSource(b.String())
	require.NoError(t, err)
	require.NoError(t, fns[0].Validate())
	var skipped int
	for ins := range fns[0].Instructions() {
		if ins.Op == op.Skip {
			skipped += int(ins.Operands[0])
		}
	}
	require.Equal(t, 256, skipped)
}

func TestJumpOutOfRange(t *testing.T) {
	_, _, err := compileSource("(define (f a) (if a (list " + intList(0, 150) + ") 1))")
	requireCompileError(t, err, errors.JumpOutOfRange)
}

func TestInvalidTailPosition(t *testing.T) {
	c := New()
	c.fn = newFuncState(nil, "f", nil, nil)
	err := c.emitSelfCall(&ast.Ident{Name: "f"}, op.TailCallSelf, 0, false)
	requireCompileError(t, err, errors.InvalidTailPosition)

	require.NoError(t, c.emitSelfCall(&ast.Ident{Name: "f"}, op.CallSelf, 0, false))
}

func TestErrorsDoNotLeakState(t *testing.T) {
	c := New()
	_, _, err := c.CompileAll(nil, []ast.Node{&ast.Ident{Name: "nope"}})
	require.Error(t, err)
	require.Nil(t, c.fn)
	require.Nil(t, c.env)
	require.Nil(t, c.declared)
}
