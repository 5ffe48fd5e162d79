package parser

import (
	"context"
	"testing"

	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, input string) ast.Node {
	t.Helper()
	nodes, err := Parse(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	return nodes[0]
}

func TestLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  value.Value
	}{
		{"42", value.Int(42)},
		{"-7", value.Int(-7)},
		{"+3", value.Int(3)},
		{"2.5", value.Float(2.5)},
		{"1e3", value.Float(1000)},
		{`"hi\n"`, value.String("hi\n")},
		{`#\x`, value.Char('x')},
		{`#\space`, value.Char(' ')},
		{"true", value.Bool(true)},
		{"false", value.Bool(false)},
		{"()", value.Unit{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lit, ok := parseOne(t, tt.input).(*ast.Literal)
			require.True(t, ok)
			require.Equal(t, tt.want, lit.Value)
		})
	}
}

func TestForms(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"foo", "foo"},
		{"(+ a 1)", "(+ a 1)"},
		{"((id foo) a)", "((id foo) a)"},
		{"(define x 1)", "(define x 1)"},
		{"(define (foo a b) (+ a b))", "(define (foo a b) (+ a b))"},
		{"(define (foo) ())", "(define (foo) ())"},
		{"(const n (+ 1 2))", "(const n (+ 1 2))"},
		{"(lambda (x) x)", "(lambda (x) x)"},
		{"(let ((a 1) (b 2)) (+ a b))", "(let ((a 1) (b 2)) (+ a b))"},
		{"(do)", "(do)"},
		{"(do a b)", "(do a b)"},
		{"(if a b)", "(if a b)"},
		{"(if a b c)", "(if a b c)"},
		{"(and)", "(and)"},
		{"(or a b)", "(or a b)"},
		{"(apply foo a ())", "(apply foo a ())"},
		{`(print "x" #\y)`, `(print "x" #\y)`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, parseOne(t, tt.input).String())
		})
	}
}

func TestDefineShorthand(t *testing.T) {
	def, ok := parseOne(t, "(define (foo a) (foo a))").(*ast.Define)
	require.True(t, ok)
	require.Equal(t, "foo", def.Name)
	fn, ok := def.Value.(*ast.Lambda)
	require.True(t, ok)
	require.Equal(t, "foo", fn.Name)
	require.Equal(t, []string{"a"}, fn.Params)
	require.Len(t, fn.Body, 1)
}

func TestLambdaIsAnonymous(t *testing.T) {
	def := parseOne(t, "(define foo (lambda (a) a))").(*ast.Define)
	fn := def.Value.(*ast.Lambda)
	require.Equal(t, "", fn.Name)
}

func TestMultipleForms(t *testing.T) {
	input := `
; a comment
(const n 1)
(define (inc x) (+ x n))
(inc 2)
`
	nodes, err := Parse(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.IsType(t, &ast.Const{}, nodes[0])
	require.IsType(t, &ast.Define{}, nodes[1])
	require.IsType(t, &ast.Call{}, nodes[2])
}

func TestPositions(t *testing.T) {
	nodes, err := Parse(context.Background(), "(a)\n  (b c)", WithFilename("pos.ks"))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	pos := nodes[1].Pos()
	require.Equal(t, 2, pos.LineNumber())
	require.Equal(t, 3, pos.ColumnNumber())
	require.Equal(t, "pos.ks", pos.File)
	arg := nodes[1].(*ast.Call).Args[0]
	require.Equal(t, 6, arg.Pos().ColumnNumber())
}

func TestErrors(t *testing.T) {
	tests := []struct {
		input string
		code  errors.ErrorCode
		msg   string
	}{
		{"(a b", errors.E1007, "unclosed ("},
		{")", errors.E1001, "unexpected )"},
		{`"abc`, errors.E1002, "unterminated string literal"},
		{`"\q"`, errors.E1010, `invalid escape sequence \q`},
		{"99999999999999999999", errors.E1008, `number literal "99999999999999999999" is out of range`},
		{"12abc", errors.E1008, `invalid number literal "12abc"`},
		{"(if a)", errors.E1003, "if expects 2 to 3 operands, found 1"},
		{"(const x)", errors.E1003, "const expects 2 operands, found 1"},
		{"(define)", errors.E1003, "define expects at least 1 operands, found 0"},
		{"(define 1 2)", errors.E1001, "expected definition name, found number"},
		{"(lambda x x)", errors.E1001, "expected parameter list, found x"},
		{"(let (a 1) a)", errors.E1003, "let binding must have the form (name value)"},
		{"(let ((if 1)) 2)", errors.E1003, "if cannot be used as binding name"},
		{"(f if)", errors.E1003, "if cannot be used as a value"},
		{"'a", errors.E1003, "quoted expressions are not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(context.Background(), tt.input)
			require.Error(t, err)
			require.Equal(t, tt.code, errors.CodeOf(err))
			var ce *errors.CompileError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, tt.msg, ce.Message)
		})
	}
}

func TestErrorLocation(t *testing.T) {
	_, err := Parse(context.Background(), "(a)\n(if x)", WithFilename("bad.ks"))
	var ce *errors.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "bad.ks", ce.Filename)
	require.Equal(t, 2, ce.Line)
	require.Equal(t, 1, ce.Column)
	require.Equal(t, "(if x)", ce.SourceLine)
	require.Equal(t, 7, ce.EndColumn)
}

func TestRecoversAfterFormError(t *testing.T) {
	nodes, err := Parse(context.Background(), "(if)\n(ok 1)\n(let x)\n(ok 2)")
	require.Error(t, err)
	var all *errors.CompileErrors
	require.ErrorAs(t, err, &all)
	require.Len(t, all.Errors, 2)
	require.Len(t, nodes, 2)
	require.Equal(t, "(ok 1)", nodes[0].String())
	require.Equal(t, "(ok 2)", nodes[1].String())
}

func TestMaxDepth(t *testing.T) {
	_, err := Parse(context.Background(), "((((a))))", WithMaxDepth(3))
	require.Error(t, err)
	require.Contains(t, err.Error(), "maximum nesting depth of 3 exceeded")

	_, err = Parse(context.Background(), "((((a))))", WithMaxDepth(4))
	require.NoError(t, err)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, "(a)")
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmptyInput(t *testing.T) {
	nodes, err := Parse(context.Background(), "  ; nothing here\n")
	require.NoError(t, err)
	require.Empty(t, nodes)
}
