package dis

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/compiler"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/parser"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func compileFunction(t *testing.T, src string, opts ...compiler.Option) *bytecode.Function {
	t.Helper()
	nodes, err := parser.Parse(context.Background(), src)
	require.NoError(t, err)
	fns, _, err := compiler.New(opts...).CompileAll(compiler.NewEnv(), nodes)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	return fns[0]
}

func noColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

func TestFunctionDisassembly(t *testing.T) {
	noColor(t)
	top := compileFunction(t, `(define (foo a b) (if a (+ b 1) (bar "hi")))`,
		compiler.WithGlobalNames("bar"))
	f, ok := Find(top, "foo")
	require.True(t, ok)

	instructions, err := Disassemble(f)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Print(instructions, &buf))

	expected := strings.TrimSpace(`
+--------+--------------+----------+------+
| OFFSET |    OPCODE    | OPERANDS | INFO |
+--------+--------------+----------+------+
|      0 | LOAD_0       |          | a    |
|      1 | JUMP_IF_NOT  |        6 | -> 6 |
|      3 | LOAD_1       |          | b    |
|      4 | INC          |          |      |
|      5 | RETURN       |          |      |
|      6 | CONST_PUSH_1 |          | "hi" |
|      7 | CALL_CONST_0 |        1 | bar  |
|      9 | RETURN       |          |      |
+--------+--------------+----------+------+
`)
	require.Equal(t, expected+"\n", buf.String())
}

func TestDisassembleAnnotations(t *testing.T) {
	top := compileFunction(t, "(define (f a) (list a (* a 2)))")
	f, ok := Find(top, "f")
	require.True(t, ok)
	instructions, err := Disassemble(f)
	require.NoError(t, err)

	byName := map[string]Instruction{}
	for _, instr := range instructions {
		byName[instr.Name] = instr
	}
	require.Equal(t, "list", byName["CALL_SYS_ARGS"].Annotation)
	require.Equal(t, []uint8{uint8(builtins.List), 2}, byName["CALL_SYS_ARGS"].Operands)
	require.Equal(t, "a", byName["LOAD_PUSH_0"].Annotation)
	require.Equal(t, op.CallSysArgs, byName["CALL_SYS_ARGS"].Opcode)
}

func TestDisassembleCustomBuiltins(t *testing.T) {
	table, err := builtins.NewRegistry(builtins.Builtin{Name: "emit", ID: 200, Arity: builtins.Exact(1)})
	require.NoError(t, err)
	top := compileFunction(t, "(emit 1)", compiler.WithBuiltins(table))

	instructions, err := Disassemble(top)
	require.NoError(t, err)
	var calls []Instruction
	for _, instr := range instructions {
		if instr.Opcode == op.CallSys {
			calls = append(calls, instr)
		}
	}
	require.Len(t, calls, 1)
	require.Equal(t, "builtin_200", calls[0].Annotation)

	instructions, err = Disassemble(top, WithBuiltins(table))
	require.NoError(t, err)
	for _, instr := range instructions {
		if instr.Opcode == op.CallSys {
			require.Equal(t, "emit", instr.Annotation)
		}
	}
}

func TestDisassembleInvalidCode(t *testing.T) {
	fn := bytecode.NewFunction(bytecode.FunctionParams{Code: []byte{byte(op.Const)}})
	_, err := Disassemble(fn)
	require.Error(t, err)

	fn = bytecode.NewFunction(bytecode.FunctionParams{Code: []byte{byte(op.Const0), byte(op.Return)}})
	_, err = Disassemble(fn)
	require.EqualError(t, err, "constant index out of range: 0")
}

func TestListings(t *testing.T) {
	noColor(t)
	top := compileFunction(t, "(define (adder n) (lambda (x) (+ x n)))")
	listings, err := Listings(top)
	require.NoError(t, err)
	require.Len(t, listings, 3)

	require.Equal(t, "<anonymous>", listings[0].Name)
	require.Equal(t, 1, listings[0].Parameters)
	require.Equal(t, 1, listings[0].Captures)
	require.Equal(t, "adder", listings[1].Name)
	require.Contains(t, listings[1].Constants, "func:<anonymous>")
	require.Equal(t, "<anonymous>", listings[2].Name)
	require.Equal(t, []string{"adder", "func:adder"}, listings[2].Constants)

	var buf bytes.Buffer
	require.NoError(t, PrintListings(listings, &buf))
	require.Contains(t, buf.String(), "<anonymous>/1 captures:1\n")
	require.Contains(t, buf.String(), "adder/1\n")
	require.Contains(t, buf.String(), "BUILD_CLOSURE")

	data, err := json.Marshal(listings[1])
	require.NoError(t, err)
	require.Contains(t, string(data), `"name":"adder"`)
	require.Contains(t, string(data), `"opcode":"BUILD_CLOSURE"`)
}

func TestFindMissing(t *testing.T) {
	top := compileFunction(t, "(define x 1)")
	_, ok := Find(top, "y")
	require.False(t, ok)
}
