package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/cache"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/manifest"
	"github.com/deepnoodle-ai/kestrel/parser"
	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readUnit(t *testing.T, path string) []*bytecode.Function {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	forms, err := bytecode.UnmarshalUnit(data)
	require.NoError(t, err)
	return forms
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()
	lib := writeFile(t, dir, "lib.ks", "(define (square x) (* x x))")
	prog := writeFile(t, dir, "main.ks", "(const n 4)\n(square n)")
	out := filepath.Join(dir, "out", "prog.kbc")

	stdout, err := run(t, "compile", lib, prog, "-o", out)
	require.NoError(t, err)
	require.Equal(t, "compiled 3 forms to "+out+"\n", stdout)

	forms := readUnit(t, out)
	require.Len(t, forms, 3)
	require.Equal(t, value.Name("square"), forms[0].ConstantAt(0))
}

func TestCompileDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.ks", "(define x 1)")
	_, err := run(t, "build", src)
	require.NoError(t, err)
	require.Len(t, readUnit(t, filepath.Join(dir, "prog.kbc")), 1)
}

func TestCompileOrderMatters(t *testing.T) {
	dir := t.TempDir()
	lib := writeFile(t, dir, "lib.ks", "(define (square x) (* x x))")
	prog := writeFile(t, dir, "main.ks", "(square 3)")
	_, err := run(t, "compile", prog, lib, "-o", filepath.Join(dir, "x.kbc"))
	require.Error(t, err)
	require.Equal(t, errors.UnboundName, errors.CodeOf(err))
}

func TestCompileProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, manifest.FileName, `
[project]
name = "app"

[source]
files = ["src/a.ks", "src/b.ks"]

[compiler]
globals = ["host-log"]
`)
	writeFile(t, dir, "src/a.ks", "(define (f x) (host-log x))")
	writeFile(t, dir, "src/b.ks", "(f 1)")

	stdout, err := run(t, "compile", "--project", dir)
	require.NoError(t, err)
	require.Contains(t, stdout, "compiled 2 forms")
	require.Len(t, readUnit(t, filepath.Join(dir, "app.kbc")), 2)
}

func TestCompileWithCache(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.ks", "(define (f a) (+ a 1))")
	db := filepath.Join(dir, "cache.db")
	out := filepath.Join(dir, "prog.kbc")

	for i := 0; i < 2; i++ {
		_, err := run(t, "compile", src, "-o", out, "--cache", "--cache-path", db)
		require.NoError(t, err)
	}
	require.Len(t, readUnit(t, out), 1)

	stdout, err := run(t, "cache", "list", "--cache-path", db, "--format", "json")
	require.NoError(t, err)
	var entries []cache.Entry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, src, entries[0].Label)
	require.Equal(t, 1, entries[0].Forms)

	stdout, err = run(t, "cache", "prune", "--cache-path", db, "--older-than", "0s")
	require.NoError(t, err)
	require.Contains(t, stdout, "removed")
}

func TestCompileLateBindingFromEnv(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.ks", "(define (f) (later 1))")
	_, err := run(t, "compile", src, "-o", filepath.Join(dir, "a.kbc"))
	require.Equal(t, errors.UnboundName, errors.CodeOf(err))

	t.Setenv("KESTREL_LATE_BINDING", "true")
	_, err = run(t, "compile", src, "-o", filepath.Join(dir, "b.kbc"))
	require.NoError(t, err)
}

func TestInputErrors(t *testing.T) {
	_, err := run(t, "compile", "-c", "1", "--stdin")
	require.EqualError(t, err, "multiple input sources specified")

	_, err = run(t, "check", "-c", "1", "file.ks")
	require.EqualError(t, err, "multiple input sources specified")

	_, err = run(t, "dis", "-c", "1", "--format", "yaml")
	require.EqualError(t, err, "unknown output format: yaml")
}

func TestDis(t *testing.T) {
	stdout, err := run(t, "dis", "-c", "(define (f a) (+ a 1))", "--func", "f")
	require.NoError(t, err)
	expected := `
f/1
+--------+--------+----------+------+
| OFFSET | OPCODE | OPERANDS | INFO |
+--------+--------+----------+------+
|      0 | LOAD_0 |          | a    |
|      1 | INC    |          |      |
|      2 | RETURN |          |      |
+--------+--------+----------+------+
`
	require.Equal(t, strings.TrimPrefix(expected, "\n"), stdout)

	_, err = run(t, "dis", "-c", "(define (f a) a)", "--func", "g")
	require.EqualError(t, err, `function "g" not found`)
}

func TestDisAllForms(t *testing.T) {
	stdout, err := run(t, "dis", "-c", "(define (f a) a) (f 2)")
	require.NoError(t, err)
	require.Contains(t, stdout, "f/1\n")
	require.Contains(t, stdout, "<form 1>/0\n")
	require.Contains(t, stdout, "<form 2>/0\n")
	require.Contains(t, stdout, "CALL_CONST_0")
}

func TestDisJSON(t *testing.T) {
	stdout, err := run(t, "dis", "-c", "(define (f a) (+ a 1))", "--format", "json")
	require.NoError(t, err)
	var listings []struct {
		Name         string `json:"name"`
		Instructions []struct {
			Opcode string `json:"opcode"`
		} `json:"instructions"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &listings))
	require.Len(t, listings, 2)
	require.Equal(t, "f", listings[0].Name)
	require.Equal(t, "INC", listings[0].Instructions[1].Opcode)
}

func TestDisBytecodeFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.ks", "(define (g b) (not b))")
	out := filepath.Join(dir, "prog.kbc")
	_, err := run(t, "compile", src, "-o", out)
	require.NoError(t, err)

	stdout, err := run(t, "dis", out, "--func", "g")
	require.NoError(t, err)
	require.Contains(t, stdout, "CALL_SYS")
	require.Contains(t, stdout, "not")
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.ks", "(define (f a) a)")
	stdout, err := run(t, "check", good)
	require.NoError(t, err)
	require.Equal(t, "ok: 1 files\n", stdout)

	bad1 := writeFile(t, dir, "bad1.ks", "(define (g) zzz)")
	bad2 := writeFile(t, dir, "bad2.ks", "(f 1 2)\n(if)")
	_, err = run(t, "check", good, bad1, bad2)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	// bad2 has one parse error, so compilation of it never starts
	require.Len(t, merr.Errors, 2)
	require.Equal(t, errors.UnboundName, errors.CodeOf(merr.Errors[0]))
	require.Equal(t, "parse", errors.CodeOf(merr.Errors[1]).Category())

	text := formatError(err, false)
	require.Contains(t, text, "found 2 errors")
	require.Contains(t, text, "bad1.ks")
}

func TestBuiltins(t *testing.T) {
	stdout, err := run(t, "builtins", "--format", "json")
	require.NoError(t, err)
	var infos []builtinInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &infos))
	names := map[string]builtinInfo{}
	for _, info := range infos {
		names[info.Name] = info
	}
	require.Equal(t, "1", names["not"].Arity)
	require.Equal(t, "Boolean negation", names["not"].Doc)
	require.Contains(t, names, "println")

	stdout, err = run(t, "builtins")
	require.NoError(t, err)
	require.Contains(t, stdout, "| NAME")
}

func TestVersion(t *testing.T) {
	stdout, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "kestrel dev (commit unknown, built unknown, bytecode v1)\n", stdout)

	stdout, err = run(t, "version", "-f", "json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	require.Equal(t, "dev", info["version"])
}

// testApp returns an app whose global flags were parsed from args.
func testApp(t *testing.T, args ...string) *app {
	t.Helper()
	a := newApp()
	root := a.command()
	require.NoError(t, root.PersistentFlags().Parse(args))
	return a
}

func TestSettingsMerge(t *testing.T) {
	a := testApp(t, "--globals", "b", "--max-depth", "7")
	m := &manifest.Manifest{Compiler: manifest.CompilerConfig{Globals: []string{"a"}, LateBinding: true, MaxDepth: 3}}
	s := a.settings(m)
	require.Equal(t, []string{"a", "b"}, s.globals)
	require.True(t, s.lateBinding)
	require.Equal(t, 7, s.maxDepth)

	s = testApp(t).settings(nil)
	require.Equal(t, parser.DefaultMaxDepth, s.maxDepth)
	require.Equal(t, map[string]string{"globals": "", "late-binding": "false"}, s.cacheSettings())
}
