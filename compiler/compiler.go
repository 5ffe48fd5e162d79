// Package compiler lowers Kestrel syntax trees into bytecode.
//
// # Top-Level Forms
//
// Each top-level form compiles to its own zero-parameter function. Running
// the functions in order has the effect of running the source. A define
// form compiles to code that evaluates the value and publishes it with
// SET_DEF; a const form must fold to a literal at compile time and is also
// recorded in the compile-time environment so later forms can use its value
// directly.
//
// The compile-time environment is an explicit value: Compile and CompileAll
// take an *Env and return a new one, leaving the input untouched.
//
// # Forward References
//
// Before compiling a batch of forms, CompileAll collects the names every
// form declares. A reference to a name declared by a later form is reported
// as a forward reference rather than an unbound name. A function may always
// refer to itself.
//
// # Name Resolution
//
// Identifiers resolve, in order, to a local slot of the enclosing function
// (parameters, captured values and let bindings), the enclosing function
// itself, a top-level constant or definition, a host-provided global name,
// and finally a builtin. Only a builtin that is not shadowed by any of these
// takes part in constant folding and peephole rewrites.
//
// # Tail Calls
//
// Every lowering step knows whether its value is returned directly from the
// enclosing function. A call to the enclosing function from such a position
// compiles to TAIL_CALL_SELF (or TAIL_APPLY_SELF), which reuses the current
// frame. Calling the function through any other name, even an alias bound
// to the same value, compiles to an ordinary call.
package compiler

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/token"
	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/rs/zerolog"
)

// Compiler compiles top-level forms into bytecode functions. A Compiler
// holds only configuration between calls, but it is not safe for concurrent
// use because each call uses it as scratch space.
type Compiler struct {
	filename    string
	source      string
	globalNames map[string]bool
	lateBinding bool
	builtins    builtins.Table
	logger      zerolog.Logger

	// State of the compile call in progress
	env      *Env
	fn       *funcState
	declared map[string]int // names declared by the current batch
	form     int            // index of the form being compiled
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithFilename sets the filename reported in errors and source locations.
func WithFilename(filename string) Option {
	return func(c *Compiler) {
		c.filename = filename
	}
}

// WithSource provides the source text, which lets errors quote the line
// they refer to.
func WithSource(source string) Option {
	return func(c *Compiler) {
		c.source = source
	}
}

// WithGlobalNames declares names the host defines at run time. They resolve
// as global definitions.
func WithGlobalNames(names ...string) Option {
	return func(c *Compiler) {
		for _, name := range names {
			c.globalNames[name] = true
		}
	}
}

// WithLateBinding makes unknown names inside function bodies compile to
// global lookups by name instead of failing. This suits interactive use,
// where a function may refer to a definition that is entered later.
// Top-level expressions never late-bind.
func WithLateBinding(enabled bool) Option {
	return func(c *Compiler) {
		c.lateBinding = enabled
	}
}

// WithBuiltins replaces the standard builtin table.
func WithBuiltins(table builtins.Table) Option {
	return func(c *Compiler) {
		c.builtins = table
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// New creates a Compiler with the given options.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		globalNames: map[string]bool{},
		builtins:    builtins.Standard(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile compiles a single top-level form with a compiler configured by
// opts. See Compiler.Compile.
func Compile(env *Env, node ast.Node, opts ...Option) (*bytecode.Function, *Env, error) {
	return New(opts...).Compile(env, node)
}

// Compile compiles one top-level form against env. It returns the compiled
// function and the environment extended with any name the form declares.
// On error env is returned unchanged.
func (c *Compiler) Compile(env *Env, node ast.Node) (*bytecode.Function, *Env, error) {
	fns, next, err := c.CompileAll(env, []ast.Node{node})
	if err != nil {
		return nil, env, err
	}
	return fns[0], next, nil
}

// CompileAll compiles a sequence of top-level forms in order. Each form sees
// the names declared by the forms before it. Compilation stops at the first
// error, in which case env is returned unchanged.
func (c *Compiler) CompileAll(env *Env, nodes []ast.Node) ([]*bytecode.Function, *Env, error) {
	if env == nil {
		env = NewEnv()
	}
	defer c.reset()
	if err := c.collectDeclarations(env, nodes); err != nil {
		return nil, env, err
	}
	c.env = env
	fns := make([]*bytecode.Function, 0, len(nodes))
	for i, node := range nodes {
		c.form = i
		fn, err := c.compileTopLevel(node)
		if err != nil {
			return nil, env, err
		}
		fns = append(fns, fn)
	}
	return fns, c.env, nil
}

func (c *Compiler) reset() {
	c.env = nil
	c.fn = nil
	c.declared = nil
	c.form = 0
}

// collectDeclarations records the names declared by each form so that
// references to later forms can be reported precisely. Redefinitions are
// rejected here, before any code is generated.
func (c *Compiler) collectDeclarations(env *Env, nodes []ast.Node) error {
	c.declared = map[string]int{}
	for i, node := range nodes {
		name, pos, ok := declaredName(node)
		if !ok {
			continue
		}
		if _, found := env.Lookup(name); found {
			return c.errorf(errors.DuplicateTopLevelName, pos, nil, "%q is already defined", name)
		}
		if _, found := c.declared[name]; found {
			return c.errorf(errors.DuplicateTopLevelName, pos, nil, "%q is already defined", name)
		}
		c.declared[name] = i
	}
	return nil
}

func declaredName(node ast.Node) (string, token.Position, bool) {
	switch node := node.(type) {
	case *ast.Define:
		return node.Name, node.Pos(), true
	case *ast.Const:
		return node.Name, node.Pos(), true
	}
	return "", token.Position{}, false
}

// compileTopLevel compiles one form into a zero-parameter function.
func (c *Compiler) compileTopLevel(node ast.Node) (*bytecode.Function, error) {
	c.fn = newFuncState(nil, "", nil, nil)
	defer func() { c.fn = nil }()

	var err error
	kind, name := "expression", ""
	switch node := node.(type) {
	case *ast.Define:
		kind, name = "define", node.Name
		err = c.compileDefine(node)
	case *ast.Const:
		kind, name = "const", node.Name
		err = c.compileConst(node)
	default:
		err = c.lower(node, true)
	}
	if err != nil {
		return nil, err
	}
	code := c.fn.code
	code.finish()
	fn := code.build(bytecode.FunctionParams{
		Filename:   c.filename,
		LocalNames: c.fn.slotNames,
	})
	c.logger.Debug().
		Str("form", kind).
		Str("name", name).
		Int("index", c.form).
		Int("bytes", fn.CodeSize()).
		Int("constants", fn.ConstantCount()).
		Msg("compiled top-level form")
	return fn, nil
}

// compileDefine emits code that evaluates the value and publishes it under
// the defined name. The name is always the first constant.
func (c *Compiler) compileDefine(node *ast.Define) error {
	nameIndex, err := c.constant(node.Pos(), value.Name(node.Name))
	if err != nil {
		return err
	}
	arity := -1
	if fn, ok := node.Value.(*ast.Lambda); ok {
		// A function bound by define may call itself directly.
		c.fn.code.mark(fn.Pos())
		err = c.lowerFunction(fn, node.Name)
		arity = len(fn.Params)
	} else {
		err = c.lower(node.Value, false)
	}
	if err != nil {
		return err
	}
	c.fn.code.emit(op.SetDef, nameIndex)
	c.env = c.env.WithDefinition(node.Name, arity)
	return nil
}

// compileConst folds the value, records it in the environment and also
// publishes it under the defined name.
func (c *Compiler) compileConst(node *ast.Const) error {
	v, ok := c.fold(node.Value)
	if !ok {
		return c.errorf(errors.NonConstantInConstExpr, node.Value.Pos(), nil,
			"value of const %q is not a constant expression: %s", node.Name, node.Value)
	}
	nameIndex, err := c.constant(node.Pos(), value.Name(node.Name))
	if err != nil {
		return err
	}
	if err := c.loadValue(node.Value.Pos(), v); err != nil {
		return err
	}
	c.fn.code.emit(op.SetDef, nameIndex)
	c.env = c.env.WithConstant(node.Name, v)
	return nil
}

// constant adds v to the current constant pool.
func (c *Compiler) constant(pos token.Position, v any) (int, error) {
	index, ok := c.fn.code.constant(v)
	if !ok {
		return 0, c.errorf(errors.TooManyConstants, pos, nil,
			"too many constants in %s (limit %d)", c.describeFunction(), MaxConstants)
	}
	return index, nil
}

func (c *Compiler) describeFunction() string {
	switch {
	case c.fn.name != "":
		return fmt.Sprintf("function %q", c.fn.name)
	case c.fn.isTopLevel():
		return "top-level form"
	default:
		return "anonymous function"
	}
}

// errorf creates a CompileError at the given position.
func (c *Compiler) errorf(code errors.ErrorCode, pos token.Position, suggestions []errors.Suggestion, format string, args ...any) error {
	filename := c.filename
	if filename == "" {
		filename = pos.File
	}
	return &errors.CompileError{
		Code:        code,
		Message:     fmt.Sprintf(format, args...),
		Filename:    filename,
		Line:        pos.LineNumber(),
		Column:      pos.ColumnNumber(),
		SourceLine:  c.sourceLine(pos.Line),
		Suggestions: suggestions,
	}
}

// unboundError reports a name that resolves to nothing, suggesting similar
// names that are in scope.
func (c *Compiler) unboundError(name string, pos token.Position) error {
	if i, ok := c.declared[name]; ok && i >= c.form {
		return c.errorf(errors.ForwardReference, pos, nil,
			"%q is referenced before its definition", name)
	}
	var candidates []string
	for fs := c.fn; fs != nil; fs = fs.parent {
		candidates = append(candidates, fs.localNames()...)
		if fs.name != "" {
			candidates = append(candidates, fs.name)
		}
	}
	candidates = append(candidates, c.env.Names()...)
	for name := range c.globalNames {
		candidates = append(candidates, name)
	}
	candidates = append(candidates, c.builtins.Names()...)
	return c.errorf(errors.UnboundName, pos, errors.SuggestSimilar(name, candidates),
		"unbound name %q", name)
}

// sourceLine returns the given 0-indexed line of the source, if known.
func (c *Compiler) sourceLine(line int) string {
	if c.source == "" || line < 0 {
		return ""
	}
	lines := strings.Split(c.source, "\n")
	if line >= len(lines) {
		return ""
	}
	return lines[line]
}
