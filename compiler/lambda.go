package compiler

import (
	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/op"
)

func (c *Compiler) lowerLambda(node *ast.Lambda) error {
	return c.lowerFunction(node, node.Name)
}

// lowerFunction compiles a lambda into its own function and loads it. When
// the body uses locals of the enclosing function, they are pushed and
// captured with BUILD_CLOSURE; inside the body they follow the parameters.
func (c *Compiler) lowerFunction(node *ast.Lambda, name string) error {
	seen := make(map[string]bool, len(node.Params))
	for _, p := range node.Params {
		if seen[p] {
			return c.errorf(errors.DuplicateParameter, node.Pos(), nil,
				"duplicate parameter %q", p)
		}
		seen[p] = true
	}

	var captures []string
	var slots []int
	for _, free := range freeNames(node) {
		if free == name {
			continue
		}
		if slot, ok := c.fn.lookupLocal(free); ok {
			captures = append(captures, free)
			slots = append(slots, slot)
		}
	}
	if len(captures) > MaxCaptures {
		return c.errorf(errors.TooManyLocals, node.Pos(), nil,
			"function captures %d locals (limit %d)", len(captures), MaxCaptures)
	}
	if n := len(node.Params) + len(captures); n > MaxLocals {
		return c.errorf(errors.TooManyLocals, node.Pos(), nil,
			"function needs %d local slots (limit %d)", n, MaxLocals)
	}
	if len(node.Params) > MaxArgs {
		return c.errorf(errors.TooManyArguments, node.Pos(), nil,
			"function has %d parameters (limit %d)", len(node.Params), MaxArgs)
	}

	fn, err := c.compileFunction(node, name, captures)
	if err != nil {
		return err
	}

	index, ok := c.fn.code.addConstant(fn)
	if !ok {
		return c.errorf(errors.TooManyConstants, node.Pos(), nil,
			"too many constants in %s (limit %d)", c.describeFunction(), MaxConstants)
	}
	if len(captures) == 0 {
		c.fn.code.emitIndexed(op.Const, index)
		return nil
	}
	for _, slot := range slots {
		c.fn.code.emitIndexed(op.Load, slot)
		c.push()
	}
	c.fn.code.emit(op.BuildClosure, index, len(captures))
	c.pop(len(captures))
	return nil
}

// compileFunction lowers a lambda body in a fresh function state.
func (c *Compiler) compileFunction(node *ast.Lambda, name string, captures []string) (*bytecode.Function, error) {
	parent := c.fn
	c.fn = newFuncState(parent, name, node.Params, captures)
	defer func() { c.fn = parent }()

	c.fn.code.mark(node.Pos())
	if err := c.lowerBody(node.Body, true); err != nil {
		return nil, err
	}
	code := c.fn.code
	code.finish()
	fn := code.build(bytecode.FunctionParams{
		Name:           name,
		ParameterCount: len(node.Params),
		CaptureCount:   len(captures),
		LocalNames:     c.fn.slotNames,
		Filename:       c.filename,
	})
	c.logger.Debug().
		Str("name", name).
		Int("params", len(node.Params)).
		Int("captures", len(captures)).
		Int("bytes", fn.CodeSize()).
		Msg("compiled function")
	return fn, nil
}
