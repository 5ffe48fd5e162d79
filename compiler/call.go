package compiler

import (
	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/value"
)

// Builtins the peephole rules rewrite calls into.
var (
	addBuiltin   = builtins.Builtin{Name: "+", ID: builtins.Add, Arity: builtins.AtLeast(0)}
	floorBuiltin = builtins.Builtin{Name: "floor", ID: builtins.Floor, Arity: builtins.Exact(1)}
)

// lowerCall selects the call instruction for a call expression. Direct calls
// of the enclosing function, of global definitions and of builtins each have
// a dedicated form; anything else is a generic call of a pushed callee.
func (c *Compiler) lowerCall(node *ast.Call, tail bool) error {
	argc := len(node.Args)
	if argc > MaxArgs {
		return c.errorf(errors.TooManyArguments, node.Pos(), nil,
			"call has %d arguments (limit %d)", argc, MaxArgs)
	}
	if ident, ok := node.Fn.(*ast.Ident); ok {
		res, err := c.lookup(ident.Name, ident.Pos())
		if err != nil {
			return err
		}
		switch res.Kind {
		case Self:
			return c.callSelf(node, tail)
		case Global:
			return c.callNamed(node, value.Name(res.Name))
		case Constant:
			return c.callNamed(node, res.Value)
		case Builtin:
			return c.callBuiltin(node, res.Builtin, tail)
		}
	}
	if err := c.lowerPushed(node.Fn); err != nil {
		return err
	}
	if err := c.pushArgs(node.Args); err != nil {
		return err
	}
	c.fn.code.emit(op.Call, argc)
	c.pop(argc + 1)
	return nil
}

func (c *Compiler) pushArgs(args []ast.Node) error {
	for _, arg := range args {
		if err := c.lowerPushed(arg); err != nil {
			return err
		}
	}
	return nil
}

// callSelf calls the enclosing function directly. In tail position the call
// replaces the current frame and no RETURN follows.
func (c *Compiler) callSelf(node *ast.Call, tail bool) error {
	argc := len(node.Args)
	if argc != c.fn.params {
		return c.errorf(errors.ArityMismatch, node.Pos(), nil,
			"function %q takes %d arguments, called with %d", c.fn.name, c.fn.params, argc)
	}
	if err := c.pushArgs(node.Args); err != nil {
		return err
	}
	opcode := op.CallSelf
	if tail {
		opcode = op.TailCallSelf
	}
	if err := c.emitSelfCall(node, opcode, argc, tail); err != nil {
		return err
	}
	c.pop(argc)
	return nil
}

// emitSelfCall emits a call of the enclosing function. The tail forms reuse
// the current frame and are only valid where the result would be returned.
func (c *Compiler) emitSelfCall(node ast.Node, opcode op.Code, argc int, tail bool) error {
	if !tail && (opcode == op.TailCallSelf || opcode == op.TailApplySelf) {
		return c.errorf(errors.InvalidTailPosition, node.Pos(), nil,
			"%s emitted outside tail position in %s", op.GetInfo(opcode).Name, c.describeFunction())
	}
	c.fn.code.emit(opcode, argc)
	return nil
}

// callNamed calls a callee stored in the constant pool: the name of a global
// definition, or the value of a const.
func (c *Compiler) callNamed(node *ast.Call, callee value.Value) error {
	argc := len(node.Args)
	if name, ok := callee.(value.Name); ok {
		if sym, found := c.env.Lookup(string(name)); found && sym.Arity >= 0 && sym.Arity != argc {
			return c.errorf(errors.ArityMismatch, node.Pos(), nil,
				"function %q takes %d arguments, called with %d", sym.Name, sym.Arity, argc)
		}
	}
	index, err := c.constant(node.Fn.Pos(), callee)
	if err != nil {
		return err
	}
	if err := c.pushArgs(node.Args); err != nil {
		return err
	}
	c.fn.code.emitIndexed(op.CallConst, index, argc)
	c.pop(argc)
	return nil
}

// callBuiltin lowers a call of an unshadowed builtin. Calls that fold are
// replaced by their value, and a few shapes with small integer operands get
// cheaper instruction sequences.
func (c *Compiler) callBuiltin(node *ast.Call, b builtins.Builtin, tail bool) error {
	argc := len(node.Args)
	if !b.Arity.Accepts(argc) {
		return c.errorf(errors.ArityMismatch, node.Pos(), nil,
			"builtin %q takes %s arguments, called with %d", b.Name, b.Arity, argc)
	}
	if v, ok := c.fold(node); ok {
		return c.loadValue(node.Pos(), v)
	}
	if done, err := c.peephole(node, b, tail); done || err != nil {
		return err
	}
	if err := c.pushArgs(node.Args); err != nil {
		return err
	}
	c.emitBuiltin(b, argc)
	return nil
}

// emitBuiltin emits the call of a builtin whose arguments are on the stack.
func (c *Compiler) emitBuiltin(b builtins.Builtin, argc int) {
	if b.Arity.IsFixed() && b.Arity.Min == 1 && argc == 1 {
		c.fn.code.emit(op.CallSys, int(b.ID))
	} else {
		c.fn.code.emit(op.CallSysArgs, int(b.ID), argc)
	}
	c.pop(argc)
}

// peephole applies the rewrites for builtin calls with an integer operand.
// It reports whether it lowered the call.
func (c *Compiler) peephole(node *ast.Call, b builtins.Builtin, tail bool) (bool, error) {
	// The operand of id is an argument, so it is never in tail position
	if b.ID == builtins.Identity {
		return true, c.lower(node.Args[0], false)
	}
	if len(node.Args) != 2 {
		return false, nil
	}
	x, y := node.Args[0], node.Args[1]
	kx, xok := c.foldInt(x)
	ky, yok := c.foldInt(y)
	switch b.ID {
	case builtins.Add:
		switch {
		case yok && ky == 0:
			return true, c.unary(addBuiltin, x)
		case xok && kx == 0:
			return true, c.unary(addBuiltin, y)
		case yok && ky == 1:
			return true, c.step(x, op.Inc)
		case xok && kx == 1:
			return true, c.step(y, op.Inc)
		case yok && ky == -1:
			return true, c.step(x, op.Dec)
		case xok && kx == -1:
			return true, c.step(y, op.Dec)
		}
	case builtins.Sub:
		switch {
		case yok && ky == 0:
			return true, c.unary(addBuiltin, x)
		case xok && kx == 0:
			return true, c.unary(b, y)
		case yok && ky == 1:
			return true, c.step(x, op.Dec)
		case yok && ky == -1:
			return true, c.step(x, op.Inc)
		}
	case builtins.FloorDiv:
		switch {
		case xok && kx == 1:
			return true, c.unary(b, y)
		case yok && ky == 1:
			return true, c.unary(floorBuiltin, x)
		}
	}
	return false, nil
}

// unary pushes arg and calls b with it as the only argument.
func (c *Compiler) unary(b builtins.Builtin, arg ast.Node) error {
	if err := c.lowerPushed(arg); err != nil {
		return err
	}
	c.emitBuiltin(b, 1)
	return nil
}

// step loads arg and increments or decrements the value register.
func (c *Compiler) step(arg ast.Node, opcode op.Code) error {
	if err := c.lower(arg, false); err != nil {
		return err
	}
	c.fn.code.emit(opcode)
	return nil
}

// lowerApply lowers (apply f args... list). The leading arguments are
// pushed and the list is left in the value register.
func (c *Compiler) lowerApply(node *ast.Apply, tail bool) error {
	if len(node.Args) == 0 {
		return c.errorf(errors.ArityMismatch, node.Pos(), nil,
			"apply requires an argument list")
	}
	leading, list := node.Args[:len(node.Args)-1], node.Args[len(node.Args)-1]
	n := len(leading)
	if n > MaxArgs {
		return c.errorf(errors.TooManyArguments, node.Pos(), nil,
			"apply has %d leading arguments (limit %d)", n, MaxArgs)
	}
	if ident, ok := node.Fn.(*ast.Ident); ok {
		res, err := c.lookup(ident.Name, ident.Pos())
		if err != nil {
			return err
		}
		if res.Kind == Self {
			return c.applySelf(node, leading, list, tail)
		}
	}
	if err := c.lowerPushed(node.Fn); err != nil {
		return err
	}
	if err := c.pushArgs(leading); err != nil {
		return err
	}
	if err := c.lower(list, false); err != nil {
		return err
	}
	c.fn.code.emit(op.Apply, n)
	c.pop(n + 1)
	return nil
}

func (c *Compiler) applySelf(node *ast.Apply, leading []ast.Node, list ast.Node, tail bool) error {
	n := len(leading)
	if n > c.fn.params {
		return c.errorf(errors.ArityMismatch, node.Pos(), nil,
			"function %q takes %d arguments, applied with %d leading arguments", c.fn.name, c.fn.params, n)
	}
	if err := c.pushArgs(leading); err != nil {
		return err
	}
	if err := c.lower(list, false); err != nil {
		return err
	}
	opcode := op.ApplySelf
	if tail {
		opcode = op.TailApplySelf
	}
	if err := c.emitSelfCall(node, opcode, n, tail); err != nil {
		return err
	}
	c.pop(n)
	return nil
}
