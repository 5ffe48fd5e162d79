package compiler

import (
	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/token"
	"github.com/deepnoodle-ai/kestrel/value"
)

// lower emits code that leaves the value of node in the value register.
// When tail is true the value is returned directly from the enclosing
// function.
func (c *Compiler) lower(node ast.Node, tail bool) error {
	c.fn.code.mark(node.Pos())
	switch node := node.(type) {
	case *ast.Literal:
		return c.loadValue(node.Pos(), node.Value)
	case *ast.Ident:
		return c.lowerIdent(node)
	case *ast.Call:
		return c.lowerCall(node, tail)
	case *ast.Apply:
		return c.lowerApply(node, tail)
	case *ast.If:
		return c.lowerIf(node, tail)
	case *ast.Do:
		return c.lowerBody(node.Body, tail)
	case *ast.Let:
		return c.lowerLet(node, tail)
	case *ast.And:
		return c.lowerLogical(node.Operands, op.JumpIfNot, value.Bool(true), tail)
	case *ast.Or:
		return c.lowerLogical(node.Operands, op.JumpIf, value.Bool(false), tail)
	case *ast.Lambda:
		return c.lowerLambda(node)
	case *ast.Define:
		return c.errorf(errors.MisplacedDefinition, node.Pos(), nil,
			"define of %q is only allowed at top level", node.Name)
	case *ast.Const:
		return c.errorf(errors.MisplacedDefinition, node.Pos(), nil,
			"const %q is only allowed at top level", node.Name)
	default:
		return c.errorf(errors.E1003, node.Pos(), nil, "unsupported node %T", node)
	}
}

// lowerPushed lowers node and pushes its value onto the operand stack.
func (c *Compiler) lowerPushed(node ast.Node) error {
	if err := c.lower(node, false); err != nil {
		return err
	}
	c.push()
	return nil
}

func (c *Compiler) push() {
	c.fn.code.push()
	c.fn.depth++
}

// pop records that an instruction consumed n stack values.
func (c *Compiler) pop(n int) {
	c.fn.depth -= n
}

// loadValue loads a compile-time value into the value register.
func (c *Compiler) loadValue(pos token.Position, v value.Value) error {
	switch v := v.(type) {
	case value.Unit:
		c.fn.code.emit(op.Unit)
	case value.Bool:
		if v {
			c.fn.code.emit(op.True)
		} else {
			c.fn.code.emit(op.False)
		}
	default:
		index, err := c.constant(pos, v)
		if err != nil {
			return err
		}
		c.fn.code.emitIndexed(op.Const, index)
	}
	return nil
}

// lookup resolves an identifier, reporting names that resolve to nothing.
// Inside function bodies, a reference to the definition being compiled is a
// global reference, and late binding turns any other unknown name into one.
func (c *Compiler) lookup(name string, pos token.Position) (Resolution, error) {
	res := c.resolve(name)
	if res.Kind != Unbound {
		return res, nil
	}
	if !c.fn.isTopLevel() {
		if i, ok := c.declared[name]; ok && i == c.form {
			return Resolution{Kind: Global, Name: name}, nil
		}
		if c.lateBinding {
			return Resolution{Kind: Global, Name: name}, nil
		}
	}
	return res, c.unboundError(name, pos)
}

func (c *Compiler) lowerIdent(node *ast.Ident) error {
	res, err := c.lookup(node.Name, node.Pos())
	if err != nil {
		return err
	}
	return c.loadResolved(node.Pos(), res)
}

// loadResolved loads the value an identifier refers to. Builtins and the
// enclosing function are loaded as global definitions by name.
func (c *Compiler) loadResolved(pos token.Position, res Resolution) error {
	switch res.Kind {
	case Local:
		c.fn.code.emitIndexed(op.Load, res.Slot)
		return nil
	case Constant:
		return c.loadValue(pos, res.Value)
	default:
		index, err := c.constant(pos, value.Name(res.Name))
		if err != nil {
			return err
		}
		c.fn.code.emitIndexed(op.GetDef, index)
		return nil
	}
}

// lowerBody lowers a sequence, keeping only the value of the last
// expression. An empty sequence is unit.
func (c *Compiler) lowerBody(body []ast.Node, tail bool) error {
	if len(body) == 0 {
		c.fn.code.emit(op.Unit)
		return nil
	}
	for i, node := range body {
		if err := c.lower(node, tail && i == len(body)-1); err != nil {
			return err
		}
	}
	return nil
}

// condition strips any number of not calls from a condition. It returns the
// inner condition and whether the number of nots was odd.
func (c *Compiler) condition(cond ast.Node) (ast.Node, bool) {
	negated := false
	for {
		call, ok := cond.(*ast.Call)
		if !ok || len(call.Args) != 1 || !c.isBuiltin(call.Fn, builtins.Not) {
			return cond, negated
		}
		cond = call.Args[0]
		negated = !negated
	}
}

func (c *Compiler) lowerIf(node *ast.If, tail bool) error {
	if v, ok := c.fold(node.Cond); ok {
		if b, ok := v.(value.Bool); ok {
			if b {
				return c.lower(node.Then, tail)
			}
			return c.lowerElse(node, tail)
		}
	}
	cond, negated := c.condition(node.Cond)
	if err := c.lower(cond, false); err != nil {
		return err
	}
	jumpOp := op.JumpIfNot
	if negated {
		jumpOp = op.JumpIf
	}
	code := c.fn.code
	elseJump := code.emitJump(jumpOp)
	if err := c.lower(node.Then, tail); err != nil {
		return err
	}
	if tail {
		if !code.terminated() {
			code.emit(op.Return)
		}
		if err := c.label(node.Pos(), elseJump); err != nil {
			return err
		}
		return c.lowerElse(node, true)
	}
	endJump := code.emitJump(op.Jump)
	if err := c.label(node.Pos(), elseJump); err != nil {
		return err
	}
	if err := c.lowerElse(node, false); err != nil {
		return err
	}
	return c.label(node.Pos(), endJump)
}

func (c *Compiler) lowerElse(node *ast.If, tail bool) error {
	if node.Else == nil {
		c.fn.code.emit(op.Unit)
		return nil
	}
	return c.lower(node.Else, tail)
}

// label resolves a jump to the current offset.
func (c *Compiler) label(pos token.Position, p patch) error {
	if !c.fn.code.label(p) {
		return c.errorf(errors.JumpOutOfRange, pos, nil,
			"jump target %d in %s is beyond offset %d", c.fn.code.offset(), c.describeFunction(), MaxJumpTarget)
	}
	return nil
}

// lowerLogical lowers and/or. Each operand but the last jumps to the end
// when it decides the result; empty is the identity value.
func (c *Compiler) lowerLogical(operands []ast.Node, jumpOp op.Code, empty value.Bool, tail bool) error {
	if len(operands) == 0 {
		return c.loadValue(token.Position{}, empty)
	}
	var jumps []patch
	for i, operand := range operands {
		last := i == len(operands)-1
		if err := c.lower(operand, tail && last); err != nil {
			return err
		}
		if !last {
			jumps = append(jumps, c.fn.code.emitJump(jumpOp))
		}
	}
	for _, j := range jumps {
		if err := c.label(operands[0].Pos(), j); err != nil {
			return err
		}
	}
	return nil
}

// lowerLet evaluates every value onto the stack, then binds the names to
// their slots for the body. Values cannot see each other's names.
func (c *Compiler) lowerLet(node *ast.Let, tail bool) error {
	fs := c.fn
	slots := make([]int, len(node.Bindings))
	for i, b := range node.Bindings {
		slots[i] = fs.depth
		if fs.depth >= MaxLocals {
			return c.errorf(errors.TooManyLocals, b.NamePos, nil,
				"too many local slots in %s (limit %d)", c.describeFunction(), MaxLocals)
		}
		if err := c.lowerPushed(b.Value); err != nil {
			return err
		}
	}
	fs.enterScope()
	for i, b := range node.Bindings {
		fs.bind(b.Name, slots[i])
	}
	err := c.lowerBody(node.Body, tail)
	fs.leaveScope()
	if err != nil {
		return err
	}
	if !tail {
		for n := len(node.Bindings); n > 0; n -= 255 {
			fs.code.emit(op.Skip, min(n, 255))
		}
	}
	c.pop(len(node.Bindings))
	return nil
}
