package compiler

import (
	"fmt"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/token"
	"github.com/deepnoodle-ai/kestrel/value"
)

const (
	// MaxConstants is the number of entries a constant pool can hold.
	MaxConstants = 256

	// MaxLocals is the number of local slots a function can address.
	MaxLocals = 256

	// MaxArgs is the maximum number of arguments in a single call.
	MaxArgs = 255

	// MaxCaptures is the largest count BUILD_CLOSURE can encode.
	MaxCaptures = 255

	// MaxJumpTarget is the largest offset a jump operand can encode.
	MaxJumpTarget = 255
)

// patch is a jump whose target operand is not yet known.
type patch struct {
	pos int // position of the operand byte
}

// code is the mutable instruction buffer of one function being compiled.
type code struct {
	bytes     []byte
	constants []any
	locations []bytecode.SourceLocation

	// Offset of the most recently emitted instruction, or -1
	lastOp int

	// Offset of the most recently placed label, or -1. An instruction at a
	// labeled offset may be reached by a jump, so it cannot be merged with
	// the instruction before it.
	labelAt int

	pending int
}

func newCode() *code {
	return &code{lastOp: -1, labelAt: -1}
}

// offset returns the offset of the next instruction.
func (c *code) offset() int {
	return len(c.bytes)
}

// emit appends an instruction and returns its offset. Operand values must
// already be known to fit in one byte.
func (c *code) emit(opcode op.Code, operands ...int) int {
	info := op.GetInfo(opcode)
	if len(operands) != info.OperandCount {
		panic(fmt.Sprintf("compile error: %s takes %d operands, got %d",
			info.Name, info.OperandCount, len(operands)))
	}
	pos := len(c.bytes)
	c.bytes = append(c.bytes, byte(opcode))
	for _, o := range operands {
		if o < 0 || o > 255 {
			panic(fmt.Sprintf("compile error: %s operand %d out of range", info.Name, o))
		}
		c.bytes = append(c.bytes, byte(o))
	}
	c.lastOp = pos
	return pos
}

// emitIndexed emits an instruction of an indexed family, using the compact
// form when the index allows it.
func (c *code) emitIndexed(wide op.Code, index int, extra ...int) int {
	opcode, operands := op.Indexed(wide, uint8(index))
	args := make([]int, 0, len(operands)+len(extra))
	for _, o := range operands {
		args = append(args, int(o))
	}
	args = append(args, extra...)
	return c.emit(opcode, args...)
}

// last returns the most recently emitted instruction.
func (c *code) last() (op.Code, bool) {
	if c.lastOp < 0 {
		return op.Invalid, false
	}
	return op.Code(c.bytes[c.lastOp]), true
}

// terminated reports whether control cannot fall through to the current
// offset.
func (c *code) terminated() bool {
	last, ok := c.last()
	return ok && op.IsTerminal(last) && c.labelAt != c.offset()
}

// push pushes the value register onto the operand stack. A load that was
// just emitted is rewritten in place into its push form.
func (c *code) push() {
	if last, ok := c.last(); ok && c.labelAt != c.offset() {
		if pushed, ok := op.PushForm(last); ok {
			c.bytes[c.lastOp] = byte(pushed)
			return
		}
	}
	c.emit(op.Push)
}

// emitJump emits a forward jump with a placeholder target.
func (c *code) emitJump(opcode op.Code) patch {
	pos := c.emit(opcode, 0)
	c.pending++
	return patch{pos: pos + 1}
}

// label resolves the jump to the current offset. It returns false if the
// offset does not fit in a jump operand.
func (c *code) label(p patch) bool {
	target := c.offset()
	if target > MaxJumpTarget {
		return false
	}
	c.bytes[p.pos] = byte(target)
	c.pending--
	c.labelAt = target
	return true
}

// constant returns the pool index of v, adding it if no equal value is
// present. It returns false when the pool is full.
func (c *code) constant(v any) (int, bool) {
	for i, existing := range c.constants {
		if value.Equal(existing, v) {
			return i, true
		}
	}
	return c.addConstant(v)
}

// addConstant appends v to the pool without deduplication.
func (c *code) addConstant(v any) (int, bool) {
	if len(c.constants) >= MaxConstants {
		return 0, false
	}
	c.constants = append(c.constants, v)
	return len(c.constants) - 1, true
}

// mark records the source position for instructions emitted from the
// current offset on.
func (c *code) mark(pos token.Position) {
	loc := bytecode.SourceLocation{
		Offset: c.offset(),
		Line:   pos.LineNumber(),
		Column: pos.ColumnNumber(),
	}
	if n := len(c.locations); n > 0 && c.locations[n-1].Offset == loc.Offset {
		c.locations[n-1] = loc
		return
	}
	c.locations = append(c.locations, loc)
}

// finish appends the final RETURN when control can reach the end.
func (c *code) finish() {
	if !c.terminated() {
		c.emit(op.Return)
	}
}

// build produces the immutable function. All jumps must have been
// resolved.
func (c *code) build(params bytecode.FunctionParams) *bytecode.Function {
	if c.pending != 0 {
		panic(fmt.Sprintf("compile error: %d unresolved jump(s)", c.pending))
	}
	params.Constants = c.constants
	params.Code = c.bytes
	params.Locations = c.locations
	return bytecode.NewFunction(params)
}
