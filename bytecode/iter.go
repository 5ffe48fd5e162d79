package bytecode

import (
	"fmt"
	"iter"
	"strings"

	"github.com/deepnoodle-ai/kestrel/op"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset   int
	Op       op.Code
	Operands []uint8
}

// Size returns the encoded length of the instruction in bytes.
func (i Instruction) Size() int {
	return 1 + len(i.Operands)
}

// Name returns the opcode name.
func (i Instruction) Name() string {
	return op.GetInfo(i.Op).Name
}

// poolFamilies are the instructions whose index addresses the constant pool.
var poolFamilies = map[op.Code]bool{
	op.Const:        true,
	op.ConstPush:    true,
	op.GetDef:       true,
	op.GetDefPush:   true,
	op.CallConst:    true,
	op.SetDef:       true,
	op.BuildClosure: true,
}

func (i Instruction) index() (int, op.Code, bool) {
	if index, wide, ok := op.ImplicitIndex(i.Op); ok {
		return index, wide, true
	}
	switch i.Op {
	case op.Load, op.LoadPush, op.Const, op.ConstPush, op.GetDef,
		op.GetDefPush, op.CallConst, op.SetDef, op.BuildClosure:
		return int(i.Operands[0]), i.Op, true
	}
	return 0, op.Invalid, false
}

// PoolIndex returns the constant pool index addressed by the instruction,
// whether it is encoded in the opcode or carried as an operand.
func (i Instruction) PoolIndex() (int, bool) {
	index, wide, ok := i.index()
	if !ok || !poolFamilies[wide] {
		return 0, false
	}
	return index, true
}

// Slot returns the local slot read by a LOAD family instruction.
func (i Instruction) Slot() (int, bool) {
	index, wide, ok := i.index()
	if !ok || (wide != op.Load && wide != op.LoadPush) {
		return 0, false
	}
	return index, true
}

// ArgCount returns the number of arguments consumed by a call instruction.
func (i Instruction) ArgCount() (int, bool) {
	switch i.Op {
	case op.CallSys:
		return 1, true
	case op.CallSysArgs, op.CallConst:
		return int(i.Operands[1]), true
	case op.CallSelf, op.TailCallSelf, op.ApplySelf, op.TailApplySelf, op.Call, op.Apply:
		return int(i.Operands[0]), true
	}
	if _, wide, ok := op.ImplicitIndex(i.Op); ok && wide == op.CallConst {
		return int(i.Operands[0]), true
	}
	return 0, false
}

// String returns the instruction as its name followed by its operands.
func (i Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Name()
	}
	parts := make([]string, 0, len(i.Operands)+1)
	parts = append(parts, i.Name())
	for _, o := range i.Operands {
		parts = append(parts, fmt.Sprint(o))
	}
	return strings.Join(parts, " ")
}

// decodeAt decodes the instruction starting at offset.
func decodeAt(code []byte, offset int) (Instruction, error) {
	c := op.Code(code[offset])
	if !op.IsValid(c) {
		return Instruction{}, fmt.Errorf("invalid opcode %d at offset %d", c, offset)
	}
	n := op.GetInfo(c).OperandCount
	if offset+1+n > len(code) {
		return Instruction{}, fmt.Errorf("truncated %s at offset %d", op.GetInfo(c).Name, offset)
	}
	var operands []uint8
	if n > 0 {
		operands = make([]uint8, n)
		copy(operands, code[offset+1:offset+1+n])
	}
	return Instruction{Offset: offset, Op: c, Operands: operands}, nil
}

// Decode splits an instruction byte sequence into instructions.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	for offset := 0; offset < len(code); {
		instr, err := decodeAt(code, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
		offset += instr.Size()
	}
	return out, nil
}

// Instructions iterates over the function's instructions in order.
// Iteration stops early if the byte sequence is malformed; use Validate to
// detect that case.
func (f *Function) Instructions() iter.Seq[Instruction] {
	return func(yield func(Instruction) bool) {
		for offset := 0; offset < len(f.code); {
			instr, err := decodeAt(f.code, offset)
			if err != nil || !yield(instr) {
				return
			}
			offset += instr.Size()
		}
	}
}

// Validate checks that the instruction bytes decode cleanly and that every
// pool index and jump target is in range. Nested functions are validated
// too.
func (f *Function) Validate() error {
	for _, fn := range f.Flatten() {
		if err := fn.validate(); err != nil {
			if fn.name != "" {
				return fmt.Errorf("function %s: %w", fn.name, err)
			}
			return err
		}
	}
	return nil
}

func (f *Function) validate() error {
	instrs, err := Decode(f.code)
	if err != nil {
		return err
	}
	for _, instr := range instrs {
		if index, ok := instr.PoolIndex(); ok && index >= len(f.constants) {
			return fmt.Errorf("%s at offset %d: constant index %d out of range", instr.Name(), instr.Offset, index)
		}
		if op.IsJump(instr.Op) && int(instr.Operands[0]) > len(f.code) {
			return fmt.Errorf("%s at offset %d: target %d out of range", instr.Name(), instr.Offset, instr.Operands[0])
		}
		if instr.Op == op.BuildClosure {
			index := int(instr.Operands[0])
			fn, ok := f.constants[index].(*Function)
			if !ok {
				return fmt.Errorf("BUILD_CLOSURE at offset %d: constant %d is not a function", instr.Offset, index)
			}
			if int(instr.Operands[1]) != fn.captureCount {
				return fmt.Errorf("BUILD_CLOSURE at offset %d: %d values for %d captures",
					instr.Offset, instr.Operands[1], fn.captureCount)
			}
		}
	}
	return nil
}
