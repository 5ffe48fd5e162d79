// Package op defines opcodes used by the Kestrel compiler and virtual machine.
//
// The machine has a single value register and an operand stack. Loads write
// the value register; their *_PUSH forms also push the loaded value onto the
// operand stack. Calls pop their arguments from the stack and leave the result
// in the value register. RETURN returns the value register to the caller.
//
// Every instruction is one opcode byte followed by a fixed number of operand
// bytes. Jump operands are absolute byte offsets within the enclosing code.
package op

import "fmt"

// Code is a one byte opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Local slots
	Load      Code = 1 // slot
	Load0     Code = 2
	Load1     Code = 3
	Load2     Code = 4
	Load3     Code = 5
	Load4     Code = 6
	Load5     Code = 7
	Load6     Code = 8
	Load7     Code = 9
	LoadPush  Code = 10 // slot
	LoadPush0 Code = 11
	LoadPush1 Code = 12
	LoadPush2 Code = 13
	LoadPush3 Code = 14
	LoadPush4 Code = 15
	LoadPush5 Code = 16
	LoadPush6 Code = 17
	LoadPush7 Code = 18

	// Constant pool
	Const      Code = 19 // index
	Const0     Code = 20
	Const1     Code = 21
	Const2     Code = 22
	Const3     Code = 23
	Const4     Code = 24
	Const5     Code = 25
	Const6     Code = 26
	Const7     Code = 27
	ConstPush  Code = 28 // index
	ConstPush0 Code = 29
	ConstPush1 Code = 30
	ConstPush2 Code = 31
	ConstPush3 Code = 32
	ConstPush4 Code = 33
	ConstPush5 Code = 34
	ConstPush6 Code = 35
	ConstPush7 Code = 36

	// Global definitions, by name stored in the constant pool
	GetDef      Code = 37 // index
	GetDef0     Code = 38
	GetDef1     Code = 39
	GetDef2     Code = 40
	GetDef3     Code = 41
	GetDef4     Code = 42
	GetDef5     Code = 43
	GetDef6     Code = 44
	GetDef7     Code = 45
	GetDefPush  Code = 46 // index
	GetDefPush0 Code = 47
	GetDefPush1 Code = 48
	GetDefPush2 Code = 49
	GetDefPush3 Code = 50
	GetDefPush4 Code = 51
	GetDefPush5 Code = 52
	GetDefPush6 Code = 53
	GetDefPush7 Code = 54

	// Calls to a global function named in the constant pool
	CallConst  Code = 55 // index, argc
	CallConst0 Code = 56 // argc
	CallConst1 Code = 57
	CallConst2 Code = 58
	CallConst3 Code = 59
	CallConst4 Code = 60
	CallConst5 Code = 61
	CallConst6 Code = 62
	CallConst7 Code = 63

	// Stack and immediate values
	Push      Code = 64
	Unit      Code = 65
	UnitPush  Code = 66
	True      Code = 67
	TruePush  Code = 68
	False     Code = 69
	FalsePush Code = 70

	// Definitions and closures
	SetDef       Code = 71 // index
	BuildClosure Code = 72 // index, count

	// Jump
	Jump      Code = 73 // offset
	JumpIf    Code = 74 // offset
	JumpIfNot Code = 75 // offset

	// Operations on the value register
	Inc Code = 76
	Dec Code = 77

	// Calls
	CallSys       Code = 78 // builtin
	CallSysArgs   Code = 79 // builtin, argc
	CallSelf      Code = 80 // argc
	TailCallSelf  Code = 81 // argc
	ApplySelf     Code = 82 // argc
	TailApplySelf Code = 83 // argc
	Call          Code = 84 // argc
	Apply         Code = 85 // argc

	// Execution
	Skip   Code = 86 // count
	Return Code = 87
)

// CompactCount is the number of compact forms in each indexed family. An
// index below CompactCount is encoded in the opcode itself.
const CompactCount = 8

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var infos = make([]Info, 256)

// compact maps the wide form of an indexed family to its first compact form.
var compact = map[Code]Code{
	Load:       Load0,
	LoadPush:   LoadPush0,
	Const:      Const0,
	ConstPush:  ConstPush0,
	GetDef:     GetDef0,
	GetDefPush: GetDefPush0,
	CallConst:  CallConst0,
}

// pushForms maps a load instruction to the instruction that loads and pushes.
var pushForms = map[Code]Code{
	Load:   LoadPush,
	Const:  ConstPush,
	GetDef: GetDefPush,
	Unit:   UnitPush,
	True:   TruePush,
	False:  FalsePush,
}

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{Load, "LOAD", 1},
		{LoadPush, "LOAD_PUSH", 1},
		{Const, "CONST", 1},
		{ConstPush, "CONST_PUSH", 1},
		{GetDef, "GET_DEF", 1},
		{GetDefPush, "GET_DEF_PUSH", 1},
		{CallConst, "CALL_CONST", 2},
		{Push, "PUSH", 0},
		{Unit, "UNIT", 0},
		{UnitPush, "UNIT_PUSH", 0},
		{True, "TRUE", 0},
		{TruePush, "TRUE_PUSH", 0},
		{False, "FALSE", 0},
		{FalsePush, "FALSE_PUSH", 0},
		{SetDef, "SET_DEF", 1},
		{BuildClosure, "BUILD_CLOSURE", 2},
		{Jump, "JUMP", 1},
		{JumpIf, "JUMP_IF", 1},
		{JumpIfNot, "JUMP_IF_NOT", 1},
		{Inc, "INC", 0},
		{Dec, "DEC", 0},
		{CallSys, "CALL_SYS", 1},
		{CallSysArgs, "CALL_SYS_ARGS", 2},
		{CallSelf, "CALL_SELF", 1},
		{TailCallSelf, "TAIL_CALL_SELF", 1},
		{ApplySelf, "APPLY_SELF", 1},
		{TailApplySelf, "TAIL_APPLY_SELF", 1},
		{Call, "CALL", 1},
		{Apply, "APPLY", 1},
		{Skip, "SKIP", 1},
		{Return, "RETURN", 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
	}
	// The compact forms carry their index in the opcode and drop one operand
	for wide, first := range compact {
		info := infos[wide]
		for i := 0; i < CompactCount; i++ {
			c := first + Code(i)
			infos[c] = Info{
				Name:         fmt.Sprintf("%s_%d", info.Name, i),
				Code:         c,
				OperandCount: info.OperandCount - 1,
			}
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// IsValid reports whether the opcode is defined.
func IsValid(op Code) bool {
	return infos[op].Name != ""
}

// Indexed returns the instruction that addresses the given index within an
// indexed family, given the wide form of that family. Indexes below
// CompactCount use the compact form, which has no index operand.
func Indexed(wide Code, index uint8) (Code, []uint8) {
	if first, ok := compact[wide]; ok && index < CompactCount {
		return first + Code(index), nil
	}
	return wide, []uint8{index}
}

// ImplicitIndex returns the index encoded in a compact opcode and the wide
// form of its family.
func ImplicitIndex(c Code) (index int, wide Code, ok bool) {
	for w, first := range compact {
		if c >= first && c < first+CompactCount {
			return int(c - first), w, true
		}
	}
	return 0, Invalid, false
}

// PushForm returns the load-and-push equivalent of a load instruction. The
// result has the same encoded length as the input.
func PushForm(c Code) (Code, bool) {
	wide, index := c, -1
	if i, w, ok := ImplicitIndex(c); ok {
		wide, index = w, i
	}
	push, ok := pushForms[wide]
	if !ok {
		return Invalid, false
	}
	if index < 0 {
		return push, true
	}
	return compact[push] + Code(index), true
}

// IsTerminal reports whether control never falls through the instruction.
func IsTerminal(c Code) bool {
	switch c {
	case Return, TailCallSelf, TailApplySelf:
		return true
	}
	return false
}

// IsJump reports whether the instruction's operand is a jump target.
func IsJump(c Code) bool {
	switch c {
	case Jump, JumpIf, JumpIfNot:
		return true
	}
	return false
}
