package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(CallSysArgs)
	require.Equal(t, "CALL_SYS_ARGS", info.Name)
	require.Equal(t, 2, info.OperandCount)
	require.Equal(t, CallSysArgs, info.Code)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
	}{
		{Load, "LOAD", 1},
		{Load0, "LOAD_0", 0},
		{Load7, "LOAD_7", 0},
		{LoadPush, "LOAD_PUSH", 1},
		{LoadPush1, "LOAD_PUSH_1", 0},
		{Const, "CONST", 1},
		{Const2, "CONST_2", 0},
		{ConstPush, "CONST_PUSH", 1},
		{ConstPush0, "CONST_PUSH_0", 0},
		{GetDef, "GET_DEF", 1},
		{GetDef0, "GET_DEF_0", 0},
		{GetDefPush, "GET_DEF_PUSH", 1},
		{GetDefPush3, "GET_DEF_PUSH_3", 0},
		{CallConst, "CALL_CONST", 2},
		{CallConst0, "CALL_CONST_0", 1},
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
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.code, info.Code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
			require.True(t, IsValid(tt.code))
		})
	}
}

func TestCompactFamilies(t *testing.T) {
	families := []struct {
		wide  Code
		forms []Code
	}{
		{Load, []Code{Load0, Load1, Load2, Load3, Load4, Load5, Load6, Load7}},
		{LoadPush, []Code{LoadPush0, LoadPush1, LoadPush2, LoadPush3, LoadPush4, LoadPush5, LoadPush6, LoadPush7}},
		{Const, []Code{Const0, Const1, Const2, Const3, Const4, Const5, Const6, Const7}},
		{ConstPush, []Code{ConstPush0, ConstPush1, ConstPush2, ConstPush3, ConstPush4, ConstPush5, ConstPush6, ConstPush7}},
		{GetDef, []Code{GetDef0, GetDef1, GetDef2, GetDef3, GetDef4, GetDef5, GetDef6, GetDef7}},
		{GetDefPush, []Code{GetDefPush0, GetDefPush1, GetDefPush2, GetDefPush3, GetDefPush4, GetDefPush5, GetDefPush6, GetDefPush7}},
		{CallConst, []Code{CallConst0, CallConst1, CallConst2, CallConst3, CallConst4, CallConst5, CallConst6, CallConst7}},
	}
	for _, f := range families {
		require.Len(t, f.forms, CompactCount)
		for i, c := range f.forms {
			code, operands := Indexed(f.wide, uint8(i))
			require.Equal(t, c, code)
			require.Empty(t, operands)
			index, wide, ok := ImplicitIndex(c)
			require.True(t, ok)
			require.Equal(t, i, index)
			require.Equal(t, f.wide, wide)
		}
	}
}

func TestInvalidOpcode(t *testing.T) {
	require.False(t, IsValid(Invalid))
	require.False(t, IsValid(Code(200)))
}

func TestIndexed(t *testing.T) {
	code, operands := Indexed(Load, 3)
	require.Equal(t, Load0+3, code)
	require.Empty(t, operands)

	code, operands = Indexed(Const, 8)
	require.Equal(t, Const, code)
	require.Equal(t, []uint8{8}, operands)

	code, operands = Indexed(CallConst, 0)
	require.Equal(t, CallConst0, code)
	require.Empty(t, operands)

	// Families without compact forms always carry the operand
	code, operands = Indexed(SetDef, 0)
	require.Equal(t, SetDef, code)
	require.Equal(t, []uint8{0}, operands)
}

func TestImplicitIndex(t *testing.T) {
	index, wide, ok := ImplicitIndex(GetDefPush5)
	require.True(t, ok)
	require.Equal(t, 5, index)
	require.Equal(t, GetDefPush, wide)

	_, _, ok = ImplicitIndex(GetDefPush)
	require.False(t, ok)
}

func TestPushForm(t *testing.T) {
	tests := []struct {
		in   Code
		want Code
	}{
		{Load, LoadPush},
		{Load0, LoadPush0},
		{Load4, LoadPush4},
		{Const, ConstPush},
		{Const1, ConstPush1},
		{GetDef, GetDefPush},
		{GetDef7, GetDefPush7},
		{Unit, UnitPush},
		{True, TruePush},
		{False, FalsePush},
	}
	for _, tt := range tests {
		got, ok := PushForm(tt.in)
		require.True(t, ok, GetInfo(tt.in).Name)
		require.Equal(t, tt.want, got)
		require.Equal(t, GetInfo(tt.in).OperandCount, GetInfo(got).OperandCount)
	}
	_, ok := PushForm(Inc)
	require.False(t, ok)
	_, ok = PushForm(LoadPush)
	require.False(t, ok)
}

func TestTerminalAndJump(t *testing.T) {
	require.True(t, IsTerminal(Return))
	require.True(t, IsTerminal(TailCallSelf))
	require.True(t, IsTerminal(TailApplySelf))
	require.False(t, IsTerminal(CallSelf))
	require.True(t, IsJump(JumpIfNot))
	require.False(t, IsJump(Skip))
}
