package bytecode

import (
	"testing"

	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/stretchr/testify/require"
)

func TestUnitRoundTrip(t *testing.T) {
	second := NewFunction(FunctionParams{
		Constants: []any{value.Int(7)},
		Code:      []byte{byte(op.Const0), byte(op.Return)},
	})
	data, err := MarshalUnit([]*Function{sampleFunction(), second})
	require.NoError(t, err)

	forms, err := UnmarshalUnit(data)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	require.Equal(t, sampleFunction().Bytes(), forms[0].Bytes())
	require.Equal(t, value.Int(7), forms[1].ConstantAt(0))

	fn, ok := forms[0].ConstantAt(1).(*Function)
	require.True(t, ok)
	require.Equal(t, "foo", fn.Name())
}

func TestUnitEmpty(t *testing.T) {
	data, err := MarshalUnit(nil)
	require.NoError(t, err)
	forms, err := UnmarshalUnit(data)
	require.NoError(t, err)
	require.Empty(t, forms)
}

func TestUnitRejectsInvalidCode(t *testing.T) {
	bad := NewFunction(FunctionParams{Code: []byte{byte(op.Const0), byte(op.Return)}})
	data, err := MarshalUnit([]*Function{bad})
	require.NoError(t, err)
	_, err = UnmarshalUnit(data)
	require.ErrorContains(t, err, "form 0: invalid code")

	_, err = UnmarshalUnit([]byte{0xff})
	require.Error(t, err)
}
