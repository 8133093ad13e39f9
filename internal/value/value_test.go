package value

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidRejectsNaNFloat(t *testing.T) {
	v := Value{Kind: KindFloat, Float: math.NaN()}
	require.False(t, v.IsValid())
}

func TestIsValidAcceptsOrdinaryValues(t *testing.T) {
	require.True(t, Null().IsValid())
	require.True(t, Int(42).IsValid())
	require.True(t, Float(3.14).IsValid())
	require.True(t, String("ok").IsValid())
}

func TestEqualComparesByKindAndPayload(t *testing.T) {
	require.True(t, Int(1).Equal(Int(1)))
	require.False(t, Int(1).Equal(Int(2)))
	require.False(t, Int(1).Equal(String("1")))
	require.True(t, Null().Equal(Null()))
	require.True(t, Structured(json.RawMessage(`{"a":1}`)).Equal(Structured(json.RawMessage(`{"a":1}`))))
}

func TestAsFloat64AcceptsIntAndFloat(t *testing.T) {
	f, ok := Int(7).AsFloat64()
	require.True(t, ok)
	require.Equal(t, 7.0, f)

	f, ok = Float(1.5).AsFloat64()
	require.True(t, ok)
	require.Equal(t, 1.5, f)

	_, ok = String("x").AsFloat64()
	require.False(t, ok)
}

func TestAsStringAndAsBool(t *testing.T) {
	s, ok := String("hi").AsString()
	require.True(t, ok)
	require.Equal(t, "hi", s)
	_, ok = Int(1).AsString()
	require.False(t, ok)

	b, ok := Bool(true).AsBool()
	require.True(t, ok)
	require.True(t, b)
	_, ok = Int(1).AsBool()
	require.False(t, ok)
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Int(-5),
		Float(2.5),
		String("hello"),
		Structured(json.RawMessage(`{"k":"v"}`)),
	}
	for _, v := range cases {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var decoded Value
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.True(t, v.Equal(decoded), "round trip mismatch for kind %s", v.Kind)
	}
}

func TestUnmarshalEmptyTypeDefaultsToNull(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{}`), &v))
	require.True(t, v.IsNull())
}

func TestStringImplementsStringer(t *testing.T) {
	require.Equal(t, "null", Null().String())
	require.Equal(t, "true", Bool(true).String())
	require.Equal(t, "5", Int(5).String())
	require.Equal(t, "hello", String("hello").String())
}
