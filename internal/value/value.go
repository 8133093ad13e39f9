// Package value implements the tagged-union Value type carried by beliefs,
// query payloads, and monitor event payloads.
package value

import (
	"encoding/json"
	"fmt"
	"math"
)

// Kind discriminates the variant held by a Value.
type Kind string

const (
	KindNull       Kind = "null"
	KindBool       Kind = "bool"
	KindInt        Kind = "int"
	KindFloat      Kind = "float"
	KindString     Kind = "string"
	KindStructured Kind = "structured"
)

// Value is a closed tagged union over the scalar and structured shapes a
// belief's content can take. Exactly one of the typed fields is meaningful,
// selected by Kind.
type Value struct {
	Kind       Kind
	Bool       bool
	Int        int64
	Float      float64
	Str        string
	Structured json.RawMessage
}

// Null returns the null variant.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns the bool variant.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns the int variant.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float returns the float variant. NaN is not rejected here; IsValid
// reports it as invalid.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// String returns the string variant.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Structured returns the structured (arbitrary JSON) variant.
func Structured(raw json.RawMessage) Value { return Value{Kind: KindStructured, Structured: raw} }

// IsValid reports whether the value is well formed (no NaN float).
func (v Value) IsValid() bool {
	if v.Kind == KindFloat && math.IsNaN(v.Float) {
		return false
	}
	return true
}

// IsNull reports whether this is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Equal reports structural equality between two values.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	case KindStructured:
		return string(v.Structured) == string(other.Structured)
	default:
		return false
	}
}

// AsFloat64 attempts a numeric coercion, accepting both Int and Float
// variants. Used by pattern rules (Range, Monotonic) that require numeric
// comparison.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// AsString returns the string payload for the String variant.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsBool returns the bool payload for the Bool variant.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

type wireValue struct {
	Type  Kind            `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// MarshalJSON encodes the value as {"type": ..., "value": ...} per the IR
// envelope's tagged-union convention (spec §6).
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{Type: v.Kind}
	switch v.Kind {
	case KindNull:
		// value omitted
	case KindBool:
		raw, err := json.Marshal(v.Bool)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	case KindInt:
		raw, err := json.Marshal(v.Int)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	case KindFloat:
		raw, err := json.Marshal(v.Float)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	case KindString:
		raw, err := json.Marshal(v.Str)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	case KindStructured:
		w.Value = v.Structured
	default:
		return nil, fmt.Errorf("value: unknown kind %q", v.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the tagged-union wire format.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("value: decode envelope: %w", err)
	}
	switch w.Type {
	case KindNull, "":
		*v = Value{Kind: KindNull}
	case KindBool:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return fmt.Errorf("value: decode bool: %w", err)
		}
		*v = Value{Kind: KindBool, Bool: b}
	case KindInt:
		var i int64
		if err := json.Unmarshal(w.Value, &i); err != nil {
			return fmt.Errorf("value: decode int: %w", err)
		}
		*v = Value{Kind: KindInt, Int: i}
	case KindFloat:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return fmt.Errorf("value: decode float: %w", err)
		}
		*v = Value{Kind: KindFloat, Float: f}
	case KindString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return fmt.Errorf("value: decode string: %w", err)
		}
		*v = Value{Kind: KindString, Str: s}
	case KindStructured:
		*v = Value{Kind: KindStructured, Structured: append(json.RawMessage(nil), w.Value...)}
	default:
		return fmt.Errorf("value: unknown kind %q", w.Type)
	}
	return nil
}

// String implements fmt.Stringer for logging.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindStructured:
		return string(v.Structured)
	default:
		return "<invalid>"
	}
}
