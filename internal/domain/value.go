package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a possibly-absent scalar read from a source layer. The zero
// Value is absent. Absence is a first-class state, distinct from any
// numeric zero or empty string, and is preserved through extraction,
// classification, and serialization.
type Value struct {
	raw     any
	present bool
}

// FloatValue wraps a float64 measurement.
func FloatValue(f float64) Value { return Value{raw: f, present: true} }

// IntValue wraps an int64 measurement or categorical code.
func IntValue(i int64) Value { return Value{raw: i, present: true} }

// StringValue wraps a textual categorical value.
func StringValue(s string) Value { return Value{raw: s, present: true} }

// NoValue returns the explicit absent marker.
func NoValue() Value { return Value{} }

// Present reports whether the value carries a measurement.
func (v Value) Present() bool { return v.present }

// IsAbsent reports whether the value is the explicit "no value" marker.
func (v Value) IsAbsent() bool { return !v.present }

// Float returns the value as a float64. Integer values are widened so
// numeric rule predicates compare uniformly. The second return is false
// when the value is absent or non-numeric.
func (v Value) Float() (float64, bool) {
	switch n := v.raw.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Text returns the value as a string. Numeric values are rendered with %v
// so categorical predicates can match coded fields stored as integers.
// The second return is false when the value is absent.
func (v Value) Text() (string, bool) {
	if !v.present {
		return "", false
	}
	if s, ok := v.raw.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v.raw), true
}

// Raw exposes the underlying scalar, or nil when absent.
func (v Value) Raw() any {
	if !v.present {
		return nil
	}
	return v.raw
}

// Equal reports whether two values are both absent or carry the same
// scalar. Used by go-cmp in tests.
func (v Value) Equal(o Value) bool {
	return v.present == o.present && v.raw == o.raw
}

// MarshalJSON renders absent values as null, never as a zero default.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.present {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// UnmarshalJSON parses null back into the absent marker and keeps whole
// numbers as integers so a marshal round trip preserves Equal.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch n := raw.(type) {
	case nil:
		*v = NoValue()
	case json.Number:
		if i, err := n.Int64(); err == nil {
			*v = IntValue(i)
			return nil
		}
		f, err := n.Float64()
		if err != nil {
			return err
		}
		*v = FloatValue(f)
	case string:
		*v = StringValue(n)
	default:
		*v = Value{raw: raw, present: true}
	}
	return nil
}
