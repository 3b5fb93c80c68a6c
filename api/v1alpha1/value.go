// Copyright Contributors to the TaskBench project

package v1alpha1

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value holds an expected assertion value of scalar JSON type (string,
// number, bool) or null when unset. Numbers decode as float64, matching
// what unstructured object traversal yields for JSON content.
type Value struct {
	v interface{}
}

// NewValue wraps a raw scalar.
func NewValue(v interface{}) Value {
	return Value{v: v}
}

// IsSet reports whether a value was provided.
func (v Value) IsSet() bool {
	return v.v != nil
}

// Raw returns the underlying scalar (string, float64, bool) or nil.
func (v Value) Raw() interface{} {
	return v.v
}

// String renders the value for reports. Unset values render as "<unset>".
func (v Value) String() string {
	if v.v == nil {
		return "<unset>"
	}
	switch x := v.v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Bool returns the value as a bool when it is one.
func (v Value) Bool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok
}

// Number returns the value as a float64 when it is numeric.
func (v Value) Number() (float64, bool) {
	switch x := v.v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// MarshalJSON emits the raw scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.v)
}

// UnmarshalJSON accepts any scalar JSON value. Objects and arrays are
// rejected: expected values are scalars by design.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.(type) {
	case nil, string, float64, bool:
		v.v = raw
		return nil
	default:
		return fmt.Errorf("expected value must be a scalar, got %T", raw)
	}
}
