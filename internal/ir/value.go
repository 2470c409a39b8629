package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Value is a sealed interface representing the values that flow through a
// board. Only Null, Number, Bool, String, List, and Object implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents an absent or empty value.
// Using an explicit type ensures every Value satisfies the sealed interface.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Number is a numeric value. Scalar contributions live in [0, 1] but formulas
// may produce any finite number.
type Number float64

func (Number) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// String is a text value.
type String string

func (String) irValue() {}

// List is an ordered sequence of values.
type List []Value

func (List) irValue() {}

// Object maps string keys to values. Ballots and countVotes results are objects.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// SortedKeys returns the object keys in byte order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// TypeName returns a short human-readable name for the dynamic type of v.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case String:
		return "string"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	}
	return false
}

// FormatNumber renders a number the way the board displays it: integers
// without a fraction, other values with the shortest round-trip form.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	// Exponent form without zero padding: 1e-7, 1e+21.
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + exp
}

var numericToken = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses a decimal numeric literal. Hex, NaN and Infinity
// spellings are not numbers here.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericToken.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToNumber applies numeric coercion: numbers as is, booleans as 1 or 0,
// numeric strings parsed, and single-element lists by their element.
func ToNumber(v Value) (float64, bool) {
	switch val := v.(type) {
	case Number:
		return float64(val), true
	case Bool:
		if val {
			return 1, true
		}
		return 0, true
	case String:
		return ParseNumber(string(val))
	case List:
		if len(val) == 1 {
			return ToNumber(val[0])
		}
	}
	return 0, false
}

// Display stringifies a value for prompts and string concatenation.
// Lists are joined with commas and objects render as JSON.
func Display(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Number:
		return FormatNumber(float64(val))
	case Bool:
		if val {
			return "true"
		}
		return "false"
	case String:
		return string(val)
	case List:
		parts := make([]string, len(val))
		for i, elem := range val {
			if IsNull(elem) {
				continue
			}
			parts[i] = Display(elem)
		}
		return strings.Join(parts, ",")
	case Object:
		data, err := MarshalValue(val)
		if err != nil {
			return "[object]"
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Truthy reports whether a value counts as true in a condition.
// false, 0, NaN, "" and null are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		f := float64(val)
		return f != 0 && !math.IsNaN(f)
	case String:
		return val != ""
	default:
		return true
	}
}

// Equal reports structural equality of two values. nil and Null are equal.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// FromAny converts a decoded Go value (from JSON, YAML or CUE) into a Value.
// All integer and float kinds become Number.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case []string:
		list := make(List, len(val))
		for i, s := range val {
			list[i] = String(s)
		}
		return list, nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = item
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = item
		}
		return obj, nil
	case map[any]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", k)
			}
			item, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", key, err)
			}
			obj[key] = item
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToAny converts a Value into plain Go values (nil, float64, bool, string,
// []any, map[string]any).
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case String:
		return string(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// MarshalValue marshals a Value to JSON bytes.
// NaN and infinities are rejected since JSON cannot represent them.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("number %s cannot be represented in JSON", FormatNumber(f))
		}
		return json.Marshal(f)
	case Bool:
		return json.Marshal(bool(val))
	case String:
		return marshalString(string(val))
	case List:
		return marshalList(val)
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// marshalString quotes s without escaping <, > and &, so prompts and
// displayed values keep the text as written.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MarshalJSON implements json.Marshaler for List.
func (l List) MarshalJSON() ([]byte, error) {
	return marshalList(l)
}

func marshalList(l List) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalString(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalValue decodes JSON into a Value.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	list, ok := v.(List)
	if !ok {
		return fmt.Errorf("expected list, got %s", TypeName(v))
	}
	*l = list
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(Object)
	if !ok {
		return fmt.Errorf("expected object, got %s", TypeName(v))
	}
	*obj = o
	return nil
}
