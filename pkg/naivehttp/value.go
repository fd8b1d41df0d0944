package naivehttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Value is a schema-free JSON tree used as a POST body. The set of
// implementations is closed: Object, Array, String, Number, Integer, Bool
// and Null.
//
// Number is a float64 and holds integers exactly only up to 2^53. ValueOf
// maps larger integers to Integer, which encodes its digits verbatim.
type Value interface {
	json.Marshaler
	isValue()
}

type (
	Object  map[string]Value
	Array   []Value
	String  string
	Number  float64
	Integer int64
	Bool    bool
	Null    struct{}
)

func (Object) isValue()  {}
func (Array) isValue()   {}
func (String) isValue()  {}
func (Number) isValue()  {}
func (Integer) isValue() {}
func (Bool) isValue()    {}
func (Null) isValue()    {}

// MarshalJSON encodes members in key order. Nil members encode as null.
func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		member, err := marshalMember(o[k])
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", k, err)
		}
		buf.Write(member)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		elem, err := marshalMember(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		buf.Write(elem)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

// MarshalJSON fails for NaN and infinities, which JSON cannot represent.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported number %v", f)
	}
	return json.Marshal(f)
}

func (i Integer) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(i), 10), nil
}

func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }
func (Null) MarshalJSON() ([]byte, error)   { return []byte("null"), nil }

func marshalMember(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

// Encoder serializes a body value. EncodeJSON is the default.
type Encoder func(Value) ([]byte, error)

// EncodeJSON encodes v with encoding/json.
func EncodeJSON(v Value) ([]byte, error) {
	return json.Marshal(v)
}

// ParseValue decodes JSON into a Value tree.
func ParseValue(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return ValueOf(raw)
}

// ValueOf converts a generic decoded tree (as produced by encoding/json or
// yaml.v3) into a Value. Timestamps become RFC 3339 strings and non-string
// map keys are formatted with fmt.Sprint. Unsupported Go types are rejected.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(t), nil
	case int:
		return integerValue(int64(t)), nil
	case int64:
		return integerValue(t), nil
	case int32:
		return Number(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of range", t)
		}
		return integerValue(int64(t)), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return integerValue(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	case map[any]any:
		obj := make(Object, len(t))
		for k, member := range t {
			key := fmt.Sprint(k)
			if _, dup := obj[key]; dup {
				return nil, fmt.Errorf("member %q: duplicate key after conversion", key)
			}
			val, err := ValueOf(member)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", key, err)
			}
			obj[key] = val
		}
		return obj, nil
	case map[string]any:
		obj := make(Object, len(t))
		for k, member := range t {
			val, err := ValueOf(member)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", k, err)
			}
			obj[k] = val
		}
		return obj, nil
	case []any:
		arr := make(Array, len(t))
		for i, elem := range t {
			val, err := ValueOf(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr[i] = val
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported body type %T", v)
	}
}

// maxExactInt is the largest magnitude a float64 holds without rounding.
const maxExactInt = 1 << 53

func integerValue(i int64) Value {
	if i <= maxExactInt && i >= -maxExactInt {
		return Number(i)
	}
	return Integer(i)
}
