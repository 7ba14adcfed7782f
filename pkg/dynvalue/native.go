package dynvalue

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const nativeLogPrefix = "dynvalue:native"

// FromNative converts a plain Go value, as produced by encoding/json, CBOR
// decoders or a script runtime's export, into a Value. Go maps carry no order,
// so their keys are sorted.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%s - invalid number %q: %w", nativeLogPrefix, t, err)
		}
		return Number(n), nil
	case time.Time:
		return Date(t), nil
	case *time.Time:
		if t == nil {
			return Null(), nil
		}
		return Date(*t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromNative(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case []Value:
		return List(t...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		f := NewFields()
		for _, k := range keys {
			v, err := FromNative(t[k])
			if err != nil {
				return Value{}, err
			}
			f.set(k, v)
		}
		return FieldsValue(f), nil
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			key, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("%s - object key %v is %T, want string", nativeLogPrefix, k, k)
			}
			m[key] = item
		}
		return FromNative(m)
	}
	return Value{}, fmt.Errorf("%s - unsupported value type %T", nativeLogPrefix, x)
}

// Native converts v back into plain Go values: nil, bool, float64, string,
// time.Time, []any and map[string]any.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindDate:
		return v.t
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindFields:
		out := make(map[string]any, v.fields.Len())
		v.fields.Range(func(key string, item Value) bool {
			out[key] = item.Native()
			return true
		})
		return out
	}
	return nil
}
