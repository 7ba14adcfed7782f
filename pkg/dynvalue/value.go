package dynvalue

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindFields
	KindDate
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindList:   "list",
	KindFields: "fields",
	KindDate:   "date",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one value from the script runtime. The zero Value is Null.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	t      time.Time
	list   []Value
	fields *Fields
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a number. Script numbers are doubles.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Date wraps a point in time.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// List wraps an ordered sequence. The slice is copied.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Object wraps an ordered map built from the given fields.
func Object(fields ...Field) Value {
	return FieldsValue(NewFields(fields...))
}

// FieldsValue wraps an existing Fields map. A nil map becomes an empty object.
func FieldsValue(f *Fields) Value {
	if f == nil {
		f = NewFields()
	}
	return Value{kind: KindFields, fields: f}
}

// Kind returns the tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsDate returns the date payload.
func (v Value) AsDate() (time.Time, bool) { return v.t, v.kind == KindDate }

// AsList returns the list payload. The returned slice must not be modified.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsFields returns the object payload.
func (v Value) AsFields() (*Fields, bool) { return v.fields, v.kind == KindFields }

// Len returns the number of list elements or object fields, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindFields:
		return v.fields.Len()
	default:
		return 0
	}
}

// Equal reports deep equality. Object comparison ignores key order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindFields:
		if v.fields.Len() != o.fields.Len() {
			return false
		}
		for _, k := range v.fields.Keys() {
			ov, ok := o.fields.Get(k)
			if !ok {
				return false
			}
			mv, _ := v.fields.Get(k)
			if !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v as JSON text; it is meant for logs and diagnostics.
func (v Value) String() string {
	var b strings.Builder
	writeJSON(&b, v)
	return b.String()
}
