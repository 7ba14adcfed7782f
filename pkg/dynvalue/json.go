package dynvalue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

const jsonLogPrefix = "dynvalue:json"

// ParseJSON decodes one JSON document. Object key order is preserved.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := readJSON(dec)
	if err != nil {
		return Value{}, fmt.Errorf("%s - invalid JSON payload: %w", jsonLogPrefix, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%s - trailing data after JSON value", jsonLogPrefix)
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		n, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := readJSON(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: KindList, list: items}, nil
		case '{':
			f := NewFields()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T, want string", kt)
				}
				item, err := readJSON(dec)
				if err != nil {
					return Value{}, err
				}
				f.set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return FieldsValue(f), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// MarshalJSON encodes v with object keys in insertion order. Dates become
// RFC 3339 strings; NaN and infinities become null.
func (v Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	writeJSON(&b, v)
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes a JSON document into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func writeJSON(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			b.WriteString("null")
			return
		}
		b.WriteString(strconv.FormatFloat(v.n, 'f', -1, 64))
	case KindString:
		writeJSONString(b, v.s)
	case KindDate:
		writeJSONString(b, v.t.UTC().Format(time.RFC3339Nano))
	case KindList:
		b.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, item)
		}
		b.WriteByte(']')
	case KindFields:
		b.WriteByte('{')
		i := 0
		v.fields.Range(func(key string, item Value) bool {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, key)
			b.WriteByte(':')
			writeJSON(b, item)
			i++
			return true
		})
		b.WriteByte('}')
	}
}

func writeJSONString(b *strings.Builder, s string) {
	// Marshaling a string cannot fail.
	data, _ := json.Marshal(s)
	b.Write(data)
}
