package codec

import (
	"time"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// Decodable is implemented by every type that can cross the bridge. The
// method must build the value only through the requests it makes on d, so the
// same method serves both message decoding and shape discovery.
type Decodable interface {
	DecodeBridge(d Decoder) error
}

// Decoder hands out the container matching the layout a type expects.
type Decoder interface {
	Path() Path
	KeyedContainer() (KeyedContainer, error)
	UnkeyedContainer() (UnkeyedContainer, error)
	SingleValueContainer() (SingleValueContainer, error)
}

// SingleValueContainer decodes one value as a scalar or a nested Decodable.
type SingleValueContainer interface {
	Path() Path
	DecodeNil() bool
	DecodeBool() (bool, error)
	DecodeString() (string, error)
	DecodeFloat64() (float64, error)
	DecodeInt() (int, error)
	DecodeInt64() (int64, error)
	DecodeUint64() (uint64, error)
	DecodeTime() (time.Time, error)
	DecodeValue() (dynvalue.Value, error)
	Decode(v Decodable) error
}

// KeyedContainer decodes named fields.
type KeyedContainer interface {
	Path() Path
	AllKeys() []string
	Contains(key string) bool
	DecodeNil(key string) (bool, error)
	DecodeBool(key string) (bool, error)
	DecodeString(key string) (string, error)
	DecodeFloat64(key string) (float64, error)
	DecodeInt(key string) (int, error)
	DecodeInt64(key string) (int64, error)
	DecodeUint64(key string) (uint64, error)
	DecodeTime(key string) (time.Time, error)
	DecodeValue(key string) (dynvalue.Value, error)
	Decode(key string, v Decodable) error
	// DecodeIfPresent decodes key into v and reports true, or reports false
	// when the key is absent or null.
	DecodeIfPresent(key string, v Decodable) (bool, error)
	NestedKeyedContainer(key string) (KeyedContainer, error)
	NestedUnkeyedContainer(key string) (UnkeyedContainer, error)
}

// UnkeyedContainer decodes list elements in order. Each successful decode
// advances the cursor by one.
type UnkeyedContainer interface {
	Path() Path
	Count() int
	IsAtEnd() bool
	CurrentIndex() int
	DecodeNil() (bool, error)
	DecodeBool() (bool, error)
	DecodeString() (string, error)
	DecodeFloat64() (float64, error)
	DecodeInt() (int, error)
	DecodeInt64() (int64, error)
	DecodeUint64() (uint64, error)
	DecodeTime() (time.Time, error)
	DecodeValue() (dynvalue.Value, error)
	Decode(v Decodable) error
	NestedKeyedContainer() (KeyedContainer, error)
	NestedUnkeyedContainer() (UnkeyedContainer, error)
}

// bridgeDecoder is the message-time Decoder over a dynamic value.
type bridgeDecoder struct {
	value dynvalue.Value
	path  Path
}

// NewDecoder returns a Decoder over v rooted at the empty path.
func NewDecoder(v dynvalue.Value) Decoder {
	return &bridgeDecoder{value: v}
}

// Decode decodes v into dst.
func Decode(v dynvalue.Value, dst Decodable) error {
	return dst.DecodeBridge(NewDecoder(v))
}

func (d *bridgeDecoder) Path() Path { return d.path }

// KeyedContainer never fails: non-object values get the permissive fallback.
func (d *bridgeDecoder) KeyedContainer() (KeyedContainer, error) {
	return keyedFor(d.value, d.path), nil
}

func (d *bridgeDecoder) UnkeyedContainer() (UnkeyedContainer, error) {
	return unkeyedFor(d.value, d.path)
}

func (d *bridgeDecoder) SingleValueContainer() (SingleValueContainer, error) {
	return &valueContainer{value: d.value, path: d.path}, nil
}

func keyedFor(v dynvalue.Value, path Path) KeyedContainer {
	if f, ok := v.AsFields(); ok {
		return &keyedContainer{fields: f, path: path}
	}
	return &unknownKeyedContainer{raw: v, path: path}
}

func unkeyedFor(v dynvalue.Value, path Path) (UnkeyedContainer, error) {
	items, ok := v.AsList()
	if !ok {
		return nil, typeMismatch(path, "list", v)
	}
	return &unkeyedContainer{items: items, path: path}, nil
}

// decodeNested re-enters the message-time decoder for a composite target.
func decodeNested(v dynvalue.Value, path Path, dst Decodable) error {
	return dst.DecodeBridge(&bridgeDecoder{value: v, path: path})
}
