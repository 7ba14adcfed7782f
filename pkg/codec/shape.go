package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

const shapeLogPrefix = "codec:shape"

// ErrRecorderConsumed is returned when a ShapeRecorder is used after Shape.
var ErrRecorderConsumed = errors.New("codec: shape recorder already consumed")

// ShapeKind is the discovered layout of a bridge parameter.
type ShapeKind uint8

const (
	ShapeScalar ShapeKind = iota
	ShapeList
	ShapeFields
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeScalar:
		return "scalar"
	case ShapeList:
		return "list"
	case ShapeFields:
		return "fields"
	}
	return fmt.Sprintf("shape(%d)", uint8(k))
}

// MarshalText renders the kind by name.
func (k ShapeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Shape describes how a type lays out its bridge parameter.
type Shape struct {
	Kind   ShapeKind `json:"kind"`
	Fields []string  `json:"fields,omitempty"`
}

// Arity is the number of script-side arguments the stub accepts.
func (s Shape) Arity() int {
	if s.Kind == ShapeFields {
		return len(s.Fields)
	}
	return 1
}

func (s Shape) String() string {
	if s.Kind != ShapeFields {
		return s.Kind.String()
	}
	return "fields(" + strings.Join(s.Fields, ", ") + ")"
}

// DiscoverShape replays v's decode logic against a fresh recorder.
func DiscoverShape(v Decodable) (Shape, error) {
	r := NewShapeRecorder()
	if err := v.DecodeBridge(r); err != nil {
		return Shape{}, fmt.Errorf("%s - shape discovery failed: %w", shapeLogPrefix, err)
	}
	return r.Shape()
}

// ShapeRecorder is a Decoder that hands out placeholder values while recording
// the container kind and the keys a type requests. Field names accumulate in
// request order. A recorder serves exactly one discovery: after Shape is called
// every request fails with ErrRecorderConsumed. It is not safe for concurrent use.
type ShapeRecorder struct {
	kind     ShapeKind
	fields   []string
	seen     map[string]struct{}
	consumed bool
}

// NewShapeRecorder returns an empty recorder. A type that makes no requests
// is recorded as a scalar.
func NewShapeRecorder() *ShapeRecorder {
	return &ShapeRecorder{seen: make(map[string]struct{})}
}

// Shape returns the recorded shape and consumes the recorder.
func (r *ShapeRecorder) Shape() (Shape, error) {
	if r.consumed {
		return Shape{}, ErrRecorderConsumed
	}
	r.consumed = true
	s := Shape{Kind: r.kind}
	if r.kind == ShapeFields {
		s.Fields = make([]string, len(r.fields))
		copy(s.Fields, r.fields)
	}
	return s, nil
}

func (r *ShapeRecorder) record(key string) {
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	r.fields = append(r.fields, key)
}

func (r *ShapeRecorder) Path() Path { return nil }

func (r *ShapeRecorder) KeyedContainer() (KeyedContainer, error) {
	if r.consumed {
		return nil, ErrRecorderConsumed
	}
	r.kind = ShapeFields
	return &recordingKeyed{rec: r}, nil
}

func (r *ShapeRecorder) UnkeyedContainer() (UnkeyedContainer, error) {
	if r.consumed {
		return nil, ErrRecorderConsumed
	}
	r.kind = ShapeList
	return emptyUnkeyed{}, nil
}

func (r *ShapeRecorder) SingleValueContainer() (SingleValueContainer, error) {
	if r.consumed {
		return nil, ErrRecorderConsumed
	}
	r.kind = ShapeScalar
	return &recordingSingle{rec: r}, nil
}

// recordingKeyed records each requested key and answers with zero values.
type recordingKeyed struct {
	rec *ShapeRecorder
}

func (c *recordingKeyed) Path() Path                { return nil }
func (c *recordingKeyed) AllKeys() []string         { return nil }
func (c *recordingKeyed) Contains(key string) bool  { return true }
func (c *recordingKeyed) DecodeNil(key string) (bool, error) {
	return false, nil
}

func (c *recordingKeyed) DecodeBool(key string) (bool, error) {
	c.rec.record(key)
	return false, nil
}

func (c *recordingKeyed) DecodeString(key string) (string, error) {
	c.rec.record(key)
	return "", nil
}

func (c *recordingKeyed) DecodeFloat64(key string) (float64, error) {
	c.rec.record(key)
	return 0, nil
}

func (c *recordingKeyed) DecodeInt(key string) (int, error) {
	c.rec.record(key)
	return 0, nil
}

func (c *recordingKeyed) DecodeInt64(key string) (int64, error) {
	c.rec.record(key)
	return 0, nil
}

func (c *recordingKeyed) DecodeUint64(key string) (uint64, error) {
	c.rec.record(key)
	return 0, nil
}

func (c *recordingKeyed) DecodeTime(key string) (time.Time, error) {
	c.rec.record(key)
	return time.Time{}, nil
}

func (c *recordingKeyed) DecodeValue(key string) (dynvalue.Value, error) {
	c.rec.record(key)
	return dynvalue.Null(), nil
}

// Decode records key and fills dst from a throw-away recorder, so nested
// requests do not leak into this shape.
func (c *recordingKeyed) Decode(key string, dst Decodable) error {
	c.rec.record(key)
	return dst.DecodeBridge(NewShapeRecorder())
}

func (c *recordingKeyed) DecodeIfPresent(key string, dst Decodable) (bool, error) {
	if err := c.Decode(key, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *recordingKeyed) NestedKeyedContainer(key string) (KeyedContainer, error) {
	c.rec.record(key)
	return NewShapeRecorder().KeyedContainer()
}

func (c *recordingKeyed) NestedUnkeyedContainer(key string) (UnkeyedContainer, error) {
	c.rec.record(key)
	return emptyUnkeyed{}, nil
}

// recordingSingle answers scalar requests with zero values. A nested
// Decodable is replayed on the same recorder, so a wrapper type takes the
// shape of what it wraps.
type recordingSingle struct {
	rec *ShapeRecorder
}

func (c *recordingSingle) Path() Path                          { return nil }
func (c *recordingSingle) DecodeNil() bool                     { return false }
func (c *recordingSingle) DecodeBool() (bool, error)           { return false, nil }
func (c *recordingSingle) DecodeString() (string, error)       { return "", nil }
func (c *recordingSingle) DecodeFloat64() (float64, error)     { return 0, nil }
func (c *recordingSingle) DecodeInt() (int, error)             { return 0, nil }
func (c *recordingSingle) DecodeInt64() (int64, error)         { return 0, nil }
func (c *recordingSingle) DecodeUint64() (uint64, error)       { return 0, nil }
func (c *recordingSingle) DecodeTime() (time.Time, error)      { return time.Time{}, nil }
func (c *recordingSingle) DecodeValue() (dynvalue.Value, error) { return dynvalue.Null(), nil }

func (c *recordingSingle) Decode(dst Decodable) error {
	return dst.DecodeBridge(c.rec)
}

// emptyUnkeyed is the list view handed out during discovery. It never
// yields elements, so element types are not introspected.
type emptyUnkeyed struct{}

func (emptyUnkeyed) Path() Path        { return nil }
func (emptyUnkeyed) Count() int        { return 0 }
func (emptyUnkeyed) IsAtEnd() bool     { return true }
func (emptyUnkeyed) CurrentIndex() int { return 0 }

func (emptyUnkeyed) outOfRange() error { return dataCorrupted(Path{IndexSegment(0)}, "index out of range") }

func (u emptyUnkeyed) DecodeNil() (bool, error)             { return false, u.outOfRange() }
func (u emptyUnkeyed) DecodeBool() (bool, error)            { return false, u.outOfRange() }
func (u emptyUnkeyed) DecodeString() (string, error)        { return "", u.outOfRange() }
func (u emptyUnkeyed) DecodeFloat64() (float64, error)      { return 0, u.outOfRange() }
func (u emptyUnkeyed) DecodeInt() (int, error)              { return 0, u.outOfRange() }
func (u emptyUnkeyed) DecodeInt64() (int64, error)          { return 0, u.outOfRange() }
func (u emptyUnkeyed) DecodeUint64() (uint64, error)        { return 0, u.outOfRange() }
func (u emptyUnkeyed) DecodeTime() (time.Time, error)       { return time.Time{}, u.outOfRange() }
func (u emptyUnkeyed) DecodeValue() (dynvalue.Value, error) { return dynvalue.Null(), u.outOfRange() }
func (u emptyUnkeyed) Decode(Decodable) error               { return u.outOfRange() }

func (u emptyUnkeyed) NestedKeyedContainer() (KeyedContainer, error) {
	return nil, u.outOfRange()
}

func (u emptyUnkeyed) NestedUnkeyedContainer() (UnkeyedContainer, error) {
	return nil, u.outOfRange()
}
