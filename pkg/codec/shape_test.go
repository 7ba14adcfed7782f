package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mixed struct {
	A bool
	B float64
	C string
}

func (m *mixed) DecodeBridge(d Decoder) error {
	c, err := d.KeyedContainer()
	if err != nil {
		return err
	}
	if m.A, err = c.DecodeBool("a"); err != nil {
		return err
	}
	if m.B, err = c.DecodeFloat64("b"); err != nil {
		return err
	}
	if m.C, err = c.DecodeString("c"); err != nil {
		return err
	}
	return nil
}

// repeated reads the same key twice.
type repeated struct{}

func (r *repeated) DecodeBridge(d Decoder) error {
	c, err := d.KeyedContainer()
	if err != nil {
		return err
	}
	if _, err := c.DecodeString("id"); err != nil {
		return err
	}
	if _, err := c.DecodeInt("id"); err != nil {
		return err
	}
	_, err = c.DecodeBool("flag")
	return err
}

// silent makes no container request at all.
type silent struct{}

func (silent) DecodeBridge(Decoder) error { return nil }

func TestDiscoverShapeRecordsFieldOrder(t *testing.T) {
	shape, err := DiscoverShape(&mixed{})
	require.NoError(t, err)
	assert.Equal(t, ShapeFields, shape.Kind)
	assert.Equal(t, []string{"a", "b", "c"}, shape.Fields)
	assert.Equal(t, 3, shape.Arity())
	assert.Equal(t, "fields(a, b, c)", shape.String())

	shape, err = DiscoverShape(&shareParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "count"}, shape.Fields)
}

func TestDiscoverShapeRecordsKeysOnce(t *testing.T) {
	shape, err := DiscoverShape(&repeated{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "flag"}, shape.Fields)
}

func TestDiscoverShapeNestedDoesNotLeak(t *testing.T) {
	shape, err := DiscoverShape(&order{})
	require.NoError(t, err)
	assert.Equal(t, ShapeFields, shape.Kind)
	assert.Equal(t, []string{"id", "items", "note", "where"}, shape.Fields)
}

func TestDiscoverShapeScalarsAndLists(t *testing.T) {
	var s String
	shape, err := DiscoverShape(&s)
	require.NoError(t, err)
	assert.Equal(t, Shape{Kind: ShapeScalar}, shape)
	assert.Equal(t, 1, shape.Arity())

	var l StringList
	shape, err = DiscoverShape(&l)
	require.NoError(t, err)
	assert.Equal(t, Shape{Kind: ShapeList}, shape)
	assert.Len(t, l, 0)

	shape, err = DiscoverShape(silent{})
	require.NoError(t, err)
	assert.Equal(t, ShapeScalar, shape.Kind)
}

func TestDiscoverShapeWrapperTakesInnerShape(t *testing.T) {
	var o Optional[shareParams, *shareParams]
	shape, err := DiscoverShape(&o)
	require.NoError(t, err)
	assert.Equal(t, ShapeFields, shape.Kind)
	assert.Equal(t, []string{"title", "count"}, shape.Fields)
}

func TestDiscoverShapeLeavesPlaceholders(t *testing.T) {
	m := mixed{A: true, B: 9, C: "set"}
	_, err := DiscoverShape(&m)
	require.NoError(t, err)
	assert.Equal(t, mixed{}, m)
}

func TestShapeRecorderIsSingleUse(t *testing.T) {
	r := NewShapeRecorder()
	require.NoError(t, (&mixed{}).DecodeBridge(r))

	shape, err := r.Shape()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, shape.Fields)

	_, err = r.Shape()
	assert.True(t, errors.Is(err, ErrRecorderConsumed))
	_, err = r.KeyedContainer()
	assert.True(t, errors.Is(err, ErrRecorderConsumed))
	_, err = r.UnkeyedContainer()
	assert.True(t, errors.Is(err, ErrRecorderConsumed))
	_, err = r.SingleValueContainer()
	assert.True(t, errors.Is(err, ErrRecorderConsumed))
}

func TestRecordingContainersNeverFail(t *testing.T) {
	r := NewShapeRecorder()
	c, err := r.KeyedContainer()
	require.NoError(t, err)

	assert.True(t, c.Contains("x"))
	isNil, err := c.DecodeNil("x")
	require.NoError(t, err)
	assert.False(t, isNil)

	nested, err := c.NestedKeyedContainer("inner")
	require.NoError(t, err)
	_, err = nested.DecodeString("deep")
	require.NoError(t, err)

	list, err := c.NestedUnkeyedContainer("list")
	require.NoError(t, err)
	assert.True(t, list.IsAtEnd())
	assert.Equal(t, 0, list.Count())

	shape, err := r.Shape()
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "list"}, shape.Fields)
}
