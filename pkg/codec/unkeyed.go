package codec

import (
	"time"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// unkeyedContainer is the cursor over a list value. The cursor moves only
// after an element decodes successfully.
type unkeyedContainer struct {
	items []dynvalue.Value
	path  Path
	index int
}

func (c *unkeyedContainer) Path() Path        { return c.path }
func (c *unkeyedContainer) Count() int        { return len(c.items) }
func (c *unkeyedContainer) IsAtEnd() bool     { return c.index >= len(c.items) }
func (c *unkeyedContainer) CurrentIndex() int { return c.index }

func (c *unkeyedContainer) peek() (dynvalue.Value, Path, error) {
	p := c.path.AppendIndex(c.index)
	if c.IsAtEnd() {
		return dynvalue.Value{}, p, dataCorrupted(p, "index out of range")
	}
	return c.items[c.index], p, nil
}

// DecodeNil consumes the element only when it is null.
func (c *unkeyedContainer) DecodeNil() (bool, error) {
	v, _, err := c.peek()
	if err != nil {
		return false, err
	}
	if !v.IsNull() {
		return false, nil
	}
	c.index++
	return true, nil
}

func (c *unkeyedContainer) DecodeBool() (bool, error) {
	v, p, err := c.peek()
	if err != nil {
		return false, err
	}
	b, err := coerceBool(p, v)
	if err == nil {
		c.index++
	}
	return b, err
}

func (c *unkeyedContainer) DecodeString() (string, error) {
	v, p, err := c.peek()
	if err != nil {
		return "", err
	}
	s, err := coerceString(p, v)
	if err == nil {
		c.index++
	}
	return s, err
}

func (c *unkeyedContainer) DecodeFloat64() (float64, error) {
	v, p, err := c.peek()
	if err != nil {
		return 0, err
	}
	n, err := coerceFloat64(p, v)
	if err == nil {
		c.index++
	}
	return n, err
}

func (c *unkeyedContainer) DecodeInt() (int, error) {
	v, p, err := c.peek()
	if err != nil {
		return 0, err
	}
	n, err := coerceInt(p, v)
	if err == nil {
		c.index++
	}
	return n, err
}

func (c *unkeyedContainer) DecodeInt64() (int64, error) {
	v, p, err := c.peek()
	if err != nil {
		return 0, err
	}
	n, err := coerceInt64(p, v)
	if err == nil {
		c.index++
	}
	return n, err
}

func (c *unkeyedContainer) DecodeUint64() (uint64, error) {
	v, p, err := c.peek()
	if err != nil {
		return 0, err
	}
	n, err := coerceUint64(p, v)
	if err == nil {
		c.index++
	}
	return n, err
}

func (c *unkeyedContainer) DecodeTime() (time.Time, error) {
	v, p, err := c.peek()
	if err != nil {
		return time.Time{}, err
	}
	t, err := coerceTime(p, v)
	if err == nil {
		c.index++
	}
	return t, err
}

func (c *unkeyedContainer) DecodeValue() (dynvalue.Value, error) {
	v, _, err := c.peek()
	if err != nil {
		return dynvalue.Value{}, err
	}
	c.index++
	return v, nil
}

func (c *unkeyedContainer) Decode(dst Decodable) error {
	v, p, err := c.peek()
	if err != nil {
		return err
	}
	if err := decodeNested(v, p, dst); err != nil {
		return err
	}
	c.index++
	return nil
}

func (c *unkeyedContainer) NestedKeyedContainer() (KeyedContainer, error) {
	v, p, err := c.peek()
	if err != nil {
		return nil, err
	}
	c.index++
	return keyedFor(v, p), nil
}

func (c *unkeyedContainer) NestedUnkeyedContainer() (UnkeyedContainer, error) {
	v, p, err := c.peek()
	if err != nil {
		return nil, err
	}
	nested, err := unkeyedFor(v, p)
	if err != nil {
		return nil, err
	}
	c.index++
	return nested, nil
}
