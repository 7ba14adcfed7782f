package codec

import (
	"time"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// keyedContainer is the view over an object value.
type keyedContainer struct {
	fields *dynvalue.Fields
	path   Path
}

func (c *keyedContainer) Path() Path { return c.path }

func (c *keyedContainer) AllKeys() []string { return c.fields.Keys() }

func (c *keyedContainer) Contains(key string) bool { return c.fields.Has(key) }

func (c *keyedContainer) lookup(key string) (dynvalue.Value, Path, error) {
	v, ok := c.fields.Get(key)
	if !ok {
		return dynvalue.Value{}, nil, keyNotFound(c.path, key)
	}
	return v, c.path.AppendKey(key), nil
}

func (c *keyedContainer) DecodeNil(key string) (bool, error) {
	v, _, err := c.lookup(key)
	if err != nil {
		return false, err
	}
	return v.IsNull(), nil
}

func (c *keyedContainer) DecodeBool(key string) (bool, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return false, err
	}
	return coerceBool(p, v)
}

func (c *keyedContainer) DecodeString(key string) (string, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return "", err
	}
	return coerceString(p, v)
}

func (c *keyedContainer) DecodeFloat64(key string) (float64, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	return coerceFloat64(p, v)
}

func (c *keyedContainer) DecodeInt(key string) (int, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	return coerceInt(p, v)
}

func (c *keyedContainer) DecodeInt64(key string) (int64, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	return coerceInt64(p, v)
}

func (c *keyedContainer) DecodeUint64(key string) (uint64, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	return coerceUint64(p, v)
}

func (c *keyedContainer) DecodeTime(key string) (time.Time, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return time.Time{}, err
	}
	return coerceTime(p, v)
}

func (c *keyedContainer) DecodeValue(key string) (dynvalue.Value, error) {
	v, _, err := c.lookup(key)
	return v, err
}

func (c *keyedContainer) Decode(key string, dst Decodable) error {
	v, p, err := c.lookup(key)
	if err != nil {
		return err
	}
	return decodeNested(v, p, dst)
}

func (c *keyedContainer) DecodeIfPresent(key string, dst Decodable) (bool, error) {
	v, ok := c.fields.Get(key)
	if !ok || v.IsNull() {
		return false, nil
	}
	if err := decodeNested(v, c.path.AppendKey(key), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *keyedContainer) NestedKeyedContainer(key string) (KeyedContainer, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return keyedFor(v, p), nil
}

func (c *keyedContainer) NestedUnkeyedContainer(key string) (UnkeyedContainer, error) {
	v, p, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return unkeyedFor(v, p)
}
