package codec

import (
	"time"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// unknownKeyedContainer is the fallback keyed view over a value that is not an
// object, used when the script side sends a bare scalar or list where a record
// was expected. Every key resolves to the same underlying value.
//
// DecodeNil reports true for every key while Contains reports true and scalar
// decodes succeed on the same key. The combination is inconsistent; it is kept
// because existing callers rely on the fallback never failing.
type unknownKeyedContainer struct {
	raw  dynvalue.Value
	path Path
}

func (c *unknownKeyedContainer) Path() Path { return c.path }

func (c *unknownKeyedContainer) AllKeys() []string { return nil }

func (c *unknownKeyedContainer) Contains(string) bool { return true }

func (c *unknownKeyedContainer) DecodeNil(string) (bool, error) { return true, nil }

func (c *unknownKeyedContainer) single(key string) *valueContainer {
	return &valueContainer{value: c.raw, path: c.path.AppendKey(key)}
}

func (c *unknownKeyedContainer) DecodeBool(key string) (bool, error) {
	return c.single(key).DecodeBool()
}

func (c *unknownKeyedContainer) DecodeString(key string) (string, error) {
	return c.single(key).DecodeString()
}

func (c *unknownKeyedContainer) DecodeFloat64(key string) (float64, error) {
	return c.single(key).DecodeFloat64()
}

func (c *unknownKeyedContainer) DecodeInt(key string) (int, error) {
	return c.single(key).DecodeInt()
}

func (c *unknownKeyedContainer) DecodeInt64(key string) (int64, error) {
	return c.single(key).DecodeInt64()
}

func (c *unknownKeyedContainer) DecodeUint64(key string) (uint64, error) {
	return c.single(key).DecodeUint64()
}

func (c *unknownKeyedContainer) DecodeTime(key string) (time.Time, error) {
	return c.single(key).DecodeTime()
}

func (c *unknownKeyedContainer) DecodeValue(string) (dynvalue.Value, error) {
	return c.raw, nil
}

func (c *unknownKeyedContainer) Decode(key string, dst Decodable) error {
	return c.single(key).Decode(dst)
}

// DecodeIfPresent decodes the raw value; only a null raw value counts as absent.
func (c *unknownKeyedContainer) DecodeIfPresent(key string, dst Decodable) (bool, error) {
	if c.raw.IsNull() {
		return false, nil
	}
	if err := c.single(key).Decode(dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *unknownKeyedContainer) NestedKeyedContainer(key string) (KeyedContainer, error) {
	return keyedFor(c.raw, c.path.AppendKey(key)), nil
}

func (c *unknownKeyedContainer) NestedUnkeyedContainer(key string) (UnkeyedContainer, error) {
	return unkeyedFor(c.raw, c.path.AppendKey(key))
}
