package codec

import (
	"math"
	"strconv"
	"time"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// TimestampLayout is the fixed text form of dates decoded as strings.
// Dates are rendered in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Exclusive upper bounds; float64 represents both exactly.
const (
	twoPow63 = 9223372036854775808.0
	twoPow64 = 18446744073709551616.0
)

// maxUnixSeconds keeps time.Unix from overflowing its year-1 based clock.
const maxUnixSeconds = twoPow63 - 62135596800

func coerceBool(path Path, v dynvalue.Value) (bool, error) {
	switch v.Kind() {
	case dynvalue.KindNull:
		return false, valueNotFound(path, "bool")
	case dynvalue.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case dynvalue.KindNumber:
		n, _ := v.AsNumber()
		return n != 0, nil
	case dynvalue.KindString:
		switch s, _ := v.AsString(); s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, typeMismatch(path, "bool", v)
}

func coerceString(path Path, v dynvalue.Value) (string, error) {
	switch v.Kind() {
	case dynvalue.KindNull:
		return "", valueNotFound(path, "string")
	case dynvalue.KindString:
		s, _ := v.AsString()
		return s, nil
	case dynvalue.KindNumber:
		n, _ := v.AsNumber()
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case dynvalue.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), nil
	case dynvalue.KindDate:
		t, _ := v.AsDate()
		return t.UTC().Format(TimestampLayout), nil
	}
	return "", typeMismatch(path, "string", v)
}

// coerceNumber applies the numeric rules shared by all number targets.
func coerceNumber(path Path, v dynvalue.Value, expected string) (float64, error) {
	switch v.Kind() {
	case dynvalue.KindNull:
		return 0, valueNotFound(path, expected)
	case dynvalue.KindBool:
		if b, _ := v.AsBool(); b {
			return 1, nil
		}
		return 0, nil
	case dynvalue.KindNumber:
		n, _ := v.AsNumber()
		return n, nil
	case dynvalue.KindString:
		s, _ := v.AsString()
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, typeMismatchDetail(path, expected, v, "not a number")
		}
		return n, nil
	case dynvalue.KindDate:
		t, _ := v.AsDate()
		return float64(t.UnixNano()) / 1e9, nil
	}
	return 0, typeMismatch(path, expected, v)
}

func coerceFloat64(path Path, v dynvalue.Value) (float64, error) {
	return coerceNumber(path, v, "float64")
}

func coerceInt64(path Path, v dynvalue.Value) (int64, error) {
	n, err := coerceNumber(path, v, "int64")
	if err != nil {
		return 0, err
	}
	n = math.Trunc(n)
	if math.IsNaN(n) || n < -twoPow63 || n >= twoPow63 {
		return 0, typeMismatchDetail(path, "int64", v, "out of range")
	}
	return int64(n), nil
}

func coerceInt(path Path, v dynvalue.Value) (int, error) {
	n, err := coerceInt64(path, v)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Expected = "int"
		}
		return 0, err
	}
	if int64(int(n)) != n {
		return 0, typeMismatchDetail(path, "int", v, "out of range")
	}
	return int(n), nil
}

func coerceUint64(path Path, v dynvalue.Value) (uint64, error) {
	n, err := coerceNumber(path, v, "uint64")
	if err != nil {
		return 0, err
	}
	n = math.Trunc(n)
	if math.IsNaN(n) || n < 0 || n >= twoPow64 {
		return 0, typeMismatchDetail(path, "uint64", v, "out of range")
	}
	return uint64(n), nil
}

func coerceTime(path Path, v dynvalue.Value) (time.Time, error) {
	switch v.Kind() {
	case dynvalue.KindNull:
		return time.Time{}, valueNotFound(path, "time")
	case dynvalue.KindDate:
		t, _ := v.AsDate()
		return t, nil
	case dynvalue.KindNumber:
		n, _ := v.AsNumber()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return time.Time{}, typeMismatchDetail(path, "time", v, "out of range")
		}
		sec, frac := math.Modf(n)
		if sec < -twoPow63 || sec >= maxUnixSeconds {
			return time.Time{}, typeMismatchDetail(path, "time", v, "out of range")
		}
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case dynvalue.KindString:
		s, _ := v.AsString()
		if t, err := time.ParseInLocation(TimestampLayout, s, time.UTC); err == nil {
			return t, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
		return time.Time{}, typeMismatchDetail(path, "time", v, "unrecognized timestamp")
	}
	return time.Time{}, typeMismatch(path, "time", v)
}

// valueContainer is the single-value view; coercion happens on each Decode call.
type valueContainer struct {
	value dynvalue.Value
	path  Path
}

func (c *valueContainer) Path() Path                      { return c.path }
func (c *valueContainer) DecodeNil() bool                 { return c.value.IsNull() }
func (c *valueContainer) DecodeBool() (bool, error)       { return coerceBool(c.path, c.value) }
func (c *valueContainer) DecodeString() (string, error)   { return coerceString(c.path, c.value) }
func (c *valueContainer) DecodeFloat64() (float64, error) { return coerceFloat64(c.path, c.value) }
func (c *valueContainer) DecodeInt() (int, error)         { return coerceInt(c.path, c.value) }
func (c *valueContainer) DecodeInt64() (int64, error)     { return coerceInt64(c.path, c.value) }
func (c *valueContainer) DecodeUint64() (uint64, error)   { return coerceUint64(c.path, c.value) }
func (c *valueContainer) DecodeTime() (time.Time, error)  { return coerceTime(c.path, c.value) }

func (c *valueContainer) DecodeValue() (dynvalue.Value, error) { return c.value, nil }

func (c *valueContainer) Decode(v Decodable) error {
	return decodeNested(c.value, c.path, v)
}
