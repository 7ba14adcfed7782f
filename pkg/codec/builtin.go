package codec

import (
	"time"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// Ready-made Decodables for bridges that take a single scalar, a list, or a
// raw value.

// String decodes one string.
type String string

func (s *String) DecodeBridge(d Decoder) error {
	c, err := d.SingleValueContainer()
	if err != nil {
		return err
	}
	v, err := c.DecodeString()
	if err != nil {
		return err
	}
	*s = String(v)
	return nil
}

// Int decodes one integer.
type Int int

func (n *Int) DecodeBridge(d Decoder) error {
	c, err := d.SingleValueContainer()
	if err != nil {
		return err
	}
	v, err := c.DecodeInt()
	if err != nil {
		return err
	}
	*n = Int(v)
	return nil
}

// Float decodes one number.
type Float float64

func (f *Float) DecodeBridge(d Decoder) error {
	c, err := d.SingleValueContainer()
	if err != nil {
		return err
	}
	v, err := c.DecodeFloat64()
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Bool decodes one boolean.
type Bool bool

func (b *Bool) DecodeBridge(d Decoder) error {
	c, err := d.SingleValueContainer()
	if err != nil {
		return err
	}
	v, err := c.DecodeBool()
	if err != nil {
		return err
	}
	*b = Bool(v)
	return nil
}

// Time decodes one point in time.
type Time struct {
	time.Time
}

func (t *Time) DecodeBridge(d Decoder) error {
	c, err := d.SingleValueContainer()
	if err != nil {
		return err
	}
	v, err := c.DecodeTime()
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// Raw keeps the value undecoded.
type Raw struct {
	Value dynvalue.Value
}

func (r *Raw) DecodeBridge(d Decoder) error {
	c, err := d.SingleValueContainer()
	if err != nil {
		return err
	}
	v, err := c.DecodeValue()
	if err != nil {
		return err
	}
	r.Value = v
	return nil
}

// List decodes a list whose elements decode as E.
type List[E any, PE interface {
	*E
	Decodable
}] []E

func (l *List[E, PE]) DecodeBridge(d Decoder) error {
	c, err := d.UnkeyedContainer()
	if err != nil {
		return err
	}
	out := make([]E, 0, c.Count())
	for !c.IsAtEnd() {
		var e E
		if err := c.Decode(PE(&e)); err != nil {
			return err
		}
		out = append(out, e)
	}
	*l = out
	return nil
}

// Common list instantiations.
type (
	StringList = List[String, *String]
	FloatList  = List[Float, *Float]
	IntList    = List[Int, *Int]
)

// Optional decodes E, or records absence when the value is null.
type Optional[E any, PE interface {
	*E
	Decodable
}] struct {
	Value E
	Valid bool
}

func (o *Optional[E, PE]) DecodeBridge(d Decoder) error {
	c, err := d.SingleValueContainer()
	if err != nil {
		return err
	}
	if c.DecodeNil() {
		var zero E
		o.Value, o.Valid = zero, false
		return nil
	}
	if err := c.Decode(PE(&o.Value)); err != nil {
		return err
	}
	o.Valid = true
	return nil
}
