package dynvalue

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const cborLogPrefix = "dynvalue:cbor"

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
		TimeTag:       cbor.EncTagRequired,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("%s - failed to create CBOR encoder mode: %v", cborLogPrefix, err))
	}

	// Lenient for payloads produced by other runtimes: last duplicate key wins.
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	cborDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("%s - failed to create CBOR decoder mode: %v", cborLogPrefix, err))
	}
}

// ParseCBOR decodes one CBOR data item. Map keys must be text strings; since
// CBOR maps decode through Go maps, keys come back sorted. Time tags become
// Date values.
func ParseCBOR(data []byte) (Value, error) {
	var raw any
	if err := cborDecMode.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("%s - invalid CBOR payload: %w", cborLogPrefix, err)
	}
	return FromNative(raw)
}

// MarshalCBOR encodes v with canonical key ordering.
func (v Value) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(v.Native())
}
