package commsutil

import (
	"encoding/json"
	"fmt"
	"strings"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

const codecLogPrefix = "commsutil:codec"

// Payload content types and the header that selects between them.
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
	ContentTypeCBOR   = "application/cbor"
)

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// ContentTypeOf returns the message's content type, defaulting to JSON.
func ContentTypeOf(msg *comms.Msg) string {
	if msg == nil || msg.Header == nil {
		return ContentTypeJSON
	}
	if ct := msg.Header.Get(HeaderContentType); ct != "" {
		return ct
	}
	return ContentTypeJSON
}

// DecodeValue parses data as a dynamic value according to contentType.
// Parameters after ';' are ignored. An empty body decodes as null.
func DecodeValue(data []byte, contentType string) (dynvalue.Value, error) {
	if len(data) == 0 {
		return dynvalue.Null(), nil
	}

	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "", ContentTypeJSON:
		return dynvalue.ParseJSON(data)
	case ContentTypeCBOR:
		return dynvalue.ParseCBOR(data)
	default:
		return dynvalue.Null(), fmt.Errorf("%s - unsupported content type %q", codecLogPrefix, contentType)
	}
}

// EncodeValue serializes a dynamic value according to contentType.
func EncodeValue(v dynvalue.Value, contentType string) ([]byte, error) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "", ContentTypeJSON:
		return v.MarshalJSON()
	case ContentTypeCBOR:
		return v.MarshalCBOR()
	default:
		return nil, fmt.Errorf("%s - unsupported content type %q", codecLogPrefix, contentType)
	}
}

// DecodeMsg decodes a message body using its Content-Type header.
func DecodeMsg(msg *comms.Msg) (dynvalue.Value, error) {
	return DecodeValue(msg.Data, ContentTypeOf(msg))
}
