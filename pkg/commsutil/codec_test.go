package commsutil

import (
	"testing"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

func TestEncodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{
			name:  "simple map",
			input: map[string]string{"bridge": "share"},
			want:  `{"bridge":"share"}`,
		},
		{
			name:  "dynamic value keeps key order",
			input: dynvalue.Object(dynvalue.F("title", dynvalue.String("Hi")), dynvalue.F("count", dynvalue.Number(3))),
			want:  `{"title":"Hi","count":3}`,
		},
		{
			name:  "nil",
			input: nil,
			want:  "null",
		},
		{
			name:    "channel is not serializable",
			input:   make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodePayload(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatal("commsutil:codec_test - expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}

			got := string(data)
			if got != tt.want {
				t.Errorf("commsutil:codec_test - EncodePayload() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	var target map[string]string
	if err := DecodePayload([]byte(`{"key":"value"}`), &target); err != nil {
		t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
	}
	if target["key"] != "value" {
		t.Errorf("commsutil:codec_test - expected key=value, got %s", target["key"])
	}

	if err := DecodePayload([]byte(`{invalid}`), &target); err == nil {
		t.Fatal("commsutil:codec_test - expected error but got nil")
	}
}

func TestDecodeValue(t *testing.T) {
	want := dynvalue.Object(dynvalue.F("title", dynvalue.String("Hello")), dynvalue.F("count", dynvalue.Number(3)))

	got, err := DecodeValue([]byte(`{"title":"Hello","count":3}`), ContentTypeJSON)
	if err != nil {
		t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("commsutil:codec_test - json: got %s, want %s", got, want)
	}

	data, err := EncodeValue(want, ContentTypeCBOR)
	if err != nil {
		t.Fatalf("commsutil:codec_test - cbor encode failed: %v", err)
	}
	got, err = DecodeValue(data, "application/cbor; charset=binary")
	if err != nil {
		t.Fatalf("commsutil:codec_test - cbor decode failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("commsutil:codec_test - cbor: got %s, want %s", got, want)
	}
}

func TestDecodeValue_EmptyAndUnsupported(t *testing.T) {
	got, err := DecodeValue(nil, ContentTypeJSON)
	if err != nil || !got.IsNull() {
		t.Errorf("commsutil:codec_test - empty body: got (%s, %v), want null", got, err)
	}

	if _, err := DecodeValue([]byte("x"), "text/plain"); err == nil {
		t.Error("commsutil:codec_test - expected error for text/plain")
	}
	if _, err := EncodeValue(dynvalue.Null(), "text/plain"); err == nil {
		t.Error("commsutil:codec_test - expected error for text/plain")
	}
	if _, err := DecodeValue([]byte(`{"a":1} 2`), ""); err == nil {
		t.Error("commsutil:codec_test - expected error for trailing data")
	}
}

func TestContentTypeOf(t *testing.T) {
	if got := ContentTypeOf(&comms.Msg{}); got != ContentTypeJSON {
		t.Errorf("commsutil:codec_test - no header: got %q", got)
	}

	msg := comms.NewMsg("bridge.in.share")
	msg.Header.Set(HeaderContentType, ContentTypeCBOR)
	if got := ContentTypeOf(msg); got != ContentTypeCBOR {
		t.Errorf("commsutil:codec_test - got %q, want %q", got, ContentTypeCBOR)
	}
}
