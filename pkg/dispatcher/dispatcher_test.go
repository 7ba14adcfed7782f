package dispatcher

import (
	"encoding/json"
	"testing"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

func TestBridgeRequest_Unmarshal(t *testing.T) {
	raw := `{
		"id": "req-1",
		"bridge": "share@^1",
		"protocol": "1.0.0",
		"payload": {"title": "Hello", "count": 3}
	}`

	var req BridgeRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if req.ID != "req-1" {
		t.Errorf("expected id req-1, got %s", req.ID)
	}
	if req.Bridge != "share@^1" {
		t.Errorf("expected bridge share@^1, got %s", req.Bridge)
	}
	if req.Method != "" {
		t.Errorf("expected empty method, got %s", req.Method)
	}

	f, ok := req.Payload.AsFields()
	if !ok {
		t.Fatalf("expected fields payload, got %s", req.Payload.Kind())
	}
	if keys := f.Keys(); len(keys) != 2 || keys[0] != "title" || keys[1] != "count" {
		t.Errorf("expected payload key order [title count], got %v", keys)
	}
}

func TestBridgeRequest_MissingPayloadIsNull(t *testing.T) {
	var req BridgeRequest
	if err := json.Unmarshal([]byte(`{"id":"x","bridge":"log"}`), &req); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if !req.Payload.IsNull() {
		t.Errorf("expected null payload, got %s", req.Payload)
	}
}

func TestBridgeResponse_Marshal(t *testing.T) {
	resp := &BridgeResponse{ID: "req-1", Ok: true}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(data) != `{"id":"req-1","ok":true}` {
		t.Errorf("unexpected encoding: %s", data)
	}
}

func TestBridgeResponse_Error(t *testing.T) {
	resp := &BridgeResponse{
		ID: "req-2",
		Ok: false,
		Error: &ErrorDetail{
			Code:      "UNKNOWN_BRIDGE",
			Message:   "no bridge registered as \"nope\"",
			Retryable: false,
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded BridgeResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if decoded.Ok {
		t.Error("expected ok=false")
	}
	if decoded.Error == nil || decoded.Error.Code != "UNKNOWN_BRIDGE" {
		t.Errorf("expected UNKNOWN_BRIDGE, got %+v", decoded.Error)
	}
}

func TestBridgeRequest_RoundTripKeepsPayload(t *testing.T) {
	req := BridgeRequest{
		ID:      "r",
		Bridge:  "tags",
		Payload: dynvalue.List(dynvalue.String("a"), dynvalue.String("b")),
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var back BridgeRequest
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if !back.Payload.Equal(req.Payload) {
		t.Errorf("payload = %s, want %s", back.Payload, req.Payload)
	}
}
