package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/script-bridge/internal/config"
	"github.com/morezero/script-bridge/internal/demo"
	"github.com/morezero/script-bridge/pkg/commsutil"
	"github.com/morezero/script-bridge/pkg/dispatcher"
	"github.com/morezero/script-bridge/pkg/dynvalue"
	"github.com/morezero/script-bridge/pkg/events"
)

const integrationNatsPort = 14340

// startHost runs an in-process NATS server and a host connected to it, and
// returns a client connection for driving it.
func startHost(t *testing.T) (*Server, *comms.Conn) {
	t.Helper()
	t.Setenv("BRIDGE_MANIFEST_FILE", "")

	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   integrationNatsPort,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - create NATS server: %v", serverTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - NATS server not ready", serverTestPrefix)
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	cfg := &config.Config{
		COMMSURL:             ns.ClientURL(),
		COMMSName:            "script-bridge-test",
		SubjectPrefix:        commsutil.SubjectBridgePrefix,
		DropSubject:          commsutil.SubjectDropEvent,
		ArgumentErrorSubject: commsutil.SubjectArgumentError,
		RequestTimeout:       5 * time.Second,
		HealthCheckTimeout:   5 * time.Second,
	}
	s, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("%s - start host: %v", serverTestPrefix, err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("%s - client connect: %v", serverTestPrefix, err)
	}
	t.Cleanup(nc.Close)
	return s, nc
}

func decodeResponse(t *testing.T, msg *comms.Msg) dispatcher.BridgeResponse {
	t.Helper()
	var resp dispatcher.BridgeResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("%s - decode response: %v", serverTestPrefix, err)
	}
	return resp
}

func TestIntegration_BridgeSubjectJSON(t *testing.T) {
	s, nc := startHost(t)

	msg, err := nc.Request("bridge.in.share", []byte(`{"title":"Hello","count":3}`), 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", serverTestPrefix, err)
	}
	if resp := decodeResponse(t, msg); !resp.Ok {
		t.Fatalf("%s - response not ok: %+v", serverTestPrefix, resp.Error)
	}

	recent := s.Activity().Recent()
	if len(recent) != 1 || recent[0].Value != (demo.ShareParams{Title: "Hello", Count: 3}) {
		t.Errorf("%s - activity = %+v", serverTestPrefix, recent)
	}
}

func TestIntegration_BridgeSubjectCBOR(t *testing.T) {
	s, nc := startHost(t)

	data, err := dynvalue.List(dynvalue.String("a"), dynvalue.String("b")).MarshalCBOR()
	if err != nil {
		t.Fatalf("%s - encode cbor: %v", serverTestPrefix, err)
	}
	req := comms.NewMsg("bridge.in.tags")
	req.Header.Set(commsutil.HeaderContentType, commsutil.ContentTypeCBOR)
	req.Data = data

	msg, err := nc.RequestMsg(req, 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", serverTestPrefix, err)
	}
	if resp := decodeResponse(t, msg); !resp.Ok {
		t.Fatalf("%s - response not ok: %+v", serverTestPrefix, resp.Error)
	}

	recent := s.Activity().Recent()
	if len(recent) != 1 {
		t.Fatalf("%s - activity = %+v", serverTestPrefix, recent)
	}
	if tags, ok := recent[0].Value.([]string); !ok || strings.Join(tags, ",") != "a,b" {
		t.Errorf("%s - tags = %+v", serverTestPrefix, recent[0].Value)
	}
}

func TestIntegration_StubsSubject(t *testing.T) {
	s, nc := startHost(t)

	msg, err := nc.Request("bridge.in.stubs", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", serverTestPrefix, err)
	}
	if string(msg.Data) != s.Registry().UserScript() {
		t.Errorf("%s - stubs reply differs from the user script", serverTestPrefix)
	}
	if ct := msg.Header.Get(commsutil.HeaderContentType); ct != ContentTypeJavaScript {
		t.Errorf("%s - Content-Type = %q", serverTestPrefix, ct)
	}
}

func TestIntegration_Envelope(t *testing.T) {
	_, nc := startHost(t)

	tests := []struct {
		name     string
		body     string
		wantOk   bool
		wantCode string
	}{
		{"deliver by ref", `{"id":"1","bridge":"share@^1","payload":{"title":"x","count":1}}`, true, ""},
		{"unknown bridge", `{"id":"2","bridge":"nope","payload":null}`, false, "UNKNOWN_BRIDGE"},
		{"version mismatch", `{"id":"3","bridge":"share@2","payload":{}}`, false, "VERSION_MISMATCH"},
		{"unsupported protocol", `{"id":"4","bridge":"share","protocol":"2.0.0","payload":{}}`, false, dispatcher.CodeProtocolUnsupported},
		{"malformed", `{not json`, false, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := nc.Request("bridge.in", []byte(tt.body), 5*time.Second)
			if err != nil {
				t.Fatalf("%s - request: %v", serverTestPrefix, err)
			}
			resp := decodeResponse(t, msg)
			if resp.Ok != tt.wantOk {
				t.Fatalf("%s - ok = %v, want %v (%+v)", serverTestPrefix, resp.Ok, tt.wantOk, resp.Error)
			}
			if !tt.wantOk && resp.Error.Code != tt.wantCode {
				t.Errorf("%s - code = %s, want %s", serverTestPrefix, resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestIntegration_DecodeFailurePublishesDrop(t *testing.T) {
	s, nc := startHost(t)

	sub, err := nc.SubscribeSync("bridge.dropped.share")
	if err != nil {
		t.Fatalf("%s - subscribe: %v", serverTestPrefix, err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", serverTestPrefix, err)
	}

	msg, err := nc.Request("bridge.in.share", []byte(`{"title":"Hello"}`), 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", serverTestPrefix, err)
	}
	if resp := decodeResponse(t, msg); !resp.Ok {
		t.Errorf("%s - a dropped payload is still accepted: %+v", serverTestPrefix, resp.Error)
	}

	dropMsg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("%s - no drop event: %v", serverTestPrefix, err)
	}
	var ev events.DropEvent
	if err := json.Unmarshal(dropMsg.Data, &ev); err != nil {
		t.Fatalf("%s - decode drop event: %v", serverTestPrefix, err)
	}
	if ev.Bridge != "share" || ev.Kind != "key_not_found" || !strings.Contains(ev.Error, "count") {
		t.Errorf("%s - drop event = %+v", serverTestPrefix, ev)
	}
	if len(s.Activity().Recent()) != 0 {
		t.Errorf("%s - callback ran for a dropped payload", serverTestPrefix)
	}
}

func TestIntegration_ArgumentErrorEvent(t *testing.T) {
	_, nc := startHost(t)

	sub, err := nc.SubscribeSync(commsutil.SubjectArgumentError)
	if err != nil {
		t.Fatalf("%s - subscribe: %v", serverTestPrefix, err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", serverTestPrefix, err)
	}

	if err := nc.Publish("bridge.in.error", []byte(`"share argument error"`)); err != nil {
		t.Fatalf("%s - publish: %v", serverTestPrefix, err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("%s - no argument error event: %v", serverTestPrefix, err)
	}
	var ev events.ArgumentErrorEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatalf("%s - decode event: %v", serverTestPrefix, err)
	}
	if ev.Bridge != "share" {
		t.Errorf("%s - event bridge = %q, want share", serverTestPrefix, ev.Bridge)
	}
}

func TestIntegration_HealthAndShutdown(t *testing.T) {
	s, _ := startHost(t)

	h := s.health(context.Background())
	if h.Status != "healthy" || !h.Checks.Comms || h.Bridges != 5 {
		t.Errorf("%s - health = %+v", serverTestPrefix, h)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("%s - shutdown: %v", serverTestPrefix, err)
	}
}
