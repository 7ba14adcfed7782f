package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// startTestServer starts an in-process NATS server for testing.
func startTestServer(t *testing.T, port int) (*comms.Conn, func()) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to create server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("events:comms_publisher_integration_test - server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("events:comms_publisher_integration_test - failed to connect: %v", err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return nc, cleanup
}

func TestCommsPublisher_PublishDropped_BothSubjects(t *testing.T) {
	nc, cleanup := startTestServer(t, 14330)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)

	granular := make(chan *DropEvent, 1)
	global := make(chan *DropEvent, 1)

	sub1, err := nc.Subscribe("bridge.dropped.share", func(msg *comms.Msg) {
		var event DropEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Errorf("events:comms_publisher_integration_test - failed to unmarshal: %v", err)
			return
		}
		granular <- &event
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - subscribe granular failed: %v", err)
	}
	defer sub1.Unsubscribe()

	sub2, err := nc.Subscribe("bridge.dropped", func(msg *comms.Msg) {
		var event DropEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		global <- &event
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - subscribe global failed: %v", err)
	}
	defer sub2.Unsubscribe()

	payload := dynvalue.Object(dynvalue.F("title", dynvalue.Number(1)))
	event := NewDropEvent("share", payload, errors.New("type_mismatch at title"))
	event.Kind = "type_mismatch"
	event.Path = "title"

	if err := publisher.PublishDropped(context.Background(), event); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - PublishDropped failed: %v", err)
	}
	nc.Flush()

	for _, ch := range []struct {
		name string
		ch   chan *DropEvent
	}{
		{"granular", granular},
		{"global", global},
	} {
		select {
		case got := <-ch.ch:
			if got.ID != event.ID {
				t.Errorf("events:comms_publisher_integration_test - %s ID = %q, want %q", ch.name, got.ID, event.ID)
			}
			if got.Bridge != "share" {
				t.Errorf("events:comms_publisher_integration_test - %s Bridge = %q", ch.name, got.Bridge)
			}
			if got.Kind != "type_mismatch" || got.Path != "title" {
				t.Errorf("events:comms_publisher_integration_test - %s Kind/Path = %q/%q", ch.name, got.Kind, got.Path)
			}
			if !got.Payload.Equal(payload) {
				t.Errorf("events:comms_publisher_integration_test - %s Payload = %s", ch.name, got.Payload)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("events:comms_publisher_integration_test - timeout waiting for %s event", ch.name)
		}
	}
}

func TestCommsPublisher_PublishArgumentError(t *testing.T) {
	nc, cleanup := startTestServer(t, 14331)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)

	received := make(chan *ArgumentErrorEvent, 1)
	sub, err := nc.Subscribe("bridge.argerror", func(msg *comms.Msg) {
		var event ArgumentErrorEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	event := NewArgumentErrorEvent("share", "share argument error")
	if err := publisher.PublishArgumentError(context.Background(), event); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - PublishArgumentError failed: %v", err)
	}
	nc.Flush()

	select {
	case got := <-received:
		if got.Message != "share argument error" {
			t.Errorf("events:comms_publisher_integration_test - Message = %q", got.Message)
		}
		if got.Bridge != "share" {
			t.Errorf("events:comms_publisher_integration_test - Bridge = %q", got.Bridge)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events:comms_publisher_integration_test - timeout waiting for event")
	}
}

func TestCommsPublisher_CustomSubjects(t *testing.T) {
	nc, cleanup := startTestServer(t, 14332)
	defer cleanup()

	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{
		DropSubject:          "audit.drops",
		ArgumentErrorSubject: "audit.argerror",
	})
	if publisher.dropSubject != "audit.drops" {
		t.Errorf("events:comms_publisher_integration_test - dropSubject = %q", publisher.dropSubject)
	}

	received := make(chan struct{}, 1)
	sub, err := nc.Subscribe("audit.drops.share", func(*comms.Msg) {
		received <- struct{}{}
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := publisher.PublishDropped(context.Background(), NewDropEvent("share", dynvalue.Null(), nil)); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - PublishDropped failed: %v", err)
	}
	nc.Flush()

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("events:comms_publisher_integration_test - timeout waiting for custom subject event")
	}
}

func TestNewCommsPublisher_Defaults(t *testing.T) {
	nc, cleanup := startTestServer(t, 14333)
	defer cleanup()

	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{})
	if publisher.dropSubject != "bridge.dropped" {
		t.Errorf("events:comms_publisher_integration_test - dropSubject = %q, want %q", publisher.dropSubject, "bridge.dropped")
	}
	if publisher.argumentErrorSubject != "bridge.argerror" {
		t.Errorf("events:comms_publisher_integration_test - argumentErrorSubject = %q", publisher.argumentErrorSubject)
	}
}
