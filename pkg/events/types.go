// Package events defines event types and publisher interfaces for bridge delivery events.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// DropEvent is emitted when a payload could not be decoded for its bridge
// and was discarded.
type DropEvent struct {
	ID        string         `json:"id"`
	Bridge    string         `json:"bridge"`
	Payload   dynvalue.Value `json:"payload"`
	Kind      string         `json:"kind,omitempty"`
	Path      string         `json:"path,omitempty"`
	Error     string         `json:"error"`
	Timestamp string         `json:"timestamp"`
}

// ArgumentErrorEvent is emitted when a stub was called with the wrong number
// of arguments and reported through the error bridge.
type ArgumentErrorEvent struct {
	ID        string `json:"id"`
	Bridge    string `json:"bridge,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NewDropEvent builds a DropEvent with a fresh ID and the current time.
func NewDropEvent(bridge string, payload dynvalue.Value, err error) *DropEvent {
	ev := &DropEvent{
		ID:        uuid.NewString(),
		Bridge:    bridge,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	return ev
}

// NewArgumentErrorEvent builds an ArgumentErrorEvent with a fresh ID and the
// current time.
func NewArgumentErrorEvent(bridge, message string) *ArgumentErrorEvent {
	return &ArgumentErrorEvent{
		ID:        uuid.NewString(),
		Bridge:    bridge,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
