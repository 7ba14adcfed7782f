package db

import (
	"encoding/json"
	"time"
)

// DropRecord is a row of bridge_drops.
type DropRecord struct {
	ID      string          `json:"id"`
	Bridge  string          `json:"bridge"`
	Payload json.RawMessage `json:"payload"`
	Kind    string          `json:"kind,omitempty"`
	Path    string          `json:"path,omitempty"`
	Error   string          `json:"error"`
	Created time.Time       `json:"created"`
}

// ArgumentErrorRecord is a row of bridge_argument_errors.
type ArgumentErrorRecord struct {
	ID      string    `json:"id"`
	Bridge  string    `json:"bridge,omitempty"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
}

// BridgeDropCount is the number of drops recorded for one bridge.
type BridgeDropCount struct {
	Bridge string `json:"bridge"`
	Count  int64  `json:"count"`
}
