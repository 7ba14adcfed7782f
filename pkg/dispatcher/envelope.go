// Package dispatcher routes incoming COMMS envelopes to the bridge registry.
package dispatcher

import "github.com/morezero/script-bridge/pkg/dynvalue"

// Envelope methods. An empty method means MethodDeliver.
const (
	MethodDeliver  = "deliver"
	MethodDescribe = "describe"
	MethodStubs    = "stubs"
	MethodHealth   = "health"
)

// BridgeRequest is the JSON envelope for incoming COMMS bridge requests.
type BridgeRequest struct {
	ID string `json:"id"`
	// Bridge is a bridge name or reference such as "share@^1".
	Bridge   string         `json:"bridge"`
	Protocol string         `json:"protocol,omitempty"`
	Method   string         `json:"method,omitempty"`
	Payload  dynvalue.Value `json:"payload"`
}

// BridgeResponse is the JSON envelope for COMMS bridge responses.
type BridgeResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// HealthResult is the result of the health method.
type HealthResult struct {
	Status   string `json:"status"`
	Bridges  int    `json:"bridges"`
	Protocol string `json:"protocol,omitempty"`
}
