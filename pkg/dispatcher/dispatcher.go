package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/script-bridge/pkg/bridge"
	"github.com/morezero/script-bridge/pkg/manifest"
)

const logPrefix = "dispatcher:dispatch"

// Error codes produced by the dispatcher itself.
const (
	CodeMethodNotFound      = "METHOD_NOT_FOUND"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeProtocolUnsupported = "PROTOCOL_UNSUPPORTED"
	CodeInternal            = "INTERNAL_ERROR"
)

// Dispatcher routes COMMS requests to the bridge registry.
type Dispatcher struct {
	registry *bridge.Registry
	manifest *manifest.Manifest
}

// NewDispatcher creates a new Dispatcher. A nil manifest uses the default one.
func NewDispatcher(reg *bridge.Registry, m *manifest.Manifest) *Dispatcher {
	if m == nil {
		m = manifest.GetDefaultManifest()
	}
	return &Dispatcher{registry: reg, manifest: m}
}

// Dispatch routes a request to the appropriate handler and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *BridgeRequest) *BridgeResponse {
	slog.Debug(fmt.Sprintf("%s - method=%s bridge=%s id=%s", logPrefix, req.Method, req.Bridge, req.ID))

	ok, err := d.manifest.AcceptsProtocol(req.Protocol)
	if err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, fmt.Sprintf("Invalid protocol version %q", req.Protocol), false)
	}
	if !ok {
		return errorResponse(req.ID, CodeProtocolUnsupported,
			fmt.Sprintf("Protocol %s not accepted (want %s)", req.Protocol, d.manifest.Protocol), false)
	}

	switch req.Method {
	case "", MethodDeliver:
		return d.handleDeliver(ctx, req)
	case MethodDescribe:
		return &BridgeResponse{ID: req.ID, Ok: true, Result: d.registry.Describe()}
	case MethodStubs:
		return &BridgeResponse{ID: req.ID, Ok: true, Result: d.registry.UserScript()}
	case MethodHealth:
		return d.handleHealth(req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Unknown method: %s", req.Method), false)
	}
}

func (d *Dispatcher) handleDeliver(ctx context.Context, req *BridgeRequest) *BridgeResponse {
	if req.Bridge == "" {
		return errorResponse(req.ID, CodeInvalidArgument, "Missing bridge", false)
	}

	ref := d.manifest.ResolveAlias(req.Bridge)
	if err := d.registry.DeliverRef(ctx, ref, req.Payload); err != nil {
		return registryErrorToResponse(req.ID, err)
	}
	// Accepted; a payload that failed to decode was dropped, not rejected.
	return &BridgeResponse{ID: req.ID, Ok: true}
}

func (d *Dispatcher) handleHealth(req *BridgeRequest) *BridgeResponse {
	return &BridgeResponse{ID: req.ID, Ok: true, Result: HealthResult{
		Status:   "ok",
		Bridges:  len(d.registry.Names()),
		Protocol: d.manifest.Protocol,
	}}
}

// --- helpers ---

func errorResponse(id, code, message string, retryable bool) *BridgeResponse {
	return &BridgeResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func registryErrorToResponse(id string, err error) *BridgeResponse {
	var regErr *bridge.RegistryError
	if errors.As(err, &regErr) {
		return &BridgeResponse{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      regErr.Code,
				Message:   regErr.Message,
				Details:   regErr.Details,
				Retryable: regErr.Code == bridge.CodeRegistryClosed,
			},
		}
	}
	slog.Error(fmt.Sprintf("%s - unexpected error: %v", logPrefix, err))
	return errorResponse(id, CodeInternal, err.Error(), true)
}
