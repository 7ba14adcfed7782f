// Package bridge binds bridge names to generated stubs and typed callbacks.
package bridge

import (
	"github.com/morezero/script-bridge/pkg/codec"
)

// Registry error codes.
const (
	CodeDuplicateName   = "DUPLICATE_NAME"
	CodeUnknownBridge   = "UNKNOWN_BRIDGE"
	CodeInvalidName     = "INVALID_NAME"
	CodeReservedName    = "RESERVED_NAME"
	CodeInvalidVersion  = "INVALID_VERSION"
	CodeVersionMismatch = "VERSION_MISMATCH"
	CodeRegistryClosed  = "REGISTRY_CLOSED"
	CodeInvalidRef      = "INVALID_REF"
	CodeInvalidArgument = "INVALID_ARGUMENT"
)

// RegistryError is a structured error from the registry. Registry errors are
// programmer errors; decode failures never surface as a RegistryError.
type RegistryError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *RegistryError) Error() string {
	return e.Code + ": " + e.Message
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(code, message string) *RegistryError {
	return &RegistryError{Code: code, Message: message}
}

// HandlerInfo describes a registered handler.
type HandlerInfo struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Shape   codec.Shape `json:"shape"`
	Arity   int         `json:"arity"`
	Stub    string      `json:"stub"`
}

// Option configures a handler at registration.
type Option func(*handlerOptions)

type handlerOptions struct {
	version string
}

// WithVersion sets the handler's SemVer version.
func WithVersion(version string) Option {
	return func(o *handlerOptions) {
		o.version = version
	}
}
