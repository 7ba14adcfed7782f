package bridge

import (
	"github.com/morezero/script-bridge/pkg/codec"
	"github.com/morezero/script-bridge/pkg/dynvalue"
)

// Handler binds a bridge name to its generated stub and a typed callback.
// A Handler is created by Register and owned by its Registry.
type Handler struct {
	name    string
	version string
	shape   codec.Shape
	stub    string
	// deliver decodes a payload and, on success, runs the callback.
	deliver func(payload dynvalue.Value) error
}

func (h *Handler) Name() string       { return h.name }
func (h *Handler) Version() string    { return h.version }
func (h *Handler) Shape() codec.Shape { return h.shape }
func (h *Handler) Stub() string       { return h.stub }

// Info returns a serializable description of h.
func (h *Handler) Info() HandlerInfo {
	return HandlerInfo{
		Name:    h.name,
		Version: h.version,
		Shape:   h.shape,
		Arity:   h.shape.Arity(),
		Stub:    h.stub,
	}
}

// newDeliverFunc builds the message-time path for T: decode into a fresh
// value, then hand it to callback.
func newDeliverFunc[T any, PT interface {
	*T
	codec.Decodable
}](callback func(T)) func(dynvalue.Value) error {
	return func(payload dynvalue.Value) error {
		var v T
		if err := codec.Decode(payload, PT(&v)); err != nil {
			return err
		}
		callback(v)
		return nil
	}
}
