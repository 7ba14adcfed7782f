package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/morezero/script-bridge/pkg/codec"
	"github.com/morezero/script-bridge/pkg/dynvalue"
	"github.com/morezero/script-bridge/pkg/events"
	"github.com/morezero/script-bridge/pkg/semver"
)

const logPrefix = "bridge:registry"

// argumentErrorSuffix terminates the message generated stubs post to the
// error bridge.
const argumentErrorSuffix = " argument error"

// Config holds registry configuration.
type Config struct {
	// Stub controls the channel expression, post method and error bridge
	// name written into generated stubs.
	Stub codec.StubOptions
	// DefaultVersion is assigned to handlers registered without WithVersion.
	DefaultVersion string
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	return Config{
		Stub:           codec.DefaultStubOptions(),
		DefaultVersion: semver.DefaultVersion,
	}
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	Publisher events.EventPublisher
	Config    Config
}

// Registry maps bridge names to handlers. It is safe for concurrent use;
// callbacks run on the delivering goroutine, outside the lock.
type Registry struct {
	mu        sync.RWMutex
	handlers  map[string]*Handler
	order     []string
	publisher events.EventPublisher
	config    Config
	closed    bool
}

// NewRegistry creates a new Registry instance.
func NewRegistry(params NewRegistryParams) *Registry {
	cfg := params.Config
	if cfg.Stub.Channel == "" {
		cfg.Stub.Channel = codec.DefaultChannel
	}
	if cfg.Stub.PostMethod == "" {
		cfg.Stub.PostMethod = codec.DefaultPostMethod
	}
	if cfg.Stub.ErrorBridge == "" {
		cfg.Stub.ErrorBridge = codec.DefaultErrorBridge
	}
	if cfg.DefaultVersion == "" {
		cfg.DefaultVersion = semver.DefaultVersion
	}

	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	return &Registry{
		handlers:  make(map[string]*Handler),
		publisher: pub,
		config:    cfg,
	}
}

// StubOptions returns the stub options the registry generates with.
func (r *Registry) StubOptions() codec.StubOptions {
	return r.config.Stub
}

// ErrorBridge returns the reserved name generated stubs report arity errors to.
func (r *Registry) ErrorBridge() string {
	return r.config.Stub.ErrorBridge
}

// Register binds name to callback. The parameter type's shape is discovered
// once, here, and the stub text is generated from it.
func Register[T any, PT interface {
	*T
	codec.Decodable
}](r *Registry, name string, callback func(T), opts ...Option) (*Handler, error) {
	if callback == nil {
		return nil, NewRegistryError(CodeInvalidArgument, fmt.Sprintf("nil callback for bridge %q", name))
	}

	var probe T
	shape, err := codec.DiscoverShape(PT(&probe))
	if err != nil {
		return nil, fmt.Errorf("%s - shape discovery for %s failed: %w", logPrefix, name, err)
	}
	return r.add(name, shape, newDeliverFunc[T, PT](callback), opts)
}

// MustRegister is like Register but panics on error. Use it in static setup.
func MustRegister[T any, PT interface {
	*T
	codec.Decodable
}](r *Registry, name string, callback func(T), opts ...Option) *Handler {
	h, err := Register[T, PT](r, name, callback, opts...)
	if err != nil {
		panic(err)
	}
	return h
}

func (r *Registry) add(name string, shape codec.Shape, deliver func(dynvalue.Value) error, opts []Option) (*Handler, error) {
	o := handlerOptions{version: r.config.DefaultVersion}
	for _, opt := range opts {
		opt(&o)
	}

	if !codec.IsIdentifier(name) {
		return nil, NewRegistryError(CodeInvalidName, fmt.Sprintf("bridge name %q is not a script identifier", name))
	}
	if name == r.config.Stub.ErrorBridge {
		return nil, NewRegistryError(CodeReservedName, fmt.Sprintf("bridge name %q is reserved for argument errors", name))
	}
	if err := semver.ValidateVersion(o.version); err != nil {
		return nil, NewRegistryError(CodeInvalidVersion, err.Error())
	}

	stub, err := codec.GenerateStub(name, shape, r.config.Stub)
	if err != nil {
		return nil, NewRegistryError(CodeInvalidName, err.Error())
	}

	h := &Handler{
		name:    name,
		version: o.version,
		shape:   shape,
		stub:    stub,
		deliver: deliver,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, NewRegistryError(CodeRegistryClosed, "registry is closed")
	}
	if _, exists := r.handlers[name]; exists {
		return nil, NewRegistryError(CodeDuplicateName, fmt.Sprintf("bridge %q is already registered", name))
	}
	r.handlers[name] = h
	r.order = append(r.order, name)

	slog.Debug(fmt.Sprintf("%s - Registered bridge %s@%s shape=%s", logPrefix, name, h.version, shape))
	return h, nil
}

// Deliver decodes payload for the named bridge and runs its callback.
//
// Only registry errors are returned. A payload that fails to decode is logged,
// published as a DropEvent and dropped; Deliver then returns nil.
func (r *Registry) Deliver(ctx context.Context, name string, payload dynvalue.Value) error {
	if name == r.config.Stub.ErrorBridge {
		return r.deliverArgumentError(ctx, payload)
	}

	h, err := r.get(name)
	if err != nil {
		return err
	}
	return r.dispatch(ctx, h, payload)
}

// DeliverRef is Deliver addressed by a bridge reference such as "share@^1".
func (r *Registry) DeliverRef(ctx context.Context, ref string, payload dynvalue.Value) error {
	parsed, err := semver.ParseBridgeRef(ref)
	if err != nil {
		return NewRegistryError(CodeInvalidRef, err.Error())
	}
	if parsed.Name == r.config.Stub.ErrorBridge {
		return r.deliverArgumentError(ctx, payload)
	}

	h, err := r.get(parsed.Name)
	if err != nil {
		return err
	}

	ok, err := semver.Satisfies(h.version, parsed.Range)
	if err != nil {
		return NewRegistryError(CodeInvalidRef, err.Error())
	}
	if !ok {
		return NewRegistryError(CodeVersionMismatch,
			fmt.Sprintf("bridge %s@%s does not satisfy %q", h.name, h.version, parsed.Range))
	}
	return r.dispatch(ctx, h, payload)
}

func (r *Registry) dispatch(ctx context.Context, h *Handler, payload dynvalue.Value) error {
	err := h.deliver(payload)
	if err == nil {
		return nil
	}

	slog.Warn(fmt.Sprintf("%s - Dropped message for bridge %s: payload=%s error=%v", logPrefix, h.name, payload, err))

	ev := events.NewDropEvent(h.name, payload, err)
	var decErr *codec.DecodeError
	if errors.As(err, &decErr) {
		ev.Kind = string(decErr.Kind)
		ev.Path = decErr.Path.String()
	}
	if pubErr := r.publisher.PublishDropped(ctx, ev); pubErr != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish drop event for %s: %v", logPrefix, h.name, pubErr))
	}
	return nil
}

func (r *Registry) deliverArgumentError(ctx context.Context, payload dynvalue.Value) error {
	if r.isClosed() {
		return NewRegistryError(CodeRegistryClosed, "registry is closed")
	}

	message, ok := payload.AsString()
	if !ok {
		message = payload.String()
	}
	bridgeName := ""
	if name, found := strings.CutSuffix(message, argumentErrorSuffix); found {
		bridgeName = name
	}

	slog.Warn(fmt.Sprintf("%s - Script argument error: %s", logPrefix, message))

	ev := events.NewArgumentErrorEvent(bridgeName, message)
	if err := r.publisher.PublishArgumentError(ctx, ev); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish argument error event: %v", logPrefix, err))
	}
	return nil
}

func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Registry) get(name string) (*Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, NewRegistryError(CodeRegistryClosed, "registry is closed")
	}
	h, ok := r.handlers[name]
	if !ok {
		return nil, NewRegistryError(CodeUnknownBridge, fmt.Sprintf("no bridge registered as %q", name))
	}
	return h, nil
}

// Lookup returns the handler registered as name.
func (r *Registry) Lookup(name string) (*Handler, bool) {
	h, err := r.get(name)
	return h, err == nil
}

// Names returns the registered bridge names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Describe returns every handler's description in registration order.
func (r *Registry) Describe() []HandlerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HandlerInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handlers[name].Info())
	}
	return out
}

// UserScript joins every stub, one per line, in registration order. The page
// evaluates it before any content script.
func (r *Registry) UserScript() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder
	for _, name := range r.order {
		b.WriteString(r.handlers[name].stub)
		b.WriteByte('\n')
	}
	return b.String()
}

// Unregister removes the named handler and reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; !ok {
		return false
	}
	delete(r.handlers, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Close drops every handler. Later registrations and deliveries fail with
// REGISTRY_CLOSED.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers = make(map[string]*Handler)
	r.order = nil
	r.closed = true
}
