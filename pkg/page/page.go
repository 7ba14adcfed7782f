// Package page runs page scripts in an embedded goja runtime wired to a bridge
// registry. The registry's stubs are installed before any content script, and
// each bridge's poster forwards its argument to Registry.Deliver.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/morezero/script-bridge/pkg/bridge"
	"github.com/morezero/script-bridge/pkg/codec"
	"github.com/morezero/script-bridge/pkg/dynvalue"
)

const logPrefix = "page:page"

// ErrNotInstalled is returned by Load and Call before InstallStubs ran.
var ErrNotInstalled = errors.New("page: stubs not installed")

// Options configures a Page.
type Options struct {
	// MaxDepth bounds the nesting of posted values. Zero means DefaultMaxDepth.
	MaxDepth int
	// MaxItems bounds the list elements and object fields of one posted
	// value. Zero means DefaultMaxItems.
	MaxItems int
	// Console installs a console object that writes to slog.
	Console bool
}

// Page is a single script realm bound to a registry. It is not reentrant:
// a bridge callback must not call back into the same Page.
type Page struct {
	mu        sync.Mutex
	vm        *goja.Runtime
	reg       *bridge.Registry
	opts      Options
	ctx       context.Context
	installed bool
}

// New creates a Page for reg. The global object is also reachable as window.
func New(reg *bridge.Registry, opts Options) *Page {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}

	vm := goja.New()
	_ = vm.Set("window", vm.GlobalObject())

	p := &Page{
		vm:   vm,
		reg:  reg,
		opts: opts,
		ctx:  context.Background(),
	}
	if opts.Console {
		p.installConsole()
	}
	return p
}

// InstallStubs builds the channel object with one poster per registered
// bridge plus the error bridge, then evaluates the registry's user script.
// Bridges registered later need another InstallStubs.
func (p *Page) InstallStubs() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	stubOpts := p.reg.StubOptions()
	channel, err := p.channelObject(stubOpts.Channel)
	if err != nil {
		return err
	}

	names := append(p.reg.Names(), p.reg.ErrorBridge())
	for _, name := range names {
		poster := p.vm.NewObject()
		if err := poster.Set(stubOpts.PostMethod, p.postFunc(name)); err != nil {
			return fmt.Errorf("%s - install poster for %s: %w", logPrefix, name, err)
		}
		if err := channel.Set(name, poster); err != nil {
			return fmt.Errorf("%s - install poster for %s: %w", logPrefix, name, err)
		}
	}

	if _, err := p.vm.RunScript("bridge-stubs.js", p.reg.UserScript()); err != nil {
		return fmt.Errorf("%s - evaluate user script: %w", logPrefix, err)
	}
	p.installed = true

	slog.Debug(fmt.Sprintf("%s - Installed %d bridge stubs on %s", logPrefix, len(names)-1, stubOpts.Channel))
	return nil
}

// channelObject walks a dotted expression such as "window.bridge" from the
// global object, creating missing objects along the way.
func (p *Page) channelObject(expr string) (*goja.Object, error) {
	obj := p.vm.GlobalObject()
	for _, part := range strings.Split(expr, ".") {
		if !codec.IsIdentifier(part) {
			return nil, fmt.Errorf("%s - invalid channel expression %q", logPrefix, expr)
		}
		next := obj.Get(part)
		if next == nil || goja.IsUndefined(next) || goja.IsNull(next) {
			created := p.vm.NewObject()
			if err := obj.Set(part, created); err != nil {
				return nil, fmt.Errorf("%s - create %s: %w", logPrefix, part, err)
			}
			obj = created
			continue
		}
		nextObj, ok := next.(*goja.Object)
		if !ok {
			return nil, fmt.Errorf("%s - %s in %q is not an object", logPrefix, part, expr)
		}
		obj = nextObj
	}
	return obj, nil
}

func (p *Page) postFunc(name string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		payload, err := toDynamic(p.ctx, call.Argument(0), p.opts.MaxDepth, p.opts.MaxItems)
		if err != nil {
			panic(p.vm.NewTypeError(err.Error()))
		}
		if err := p.reg.Deliver(p.ctx, name, payload); err != nil {
			panic(p.vm.NewGoError(err))
		}
		return goja.Undefined()
	}
}

func (p *Page) installConsole() {
	console := p.vm.NewObject()
	logAt := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			slog.Log(p.ctx, level, fmt.Sprintf("%s - console: %s", logPrefix, strings.Join(parts, " ")))
			return goja.Undefined()
		}
	}
	_ = console.Set("log", logAt(slog.LevelInfo))
	_ = console.Set("info", logAt(slog.LevelInfo))
	_ = console.Set("debug", logAt(slog.LevelDebug))
	_ = console.Set("warn", logAt(slog.LevelWarn))
	_ = console.Set("error", logAt(slog.LevelError))
	_ = p.vm.Set("console", console)
}

// Load evaluates a content script. Cancelling ctx interrupts the script.
func (p *Page) Load(ctx context.Context, name, src string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.installed {
		return ErrNotInstalled
	}

	stop := p.watch(ctx)
	defer stop()

	if _, err := p.vm.RunScript(name, src); err != nil {
		return fmt.Errorf("%s - run %s: %w", logPrefix, name, err)
	}
	return nil
}

// Call invokes a global script function with host arguments and exports its
// result.
func (p *Page) Call(ctx context.Context, fn string, args ...dynvalue.Value) (dynvalue.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.installed {
		return dynvalue.Null(), ErrNotInstalled
	}

	callable, ok := goja.AssertFunction(p.vm.Get(fn))
	if !ok {
		return dynvalue.Null(), fmt.Errorf("%s - %s is not a function", logPrefix, fn)
	}

	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = fromDynamic(p.vm, a)
	}

	stop := p.watch(ctx)
	defer stop()

	res, err := callable(goja.Undefined(), jsArgs...)
	if err != nil {
		return dynvalue.Null(), fmt.Errorf("%s - call %s: %w", logPrefix, fn, err)
	}
	return toDynamic(ctx, res, p.opts.MaxDepth, p.opts.MaxItems)
}

// watch binds ctx to the running script until the returned func is called.
func (p *Page) watch(ctx context.Context) func() {
	p.ctx = ctx
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			p.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
		p.vm.ClearInterrupt()
		p.ctx = context.Background()
	}
}
