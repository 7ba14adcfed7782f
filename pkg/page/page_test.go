package page

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dop251/goja"

	"github.com/morezero/script-bridge/pkg/bridge"
	"github.com/morezero/script-bridge/pkg/codec"
	"github.com/morezero/script-bridge/pkg/dynvalue"
	"github.com/morezero/script-bridge/pkg/events"
)

type shareParams struct {
	Title string
	Count int
}

func (p *shareParams) DecodeBridge(d codec.Decoder) error {
	c, err := d.KeyedContainer()
	if err != nil {
		return err
	}
	if p.Title, err = c.DecodeString("title"); err != nil {
		return err
	}
	if p.Count, err = c.DecodeInt("count"); err != nil {
		return err
	}
	return nil
}

type captured struct {
	mu      sync.Mutex
	drops   []*events.DropEvent
	argErrs []*events.ArgumentErrorEvent
}

func newTestPage(t *testing.T, stub codec.StubOptions, setup func(reg *bridge.Registry)) (*Page, *captured) {
	t.Helper()
	c := &captured{}
	pub := &events.CallbackPublisher{
		OnDropped: func(_ context.Context, ev *events.DropEvent) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.drops = append(c.drops, ev)
			return nil
		},
		OnArgumentError: func(_ context.Context, ev *events.ArgumentErrorEvent) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.argErrs = append(c.argErrs, ev)
			return nil
		},
	}
	reg := bridge.NewRegistry(bridge.NewRegistryParams{
		Publisher: pub,
		Config:    bridge.Config{Stub: stub},
	})
	setup(reg)

	p := New(reg, Options{})
	if err := p.InstallStubs(); err != nil {
		t.Fatalf("page:page_test - install stubs failed: %v", err)
	}
	return p, c
}

func TestPage_ShareStubDelivers(t *testing.T) {
	var got []shareParams
	p, c := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "share", func(v shareParams) { got = append(got, v) })
	})

	if err := p.Load(context.Background(), "content.js", `share("Hello", 3)`); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}

	if len(got) != 1 || got[0] != (shareParams{Title: "Hello", Count: 3}) {
		t.Errorf("page:page_test - callback got %+v", got)
	}
	if len(c.drops) != 0 || len(c.argErrs) != 0 {
		t.Errorf("page:page_test - unexpected events: drops=%d argErrs=%d", len(c.drops), len(c.argErrs))
	}
}

func TestPage_WrongArityReachesErrorBridge(t *testing.T) {
	called := false
	p, c := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "share", func(shareParams) { called = true })
	})

	if err := p.Load(context.Background(), "content.js", `share("only title")`); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}

	if called {
		t.Error("page:page_test - callback must not run on arity mismatch")
	}
	if len(c.argErrs) != 1 {
		t.Fatalf("page:page_test - argument errors = %d, want 1", len(c.argErrs))
	}
	if c.argErrs[0].Bridge != "share" || c.argErrs[0].Message != "share argument error" {
		t.Errorf("page:page_test - argument error = %+v", c.argErrs[0])
	}
}

func TestPage_ScalarAndListBridges(t *testing.T) {
	var logged []string
	var tags [][]string
	p, _ := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "log", func(s codec.String) { logged = append(logged, string(s)) })
		bridge.MustRegister(reg, "tags", func(l codec.StringList) {
			out := make([]string, len(l))
			for i, s := range l {
				out[i] = string(s)
			}
			tags = append(tags, out)
		})
	})

	src := `log("hi"); log(42); tags(["a", "b", 7])`
	if err := p.Load(context.Background(), "content.js", src); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}

	if strings.Join(logged, ",") != "hi,42" {
		t.Errorf("page:page_test - logged = %v", logged)
	}
	if len(tags) != 1 || strings.Join(tags[0], ",") != "a,b,7" {
		t.Errorf("page:page_test - tags = %v", tags)
	}
}

func TestPage_DecodeFailureIsDropped(t *testing.T) {
	called := false
	p, c := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "share", func(shareParams) { called = true })
	})

	if err := p.Load(context.Background(), "content.js", `share(null, 1)`); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}
	if called {
		t.Error("page:page_test - callback must not run on decode failure")
	}
	if len(c.drops) != 1 || c.drops[0].Path != "title" {
		t.Errorf("page:page_test - drops = %+v", c.drops)
	}
}

func TestPage_CustomChannel(t *testing.T) {
	var got []string
	p, c := newTestPage(t, codec.StubOptions{
		Channel:     "window.webkit.messageHandlers",
		PostMethod:  "postMessage",
		ErrorBridge: "bridgeError",
	}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "openURL", func(s codec.String) { got = append(got, string(s)) })
	})

	src := `openURL("https://example.com"); openURL(); window.webkit.messageHandlers.openURL.postMessage("direct")`
	if err := p.Load(context.Background(), "content.js", src); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}

	if strings.Join(got, " ") != "https://example.com direct" {
		t.Errorf("page:page_test - got %v", got)
	}
	if len(c.argErrs) != 1 || c.argErrs[0].Bridge != "openURL" {
		t.Errorf("page:page_test - argument errors = %+v", c.argErrs)
	}
}

func TestPage_ObjectKeyOrderAndDates(t *testing.T) {
	var got []dynvalue.Value
	p, _ := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "raw", func(r codec.Raw) { got = append(got, r.Value) })
	})

	src := `raw({z: 1, a: [true, "x"], when: new Date(Date.UTC(2024, 0, 2, 3, 4, 5))})`
	if err := p.Load(context.Background(), "content.js", src); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("page:page_test - deliveries = %d, want 1", len(got))
	}

	fields, ok := got[0].AsFields()
	if !ok {
		t.Fatalf("page:page_test - payload kind = %s, want fields", got[0].Kind())
	}
	if strings.Join(fields.Keys(), ",") != "z,a,when" {
		t.Errorf("page:page_test - keys = %v", fields.Keys())
	}
	when, _ := fields.Get("when")
	d, ok := when.AsDate()
	if !ok || !d.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("page:page_test - when = %s", when)
	}
	list, _ := fields.Get("a")
	if !list.Equal(dynvalue.List(dynvalue.Bool(true), dynvalue.String("x"))) {
		t.Errorf("page:page_test - a = %s", list)
	}
}

func TestPage_FunctionsCannotBePosted(t *testing.T) {
	p, _ := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "raw", func(codec.Raw) {})
	})

	err := p.Load(context.Background(), "content.js", `raw(function () {})`)
	if err == nil {
		t.Fatal("page:page_test - expected error posting a function")
	}
	if !strings.Contains(err.Error(), "functions cannot be posted") {
		t.Errorf("page:page_test - error = %v", err)
	}
}

func TestPage_UnknownBridgeThrows(t *testing.T) {
	var reg *bridge.Registry
	p, _ := newTestPage(t, codec.StubOptions{}, func(r *bridge.Registry) {
		bridge.MustRegister(r, "share", func(shareParams) {})
		reg = r
	})
	// The poster installed for share outlives its handler.
	if !reg.Unregister("share") {
		t.Fatal("page:page_test - unregister share failed")
	}

	err := p.Load(context.Background(), "content.js", `window.bridge.share.post({title: "x", count: 1})`)
	if err == nil || !strings.Contains(err.Error(), "UNKNOWN_BRIDGE") {
		t.Errorf("page:page_test - error = %v, want UNKNOWN_BRIDGE", err)
	}
}

func TestPage_LoadBeforeInstall(t *testing.T) {
	reg := bridge.NewRegistry(bridge.NewRegistryParams{})
	p := New(reg, Options{})

	if err := p.Load(context.Background(), "content.js", `1`); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("page:page_test - error = %v, want ErrNotInstalled", err)
	}
	if _, err := p.Call(context.Background(), "f"); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("page:page_test - error = %v, want ErrNotInstalled", err)
	}
}

func TestPage_CancelInterruptsScript(t *testing.T) {
	p, _ := newTestPage(t, codec.StubOptions{}, func(*bridge.Registry) {})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Load(ctx, "spin.js", `for (;;) {}`); err == nil {
		t.Fatal("page:page_test - expected interrupted script to fail")
	}

	if err := p.Load(context.Background(), "after.js", `var ok = 1`); err != nil {
		t.Errorf("page:page_test - load after interrupt failed: %v", err)
	}
}

func TestPage_Call(t *testing.T) {
	p, _ := newTestPage(t, codec.StubOptions{}, func(*bridge.Registry) {})

	if err := p.Load(context.Background(), "content.js", `function add(a, b) { return {sum: a + b} }`); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}

	res, err := p.Call(context.Background(), "add", dynvalue.Number(2), dynvalue.Number(5))
	if err != nil {
		t.Fatalf("page:page_test - call failed: %v", err)
	}
	if !res.Equal(dynvalue.Object(dynvalue.F("sum", dynvalue.Number(7)))) {
		t.Errorf("page:page_test - result = %s", res)
	}

	if _, err := p.Call(context.Background(), "missing"); err == nil {
		t.Error("page:page_test - expected error calling a missing function")
	}
}

func TestPage_HugeSparseArrayRejected(t *testing.T) {
	var got []dynvalue.Value
	p, _ := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "raw", func(r codec.Raw) { got = append(got, r.Value) })
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Load(ctx, "content.js", `var a = []; a.length = 1e9; raw(a)`)
	if err == nil || !strings.Contains(err.Error(), "more than 100000 items") {
		t.Fatalf("page:page_test - error = %v, want item limit", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("page:page_test - rejecting took %s", elapsed)
	}
	if len(got) != 0 {
		t.Errorf("page:page_test - deliveries = %d, want 0", len(got))
	}
}

func TestPage_ItemBudgetSharedAcrossNesting(t *testing.T) {
	p, _ := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "raw", func(codec.Raw) {})
	})

	src := `var a = []; for (var i = 0; i < 1000; i++) a.push(i);
var b = []; for (var j = 0; j < 1000; j++) b.push(a);
raw(b)`
	err := p.Load(context.Background(), "content.js", src)
	if err == nil || !strings.Contains(err.Error(), "items") {
		t.Errorf("page:page_test - error = %v, want item limit", err)
	}
}

func TestPage_MaxItemsOption(t *testing.T) {
	var got int
	reg := bridge.NewRegistry(bridge.NewRegistryParams{})
	bridge.MustRegister(reg, "raw", func(codec.Raw) { got++ })
	p := New(reg, Options{MaxItems: 3})
	if err := p.InstallStubs(); err != nil {
		t.Fatalf("page:page_test - install stubs failed: %v", err)
	}

	if err := p.Load(context.Background(), "ok.js", `raw([1, 2, 3])`); err != nil {
		t.Fatalf("page:page_test - three items rejected: %v", err)
	}
	if err := p.Load(context.Background(), "over.js", `raw({a: 1, b: [2, 3]})`); err == nil {
		t.Error("page:page_test - four items accepted with MaxItems 3")
	}
	if got != 1 {
		t.Errorf("page:page_test - deliveries = %d, want 1", got)
	}
}

func TestToDynamic_StopsOnCancelledContext(t *testing.T) {
	vm := goja.New()
	v, err := vm.RunString(`var a = []; for (var i = 0; i < 5000; i++) a.push(i); a`)
	if err != nil {
		t.Fatalf("page:convert_test - build array: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := toDynamic(ctx, v, DefaultMaxDepth, DefaultMaxItems); !errors.Is(err, context.Canceled) {
		t.Errorf("page:convert_test - error = %v, want context.Canceled", err)
	}

	out, err := toDynamic(context.Background(), v, DefaultMaxDepth, DefaultMaxItems)
	if err != nil || out.Len() != 5000 {
		t.Errorf("page:convert_test - export = %d items, %v", out.Len(), err)
	}
}

type protoParams struct {
	Proto string
	Name  string
}

func (p *protoParams) DecodeBridge(d codec.Decoder) error {
	c, err := d.KeyedContainer()
	if err != nil {
		return err
	}
	if p.Proto, err = c.DecodeString("__proto__"); err != nil {
		return err
	}
	if p.Name, err = c.DecodeString("name"); err != nil {
		return err
	}
	return nil
}

func TestPage_ProtoFieldSurvivesStub(t *testing.T) {
	var got []protoParams
	p, c := newTestPage(t, codec.StubOptions{}, func(reg *bridge.Registry) {
		bridge.MustRegister(reg, "meta", func(v protoParams) { got = append(got, v) })
	})

	if err := p.Load(context.Background(), "content.js", `meta("base", "n")`); err != nil {
		t.Fatalf("page:page_test - load failed: %v", err)
	}
	if len(c.drops) != 0 {
		t.Fatalf("page:page_test - drops = %+v", c.drops)
	}
	if len(got) != 1 || got[0] != (protoParams{Proto: "base", Name: "n"}) {
		t.Errorf("page:page_test - got %+v", got)
	}
}
