// Package demo registers the sample bridges the host ships with.
package demo

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/morezero/script-bridge/pkg/bridge"
	"github.com/morezero/script-bridge/pkg/codec"
	"github.com/morezero/script-bridge/pkg/manifest"
)

const logPrefix = "demo:demo"

// DefaultActivityLimit is the number of calls an ActivityLog keeps.
const DefaultActivityLimit = 100

// ShareParams is the payload of share(title, count).
type ShareParams struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func (p *ShareParams) DecodeBridge(d codec.Decoder) error {
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

// TitleParams is the payload of setTitle(title, subtitle). The subtitle may
// be null.
type TitleParams struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

func (p *TitleParams) DecodeBridge(d codec.Decoder) error {
	c, err := d.KeyedContainer()
	if err != nil {
		return err
	}
	if p.Title, err = c.DecodeString("title"); err != nil {
		return err
	}
	var sub codec.String
	ok, err := c.DecodeIfPresent("subtitle", &sub)
	if err != nil {
		return err
	}
	if ok {
		p.Subtitle = string(sub)
	}
	return nil
}

// Activity is one delivered call.
type Activity struct {
	Bridge string    `json:"bridge"`
	Value  any       `json:"value"`
	At     time.Time `json:"at"`
}

// ActivityLog keeps the most recent demo calls.
type ActivityLog struct {
	mu    sync.Mutex
	limit int
	items []Activity
}

// NewActivityLog creates a log holding at most limit calls.
func NewActivityLog(limit int) *ActivityLog {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return &ActivityLog{limit: limit}
}

func (l *ActivityLog) add(bridgeName string, v any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, Activity{Bridge: bridgeName, Value: v, At: time.Now().UTC()})
	if over := len(l.items) - l.limit; over > 0 {
		l.items = append([]Activity(nil), l.items[over:]...)
	}
}

// Recent returns the logged calls, oldest first.
func (l *ActivityLog) Recent() []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Activity, len(l.items))
	copy(out, l.items)
	return out
}

// Register adds every sample bridge the manifest enables and returns the
// registered names.
func Register(reg *bridge.Registry, m *manifest.Manifest, activity *ActivityLog) ([]string, error) {
	if m == nil {
		m = manifest.GetDefaultManifest()
	}
	if activity == nil {
		activity = NewActivityLog(0)
	}

	var names []string
	add := func(name string, register func(opts ...bridge.Option) error) error {
		if !m.Enabled(name) {
			slog.Info(fmt.Sprintf("%s - Bridge %s disabled by manifest", logPrefix, name))
			return nil
		}
		if err := register(bridge.WithVersion(m.VersionFor(name))); err != nil {
			return fmt.Errorf("%s - register %s: %w", logPrefix, name, err)
		}
		names = append(names, name)
		return nil
	}

	steps := []struct {
		name     string
		register func(opts ...bridge.Option) error
	}{
		{"share", func(opts ...bridge.Option) error {
			_, err := bridge.Register(reg, "share", func(p ShareParams) {
				slog.Info(fmt.Sprintf("%s - share title=%q count=%d", logPrefix, p.Title, p.Count))
				activity.add("share", p)
			}, opts...)
			return err
		}},
		{"log", func(opts ...bridge.Option) error {
			_, err := bridge.Register(reg, "log", func(s codec.String) {
				slog.Info(fmt.Sprintf("%s - script log: %s", logPrefix, s))
				activity.add("log", string(s))
			}, opts...)
			return err
		}},
		{"openURL", func(opts ...bridge.Option) error {
			_, err := bridge.Register(reg, "openURL", func(s codec.String) {
				slog.Info(fmt.Sprintf("%s - openURL %s", logPrefix, s))
				activity.add("openURL", string(s))
			}, opts...)
			return err
		}},
		{"setTitle", func(opts ...bridge.Option) error {
			_, err := bridge.Register(reg, "setTitle", func(p TitleParams) {
				slog.Info(fmt.Sprintf("%s - setTitle %q %q", logPrefix, p.Title, p.Subtitle))
				activity.add("setTitle", p)
			}, opts...)
			return err
		}},
		{"tags", func(opts ...bridge.Option) error {
			_, err := bridge.Register(reg, "tags", func(l codec.StringList) {
				out := make([]string, len(l))
				for i, s := range l {
					out[i] = string(s)
				}
				slog.Info(fmt.Sprintf("%s - tags %v", logPrefix, out))
				activity.add("tags", out)
			}, opts...)
			return err
		}},
	}

	for _, step := range steps {
		if err := add(step.name, step.register); err != nil {
			return names, err
		}
	}
	return names, nil
}
