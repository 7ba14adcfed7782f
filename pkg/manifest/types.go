// Package manifest loads the host manifest: stub channel settings, the
// accepted envelope protocol, and per-bridge versions and switches.
package manifest

import (
	"github.com/morezero/script-bridge/pkg/codec"
	"github.com/morezero/script-bridge/pkg/semver"
)

// BridgeEntry configures one bridge in the manifest.
type BridgeEntry struct {
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Disabled    bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Manifest is the root host manifest.
type Manifest struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Channel, PostMethod and ErrorBridge shape the generated stubs.
	Channel     string `json:"channel,omitempty" yaml:"channel,omitempty"`
	PostMethod  string `json:"postMethod,omitempty" yaml:"postMethod,omitempty"`
	ErrorBridge string `json:"errorBridge,omitempty" yaml:"errorBridge,omitempty"`
	// Protocol is the SemVer range of envelope protocols the host accepts.
	Protocol string                 `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Bridges  map[string]BridgeEntry `json:"bridges" yaml:"bridges"`
	// Aliases maps alternative names to bridge names for envelope routing.
	Aliases map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// StubOptions returns the stub settings with defaults filled in.
func (m *Manifest) StubOptions() codec.StubOptions {
	opts := codec.DefaultStubOptions()
	if m.Channel != "" {
		opts.Channel = m.Channel
	}
	if m.PostMethod != "" {
		opts.PostMethod = m.PostMethod
	}
	if m.ErrorBridge != "" {
		opts.ErrorBridge = m.ErrorBridge
	}
	return opts
}

// Enabled reports whether the named bridge should be registered. Bridges
// missing from the manifest are enabled.
func (m *Manifest) Enabled(name string) bool {
	entry, ok := m.Bridges[name]
	return !ok || !entry.Disabled
}

// VersionFor returns the configured version for name, or the default.
func (m *Manifest) VersionFor(name string) string {
	if entry, ok := m.Bridges[name]; ok && entry.Version != "" {
		return entry.Version
	}
	return semver.DefaultVersion
}

// ResolveAlias resolves an alias to its bridge name.
func (m *Manifest) ResolveAlias(name string) string {
	if resolved, ok := m.Aliases[name]; ok {
		return resolved
	}
	return name
}

// AcceptsProtocol reports whether an envelope protocol version is accepted.
// An empty protocol is accepted as the manifest's own version.
func (m *Manifest) AcceptsProtocol(protocol string) (bool, error) {
	if protocol == "" {
		return true, nil
	}
	return semver.Satisfies(protocol, m.Protocol)
}
