package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const logPrefix = "manifest:loader"

// Manifest file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// LoadManifest loads the manifest from file paths or environment.
// It tries paths in order: first any paths passed in, then BRIDGE_MANIFEST_FILE env, then defaults.
// Unreadable or unparsable files are skipped.
func LoadManifest(paths ...string) (*Manifest, error) {
	all := make([]string, 0, len(paths)+4)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("BRIDGE_MANIFEST_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/bridges.yaml", "bridges.yaml", "bridges.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		m, err := ParseManifest(data, FormatForPath(p))
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse manifest file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded manifest from %s", logPrefix, p))
		return MergeManifests(GetDefaultManifest(), m), nil
	}

	slog.Info(fmt.Sprintf("%s - Using default manifest", logPrefix))
	return GetDefaultManifest(), nil
}

// FormatForPath picks the manifest format from a file extension.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseManifest decodes a manifest in the given format and validates it.
func ParseManifest(data []byte, format string) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s - invalid YAML manifest: %w", logPrefix, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%s - invalid JSON manifest: %w", logPrefix, err)
		}
	default:
		return nil, fmt.Errorf("%s - unknown manifest format %q", logPrefix, format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Marshal encodes m in the given format.
func Marshal(m *Manifest, format string) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(m)
	case FormatJSON:
		return json.MarshalIndent(m, "", "  ")
	default:
		return nil, fmt.Errorf("%s - unknown manifest format %q", logPrefix, format)
	}
}

// GetDefaultManifest returns the embedded fallback manifest.
func GetDefaultManifest() *Manifest {
	return &Manifest{
		Name:        "script-bridge",
		Version:     "1.0.0",
		Description: "Default script bridge host manifest",
		Channel:     "window.bridge",
		PostMethod:  "post",
		ErrorBridge: "error",
		Protocol:    "^1.0.0",
		Bridges:     map[string]BridgeEntry{},
		Aliases:     map[string]string{},
	}
}

// MergeManifests merges an override manifest into a base manifest.
func MergeManifests(base, override *Manifest) *Manifest {
	merged := *base

	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Channel != "" {
		merged.Channel = override.Channel
	}
	if override.PostMethod != "" {
		merged.PostMethod = override.PostMethod
	}
	if override.ErrorBridge != "" {
		merged.ErrorBridge = override.ErrorBridge
	}
	if override.Protocol != "" {
		merged.Protocol = override.Protocol
	}

	merged.Bridges = make(map[string]BridgeEntry, len(base.Bridges)+len(override.Bridges))
	for name, entry := range base.Bridges {
		merged.Bridges[name] = entry
	}
	for name, entry := range override.Bridges {
		merged.Bridges[name] = entry
	}

	merged.Aliases = make(map[string]string, len(base.Aliases)+len(override.Aliases))
	for alias, target := range base.Aliases {
		merged.Aliases[alias] = target
	}
	for alias, target := range override.Aliases {
		merged.Aliases[alias] = target
	}

	return &merged
}
