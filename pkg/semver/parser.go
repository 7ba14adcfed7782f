// Package semver provides bridge reference parsing and SemVer compatibility checks.
package semver

import (
	"fmt"
	"regexp"
	"strings"
)

const logPrefix = "semver:parser"

// ParsedBridgeRef holds the parsed components of a bridge reference string.
type ParsedBridgeRef struct {
	// Bridge name (e.g., "share")
	Name string
	// Version range if specified (e.g., "^1.2.0", "1", ""); empty string means any version
	Range string
	// Raw input string
	Raw string
}

var (
	bridgeNameRegex   = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// ParseBridgeRef parses a bridge reference string.
//
// Supported formats:
//   - share            (any version)
//   - share@1          (major only)
//   - share@1.2.0      (exact version)
//   - share@^1.2.0     (caret range)
//   - share@~1.2.0     (tilde range)
//   - share@>=1.0.0    (comparison range)
func ParseBridgeRef(input string) (*ParsedBridgeRef, error) {
	raw := strings.TrimSpace(input)

	name, rangeStr, hasAt := strings.Cut(raw, "@")
	if name == "" {
		return nil, fmt.Errorf("%s - invalid bridge reference, missing name: %q", logPrefix, raw)
	}
	if !ValidateBridgeName(name) {
		return nil, fmt.Errorf("%s - invalid bridge name: %q", logPrefix, name)
	}
	if hasAt && rangeStr == "" {
		return nil, fmt.Errorf("%s - invalid bridge reference, empty version after @: %q", logPrefix, raw)
	}

	return &ParsedBridgeRef{
		Name:  name,
		Range: rangeStr,
		Raw:   raw,
	}, nil
}

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a range is an exact version (e.g., "3.2.1").
func IsExactVersion(rangeStr string) bool {
	return exactVersionRegex.MatchString(rangeStr)
}

// ExtractMajorFromRange extracts the major version if the range is major-only.
// Returns -1 if not a major-only range.
func ExtractMajorFromRange(rangeStr string) int {
	if !IsMajorOnly(rangeStr) {
		return -1
	}
	var major int
	fmt.Sscanf(rangeStr, "%d", &major)
	return major
}

// BuildBridgeRef builds a reference string from parts.
func BuildBridgeRef(name, version string) string {
	if version != "" {
		return name + "@" + version
	}
	return name
}

// ValidateBridgeName validates a bridge name (a script identifier).
func ValidateBridgeName(name string) bool {
	return bridgeNameRegex.MatchString(name)
}
