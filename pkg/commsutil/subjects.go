package commsutil

import (
	"strings"
)

// Default COMMS subjects.
const (
	SubjectBridgePrefix  = "bridge.in"
	SubjectDropEvent     = "bridge.dropped"
	SubjectArgumentError = "bridge.argerror"
	stubsToken           = "stubs"
)

// BuildBridgeSubject builds the inbound subject for one bridge.
func BuildBridgeSubject(prefix, bridge string) string {
	return join(prefix, SubjectBridgePrefix) + "." + bridge
}

// BuildStubsSubject builds the request subject answered with the user script.
func BuildStubsSubject(prefix string) string {
	return join(prefix, SubjectBridgePrefix) + "." + stubsToken
}

// BuildWildcardSubject builds the subscription subject covering every bridge.
func BuildWildcardSubject(prefix string) string {
	return join(prefix, SubjectBridgePrefix) + ".*"
}

// BuildDropSubject builds the granular drop event subject for a bridge.
func BuildDropSubject(base, bridge string) string {
	return join(base, SubjectDropEvent) + "." + bridge
}

// BridgeFromSubject extracts the bridge name from an inbound subject.
// It reports false for subjects outside prefix and for the stubs subject.
func BridgeFromSubject(prefix, subject string) (string, bool) {
	rest, ok := strings.CutPrefix(subject, join(prefix, SubjectBridgePrefix)+".")
	if !ok || rest == "" || rest == stubsToken || strings.Contains(rest, ".") {
		return "", false
	}
	return rest, true
}

func join(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return strings.TrimSuffix(v, ".")
}
