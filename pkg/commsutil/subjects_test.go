package commsutil

import "testing"

func TestBuildBridgeSubject(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		bridge string
		want   string
	}{
		{"default prefix", "", "share", "bridge.in.share"},
		{"custom prefix", "app.bridge", "openURL", "app.bridge.openURL"},
		{"trailing dot", "app.", "log", "app.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildBridgeSubject(tt.prefix, tt.bridge)
			if got != tt.want {
				t.Errorf("BuildBridgeSubject(%q, %q) = %q, want %q", tt.prefix, tt.bridge, got, tt.want)
			}
		})
	}
}

func TestBuildStubsAndWildcardSubjects(t *testing.T) {
	if got := BuildStubsSubject(""); got != "bridge.in.stubs" {
		t.Errorf("BuildStubsSubject = %q", got)
	}
	if got := BuildWildcardSubject("x"); got != "x.*" {
		t.Errorf("BuildWildcardSubject = %q", got)
	}
}

func TestBuildDropSubject(t *testing.T) {
	if got := BuildDropSubject("", "share"); got != "bridge.dropped.share" {
		t.Errorf("BuildDropSubject = %q", got)
	}
	if got := BuildDropSubject("audit.drops", "share"); got != "audit.drops.share" {
		t.Errorf("BuildDropSubject = %q", got)
	}
}

func TestBridgeFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
		wantOK  bool
	}{
		{"bridge.in.share", "share", true},
		{"bridge.in.stubs", "", false},
		{"bridge.in.", "", false},
		{"bridge.in.a.b", "", false},
		{"other.share", "", false},
	}

	for _, tt := range tests {
		got, ok := BridgeFromSubject("", tt.subject)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("BridgeFromSubject(%q) = (%q, %v), want (%q, %v)", tt.subject, got, ok, tt.want, tt.wantOK)
		}
	}
}
