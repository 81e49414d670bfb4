package version

import (
	"strings"
	"testing"
)

func TestInfoMatchesGetters(t *testing.T) {
	v, c, d := Info()
	if v == "" || c == "" || d == "" {
		t.Fatalf("build info must not be empty: %q %q %q", v, c, d)
	}
	if GetVersion() != v || GetCommit() != c || GetDate() != d {
		t.Fatalf("getters disagree with Info: %s", String())
	}
}

func TestString(t *testing.T) {
	s := String()
	for _, part := range []string{"version=", "commit=", "date="} {
		if !strings.Contains(s, part) {
			t.Errorf("String should contain %q, got %s", part, s)
		}
	}
}

func TestClientID(t *testing.T) {
	if got := ClientID("order-service"); got != "order-service-"+GetVersion() {
		t.Fatalf("unexpected client id %q", got)
	}

	prev := version
	version = "v1.2.0+dirty"
	defer func() { version = prev }()

	if got := ClientID("order service"); got != "order-service-v1.2.0-dirty" {
		t.Fatalf("client id must be sanitized, got %q", got)
	}
}
