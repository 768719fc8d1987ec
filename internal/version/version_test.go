package version

import (
	"strings"
	"testing"
)

func TestFull(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "dev"
	if got := Full(); got != "shopctl version dev (built from source)" {
		t.Errorf("Full() = %q", got)
	}

	Version = "1.2.3"
	if got := Full(); got != "shopctl version 1.2.3" {
		t.Errorf("Full() = %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	if !strings.HasPrefix(UserAgent(), "shopctl/") {
		t.Errorf("UserAgent() = %q, want shopctl/ prefix", UserAgent())
	}
}
