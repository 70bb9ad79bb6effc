package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	got := String()
	if !strings.Contains(got, "v1.2.3") || !strings.Contains(got, GitSHA) {
		t.Errorf("String() = %q", got)
	}
}
