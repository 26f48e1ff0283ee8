package buildinfo

import (
	"strings"
	"testing"
)

func setBuildInfo(t *testing.T, version, commit, date string) {
	t.Helper()
	oldV, oldC, oldD := Version, Commit, Date
	Version, Commit, Date = version, commit, date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })
}

func TestString(t *testing.T) {
	setBuildInfo(t, "v1.2.0", "0123456789abcdef0123", "2026-01-02T03:04:05Z")

	want := "v1.2.0 (commit 0123456789ab, built 2026-01-02T03:04:05Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStringDefaults(t *testing.T) {
	setBuildInfo(t, "dev", "none", "unknown")

	if got, want := String(), "dev (commit none, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTemplate(t *testing.T) {
	setBuildInfo(t, "v1.2.0", "abc", "today")

	got := Template()
	for _, want := range []string{"{{.Name}} version v1.2.0", "commit: abc", "built: today"} {
		if !strings.Contains(got, want) {
			t.Errorf("Template() = %q, missing %q", got, want)
		}
	}
}
