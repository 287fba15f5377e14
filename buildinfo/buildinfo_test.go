package buildinfo

import (
	"strings"
	"testing"
)

func TestStringMentionsModification(t *testing.T) {
	info := Info{
		Path:       "github.com/carbocation/dicomframes",
		GoVersion:  "go1.18",
		Commit:     "abc123",
		CommitTime: "2022-01-01T00:00:00Z",
	}

	clean := info.String()
	if strings.Contains(clean, "modified") {
		t.Fatalf("Expected no modification note for a clean build, got %q", clean)
	}
	if !strings.Contains(clean, "abc123") {
		t.Fatalf("Expected the commit in %q", clean)
	}

	info.Modified = true
	if dirty := info.String(); !strings.Contains(dirty, "modified after that commit") {
		t.Fatalf("Expected a modification note, got %q", dirty)
	}
}

func TestGetDoesNotPanic(t *testing.T) {
	// Test binaries carry build info even without vcs stamps
	if info := Get(); info.GoVersion == "" {
		t.Fatal("Expected the Go version to be stamped")
	}
}
