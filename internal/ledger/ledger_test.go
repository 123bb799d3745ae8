package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFreshJob(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "downloaded.csv"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	// Remove the file Open just created to simulate a first run.
	os.Remove(l.path)

	ids, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty set for fresh job, got %d ids", len(ids))
	}
}

func TestAppendThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.csv")

	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	paths := []string{
		"out/images/1.jpeg",
		"out/images/2.jpeg",
		"out/images/42.jpeg",
	}
	for _, p := range paths {
		if err := l.Append(p); err != nil {
			t.Fatalf("Append(%q): %v", p, err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen, as a resumed run would.
	l, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()

	ids, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, want := range []string{"1", "2", "42"} {
		if !ids[want] {
			t.Errorf("expected id %q in retrieved set", want)
		}
	}
	if len(ids) != 3 {
		t.Errorf("expected 3 ids, got %d", len(ids))
	}
}

func TestAppendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.csv")

	for i, p := range []string{"a/1.jpeg", "a/2.jpeg"} {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if err := l.Append(p); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
		l.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after two appends, got %d: %q", len(lines), lines)
	}
}

func TestLoadUnreadableLedger(t *testing.T) {
	// A directory where the ledger file should be: present but unreadable.
	// This must surface as an error, not as a fresh job.
	dir := t.TempDir()
	bad := filepath.Join(dir, "downloaded.csv")
	if err := os.Mkdir(bad, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	l := &Ledger{path: bad}
	if _, err := l.Load(); err == nil {
		t.Error("expected error for unreadable ledger, got nil")
	}
}

func TestIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"out/images/7.jpeg", "7"},
		{"7.jpeg", "7"},
		{"/abs/dir/1237648702966.jpeg", "1237648702966"},
		{"noext", "noext"},
	}

	for _, tt := range tests {
		if got := IDFromPath(tt.path); got != tt.want {
			t.Errorf("IDFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFailureLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urlnotfound.csv")

	fl, err := OpenFailureLog(path)
	if err != nil {
		t.Fatalf("OpenFailureLog: %v", err)
	}
	if err := fl.Append("bad,coords not found"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	fl.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "bad,coords not found" {
		t.Errorf("unexpected failure log contents: %q", got)
	}
}
