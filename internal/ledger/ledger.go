package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Ledger is the append-only record of successfully downloaded destination
// paths, one path per line. It is the sole source of truth for resuming a
// job: any item whose id appears in the ledger is never fetched again.
//
// Only the orchestrating goroutine appends; workers never touch the file.
type Ledger struct {
	path string
	f    *os.File
}

// Open opens (creating if necessary) the ledger file at path for appending.
func Open(path string) (*Ledger, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{path: path, f: f}, nil
}

// Load reads the ledger and returns the set of item ids recovered from its
// entries by stripping the directory and extension from each recorded path.
// A missing ledger file is a fresh job and yields an empty set; any other
// read error is returned so a corrupt ledger cannot silently trigger a full
// re-download.
func (l *Ledger) Load() (map[string]bool, error) {
	ids := make(map[string]bool)

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ids[IDFromPath(line)] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	return ids, nil
}

// Append durably records one successfully downloaded path. The write is
// synced before returning so a crash immediately after cannot lose it.
func (l *Ledger) Append(path string) error {
	if err := writeLine(l.f, path); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	return l.f.Close()
}

// IDFromPath recovers the item id embedded in a recorded path by stripping
// the directory and the extension.
func IDFromPath(p string) string {
	base := filepath.Base(filepath.FromSlash(p))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FailureLog records locator-construction failures, one message per line.
// It shares the ledger's append-and-sync discipline but is never read back
// by the tool; it exists as an audit trail for the operator.
type FailureLog struct {
	f *os.File
}

// OpenFailureLog opens (creating if necessary) the failure log at path.
func OpenFailureLog(path string) (*FailureLog, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open failure log: %w", err)
	}
	return &FailureLog{f: f}, nil
}

// Append records one failure message.
func (fl *FailureLog) Append(msg string) error {
	if err := writeLine(fl.f, msg); err != nil {
		return fmt.Errorf("append failure log: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (fl *FailureLog) Close() error {
	return fl.f.Close()
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func writeLine(f *os.File, s string) error {
	if _, err := fmt.Fprintln(f, s); err != nil {
		return err
	}
	return f.Sync()
}
