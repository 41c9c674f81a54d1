package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AtomicWriteFile writes data to a temp file in the same directory as
// path, fsyncs it, then renames it over path. Readers never observe a
// partial write: either the temp file exists (harmless, ignored by
// readers) or the rename has completed and path holds the full
// content — never a half-written path.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persistence: mkdir %s: %w", dir, err)
	}

	tmpPath := fmt.Sprintf("%s.tmp_%d_%d", path, os.Getpid(), time.Now().UnixNano())

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("persistence: create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: rename into place: %w", err)
	}
	return nil
}

// IsTempFile reports whether name (a base filename, not a full path)
// is one of our own <target>.tmp_<pid>_<ts> artifacts, so directory
// scans can skip them.
func IsTempFile(name string) bool {
	return strings.Contains(name, ".tmp_")
}
