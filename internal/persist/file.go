// Package persist stores the row store's JSON snapshot on local disk.
package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// rename is replaced in tests to simulate a failed replace.
var rename = os.Rename

// File keeps the snapshot in a single file, replaced atomically on each save.
type File struct {
	path string
}

// NewFile returns a File persister for path, creating its directory.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &File{path: path}, nil
}

// Path returns the snapshot file path.
func (f *File) Path() string {
	return f.path
}

// Save writes snapshot to a temporary file and renames it over the previous one.
func (f *File) Save(_ context.Context, snapshot []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot: %w", err)
	}
	name := tmp.Name()
	defer func() {
		// No-op once renamed.
		_ = os.Remove(name)
	}()
	if _, err := tmp.Write(snapshot); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := rename(name, f.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// LoadAtStartup returns the snapshot file content. ok is false if the file does not exist.
func (f *File) LoadAtStartup(_ context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read snapshot %s: %w", f.path, err)
	}
	return data, true, nil
}
