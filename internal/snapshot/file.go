package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/benjaminwestern/catalog-editor/internal/catalog"
)

// FileStore keeps the slot as a JSON file inside a directory.
type FileStore struct {
	path      string
	sessionID string
	now       func() time.Time
}

// NewFileStore creates dir when needed and returns a store writing into it.
func NewFileStore(dir, sessionID string) (*FileStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create directory %s: %w", dir, err)
	}
	return &FileStore{path: filepath.Join(dir, fileName), sessionID: sessionID, now: time.Now}, nil
}

// Path is the file holding the slot.
func (f *FileStore) Path() string { return f.path }

// Save writes products through a temporary file so a crash never leaves a
// half-written slot behind.
func (f *FileStore) Save(_ context.Context, products []catalog.Product) error {
	b, err := encode(f.sessionID, products, f.now())
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", f.path, err)
	}
	return nil
}

// Clear removes the file.
func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("snapshot: remove %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op.
func (f *FileStore) Close() error { return nil }
