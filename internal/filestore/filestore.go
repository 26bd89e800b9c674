// Package filestore stores the durable per-notebook blobs.
package filestore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_file_store.go -package=mocks nb-assistant/internal/filestore FileStore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotExist is returned when a file does not exist.
	ErrNotExist = errors.New("file does not exist")
	// ErrExist is returned by PutFile without overwrite when the file exists.
	ErrExist = errors.New("file already exists")
)

// FileStore reads and writes blobs addressed by slash-separated paths.
type FileStore interface {
	// GetFile returns the blob at path, or ErrNotExist.
	GetFile(ctx context.Context, path string) ([]byte, error)
	// PutFile writes the blob at path. Without overwrite an existing file yields ErrExist.
	PutFile(ctx context.Context, path string, overwrite bool, data []byte) error
	// RemoveFile deletes the blob at path. Removing a missing file is not an error.
	RemoveFile(ctx context.Context, path string) error
}

// Local is a FileStore on the local filesystem below a root directory.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at root, creating it if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file store root: %w", err)
	}
	return &Local{root: root}, nil
}

func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	full := filepath.Join(l.root, clean)
	if !strings.HasPrefix(full, filepath.Clean(l.root)+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes file store root", path)
	}
	return full, nil
}

// GetFile returns the blob at path.
func (l *Local) GetFile(ctx context.Context, path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// PutFile writes the blob through a temporary file and rename, so readers never
// see a partially written blob.
func (l *Local) PutFile(ctx context.Context, path string, overwrite bool, data []byte) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(full); err == nil {
			return fmt.Errorf("%w: %s", ErrExist, path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-"+filepath.Base(full)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// RemoveFile deletes the blob at path.
func (l *Local) RemoveFile(ctx context.Context, path string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
