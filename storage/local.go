package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dukerupert/liftcheck"
)

// Compile-time interface check
var _ liftcheck.FileStorage = (*Local)(nil)

// Local stores photos under a directory served at baseURL.
type Local struct {
	basePath string
	baseURL  string
}

// NewLocal creates the storage directory if needed.
func NewLocal(basePath, baseURL string) (*Local, error) {
	if basePath == "" {
		return nil, fmt.Errorf("local storage requires a path")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &Local{basePath: basePath, baseURL: baseURL}, nil
}

func (s *Local) path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(k)), nil
}

// Upload writes the file to a temporary name and renames it into place, so a
// failed copy never leaves a partial photo behind.
func (s *Local) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	filePath, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("creating directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return "", fmt.Errorf("moving file into place: %w", err)
	}
	return s.GetURL(key), nil
}

// Delete removes a file. Missing files are not an error.
func (s *Local) Delete(ctx context.Context, key string) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

func (s *Local) GetURL(key string) string {
	k, err := cleanKey(key)
	if err != nil {
		return ""
	}
	return joinURL(s.baseURL, k)
}

func (s *Local) Exists(ctx context.Context, key string) (bool, error) {
	filePath, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filePath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking file: %w", err)
}
