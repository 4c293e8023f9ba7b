package mock

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/dukerupert/liftcheck"
)

// Compile-time interface check
var _ liftcheck.FileStorage = (*FileStorage)(nil)

// FileStorage is a mock implementation of liftcheck.FileStorage. Without
// overrides it keeps track of stored keys so tests can assert that orphaned
// uploads were removed.
type FileStorage struct {
	UploadFn func(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	DeleteFn func(ctx context.Context, key string) error
	GetURLFn func(key string) string
	ExistsFn func(ctx context.Context, key string) (bool, error)

	mu      sync.Mutex
	stored  []string
	deleted []string
}

func (s *FileStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if s.UploadFn != nil {
		return s.UploadFn(ctx, key, reader, contentType)
	}
	s.mu.Lock()
	s.stored = append(s.stored, key)
	s.mu.Unlock()
	return s.GetURL(key), nil
}

func (s *FileStorage) Delete(ctx context.Context, key string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, key)
	}
	s.mu.Lock()
	s.stored = slices.DeleteFunc(s.stored, func(k string) bool { return k == key })
	s.deleted = append(s.deleted, key)
	s.mu.Unlock()
	return nil
}

func (s *FileStorage) GetURL(key string) string {
	if s.GetURLFn != nil {
		return s.GetURLFn(key)
	}
	return "https://mock-storage.example.com/" + key
}

func (s *FileStorage) Exists(ctx context.Context, key string) (bool, error) {
	if s.ExistsFn != nil {
		return s.ExistsFn(ctx, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.stored, key), nil
}

// Stored returns the keys currently held.
func (s *FileStorage) Stored() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.stored)
}

// Deleted returns every key passed to Delete.
func (s *FileStorage) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deleted)
}
