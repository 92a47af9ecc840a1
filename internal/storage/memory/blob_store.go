// Package memory stores blob content in-memory for development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// Object is a stored blob plus its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// BlobStore stores objects in-memory and returns pseudo URIs.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		objects: make(map[string]Object),
	}
}

// GetObject returns a copy of the stored bytes.
func (s *BlobStore) GetObject(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, ingest.ErrObjectNotFound)
	}
	return append([]byte(nil), obj.Data...), nil
}

// PutObject persists the content and returns a URI.
func (s *BlobStore) PutObject(_ context.Context, path string, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[path] = Object{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
	}
	return fmt.Sprintf("memory://%s", path), nil
}

// Object returns the stored object for inspection.
func (s *BlobStore) Object(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[path]
	return obj, ok
}

// Len reports how many objects are stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
