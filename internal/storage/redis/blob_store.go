// Package redis provides a BlobStore backed by Redis string keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// Config controls key naming.
type Config struct {
	// KeyPrefix namespaces every object path, e.g. "pokeapitest".
	KeyPrefix string
}

// BlobStore keeps each object under a single Redis key.
type BlobStore struct {
	client goredis.Cmdable
	prefix string
}

// New creates a Redis-backed blob store.
func New(client goredis.Cmdable, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &BlobStore{
		client: client,
		prefix: strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

// Key returns the Redis key used for path.
func (s *BlobStore) Key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// GetObject returns the stored bytes; a missing key maps to ingest.ErrObjectNotFound.
func (s *BlobStore) GetObject(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	data, err := s.client.Get(ctx, s.Key(path)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("redis key %s: %w", s.Key(path), ingest.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// PutObject overwrites the key with data. Content type is not stored.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	if err := s.client.Set(ctx, s.Key(path), data, 0).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return "redis://" + s.Key(path), nil
}
