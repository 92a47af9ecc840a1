// Package cursor persists the "next URL to fetch" between ingestion runs.
//
// The cursor is a single JSON document, {"api_url": "<url>"}, stored at a fixed
// path in a BlobStore. There is no versioning or locking: the last writer wins.
package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// ContentType is attached to every saved cursor document.
const ContentType = "application/json"

// Config identifies where the cursor lives and what to start from.
type Config struct {
	// Key is the object path of the cursor document.
	Key string
	// DefaultURL is returned and persisted when no cursor exists yet.
	DefaultURL string
}

// Document is the persisted cursor shape.
type Document struct {
	APIURL string `json:"api_url"`
}

// Lookup is the outcome of reading the cursor: either a stored URL or nothing.
type Lookup struct {
	URL   string
	Found bool
}

// Store reads and writes the cursor document.
type Store struct {
	blobs  ingest.BlobStore
	cfg    Config
	logger *zap.Logger
}

// New constructs a Store.
func New(blobs ingest.BlobStore, cfg Config, logger *zap.Logger) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("cursor key is required")
	}
	if cfg.DefaultURL == "" {
		return nil, fmt.Errorf("default url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{blobs: blobs, cfg: cfg, logger: logger}, nil
}

// Lookup reads the stored cursor. A missing object is reported as Found=false, not as an error.
func (s *Store) Lookup(ctx context.Context) (Lookup, error) {
	data, err := s.blobs.GetObject(ctx, s.cfg.Key)
	if err != nil {
		if errors.Is(err, ingest.ErrObjectNotFound) {
			return Lookup{}, nil
		}
		return Lookup{}, ingest.StorageError("read cursor", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Lookup{}, ingest.StorageError("decode cursor", err)
	}
	return Lookup{URL: doc.APIURL, Found: true}, nil
}

// Load returns the persisted cursor. When none exists the default URL is saved and returned,
// so subsequent loads are stable.
func (s *Store) Load(ctx context.Context) (string, error) {
	lookup, err := s.Lookup(ctx)
	if err != nil {
		return "", err
	}
	if lookup.Found {
		return lookup.URL, nil
	}
	s.logger.Info("no cursor stored; seeding default", zap.String("url", s.cfg.DefaultURL))
	if err := s.Save(ctx, s.cfg.DefaultURL); err != nil {
		return "", err
	}
	return s.cfg.DefaultURL, nil
}

// Save overwrites the cursor document unconditionally.
func (s *Store) Save(ctx context.Context, url string) error {
	data, err := json.Marshal(Document{APIURL: url})
	if err != nil {
		return fmt.Errorf("encode cursor: %w", err)
	}
	uri, err := s.blobs.PutObject(ctx, s.cfg.Key, ContentType, data)
	if err != nil {
		return ingest.StorageError("write cursor", err)
	}
	s.logger.Info("saved cursor", zap.String("uri", uri), zap.String("url", url))
	return nil
}
