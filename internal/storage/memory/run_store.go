package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// RunStore provides an in-memory run history for development/testing.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]ingest.RunRecord
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]ingest.RunRecord)}
}

// RecordRun inserts or replaces the run keyed by its ID.
func (s *RunStore) RecordRun(_ context.Context, run ingest.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.ErrorMessage != nil {
		msg := *run.ErrorMessage
		run.ErrorMessage = &msg
	}
	s.runs[run.ID] = run
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, id string) (ingest.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return ingest.RunRecord{}, ingest.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns runs newest first, optionally filtered by status.
func (s *RunStore) ListRuns(_ context.Context, status *ingest.RunStatus, limit, offset int) ([]ingest.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ingest.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		if status != nil && run.Status != *status {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})

	if offset >= len(out) {
		return []ingest.RunRecord{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
