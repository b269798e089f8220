// Package memory provides an in-memory run store for single-node
// deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aescanero/agor/internal/domain"
	"github.com/aescanero/agor/internal/ports"
)

// RunStore implements ports.RunStore with a mutex-guarded map.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.RunRecord
}

// NewRunStore creates an empty in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*domain.RunRecord)}
}

// SaveRun inserts or replaces the record for its ID.
func (s *RunStore) SaveRun(_ context.Context, record *domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.runs[record.ID] = &copied
	return nil
}

// GetRun returns the record for id or ports.ErrRunNotFound.
func (s *RunStore) GetRun(_ context.Context, id string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.runs[id]
	if !ok {
		return nil, ports.ErrRunNotFound
	}
	copied := *record
	return &copied, nil
}

// ListRuns returns all records, newest first.
func (s *RunStore) ListRuns(_ context.Context) ([]*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*domain.RunRecord, 0, len(s.runs))
	for _, record := range s.runs {
		copied := *record
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
	return records, nil
}
