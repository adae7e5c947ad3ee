package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.RunSummary
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.RunSummary),
	}
}

// Save persists the summary in memory.
func (s *Store) Save(ctx context.Context, summary domain.RunSummary) error {
	// Copy the output so the caller cannot mutate the stored bytes
	summary.Output = slices.Clone(summary.Output)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[summary.ID] = summary
	return nil
}

// Load retrieves the summary from memory.
func (s *Store) Load(ctx context.Context, runID string) (domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.data[runID]
	if !ok {
		return domain.RunSummary{}, domain.ErrRunNotFound
	}

	summary.Output = slices.Clone(summary.Output)
	return summary, nil
}

// Delete removes the summary.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

// List returns archived run IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]string, 0, len(s.data))
	for id := range s.data {
		runs = append(runs, id)
	}
	slices.Sort(runs)
	return runs, nil
}
