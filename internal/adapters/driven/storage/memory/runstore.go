package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.Run),
	}
}

// Save creates or replaces a run.
func (s *RunStore) Save(_ context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = copyRun(*run)
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(_ context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyRun(run)
	return &out, nil
}

// List returns runs newest first. A limit of 0 returns all runs.
func (s *RunStore) List(_ context.Context, limit int) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.sorted(func(domain.Run) bool { return true })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// ListByDocument returns the runs for one document, newest first.
func (s *RunStore) ListByDocument(_ context.Context, documentName string) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(r domain.Run) bool { return r.DocumentName == documentName }), nil
}

// sorted returns matching runs newest first, ties broken by ID
// (caller must hold lock).
func (s *RunStore) sorted(match func(domain.Run) bool) []domain.Run {
	runs := make([]domain.Run, 0, len(s.runs))
	for _, r := range s.runs {
		if match(r) {
			runs = append(runs, copyRun(r))
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs
}

func copyRun(r domain.Run) domain.Run {
	r.FailedChunks = append([]int(nil), r.FailedChunks...)
	r.UnparsedChunks = append([]int(nil), r.UnparsedChunks...)
	r.Canonical = append([]byte(nil), r.Canonical...)
	return r
}
