package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

// Ensure RunService implements the interface.
var _ driving.RunService = (*RunService)(nil)

// errNoRunStore is returned when run history is disabled.
var errNoRunStore = errors.New("run history not configured")

// RunService reads run history.
type RunService struct {
	store driven.RunStore
}

// NewRunService creates a new run service.
func NewRunService(store driven.RunStore) *RunService {
	return &RunService{store: store}
}

// List returns the newest runs first. A limit of 0 returns all.
func (s *RunService) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if s.store == nil {
		return nil, errNoRunStore
	}
	if limit < 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, domain.ErrInvalidInput)
	}
	runs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns one run.
func (s *RunService) Get(ctx context.Context, id string) (*domain.Run, error) {
	if s.store == nil {
		return nil, errNoRunStore
	}
	if id == "" {
		return nil, fmt.Errorf("run id is required: %w", domain.ErrInvalidInput)
	}
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListByDocument returns the runs for one source document.
func (s *RunService) ListByDocument(ctx context.Context, name string) ([]domain.Run, error) {
	if s.store == nil {
		return nil, errNoRunStore
	}
	runs, err := s.store.ListByDocument(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", name, err)
	}
	return runs, nil
}
