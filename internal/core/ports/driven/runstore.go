package driven

import (
	"context"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// RunStore persists processing run history.
type RunStore interface {
	// Save creates or replaces a run.
	Save(ctx context.Context, run *domain.Run) error

	// Get retrieves a run by ID.
	// Returns domain.ErrNotFound if the run does not exist.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// List returns runs newest first. A limit of 0 returns all runs.
	List(ctx context.Context, limit int) ([]domain.Run, error)

	// ListByDocument returns the runs for one document, newest first.
	ListByDocument(ctx context.Context, documentName string) ([]domain.Run, error)
}
