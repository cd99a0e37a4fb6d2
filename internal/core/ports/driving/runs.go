package driving

import (
	"context"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// RunService exposes processing history.
type RunService interface {
	// List returns runs newest first. A limit of 0 returns all runs.
	List(ctx context.Context, limit int) ([]domain.Run, error)

	// Get returns one run.
	// Returns domain.ErrNotFound if the run does not exist.
	Get(ctx context.Context, id string) (*domain.Run, error)

	// ListByDocument returns the runs of one document, newest first.
	ListByDocument(ctx context.Context, documentName string) ([]domain.Run, error)
}
