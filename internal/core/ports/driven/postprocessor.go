package driven

import (
	"context"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// PostProcessor adjusts a decoded oracle object before it is converted
// into a PartialDocument (key aliases, schema checks).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process returns the adjusted object. Processors may modify obj in place.
	Process(ctx context.Context, obj *domain.Object) (*domain.Object, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the object through all processors in order.
	Process(ctx context.Context, obj *domain.Object) (*domain.Object, error)
}
