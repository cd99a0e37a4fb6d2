package driven

import (
	"context"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// RuleSource supplies validation rules.
type RuleSource interface {
	// Rules returns every rule with validation criteria, in source order.
	Rules(ctx context.Context) ([]domain.Rule, error)
}
