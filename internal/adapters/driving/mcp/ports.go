package mcp

import (
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Estimate processes and merges estimates.
	Estimate driving.EstimateService

	// Runs exposes run history. Optional.
	Runs driving.RunService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.Estimate == nil {
		return ErrMissingEstimateService
	}
	return nil
}
