// Package tui provides an interactive terminal browser for processed
// estimates. It implements a driving adapter following hexagonal
// architecture principles.
package tui

import (
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Runs lists processing runs and their saved documents.
	Runs driving.RunService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Runs == nil {
		return ErrMissingRunService
	}
	return nil
}
