package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

type mockRunService struct {
	runs   []domain.Run
	err    error
	getErr error
	gets   int
}

func (m *mockRunService) List(_ context.Context, _ int) ([]domain.Run, error) {
	return m.runs, m.err
}

func (m *mockRunService) Get(_ context.Context, id string) (*domain.Run, error) {
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRunService) ListByDocument(_ context.Context, _ string) ([]domain.Run, error) {
	return nil, nil
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil ports", func(t *testing.T) {
		var p *Ports
		assert.ErrorIs(t, p.Validate(), ErrMissingRunService)
	})

	t.Run("missing run service", func(t *testing.T) {
		assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingRunService)
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, (&Ports{Runs: &mockRunService{}}).Validate())
	})
}
