package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// mockOracle answers completions with a caller-supplied function.
type mockOracle struct {
	mu       sync.Mutex
	respond  func(req driven.CompletionRequest) (*driven.Completion, error)
	requests []driven.CompletionRequest
}

func newMockOracle(respond func(req driven.CompletionRequest) (*driven.Completion, error)) *mockOracle {
	return &mockOracle{respond: respond}
}

// staticOracle returns the same text for every request.
func staticOracle(text string) *mockOracle {
	return newMockOracle(func(driven.CompletionRequest) (*driven.Completion, error) {
		return &driven.Completion{Text: text, FinishReason: "stop"}, nil
	})
}

func (m *mockOracle) Complete(_ context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.respond(req)
}

func (m *mockOracle) ModelName() string { return "mock-model" }

func (m *mockOracle) Ping(_ context.Context) error { return nil }

func (m *mockOracle) Close() error { return nil }

func (m *mockOracle) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockRuleSource returns fixed rules or an error.
type mockRuleSource struct {
	rules []domain.Rule
	err   error
}

func (m *mockRuleSource) Rules(_ context.Context) ([]domain.Rule, error) {
	return m.rules, m.err
}

// failingRunStore rejects every save.
type failingRunStore struct{}

func (failingRunStore) Save(_ context.Context, _ *domain.Run) error {
	return errors.New("disk full")
}

func (failingRunStore) Get(_ context.Context, _ string) (*domain.Run, error) {
	return nil, domain.ErrNotFound
}

func (failingRunStore) List(_ context.Context, _ int) ([]domain.Run, error) {
	return nil, nil
}

func (failingRunStore) ListByDocument(_ context.Context, _ string) ([]domain.Run, error) {
	return nil, nil
}

// mockValidator records the settings it was asked to validate.
type mockValidator struct {
	err    error
	called bool
	got    domain.LLMSettings
}

func (m *mockValidator) ValidateLLM(config *domain.LLMSettings) error {
	m.called = true
	m.got = *config
	return m.err
}
