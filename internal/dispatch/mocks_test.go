package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// mockOracle answers with respond and tracks concurrency.
type mockOracle struct {
	respond func(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error)

	mu       sync.Mutex
	requests []driven.CompletionRequest

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
}

func (m *mockOracle) Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	return m.respond(ctx, req)
}

func (m *mockOracle) ModelName() string          { return "mock" }
func (m *mockOracle) Ping(_ context.Context) error { return nil }
func (m *mockOracle) Close() error               { return nil }

func (m *mockOracle) lastRequests() []driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.CompletionRequest(nil), m.requests...)
}

// mockPipeline counts calls and optionally fails.
type mockPipeline struct {
	calls atomic.Int32
	err   error
}

func (m *mockPipeline) Process(_ context.Context, obj *domain.Object) (*domain.Object, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return obj, nil
}
