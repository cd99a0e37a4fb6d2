package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/postprocessors"
)

// chunkedPlan builds a chunked plan whose chunk texts are "chunk-<index>".
func chunkedPlan(n int) domain.ChunkPlan {
	plan := domain.ChunkPlan{Chunked: n > 1}
	for i := 0; i < n; i++ {
		plan.Chunks = append(plan.Chunks, domain.Chunk{
			Index:   i,
			Text:    fmt.Sprintf("chunk-%d", i),
			IsFirst: i == 0,
			IsLast:  i == n-1,
		})
	}
	return plan
}

// chunkIndex recovers the chunk index from the user prompt.
func chunkIndex(req driven.CompletionRequest) int {
	var idx int
	pos := strings.Index(req.UserPrompt, "chunk-")
	_, _ = fmt.Sscanf(req.UserPrompt[pos:], "chunk-%d", &idx)
	return idx
}

func roomResponse(name string) *driven.Completion {
	return &driven.Completion{Text: fmt.Sprintf(`{"rooms": [{"name": %q}]}`, name), FinishReason: "stop"}
}

func testConfig() Config {
	return Config{Concurrency: 5, LLM: domain.LLMSettings{MaxTokens: 1000, TruncationMultiple: 3}}
}

func TestDispatchAll_IndexAligned(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
		idx := chunkIndex(req)
		// Later chunks finish first.
		time.Sleep(time.Duration(5-idx) * 5 * time.Millisecond)
		return roomResponse(fmt.Sprintf("Room %d", idx)), nil
	}}

	outcomes := New(oracle, testConfig()).DispatchAll(context.Background(), chunkedPlan(5), nil, "doc.txt")

	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		require.NoError(t, o.Err)
		assert.Equal(t, i, o.Index)
		require.Len(t, o.Partial.Rooms, 1)
		assert.Equal(t, fmt.Sprintf("Room %d", i), *o.Partial.Rooms[0].Name)
		assert.Equal(t, 1, o.Attempts)
		assert.Equal(t, "direct", o.Strategy)
	}
}

func TestDispatchAll_FailureIsolation(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
		switch idx := chunkIndex(req); idx {
		case 1:
			return nil, errors.New("network down")
		case 2:
			panic("boom")
		case 3:
			return nil, nil
		default:
			return roomResponse(fmt.Sprintf("Room %d", idx)), nil
		}
	}}

	outcomes := New(oracle, testConfig()).DispatchAll(context.Background(), chunkedPlan(5), nil, "doc.txt")

	require.Len(t, outcomes, 5)
	assert.Equal(t, []int{1, 2, 3}, FailedIndexes(outcomes))
	assert.Contains(t, outcomes[1].Err.Error(), "network down")
	assert.Contains(t, outcomes[2].Err.Error(), "panicked")
	for _, i := range []int{1, 2, 3} {
		assert.True(t, outcomes[i].Partial.IsEmpty(), "chunk %d", i)
		assert.Equal(t, i, outcomes[i].Index)
	}
	for _, i := range []int{0, 4} {
		require.NoError(t, outcomes[i].Err)
		assert.Len(t, outcomes[i].Partial.Rooms, 1)
	}

	partials := Partials(outcomes)
	assert.Len(t, partials, 5)
}

func TestDispatchAll_ConcurrencyLimit(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		time.Sleep(10 * time.Millisecond)
		return roomResponse("A"), nil
	}}
	cfg := testConfig()
	cfg.Concurrency = 3

	outcomes := New(oracle, cfg).DispatchAll(context.Background(), chunkedPlan(12), nil, "doc.txt")

	assert.Len(t, outcomes, 12)
	assert.LessOrEqual(t, oracle.maxInFlight.Load(), int32(3))
	assert.GreaterOrEqual(t, oracle.maxInFlight.Load(), int32(1))
	assert.Equal(t, int32(12), oracle.calls.Load())
}

func TestDispatchAll_Retries(t *testing.T) {
	newFlaky := func() *mockOracle {
		var n atomic.Int32
		return &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
			if n.Add(1) <= 2 {
				return nil, errors.New("transient")
			}
			return roomResponse("Kitchen"), nil
		}}
	}

	t.Run("default makes one attempt", func(t *testing.T) {
		outcomes := New(newFlaky(), testConfig()).DispatchAll(context.Background(), chunkedPlan(1), nil, "d")
		require.Error(t, outcomes[0].Err)
		assert.Equal(t, 1, outcomes[0].Attempts)
	})

	t.Run("bounded retries recover", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRetries = 2
		outcomes := New(newFlaky(), cfg).DispatchAll(context.Background(), chunkedPlan(1), nil, "d")
		require.NoError(t, outcomes[0].Err)
		assert.Equal(t, 3, outcomes[0].Attempts)
		assert.Len(t, outcomes[0].Partial.Rooms, 1)
	})
}

func TestDispatchAll_RateLimitBackoff(t *testing.T) {
	var n atomic.Int32
	oracle := &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		if n.Add(1) == 1 {
			return nil, fmt.Errorf("status 429: %w", domain.ErrRateLimited)
		}
		return roomResponse("A"), nil
	}}
	cfg := testConfig()
	cfg.MaxRetries = 1
	cfg.RateLimitBackoff = 40 * time.Millisecond

	start := time.Now()
	outcomes := New(oracle, cfg).DispatchAll(context.Background(), chunkedPlan(1), nil, "d")

	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, 2, outcomes[0].Attempts)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestDispatchAll_ChunkTimeout(t *testing.T) {
	oracle := &mockOracle{respond: func(ctx context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	cfg := testConfig()
	cfg.ChunkTimeout = 20 * time.Millisecond

	outcomes := New(oracle, cfg).DispatchAll(context.Background(), chunkedPlan(2), nil, "d")

	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.DeadlineExceeded)
	}
}

func TestDispatchAll_Truncated(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		return &driven.Completion{Text: `{"rooms": [{"name": "Kitchen"}, {"name": "Ba`, FinishReason: "length"}, nil
	}}

	outcomes := New(oracle, testConfig()).DispatchAll(context.Background(), chunkedPlan(1), nil, "d")

	o := outcomes[0]
	require.NoError(t, o.Err)
	assert.True(t, o.Truncated)
	assert.Equal(t, "repair", o.Strategy)
	require.NotEmpty(t, o.Partial.Rooms)
	assert.Equal(t, "Kitchen", *o.Partial.Rooms[0].Name)
}

func TestDispatchAll_Unparsed(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		return &driven.Completion{Text: "I am unable to process this estimate.", FinishReason: "stop"}, nil
	}}

	outcomes := New(oracle, testConfig()).DispatchAll(context.Background(), chunkedPlan(3), nil, "d")

	assert.Equal(t, []int{0, 1, 2}, UnparsedIndexes(outcomes))
	assert.Empty(t, FailedIndexes(outcomes))
	require.NotNil(t, outcomes[2].Partial.Unparsed)
	assert.Equal(t, 2, outcomes[2].Partial.Unparsed.ChunkIndex)
	assert.Equal(t, "I am unable to process this estimate.", outcomes[2].Partial.Unparsed.Raw)
}

func TestDispatchAll_Prompts(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		return roomResponse("A"), nil
	}}
	cfg := testConfig()
	cfg.LLM.Temperature = 0.2
	cfg.LLM.JSONMode = true
	rules := []domain.Rule{{ID: "QTY_001", CheckGroup: "Quantity", Description: "Paint vs walls"}}

	t.Run("single document", func(t *testing.T) {
		plan := domain.ChunkPlan{Chunks: []domain.Chunk{{Text: "chunk-0", IsFirst: true, IsLast: true}}}
		New(oracle, cfg).DispatchAll(context.Background(), plan, rules, "est.pdf")

		reqs := oracle.lastRequests()
		require.NotEmpty(t, reqs)
		req := reqs[len(reqs)-1]
		assert.NotContains(t, req.UserPrompt, "CHUNK CONTEXT")
		assert.Contains(t, req.UserPrompt, "**QTY_001**: Paint vs walls")
		assert.Contains(t, req.UserPrompt, "Source File: est.pdf")
		assert.Equal(t, 1000, req.MaxTokens)
		assert.InDelta(t, 0.2, req.Temperature, 1e-9)
		assert.True(t, req.JSONMode)
	})

	t.Run("chunked", func(t *testing.T) {
		New(oracle, cfg).DispatchAll(context.Background(), chunkedPlan(2), rules, "est.pdf")

		reqs := oracle.lastRequests()
		last := reqs[len(reqs)-2:]
		for _, req := range last {
			assert.Contains(t, req.UserPrompt, "CHUNK CONTEXT")
			assert.Contains(t, req.SystemPrompt, "CHUNKING MODE")
		}
	})
}

func TestDispatchAll_Pipeline(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		return &driven.Completion{Text: `{"rooms": [{"name": "Kitchen", "lineItems": [{"description": "Paint"}]}]}`}, nil
	}}
	pipeline := postprocessors.NewPipeline(postprocessors.NewAliasProcessor(nil))

	outcomes := New(oracle, testConfig(), WithPipeline(pipeline)).DispatchAll(context.Background(), chunkedPlan(1), nil, "d")

	require.NoError(t, outcomes[0].Err)
	require.Len(t, outcomes[0].Partial.Rooms, 1)
	assert.Len(t, outcomes[0].Partial.Rooms[0].LineItems, 1)
}

func TestDispatchAll_PipelineErrorKeepsObject(t *testing.T) {
	oracle := &mockOracle{respond: func(_ context.Context, _ driven.CompletionRequest) (*driven.Completion, error) {
		return roomResponse("Kitchen"), nil
	}}
	pipeline := &mockPipeline{err: errors.New("bad processor")}

	outcomes := New(oracle, testConfig(), WithPipeline(pipeline)).DispatchAll(context.Background(), chunkedPlan(1), nil, "d")

	require.NoError(t, outcomes[0].Err)
	assert.Len(t, outcomes[0].Partial.Rooms, 1)
	assert.Equal(t, int32(1), pipeline.calls.Load())
}

func TestDispatchAll_Empty(t *testing.T) {
	oracle := &mockOracle{}
	outcomes := New(oracle, testConfig()).DispatchAll(context.Background(), domain.ChunkPlan{}, nil, "d")
	assert.Empty(t, outcomes)
}

func TestConfigFromSettings(t *testing.T) {
	s := domain.DefaultAppSettings()
	s.Processing.MaxRetries = 2
	s.Processing.RequestsPerSecond = 1.5

	cfg := ConfigFromSettings(s.Processing, s.LLM)

	assert.Equal(t, domain.DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.InDelta(t, 1.5, cfg.RequestsPerSecond, 1e-9)
	assert.Equal(t, domain.DefaultMaxTokens, cfg.LLM.MaxTokens)
}
