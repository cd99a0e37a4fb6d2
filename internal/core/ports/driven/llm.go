// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Oracle is the external structured-extraction service.
// It takes a system and a user prompt and returns JSON-ish text.
//
// Implementations may include:
//   - OpenAI and Azure OpenAI chat completions
//   - Anthropic messages
//   - Ollama (local models)
type Oracle interface {
	// Complete sends one extraction request.
	// Rate limiting is reported as domain.ErrRateLimited.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is one oracle call.
type CompletionRequest struct {
	// SystemPrompt carries the extraction protocol.
	SystemPrompt string

	// UserPrompt carries the rules and the chunk text.
	UserPrompt string

	// MaxTokens is the completion token budget.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSONMode asks the provider to constrain output to a JSON object
	// where it supports that.
	JSONMode bool
}

// Completion is the oracle's answer.
type Completion struct {
	// Text is the raw response content.
	Text string

	// FinishReason is the provider's stop signal ("stop", "length",
	// "max_tokens"), empty when the provider gives none.
	FinishReason string

	// PromptTokens and CompletionTokens report usage when available.
	PromptTokens     int
	CompletionTokens int
}
