// Package ai provides factory functions for creating extraction oracle adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/tally-cli/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/tally-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/tally-cli/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateOracle creates an oracle and validates connectivity.
// Returns the oracle if successful, or an error with guidance.
func CreateAndValidateOracle(ctx context.Context, settings *domain.LLMSettings) (driven.Oracle, error) {
	svc, err := CreateOracle(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'tally settings llm' to fix", domain.ErrLLMUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'tally settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateLLMConfig validates an LLM configuration by creating an oracle and pinging it.
// An unconfigured provider is not an error.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateOracle(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateOracle creates the oracle adapter for the configured provider.
// Returns domain.ErrLLMUnavailable if the provider is not configured.
func CreateOracle(settings *domain.LLMSettings) (driven.Oracle, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider not configured", domain.ErrLLMUnavailable)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	case domain.AIProviderOpenAI, domain.AIProviderAzureOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Timeout:    settings.Timeout,
			Azure:      settings.Provider == domain.AIProviderAzureOpenAI,
			APIVersion: settings.APIVersion,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}
