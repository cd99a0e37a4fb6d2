package driving

import "github.com/custodia-labs/tally-cli/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetLLMProvider configures the extraction oracle provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMEndpoint sets the base URL and, for Azure, the api-version.
	SetLLMEndpoint(baseURL, apiVersion string) error

	// SetValue stores one setting by its dotted key ("processing.concurrency").
	// Returns domain.ErrInvalidInput for unknown keys or malformed values.
	SetValue(key, value string) error

	// Keys returns the dotted keys SetValue accepts.
	Keys() []string

	// Validate checks that the current settings can run extraction.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
