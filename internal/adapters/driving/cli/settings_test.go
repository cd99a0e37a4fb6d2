package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShow(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.settings.LLM.Provider = domain.AIProviderOpenAI
	ts.settings.settings.LLM.Model = "gpt-4o"
	ts.settings.settings.LLM.APIKey = "sk-1234567890abcdef"
	ts.settings.settings.Rules.Path = "rules.xlsx"

	out, err := executeCommand(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "Model: gpt-4o")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "Window Size: 15000")
	assert.Contains(t, out, "Backend: filesystem")
	assert.Contains(t, out, "Path: rules.xlsx")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_InvalidConfig(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.validateErr = errors.New("LLM provider not set")

	out, err := executeCommand(t, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning: LLM provider not set")
	assert.Contains(t, out, "Path: (none)")
}

func TestSettingsSet(t *testing.T) {
	ts := setupTestServices(t)

	out, err := executeCommand(t, "settings", "set", "llm.model", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Contains(t, out, "llm.model set")
	assert.Equal(t, "gpt-4o-mini", ts.settings.set["llm.model"])

	_, err = executeCommand(t, "settings", "set", "bogus", "1")
	assert.Error(t, err)
}

func TestSettingsKeys(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "settings", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "llm.model\nprocessing.concurrency\n")
}

func TestSettings_NoService(t *testing.T) {
	setupTestServices(t)
	SetServices(Services{})

	_, err := executeCommand(t, "settings", "show")
	assert.ErrorIs(t, err, errNoSettingsService)
}

func TestSettingsLLM_OpenAI(t *testing.T) {
	ts := setupTestServices(t)
	rootCmd.SetIn(strings.NewReader("2\n\nsk-test-key\n"))

	out, err := executeCommand(t, "settings", "llm")
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, ts.settings.settings.LLM.Provider)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderOpenAI], ts.settings.settings.LLM.Model)
	assert.Equal(t, "sk-test-key", ts.settings.settings.LLM.APIKey)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettingsLLM_AzureNeedsEndpoint(t *testing.T) {
	setupTestServices(t)
	rootCmd.SetIn(strings.NewReader("3\nmy-deployment\nkey\n\n\n"))

	_, err := executeCommand(t, "settings", "llm")
	assert.ErrorContains(t, err, "endpoint URL is required")
}

func TestSettingsLLM_Ollama(t *testing.T) {
	ts := setupTestServices(t)
	rootCmd.SetIn(strings.NewReader("1\nllama3\nhttp://localhost:11434\n"))

	_, err := executeCommand(t, "settings", "llm")
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, ts.settings.settings.LLM.Provider)
	assert.Equal(t, "llama3", ts.settings.settings.LLM.Model)
	assert.Equal(t, "http://localhost:11434", ts.settings.settings.LLM.BaseURL)
}
