package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tally-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

func noEnv(string) string { return "" }

func newTestSettings(t *testing.T, env map[string]string) (*SettingsService, *memory.ConfigStore) {
	t.Helper()
	store := memory.NewConfigStore()
	getenv := func(k string) string { return env[k] }
	return NewSettingsService(store, nil, WithSettingsGetenv(getenv)), store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettings(t, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.LLM.MaxTokens, settings.LLM.MaxTokens)
	assert.Equal(t, defaults.LLM.Temperature, settings.LLM.Temperature)
	assert.Equal(t, defaults.LLM.Timeout, settings.LLM.Timeout)
	assert.True(t, settings.LLM.JSONMode)
	assert.Equal(t, defaults.Processing.ChunkThreshold, settings.Processing.ChunkThreshold)
	assert.Equal(t, defaults.Processing.WindowSize, settings.Processing.WindowSize)
	assert.Equal(t, defaults.Processing.Overlap, settings.Processing.Overlap)
	assert.Equal(t, defaults.Processing.Concurrency, settings.Processing.Concurrency)
	assert.Equal(t, defaults.Processing.PostProcessors, settings.Processing.PostProcessors)
	assert.Equal(t, domain.StorageBackendFilesystem, settings.Storage.Backend)
	assert.Empty(t, settings.LLM.Provider)
	assert.Nil(t, settings.Processing.PostProcessorConfig)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettings(t, nil)
	_ = store.Set("llm.provider", "anthropic")
	_ = store.Set("llm.model", "claude-x")
	_ = store.Set("llm.api_key", "sk-stored")
	_ = store.Set("llm.json_mode", false)
	_ = store.Set("llm.temperature", 0.0)
	_ = store.Set("processing.window_size", 9000)
	_ = store.Set("processing.requests_per_second", 2)
	_ = store.Set("processing.chunk_timeout", "45s")
	_ = store.Set("processing.postprocessors", []any{"aliases"})
	_ = store.Set("storage.backend", "gcs")
	_ = store.Set("storage.bucket", "estimates")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-x", settings.LLM.Model)
	assert.Equal(t, "sk-stored", settings.LLM.APIKey)
	assert.False(t, settings.LLM.JSONMode)
	assert.Zero(t, settings.LLM.Temperature)
	assert.Equal(t, 9000, settings.Processing.WindowSize)
	assert.Equal(t, 2.0, settings.Processing.RequestsPerSecond)
	assert.Equal(t, 45*time.Second, settings.Processing.ChunkTimeout)
	assert.Equal(t, []string{"aliases"}, settings.Processing.PostProcessors)
	assert.Equal(t, domain.StorageBackendGCS, settings.Storage.Backend)
	assert.Equal(t, "estimates", settings.Storage.Bucket)
}

func TestSettingsService_Get_DurationInSeconds(t *testing.T) {
	service, store := newTestSettings(t, nil)
	_ = store.Set("llm.timeout", 90)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, settings.LLM.Timeout)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	service, store := newTestSettings(t, nil)
	_ = store.Set("llm.provider", "invalid_provider")
	_ = store.Set("storage.backend", "s3")
	_ = store.Set("llm.timeout", "soon")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Empty(t, settings.LLM.Provider)
	assert.Equal(t, domain.StorageBackendFilesystem, settings.Storage.Backend)
	assert.Equal(t, domain.DefaultLLMTimeout, settings.LLM.Timeout)
}

func TestSettingsService_Get_APIKeyFromEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		env      map[string]string
		want     string
	}{
		{"openai", "openai", map[string]string{"OPENAI_API_KEY": "sk-openai"}, "sk-openai"},
		{"anthropic", "anthropic", map[string]string{"ANTHROPIC_API_KEY": "sk-ant"}, "sk-ant"},
		{"azure falls back to openai", "azure", map[string]string{"OPENAI_API_KEY": "sk-openai"}, "sk-openai"},
		{"override wins", "openai", map[string]string{"OPENAI_API_KEY": "sk-openai", "TALLY_LLM_API_KEY": "sk-tally"}, "sk-tally"},
		{"ollama needs none", "ollama", map[string]string{"TALLY_LLM_API_KEY": "sk-tally"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newTestSettings(t, tt.env)
			_ = store.Set("llm.provider", tt.provider)

			settings, err := service.Get()

			require.NoError(t, err)
			assert.Equal(t, tt.want, settings.LLM.APIKey)
		})
	}
}

func TestSettingsService_Get_StoredKeyBeatsEnvironment(t *testing.T) {
	service, store := newTestSettings(t, map[string]string{"OPENAI_API_KEY": "sk-env"})
	_ = store.Set("llm.provider", "openai")
	_ = store.Set("llm.api_key", "sk-file")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-file", settings.LLM.APIKey)
}

func TestSettingsService_Get_PostProcessorConfig(t *testing.T) {
	service, store := newTestSettings(t, nil)
	_ = store.Set("postprocessors.aliases.extra.lineItemz", "line_items")
	_ = store.Set("postprocessors.aliases.extra.roomz", "rooms")
	_ = store.Set("postprocessors.schema.strict", true)

	settings, err := service.Get()

	require.NoError(t, err)
	cfg := settings.Processing.PostProcessorConfig
	require.Contains(t, cfg, "aliases")
	assert.Equal(t, map[string]any{"lineItemz": "line_items", "roomz": "rooms"}, cfg["aliases"]["extra"])
	assert.Equal(t, true, cfg["schema"]["strict"])
}

func TestSettingsService_Save_RoundTrip(t *testing.T) {
	service, _ := newTestSettings(t, nil)
	settings := domain.DefaultAppSettings()
	settings.LLM.Provider = domain.AIProviderOpenAI
	settings.LLM.Model = "gpt-4o"
	settings.LLM.APIKey = "sk-test"
	settings.LLM.Timeout = 2 * time.Minute
	settings.Processing.Concurrency = 8
	settings.Processing.MaxRetries = 2
	settings.Processing.ChunkTimeout = 30 * time.Second
	settings.Storage.OutputPrefixName = "tally_"
	settings.Rules.Path = "rules.xlsx"

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, got.LLM.Provider)
	assert.Equal(t, "gpt-4o", got.LLM.Model)
	assert.Equal(t, "sk-test", got.LLM.APIKey)
	assert.Equal(t, 2*time.Minute, got.LLM.Timeout)
	assert.Equal(t, 8, got.Processing.Concurrency)
	assert.Equal(t, 2, got.Processing.MaxRetries)
	assert.Equal(t, 30*time.Second, got.Processing.ChunkTimeout)
	assert.Equal(t, "tally_", got.Storage.OutputPrefixName)
	assert.Equal(t, "rules.xlsx", got.Rules.Path)
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKey(t *testing.T) {
	service, store := newTestSettings(t, map[string]string{"OPENAI_API_KEY": "sk-env"})
	_ = store.Set("llm.provider", "openai")

	settings, err := service.Get()
	require.NoError(t, err)
	require.NoError(t, service.Save(settings))

	_, exists := store.Get("llm.api_key")
	assert.False(t, exists)
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	t.Run("cloud provider gets default model", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)

		require.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", "sk-test"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
		assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderOpenAI], settings.LLM.Model)
		assert.Equal(t, "sk-test", settings.LLM.APIKey)
		assert.Empty(t, settings.LLM.BaseURL)
	})

	t.Run("ollama gets local base url", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)

		require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "llama3.1", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "llama3.1", settings.LLM.Model)
		assert.Equal(t, "http://localhost:11434", settings.LLM.BaseURL)
	})

	t.Run("azure keeps its endpoint", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)
		require.NoError(t, service.SetLLMEndpoint("https://acme.openai.azure.com/", "2024-06-01"))

		require.NoError(t, service.SetLLMProvider(domain.AIProviderAzureOpenAI, "estimates", "az-key"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "https://acme.openai.azure.com", settings.LLM.BaseURL)
		assert.Equal(t, "2024-06-01", settings.LLM.APIVersion)
		assert.True(t, settings.LLM.IsConfigured())
	})

	t.Run("missing api key", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)

		err := service.SetLLMProvider(domain.AIProviderAnthropic, "", "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key required")
	})

	t.Run("api key from environment", func(t *testing.T) {
		service, store := newTestSettings(t, map[string]string{"ANTHROPIC_API_KEY": "sk-ant"})

		require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", ""))

		_, persisted := store.Get("llm.api_key")
		assert.False(t, persisted)
	})

	t.Run("invalid provider", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)

		err := service.SetLLMProvider(domain.AIProvider("bogus"), "", "key")

		require.Error(t, err)
	})
}

func TestSettingsService_SetValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, s *domain.AppSettings)
	}{
		{"int", "processing.concurrency", "3", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 3, s.Processing.Concurrency)
		}},
		{"float", "processing.requests_per_second", "1.5", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 1.5, s.Processing.RequestsPerSecond)
		}},
		{"bool", "llm.json_mode", "false", func(t *testing.T, s *domain.AppSettings) {
			assert.False(t, s.LLM.JSONMode)
		}},
		{"duration", "processing.chunk_timeout", "2m", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, 2*time.Minute, s.Processing.ChunkTimeout)
		}},
		{"list", "processing.postprocessors", "aliases, schema ,", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, []string{"aliases", "schema"}, s.Processing.PostProcessors)
		}},
		{"backend", "storage.backend", "gcs", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, domain.StorageBackendGCS, s.Storage.Backend)
		}},
		{"string", "rules.sheet", "Rules", func(t *testing.T, s *domain.AppSettings) {
			assert.Equal(t, "Rules", s.Rules.Sheet)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestSettings(t, nil)

			require.NoError(t, service.SetValue(tt.key, tt.value))

			settings, err := service.Get()
			require.NoError(t, err)
			tt.check(t, settings)
		})
	}
}

func TestSettingsService_SetValue_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"negative int", "processing.concurrency", "-1"},
		{"not an int", "processing.window_size", "big"},
		{"bad bool", "llm.json_mode", "sometimes"},
		{"bad duration", "llm.timeout", "10 minutes"},
		{"bad provider", "llm.provider", "bogus"},
		{"bad backend", "storage.backend", "s3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestSettings(t, nil)

			err := service.SetValue(tt.key, tt.value)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestSettingsService_Keys(t *testing.T) {
	service, _ := newTestSettings(t, nil)

	keys := service.Keys()

	assert.IsIncreasing(t, keys)
	assert.Contains(t, keys, "llm.provider")
	assert.Contains(t, keys, "processing.window_size")
	assert.Contains(t, keys, "storage.bucket")
	for _, k := range keys {
		assert.NoError(t, service.SetValue(k, sampleValue(k)), k)
	}
}

// sampleValue returns a value SetValue accepts for key.
func sampleValue(key string) string {
	switch settableKeys[key] {
	case kindInt:
		return "1"
	case kindFloat:
		return "0.5"
	case kindBool:
		return "true"
	case kindDuration:
		return "1s"
	case kindList:
		return "aliases"
	}
	switch key {
	case keyLLMProvider:
		return "ollama"
	case keyStorageBackend:
		return "filesystem"
	}
	return "value"
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("unconfigured llm", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)

		err := service.Validate()

		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})

	t.Run("configured", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)
		require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))

		assert.NoError(t, service.Validate())
	})

	t.Run("overlap too large and missing bucket", func(t *testing.T) {
		service, store := newTestSettings(t, nil)
		require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))
		_ = store.Set("processing.window_size", 100)
		_ = store.Set("processing.overlap", 100)
		_ = store.Set("storage.backend", "gcs")

		err := service.Validate()

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "overlap")
		assert.Contains(t, err.Error(), "storage.bucket")
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil, WithSettingsGetenv(noEnv))

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateLLMConfig(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service, _ := newTestSettings(t, nil)

		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates current settings", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("llm.provider", "ollama")
		validator := &mockValidator{err: errors.New("connection refused")}
		service := NewSettingsService(store, validator, WithSettingsGetenv(noEnv))

		err := service.ValidateLLMConfig()

		require.Error(t, err)
		assert.True(t, validator.called)
		assert.Equal(t, domain.AIProviderOllama, validator.got.Provider)
	})
}
