package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider           = "llm.provider"
	keyLLMModel              = "llm.model"
	keyLLMBaseURL            = "llm.base_url"
	keyLLMAPIKey             = "llm.api_key"
	keyLLMAPIVersion         = "llm.api_version"
	keyLLMMaxTokens          = "llm.max_tokens"
	keyLLMTemperature        = "llm.temperature"
	keyLLMTimeout            = "llm.timeout"
	keyLLMTruncationMultiple = "llm.truncation_multiple"
	keyLLMJSONMode           = "llm.json_mode"

	keyChunkThreshold    = "processing.chunk_threshold"
	keyWindowSize        = "processing.window_size"
	keyOverlap           = "processing.overlap"
	keyConcurrency       = "processing.concurrency"
	keyMaxRetries        = "processing.max_retries"
	keyChunkTimeout      = "processing.chunk_timeout"
	keyRequestsPerSecond = "processing.requests_per_second"
	keyPostProcessors    = "processing.postprocessors"

	keyStorageBackend     = "storage.backend"
	keyStorageInputDir    = "storage.input_dir"
	keyStorageOutputDir   = "storage.output_dir"
	keyStorageBucket      = "storage.bucket"
	keyStorageInputPfx    = "storage.input_prefix"
	keyStorageOutputPfx   = "storage.output_prefix"
	keyStorageCredentials = "storage.credentials_file"
	keyStorageNamePrefix  = "storage.output_name_prefix"

	keyRulesPath  = "rules.path"
	keyRulesSheet = "rules.sheet"

	keyDataDir = "data_dir"

	// prefixPostProcessorConfig holds per-processor tables
	// ([postprocessors.aliases.extra]).
	prefixPostProcessorConfig = "postprocessors."
)

// envAPIKeyOverride applies to every provider that needs a key.
const envAPIKeyOverride = "TALLY_LLM_API_KEY"

// providerKeyEnv names the environment variables consulted for an API key
// when none is configured.
var providerKeyEnv = map[domain.AIProvider][]string{
	domain.AIProviderOpenAI:      {"OPENAI_API_KEY"},
	domain.AIProviderAzureOpenAI: {"AZURE_OPENAI_API_KEY", "OPENAI_API_KEY"},
	domain.AIProviderAnthropic:   {"ANTHROPIC_API_KEY"},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithSettingsGetenv replaces the environment lookup used for API key fallbacks.
func WithSettingsGetenv(fn func(string) string) SettingsOption {
	return func(s *SettingsService) { s.getenv = fn }
}

// NewSettingsService creates a new settings service.
func NewSettingsService(
	configStore driven.ConfigStore,
	aiValidator driven.AIConfigValidator,
	opts ...SettingsOption,
) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	provider := s.getProvider(d.LLM.Provider)
	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:           provider,
			Model:              s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:            s.configStore.GetString(keyLLMBaseURL),
			APIKey:             s.apiKey(provider),
			APIVersion:         s.configStore.GetString(keyLLMAPIVersion),
			MaxTokens:          s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			Temperature:        s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			Timeout:            s.getDuration(keyLLMTimeout, d.LLM.Timeout),
			TruncationMultiple: s.getInt(keyLLMTruncationMultiple, d.LLM.TruncationMultiple),
			JSONMode:           s.getBool(keyLLMJSONMode, d.LLM.JSONMode),
		},
		Processing: domain.ProcessingSettings{
			ChunkThreshold:      s.getInt(keyChunkThreshold, d.Processing.ChunkThreshold),
			WindowSize:          s.getInt(keyWindowSize, d.Processing.WindowSize),
			Overlap:             s.getInt(keyOverlap, d.Processing.Overlap),
			Concurrency:         s.getInt(keyConcurrency, d.Processing.Concurrency),
			MaxRetries:          s.configStore.GetInt(keyMaxRetries),
			ChunkTimeout:        s.getDuration(keyChunkTimeout, d.Processing.ChunkTimeout),
			RequestsPerSecond:   s.configStore.GetFloat(keyRequestsPerSecond),
			PostProcessors:      s.getStringSlice(keyPostProcessors, d.Processing.PostProcessors),
			PostProcessorConfig: s.postProcessorConfig(),
		},
		Storage: domain.StorageSettings{
			Backend:          s.getBackend(d.Storage.Backend),
			InputDir:         s.getString(keyStorageInputDir, d.Storage.InputDir),
			OutputDir:        s.getString(keyStorageOutputDir, d.Storage.OutputDir),
			Bucket:           s.configStore.GetString(keyStorageBucket),
			InputPrefix:      s.configStore.GetString(keyStorageInputPfx),
			OutputPrefix:     s.configStore.GetString(keyStorageOutputPfx),
			CredentialsFile:  s.configStore.GetString(keyStorageCredentials),
			OutputPrefixName: s.configStore.GetString(keyStorageNamePrefix),
		},
		Rules: domain.RulesSettings{
			Path:  s.configStore.GetString(keyRulesPath),
			Sheet: s.configStore.GetString(keyRulesSheet),
		},
		DataDir: s.configStore.GetString(keyDataDir),
	}

	return settings, nil
}

// Save persists application settings.
// An API key is only written when set, so environment keys are never copied to disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMAPIVersion, settings.LLM.APIVersion},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyLLMTruncationMultiple, settings.LLM.TruncationMultiple},
		{keyLLMJSONMode, settings.LLM.JSONMode},
		{keyChunkThreshold, settings.Processing.ChunkThreshold},
		{keyWindowSize, settings.Processing.WindowSize},
		{keyOverlap, settings.Processing.Overlap},
		{keyConcurrency, settings.Processing.Concurrency},
		{keyMaxRetries, settings.Processing.MaxRetries},
		{keyChunkTimeout, settings.Processing.ChunkTimeout.String()},
		{keyRequestsPerSecond, settings.Processing.RequestsPerSecond},
		{keyPostProcessors, settings.Processing.PostProcessors},
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageInputDir, settings.Storage.InputDir},
		{keyStorageOutputDir, settings.Storage.OutputDir},
		{keyStorageBucket, settings.Storage.Bucket},
		{keyStorageInputPfx, settings.Storage.InputPrefix},
		{keyStorageOutputPfx, settings.Storage.OutputPrefix},
		{keyStorageCredentials, settings.Storage.CredentialsFile},
		{keyStorageNamePrefix, settings.Storage.OutputPrefixName},
		{keyRulesPath, settings.Rules.Path},
		{keyRulesSheet, settings.Rules.Sheet},
		{keyDataDir, settings.DataDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.LLM.APIKey != "" && settings.LLM.APIKey != s.envAPIKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	previous := settings.LLM.Provider
	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	switch {
	case provider.IsLocal():
		if settings.LLM.BaseURL == "" || previous != provider {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	case provider == domain.AIProviderAzureOpenAI:
		// Azure keeps its deployment endpoint.
	default:
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMEndpoint sets the base URL and api-version.
func (s *SettingsService) SetLLMEndpoint(baseURL, apiVersion string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if apiVersion != "" {
		settings.LLM.APIVersion = apiVersion
	}
	return s.Save(settings)
}

// valueKind is how SetValue parses a setting.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
)

// settableKeys lists the keys SetValue accepts.
var settableKeys = map[string]valueKind{
	keyLLMProvider:           kindString,
	keyLLMModel:              kindString,
	keyLLMBaseURL:            kindString,
	keyLLMAPIKey:             kindString,
	keyLLMAPIVersion:         kindString,
	keyLLMMaxTokens:          kindInt,
	keyLLMTemperature:        kindFloat,
	keyLLMTimeout:            kindDuration,
	keyLLMTruncationMultiple: kindInt,
	keyLLMJSONMode:           kindBool,
	keyChunkThreshold:        kindInt,
	keyWindowSize:            kindInt,
	keyOverlap:               kindInt,
	keyConcurrency:           kindInt,
	keyMaxRetries:            kindInt,
	keyChunkTimeout:          kindDuration,
	keyRequestsPerSecond:     kindFloat,
	keyPostProcessors:        kindList,
	keyStorageBackend:        kindString,
	keyStorageInputDir:       kindString,
	keyStorageOutputDir:      kindString,
	keyStorageBucket:         kindString,
	keyStorageInputPfx:       kindString,
	keyStorageOutputPfx:      kindString,
	keyStorageCredentials:    kindString,
	keyStorageNamePrefix:     kindString,
	keyRulesPath:             kindString,
	keyRulesSheet:            kindString,
	keyDataDir:               kindString,
}

// Keys returns the dotted keys SetValue accepts, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetValue parses value for key and stores it.
func (s *SettingsService) SetValue(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	value = strings.TrimSpace(value)

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer: %w", key, domain.ErrInvalidInput)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number: %w", key, domain.ErrInvalidInput)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, domain.ErrInvalidInput)
		}
		parsed = b
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("%s must be a duration such as 90s: %w", key, domain.ErrInvalidInput)
		}
		parsed = d.String()
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		parsed = items
	default:
		parsed = value
	}

	switch key {
	case keyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("invalid LLM provider %q: %w", value, domain.ErrInvalidInput)
		}
	case keyStorageBackend:
		if !domain.StorageBackend(value).IsValid() {
			return fmt.Errorf("invalid storage backend %q: %w", value, domain.ErrInvalidInput)
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks that the current settings can run extraction.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("LLM provider is not configured: %w", domain.ErrLLMUnavailable))
	}
	p := settings.Processing
	if p.WindowSize <= p.Overlap {
		errs = append(errs, fmt.Errorf("window size %d must exceed overlap %d: %w", p.WindowSize, p.Overlap, domain.ErrInvalidInput))
	}
	if p.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1: %w", domain.ErrInvalidInput))
	}
	if settings.Storage.Backend == domain.StorageBackendGCS && settings.Storage.Bucket == "" {
		errs = append(errs, fmt.Errorf("gcs backend requires storage.bucket: %w", domain.ErrInvalidInput))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

// getDuration accepts a duration string or a number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	if str, ok := raw.(string); ok {
		d, err := time.ParseDuration(str)
		if err != nil {
			return defaultVal
		}
		return d
	}
	return time.Duration(s.configStore.GetFloat(key) * float64(time.Second))
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(keyLLMProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// apiKey returns the configured key or the provider's environment key.
func (s *SettingsService) apiKey(provider domain.AIProvider) string {
	if key := s.configStore.GetString(keyLLMAPIKey); key != "" {
		return key
	}
	return s.envAPIKey(provider)
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	if !provider.RequiresAPIKey() {
		return ""
	}
	if v := s.getenv(envAPIKeyOverride); v != "" {
		return v
	}
	for _, name := range providerKeyEnv[provider] {
		if v := s.getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// postProcessorConfig rebuilds the per-processor tables from dotted keys.
// "postprocessors.aliases.extra.lineItemz" becomes
// {"aliases": {"extra": {"lineItemz": ...}}}.
func (s *SettingsService) postProcessorConfig() map[string]map[string]any {
	keys := s.configStore.Keys(prefixPostProcessorConfig)
	if len(keys) == 0 {
		return nil
	}
	out := make(map[string]map[string]any)
	for _, key := range keys {
		path := strings.Split(strings.TrimPrefix(key, prefixPostProcessorConfig), ".")
		if len(path) < 2 {
			continue
		}
		value, _ := s.configStore.Get(key)
		cfg, ok := out[path[0]]
		if !ok {
			cfg = make(map[string]any)
			out[path[0]] = cfg
		}
		setNested(cfg, path[1:], value)
	}
	return out
}

func setNested(m map[string]any, path []string, value any) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}
