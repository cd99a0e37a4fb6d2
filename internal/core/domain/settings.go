package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an extraction oracle provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAzureOpenAI is an Azure OpenAI deployment.
	AIProviderAzureOpenAI AIProvider = "azure"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAzureOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAzureOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAzureOpenAI:
		return "Azure OpenAI (deployment)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds extraction oracle configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the model name, or the deployment name for Azure.
	Model string

	// BaseURL is the API endpoint (Ollama, Azure, or a proxy).
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// APIVersion is the Azure OpenAI api-version query value.
	APIVersion string

	// MaxTokens is the completion token budget per call.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// Timeout bounds a single HTTP call.
	Timeout time.Duration

	// TruncationMultiple flags a response as truncated when it is longer
	// than MaxTokens times this many characters.
	TruncationMultiple int

	// JSONMode requests a JSON object response format where supported.
	JSONMode bool
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	if l.Provider == AIProviderAzureOpenAI && l.BaseURL == "" {
		return false
	}
	return true
}

// ProcessingSettings controls chunking and dispatch.
type ProcessingSettings struct {
	// ChunkThreshold is the text length above which documents are split.
	ChunkThreshold int

	// WindowSize is the chunk length in characters.
	WindowSize int

	// Overlap is the number of characters shared by adjacent chunks.
	Overlap int

	// Concurrency is the number of oracle calls in flight.
	Concurrency int

	// MaxRetries is the number of extra attempts for a failed chunk.
	MaxRetries int

	// ChunkTimeout bounds one chunk end to end. Zero means no timeout.
	ChunkTimeout time.Duration

	// RequestsPerSecond caps oracle calls. Zero means unlimited.
	RequestsPerSecond float64

	// PostProcessors is the ordered list of partial document processors.
	PostProcessors []string

	// PostProcessorConfig holds per-processor settings keyed by name.
	PostProcessorConfig map[string]map[string]any
}

// StorageBackend identifies where source text and results live.
type StorageBackend string

// Available storage backends.
const (
	// StorageBackendFilesystem reads and writes local directories.
	StorageBackendFilesystem StorageBackend = "filesystem"

	// StorageBackendGCS reads and writes a Google Cloud Storage bucket.
	StorageBackendGCS StorageBackend = "gcs"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageBackendFilesystem || b == StorageBackendGCS
}

// StorageSettings holds document source configuration.
type StorageSettings struct {
	// Backend selects the document source implementation.
	Backend StorageBackend

	// InputDir holds extracted text files (filesystem backend).
	InputDir string

	// OutputDir receives canonical JSON files (filesystem backend).
	OutputDir string

	// Bucket is the GCS bucket name.
	Bucket string

	// InputPrefix is the object prefix for extracted text (GCS).
	InputPrefix string

	// OutputPrefix is the object prefix for canonical JSON (GCS).
	OutputPrefix string

	// CredentialsFile is an optional service account key for GCS.
	CredentialsFile string

	// OutputPrefixName is prepended to every output file name.
	OutputPrefixName string
}

// RulesSettings locates validation rules.
type RulesSettings struct {
	// Path is a .xlsx, .yaml, .yml or .json rules file.
	Path string

	// Sheet is the spreadsheet sheet name. Empty uses the first sheet.
	Sheet string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// LLM holds oracle settings.
	LLM LLMSettings

	// Processing holds chunking and dispatch settings.
	Processing ProcessingSettings

	// Storage holds document source settings.
	Storage StorageSettings

	// Rules holds rule source settings.
	Rules RulesSettings

	// DataDir holds the run history database. Empty uses ~/.tally/data.
	DataDir string
}

// Processing defaults.
const (
	DefaultChunkThreshold     = 50000
	DefaultWindowSize         = 15000
	DefaultOverlap            = 2000
	DefaultConcurrency        = 5
	DefaultMaxTokens          = 32000
	DefaultTemperature        = 0.2
	DefaultTruncationMultiple = 3
	DefaultLLMTimeout         = 10 * time.Minute
)

// DefaultPostProcessors is the default partial document pipeline.
func DefaultPostProcessors() []string {
	return []string{"aliases", "schema"}
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM provider is left unconfigured; users set it explicitly.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			MaxTokens:          DefaultMaxTokens,
			Temperature:        DefaultTemperature,
			Timeout:            DefaultLLMTimeout,
			TruncationMultiple: DefaultTruncationMultiple,
			JSONMode:           true,
		},
		Processing: ProcessingSettings{
			ChunkThreshold: DefaultChunkThreshold,
			WindowSize:     DefaultWindowSize,
			Overlap:        DefaultOverlap,
			Concurrency:    DefaultConcurrency,
			PostProcessors: DefaultPostProcessors(),
		},
		Storage: StorageSettings{
			Backend:   StorageBackendFilesystem,
			InputDir:  "input",
			OutputDir: "output",
		},
	}
}

// AllLLMProviders returns providers that can serve extraction.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAzureOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:      "llama3.2",
		AIProviderOpenAI:      "gpt-4o-mini",
		AIProviderAzureOpenAI: "gpt-4o",
		AIProviderAnthropic:   "claude-3-5-sonnet-latest",
	}
}

// IsTruncated reports whether a completion was cut off: the provider
// says it hit the token limit, or the text is implausibly long for the
// token budget.
func (l LLMSettings) IsTruncated(finishReason, text string) bool {
	switch finishReason {
	case "length", "max_tokens":
		return true
	}
	multiple := l.TruncationMultiple
	if multiple <= 0 {
		multiple = DefaultTruncationMultiple
	}
	return l.MaxTokens > 0 && len(text) > l.MaxTokens*multiple
}
