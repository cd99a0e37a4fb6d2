package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the LLM provider, chunking, storage and rules.

Use subcommands to configure specific settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one setting",
	Long: `Set one setting by its dotted key, for example:

  tally settings set processing.concurrency 8
  tally settings set storage.backend gcs
  tally settings set rules.path ~/rules.xlsx

Run 'tally settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys 'settings set' accepts",
	RunE:  runSettingsKeys,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that extracts estimates.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	llm := settings.LLM
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", llm.Provider.Description())
	cmd.Printf("  Model: %s\n", llm.Model)
	if llm.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", llm.BaseURL)
	}
	if llm.Provider == domain.AIProviderAzureOpenAI {
		cmd.Printf("  API Version: %s\n", llm.APIVersion)
	}
	if llm.Provider.RequiresAPIKey() {
		if llm.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(llm.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Max Tokens: %d\n", llm.MaxTokens)
	cmd.Printf("  Temperature: %.2f\n", llm.Temperature)
	cmd.Printf("  JSON Mode: %t\n", llm.JSONMode)
	status := "configured"
	if !llm.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	p := settings.Processing
	cmd.Println("[Processing]")
	cmd.Printf("  Chunk Threshold: %d\n", p.ChunkThreshold)
	cmd.Printf("  Window Size: %d\n", p.WindowSize)
	cmd.Printf("  Overlap: %d\n", p.Overlap)
	cmd.Printf("  Concurrency: %d\n", p.Concurrency)
	cmd.Printf("  Max Retries: %d\n", p.MaxRetries)
	if p.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/sec: %g\n", p.RequestsPerSecond)
	}
	if p.ChunkTimeout > 0 {
		cmd.Printf("  Chunk Timeout: %s\n", p.ChunkTimeout)
	}
	cmd.Printf("  Post-processors: %s\n", strings.Join(p.PostProcessors, ", "))
	cmd.Println()

	s := settings.Storage
	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", s.Backend)
	switch s.Backend {
	case domain.StorageBackendGCS:
		cmd.Printf("  Bucket: %s\n", s.Bucket)
		cmd.Printf("  Input Prefix: %s\n", s.InputPrefix)
		cmd.Printf("  Output Prefix: %s\n", s.OutputPrefix)
	default:
		cmd.Printf("  Input Dir: %s\n", s.InputDir)
		cmd.Printf("  Output Dir: %s\n", s.OutputDir)
	}
	if s.OutputPrefixName != "" {
		cmd.Printf("  Output Name Prefix: %s\n", s.OutputPrefixName)
	}
	cmd.Println()

	cmd.Println("[Rules]")
	if settings.Rules.Path == "" {
		cmd.Println("  Path: (none)")
	} else {
		cmd.Printf("  Path: %s\n", settings.Rules.Path)
		if settings.Rules.Sheet != "" {
			cmd.Printf("  Sheet: %s\n", settings.Rules.Sheet)
		}
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'tally settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}
	if err := settingsService.SetValue(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s set\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettingsService
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	if selectedProvider == domain.AIProviderAzureOpenAI {
		cmd.Printf("Enter deployment name [%s]: ", defaultModel)
	} else {
		cmd.Printf("Enter model name [%s]: ", defaultModel)
	}
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use the environment): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	if selectedProvider == domain.AIProviderAzureOpenAI || selectedProvider.IsLocal() {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		cmd.Printf("Enter endpoint URL [%s]: ", settings.LLM.BaseURL)
		baseURL := readLine(reader)
		if baseURL == "" {
			baseURL = settings.LLM.BaseURL
		}
		var apiVersion string
		if selectedProvider == domain.AIProviderAzureOpenAI {
			cmd.Printf("Enter api-version [%s]: ", settings.LLM.APIVersion)
			apiVersion = readLine(reader)
		}
		if baseURL == "" {
			return errors.New("an endpoint URL is required for this provider")
		}
		if err := settingsService.SetLLMEndpoint(baseURL, apiVersion); err != nil {
			return fmt.Errorf("failed to set endpoint: %w", err)
		}
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise a line
// from reader.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
