// Package cli implements the tally command line.
package cli

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Services the commands run against. Set by the composition root.
var (
	estimateService driving.EstimateService
	apiService      driving.EstimateService
	runService      driving.RunService
	settingsService driving.SettingsService
)

var (
	errNoEstimateService = errors.New("estimate service not configured")
	errNoRunService      = errors.New("run service not configured")
	errNoSettingsService = errors.New("settings service not configured")
)

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "Extract structured estimates from document text",
	Long: `Tally turns the extracted text of construction and insurance
estimates into one canonical JSON document per estimate.

Long documents are split into overlapping chunks, each chunk is sent to
the configured LLM, and the partial results are merged into rooms, recap
tables, totals and a validation summary.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Services groups the core services the CLI drives.
type Services struct {
	// Estimate processes documents from the configured document source.
	Estimate driving.EstimateService

	// API processes text posted to the HTTP and MCP servers. Falls back
	// to Estimate when nil.
	API driving.EstimateService

	Runs     driving.RunService
	Settings driving.SettingsService
}

// SetServices installs the services used by every command.
func SetServices(s Services) {
	estimateService = s.Estimate
	apiService = s.API
	if apiService == nil {
		apiService = s.Estimate
	}
	runService = s.Runs
	settingsService = s.Settings
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Run executes the root command and returns its error. Callers with
// deferred cleanup use it instead of Execute.
func Run() error {
	return rootCmd.Execute()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := Run(); err != nil {
		os.Exit(1)
	}
}
