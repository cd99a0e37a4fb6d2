// Command tally extracts canonical estimate documents from document text.
//
// main is the composition root: it reads settings, opens the stores and
// wires the core services into the CLI. A missing LLM configuration is
// not fatal so that `tally settings llm` can run to fix it.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/tally-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/tally-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tally-cli/internal/adapters/driven/rules"
	"github.com/custodia-labs/tally-cli/internal/adapters/driven/storage/filesystem"
	"github.com/custodia-labs/tally-cli/internal/adapters/driven/storage/gcs"
	"github.com/custodia-labs/tally-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/tally-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tally-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/tally-cli/internal/chunker"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/core/services"
	"github.com/custodia-labs/tally-cli/internal/dispatch"
	"github.com/custodia-labs/tally-cli/internal/logger"
	"github.com/custodia-labs/tally-cli/internal/parser"
	"github.com/custodia-labs/tally-cli/internal/postprocessors"
	"github.com/custodia-labs/tally-cli/internal/prompts"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	ctx := context.Background()
	log := logger.L()

	configDir := os.Getenv("TALLY_HOME")
	var configStore driven.ConfigStore
	fileStore, err := file.NewConfigStore(configDir,
		file.WithEnv("storage.bucket", "TALLY_GCS_BUCKET"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config unavailable, using defaults: %v\n", err)
		configStore = memory.NewConfigStore()
	} else {
		configStore = fileStore
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		return 1
	}

	promptDir := ""
	if configDir != "" {
		promptDir = filepath.Join(configDir, "prompts")
	}
	promptStore, err := file.NewPromptStore(promptDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening prompts: %v\n", err)
		return 1
	}

	dataDir := settings.DataDir
	if dataDir == "" && configDir != "" {
		dataDir = filepath.Join(configDir, "data")
	}
	var runs driven.RunStore
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run history unavailable, runs are kept in memory: %v\n", err)
		runs = memory.NewRunStore()
	} else {
		defer store.Close()
		runs = store.RunStore()
	}

	// The oracle is optional until a command needs it.
	oracle, err := ai.CreateOracle(&settings.LLM)
	if err != nil {
		logger.Debug("llm unavailable: %v", err)
	}
	if oracle != nil {
		defer oracle.Close()
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, log)
	pipeline, err := registry.BuildPipeline(settings.Processing.PostProcessors, settings.Processing.PostProcessorConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building post-processors: %v\n", err)
		return 1
	}

	opts := []services.EstimateOption{
		services.WithRunStore(runs),
		services.WithPipeline(pipeline),
		services.WithEstimateLogger(log),
		services.WithOutputPrefix(settings.Storage.OutputPrefixName),
		services.WithSplitter(chunker.New(
			chunker.WithWindowSize(settings.Processing.WindowSize),
			chunker.WithOverlap(settings.Processing.Overlap),
			chunker.WithThreshold(settings.Processing.ChunkThreshold),
		)),
	}
	if settings.Rules.Path != "" {
		ruleSource, err := rules.NewSource(settings.Rules.Path, settings.Rules.Sheet)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening rules: %v\n", err)
			return 1
		}
		opts = append(opts, services.WithRuleSource(ruleSource))
	}
	if oracle != nil {
		opts = append(opts, services.WithDispatcher(dispatch.New(oracle,
			dispatch.ConfigFromSettings(settings.Processing, settings.LLM),
			dispatch.WithPrompts(prompts.New(promptStore)),
			dispatch.WithParser(parser.New()),
			dispatch.WithPipeline(pipeline),
			dispatch.WithLogger(log),
		)))
	}

	var estimate *services.EstimateService
	source, err := documentSource(ctx, settings.Storage)
	if err != nil {
		// Settings and run history stay usable without a document source.
		logger.Warn("document source unavailable: %v", err)
	} else {
		estimate = services.NewEstimateService(source, oracle, opts...)
	}
	api := services.NewEstimateService(memory.NewDocumentSource(), oracle, opts...)

	svc := cli.Services{
		API:      api,
		Runs:     services.NewRunService(runs),
		Settings: settingsService,
	}
	// A nil *EstimateService must not become a non-nil interface.
	if estimate != nil {
		svc.Estimate = estimate
	}
	cli.SetVersion(version)
	cli.SetServices(svc)

	if err := cli.Run(); err != nil {
		return 1
	}
	return 0
}

// documentSource opens the configured storage backend.
func documentSource(ctx context.Context, s domain.StorageSettings) (driven.DocumentSource, error) {
	switch s.Backend {
	case domain.StorageBackendGCS:
		return gcs.NewDocumentSource(ctx, gcs.Config{
			Bucket:          s.Bucket,
			InputPrefix:     s.InputPrefix,
			OutputPrefix:    s.OutputPrefix,
			CredentialsFile: s.CredentialsFile,
		})
	default:
		return filesystem.NewDocumentSource(s.InputDir, s.OutputDir)
	}
}
