package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/watch"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/logger"
)

var (
	watchDir      string
	watchExisting bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process text files as they arrive",
	Long: `Watch the input directory and process every .txt file that is created
or rewritten. Runs until interrupted.

Only the filesystem storage backend can be watched.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory to watch (default storage.input_dir)")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also process files already present")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before a file is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if estimateService == nil {
		return errNoEstimateService
	}
	dir := watchDir
	if dir == "" {
		if settingsService == nil {
			return errNoSettingsService
		}
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if settings.Storage.Backend != domain.StorageBackendFilesystem {
			return fmt.Errorf("%w: watch needs the filesystem backend, have %s",
				domain.ErrInvalidInput, settings.Storage.Backend)
		}
		dir = settings.Storage.InputDir
	}

	w, err := watch.New(watch.Config{
		Dir:         dir,
		InitialScan: watchExisting,
		Debounce:    watchDebounce,
		Logger:      logger.L(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	for name := range w.Run(ctx) {
		res, err := estimateService.Process(ctx, name)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			cmd.Printf("✗ %s: %v\n", name, err)
			continue
		}
		printProcessResult(cmd, res)
	}
	return nil
}
