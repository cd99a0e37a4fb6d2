package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/adapters/driving/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view [canonical.json]",
	Short: "Browse estimates in the terminal UI",
	Long: `Launch the interactive terminal UI.

With a file argument the UI browses that canonical document. Without one
it starts on the run history and opens the document saved by the chosen
run.

Controls:
  ↑/k, ↓/j    Navigate rooms or runs
  pgup, pgdn  Scroll the room detail
  f           Show only rooms with flagged validations
  /           Filter rooms by name
  Esc         Back
  ?           Toggle help
  q           Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := newViewApp(cmd, args)
	if err != nil {
		return err
	}
	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func newViewApp(cmd *cobra.Command, args []string) (*tui.App, error) {
	if len(args) == 1 {
		doc, err := readCanonical(cmd, args[0])
		if err != nil {
			return nil, err
		}
		return tui.NewDocumentApp(filepath.Base(args[0]), doc)
	}
	if runService == nil {
		return nil, errNoRunService
	}
	return tui.NewApp(&tui.Ports{Runs: runService})
}
