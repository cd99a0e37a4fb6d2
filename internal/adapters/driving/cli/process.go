package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
	"github.com/custodia-labs/tally-cli/internal/parser"
)

var (
	processJSON     bool
	processContinue bool
)

var processCmd = &cobra.Command{
	Use:   "process [document...]",
	Short: "Extract canonical documents from estimate text",
	Long: `Process extracted estimate text into canonical JSON documents.

With no arguments every pending document in the configured input location
is processed. Names are relative to the input location; for the filesystem
backend an absolute path is also accepted.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processJSON, "json", false, "print the run reports as JSON")
	processCmd.Flags().BoolVar(&processContinue, "keep-going", false, "continue with the next document after a failure")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if estimateService == nil {
		return errNoEstimateService
	}
	ctx := cmd.Context()

	names := args
	if len(names) == 0 {
		pending, err := estimateService.Pending(ctx)
		if err != nil {
			return fmt.Errorf("list pending documents: %w", err)
		}
		names = pending
	}
	if len(names) == 0 {
		cmd.Println("No documents to process.")
		return nil
	}

	var (
		reports []runReport
		errs    []error
	)
	for _, name := range names {
		res, err := estimateService.Process(ctx, name)
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			if !processContinue {
				return err
			}
			errs = append(errs, err)
			if !processJSON {
				cmd.Printf("✗ %v\n", err)
			}
			continue
		}
		reports = append(reports, newRunReport(res))
		if !processJSON {
			printProcessResult(cmd, res)
		}
	}

	if processJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal reports: %w", err)
		}
		cmd.Println(string(data))
	}
	return errors.Join(errs...)
}

// runReport is the JSON form of a processed document.
type runReport struct {
	RunID          string                `json:"run_id"`
	Document       string                `json:"document"`
	Output         string                `json:"output"`
	Status         domain.RunStatus      `json:"status"`
	Chunked        bool                  `json:"chunked"`
	ChunkCount     int                   `json:"chunk_count"`
	FailedChunks   []int                 `json:"failed_chunks"`
	UnparsedChunks []int                 `json:"unparsed_chunks"`
	Rooms          int                   `json:"rooms"`
	CriticalFlags  int                   `json:"critical_flags"`
	DurationMS     int64                 `json:"duration_ms"`
	Chunks         []driving.ChunkReport `json:"chunks"`
}

func newRunReport(res *driving.ProcessResult) runReport {
	r := res.Run
	return runReport{
		RunID:          r.ID,
		Document:       r.DocumentName,
		Output:         r.OutputName,
		Status:         r.Status,
		Chunked:        r.Chunked,
		ChunkCount:     r.ChunkCount,
		FailedChunks:   nonNil(r.FailedChunks),
		UnparsedChunks: nonNil(r.UnparsedChunks),
		Rooms:          r.RoomCount,
		CriticalFlags:  r.CriticalFlags,
		DurationMS:     r.Duration().Milliseconds(),
		Chunks:         res.Chunks,
	}
}

func nonNil(in []int) []int {
	if in == nil {
		return []int{}
	}
	return in
}

func printProcessResult(cmd *cobra.Command, res *driving.ProcessResult) {
	r := res.Run
	mark := "✓"
	if r.Status != domain.RunStatusCompleted {
		mark = "!"
	}
	cmd.Printf("%s %s -> %s\n", mark, r.DocumentName, r.OutputName)
	cmd.Printf("  Status: %s  Chunks: %d  Rooms: %d  Critical flags: %d  (%s)\n",
		r.Status, r.ChunkCount, r.RoomCount, r.CriticalFlags, r.Duration().Round(time.Millisecond))
	for _, c := range res.Chunks {
		if c.Error != "" {
			cmd.Printf("  chunk %d failed after %d attempt(s): %s\n", c.Index, c.Attempts, c.Error)
			continue
		}
		if c.Strategy == parser.StrategyUnparsed {
			cmd.Printf("  chunk %d response could not be parsed\n", c.Index)
		} else if c.Truncated {
			cmd.Printf("  chunk %d response was truncated (%s)\n", c.Index, c.Strategy)
		}
	}
}

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Show how a text file would be chunked",
	Long:  `Show the chunk windows for a text file without calling the LLM. Use - to read stdin.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if estimateService == nil {
		return errNoEstimateService
	}
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	plan := estimateService.Plan(text)
	if !plan.Chunked {
		cmd.Printf("Whole document: %d characters, 1 request\n", len([]rune(text)))
		return nil
	}
	cmd.Printf("Chunked: %d chunks over %d characters\n", plan.Len(), len([]rune(text)))
	for _, c := range plan.Chunks {
		n := len([]rune(c.Text))
		cmd.Printf("  [%d] chars %d-%d (%d)\n", c.Number(), c.Start, c.Start+n, n)
	}
	return nil
}

var parseTruncated bool

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a raw LLM response",
	Long: `Decode a raw LLM response the way a chunk response is decoded and
print the resulting object. Use - to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseTruncated, "truncated", false, "treat the response as truncated")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if estimateService == nil {
		return errNoEstimateService
	}
	raw, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	res := estimateService.Parse(cmd.Context(), raw, parseTruncated)
	cmd.Printf("Strategy: %s\n", res.Strategy)
	if res.Object == nil {
		return fmt.Errorf("%w: no strategy decoded the response", domain.ErrInvalidInput)
	}
	data, err := indentObject(res.Object)
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

var mergeOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge <response>...",
	Short: "Merge raw chunk responses into one canonical document",
	Long: `Merge previously captured raw LLM responses, given in chunk order,
into one canonical document. The result is printed or written to --output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "write the canonical document to this file")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	if estimateService == nil {
		return errNoEstimateService
	}
	responses := make([]string, 0, len(args))
	for _, path := range args {
		raw, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		responses = append(responses, raw)
	}
	doc, err := estimateService.Reconcile(cmd.Context(), responses)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	data, err := doc.MarshalIndent()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if mergeOutput == "" {
		cmd.Print(string(data))
		return nil
	}
	if err := os.WriteFile(mergeOutput, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mergeOutput, err)
	}
	cmd.Printf("Merged %d responses into %s (%d rooms)\n", len(responses), mergeOutput, len(doc.Rooms))
	return nil
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// readCanonical loads a saved canonical document from a file.
func readCanonical(cmd *cobra.Command, path string) (*domain.CanonicalDocument, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	doc, err := domain.ParseCanonical([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

func indentObject(obj *domain.Object) ([]byte, error) {
	return json.MarshalIndent(obj, "", "  ")
}
