package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

var (
	runsLimit     int
	runsDocument  string
	runsJSON      bool
	runsCanonical bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect processing history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs (0 = all)")
	runsListCmd.Flags().StringVar(&runsDocument, "document", "", "only runs of this document")
	runsListCmd.Flags().BoolVar(&runsJSON, "json", false, "output runs as JSON")
	runsShowCmd.Flags().BoolVar(&runsCanonical, "canonical", false, "print the saved canonical document")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	if runService == nil {
		return errNoRunService
	}
	var (
		runs []domain.Run
		err  error
	)
	if runsDocument != "" {
		runs, err = runService.ListByDocument(cmd.Context(), runsDocument)
	} else {
		runs, err = runService.List(cmd.Context(), runsLimit)
	}
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if runsJSON {
		out := make([]runSummary, len(runs))
		for i := range runs {
			out[i] = newRunSummary(&runs[i])
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal runs: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	for i := range runs {
		r := &runs[i]
		cmd.Printf("%s  %-9s  %s  %s  rooms=%d flags=%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status, shortID(r.ID),
			r.DocumentName, r.RoomCount, r.CriticalFlags)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if runService == nil {
		return errNoRunService
	}
	run, err := runService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if runsCanonical {
		if len(run.Canonical) == 0 {
			return fmt.Errorf("%w: run %s has no saved document", domain.ErrNotFound, run.ID)
		}
		cmd.Print(string(run.Canonical))
		return nil
	}

	cmd.Printf("Run:       %s\n", run.ID)
	cmd.Printf("Document:  %s\n", run.DocumentName)
	cmd.Printf("Output:    %s\n", run.OutputName)
	cmd.Printf("Model:     %s\n", run.Model)
	cmd.Printf("Status:    %s\n", run.Status)
	cmd.Printf("Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
	cmd.Printf("Duration:  %s\n", run.Duration().Round(time.Millisecond))
	cmd.Printf("Chunked:   %t (%d chunks)\n", run.Chunked, run.ChunkCount)
	if len(run.FailedChunks) > 0 {
		cmd.Printf("Failed:    %s\n", joinInts(run.FailedChunks))
	}
	if len(run.UnparsedChunks) > 0 {
		cmd.Printf("Unparsed:  %s\n", joinInts(run.UnparsedChunks))
	}
	cmd.Printf("Rooms:     %d\n", run.RoomCount)
	cmd.Printf("Flags:     %d\n", run.CriticalFlags)
	return nil
}

type runSummary struct {
	ID             string           `json:"id"`
	Document       string           `json:"document"`
	Output         string           `json:"output"`
	Model          string           `json:"model"`
	Status         domain.RunStatus `json:"status"`
	ChunkCount     int              `json:"chunk_count"`
	FailedChunks   []int            `json:"failed_chunks"`
	UnparsedChunks []int            `json:"unparsed_chunks"`
	Rooms          int              `json:"rooms"`
	CriticalFlags  int              `json:"critical_flags"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
}

func newRunSummary(r *domain.Run) runSummary {
	return runSummary{
		ID:             r.ID,
		Document:       r.DocumentName,
		Output:         r.OutputName,
		Model:          r.Model,
		Status:         r.Status,
		ChunkCount:     r.ChunkCount,
		FailedChunks:   nonNil(r.FailedChunks),
		UnparsedChunks: nonNil(r.UnparsedChunks),
		Rooms:          r.RoomCount,
		CriticalFlags:  r.CriticalFlags,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func joinInts(in []int) string {
	parts := make([]string, len(in))
	for i, n := range in {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
