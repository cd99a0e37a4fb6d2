package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// defaultRunLimit is the list_runs limit when none is given.
const defaultRunLimit = 20

// ProcessInput is the input schema for the process_estimate tool.
type ProcessInput struct {
	Name string `json:"name,omitempty" jsonschema:"source document name used for the output file (default estimate.txt)"`
	Text string `json:"text" jsonschema:"the extracted text of the estimate"`
}

// ProcessOutput is the output schema for the process_estimate tool.
// The canonical document is returned as text content.
type ProcessOutput struct {
	RunID          string `json:"run_id"`
	Output         string `json:"output"`
	Status         string `json:"status"`
	ChunkCount     int    `json:"chunk_count"`
	FailedChunks   []int  `json:"failed_chunks"`
	UnparsedChunks []int  `json:"unparsed_chunks"`
	Rooms          int    `json:"rooms"`
	CriticalFlags  int    `json:"critical_flags"`
}

// ReconcileInput is the input schema for the reconcile_partials tool.
type ReconcileInput struct {
	Responses []string `json:"responses" jsonschema:"raw chunk responses in chunk order"`
}

// ReconcileOutput is the output schema for the reconcile_partials tool.
type ReconcileOutput struct {
	Rooms         int    `json:"rooms"`
	RulesChecked  int    `json:"rules_checked"`
	CriticalFlags int    `json:"critical_flags"`
	Status        string `json:"status"`
	Unparsed      int    `json:"unparsed"`
}

// ParseInput is the input schema for the parse_response tool.
type ParseInput struct {
	Raw       string `json:"raw" jsonschema:"the raw LLM response"`
	Truncated bool   `json:"truncated,omitempty" jsonschema:"whether the response was cut off by the token limit"`
}

// ParseOutput is the output schema for the parse_response tool.
type ParseOutput struct {
	Strategy string `json:"strategy"`
	Parsed   bool   `json:"parsed"`
	Rooms    int    `json:"rooms"`
}

// ListRunsInput is the input schema for the list_runs tool.
type ListRunsInput struct {
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 20)"`
	Document string `json:"document,omitempty" jsonschema:"only runs of this source document"`
}

// ListRunsOutput is the output schema for the list_runs tool.
type ListRunsOutput struct {
	Runs  []RunInfo `json:"runs"`
	Count int       `json:"count"`
}

// RunInfo summarises one run.
type RunInfo struct {
	ID            string `json:"id"`
	Document      string `json:"document"`
	Output        string `json:"output"`
	Status        string `json:"status"`
	Rooms         int    `json:"rooms"`
	CriticalFlags int    `json:"critical_flags"`
	StartedAt     string `json:"started_at"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_estimate",
		Description: "Extract a canonical estimate document from estimate text",
	}, s.handleProcess)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reconcile_partials",
		Description: "Merge raw chunk responses, in chunk order, into one canonical estimate document",
	}, s.handleReconcile)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "parse_response",
		Description: "Decode one raw LLM response the way chunk responses are decoded",
	}, s.handleParse)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List recent processing runs",
	}, s.handleListRuns)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// handleProcess handles the process_estimate tool invocation.
func (s *Server) handleProcess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProcessInput,
) (*mcp.CallToolResult, ProcessOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "estimate.txt"
	}
	res, err := s.ports.Estimate.ProcessText(ctx, name, input.Text)
	if err != nil {
		return nil, ProcessOutput{}, err
	}
	data, err := res.Document.MarshalIndent()
	if err != nil {
		return nil, ProcessOutput{}, fmt.Errorf("encoding document: %w", err)
	}
	r := res.Run
	return textResult(string(data)), ProcessOutput{
		RunID:          r.ID,
		Output:         r.OutputName,
		Status:         string(r.Status),
		ChunkCount:     r.ChunkCount,
		FailedChunks:   nonNil(r.FailedChunks),
		UnparsedChunks: nonNil(r.UnparsedChunks),
		Rooms:          r.RoomCount,
		CriticalFlags:  r.CriticalFlags,
	}, nil
}

// handleReconcile handles the reconcile_partials tool invocation.
func (s *Server) handleReconcile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReconcileInput,
) (*mcp.CallToolResult, ReconcileOutput, error) {
	if len(input.Responses) == 0 {
		return nil, ReconcileOutput{}, errors.New("at least one response is required")
	}
	doc, err := s.ports.Estimate.Reconcile(ctx, input.Responses)
	if err != nil {
		return nil, ReconcileOutput{}, err
	}
	data, err := doc.MarshalIndent()
	if err != nil {
		return nil, ReconcileOutput{}, fmt.Errorf("encoding document: %w", err)
	}
	return textResult(string(data)), ReconcileOutput{
		Rooms:         len(doc.Rooms),
		RulesChecked:  doc.Summary.TotalRulesChecked,
		CriticalFlags: doc.Summary.CriticalFlags,
		Status:        doc.Summary.Status,
		Unparsed:      len(doc.Unparsed),
	}, nil
}

// handleParse handles the parse_response tool invocation.
func (s *Server) handleParse(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ParseInput,
) (*mcp.CallToolResult, ParseOutput, error) {
	res := s.ports.Estimate.Parse(ctx, input.Raw, input.Truncated)
	out := ParseOutput{
		Strategy: res.Strategy,
		Parsed:   res.Object != nil,
		Rooms:    len(res.Partial.Rooms),
	}
	if res.Object == nil {
		return textResult("null"), out, nil
	}
	data, err := res.Object.MarshalJSON()
	if err != nil {
		return nil, ParseOutput{}, fmt.Errorf("encoding object: %w", err)
	}
	return textResult(string(data)), out, nil
}

// handleListRuns handles the list_runs tool invocation.
func (s *Server) handleListRuns(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	if s.ports.Runs == nil {
		return nil, ListRunsOutput{}, errors.New("run history is not enabled")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultRunLimit
	}

	var (
		runs []domain.Run
		err  error
	)
	if input.Document != "" {
		runs, err = s.ports.Runs.ListByDocument(ctx, input.Document)
		if len(runs) > limit {
			runs = runs[:limit]
		}
	} else {
		runs, err = s.ports.Runs.List(ctx, limit)
	}
	if err != nil {
		return nil, ListRunsOutput{}, err
	}

	out := ListRunsOutput{Runs: make([]RunInfo, len(runs)), Count: len(runs)}
	for i := range runs {
		r := &runs[i]
		out.Runs[i] = RunInfo{
			ID:            r.ID,
			Document:      r.DocumentName,
			Output:        r.OutputName,
			Status:        string(r.Status),
			Rooms:         r.RoomCount,
			CriticalFlags: r.CriticalFlags,
			StartedAt:     r.StartedAt.UTC().Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func nonNil(in []int) []int {
	if in == nil {
		return []int{}
	}
	return in
}
