package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/tally-cli/internal/chunker"
	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driving"
	"github.com/custodia-labs/tally-cli/internal/dispatch"
	"github.com/custodia-labs/tally-cli/internal/logger"
	"github.com/custodia-labs/tally-cli/internal/parser"
	"github.com/custodia-labs/tally-cli/internal/reconcile"
)

// Ensure EstimateService implements the interface.
var _ driving.EstimateService = (*EstimateService)(nil)

// Run metadata keys stamped on every canonical document.
const (
	metaSourceFile   = "source_file"
	metaTimestamp    = "timestamp"
	metaRunID        = "run_id"
	metaChunked      = "chunked"
	metaChunkCount   = "chunk_count"
	metaFailedChunks = "failed_chunks"
	metaModel        = "model"
)

// EstimateService runs the extraction pipeline: plan, dispatch, reconcile, save.
type EstimateService struct {
	source     driven.DocumentSource
	oracle     driven.Oracle
	rules      driven.RuleSource
	runs       driven.RunStore
	splitter   *chunker.Splitter
	dispatcher *dispatch.Dispatcher
	reconciler *reconcile.Reconciler
	parser     *parser.Parser
	pipeline   driven.PostProcessorPipeline
	log        *logger.Logger

	outputPrefix string
	now          func() time.Time
	newID        func() string
}

// EstimateOption configures an EstimateService.
type EstimateOption func(*EstimateService)

// WithRuleSource sets where validation rules come from. Without one, chunks
// are extracted with no rules.
func WithRuleSource(rules driven.RuleSource) EstimateOption {
	return func(s *EstimateService) { s.rules = rules }
}

// WithRunStore records every processed document. Without one, runs are not kept.
func WithRunStore(runs driven.RunStore) EstimateOption {
	return func(s *EstimateService) { s.runs = runs }
}

// WithSplitter replaces the chunk splitter.
func WithSplitter(sp *chunker.Splitter) EstimateOption {
	return func(s *EstimateService) { s.splitter = sp }
}

// WithDispatcher replaces the completion dispatcher.
func WithDispatcher(d *dispatch.Dispatcher) EstimateOption {
	return func(s *EstimateService) { s.dispatcher = d }
}

// WithPipeline sets the post-processing pipeline used by Parse and Reconcile.
// The dispatcher carries its own.
func WithPipeline(p driven.PostProcessorPipeline) EstimateOption {
	return func(s *EstimateService) { s.pipeline = p }
}

// WithEstimateLogger sets the structured logger.
func WithEstimateLogger(l *logger.Logger) EstimateOption {
	return func(s *EstimateService) { s.log = l }
}

// WithOutputPrefix is prepended to every saved file name.
func WithOutputPrefix(prefix string) EstimateOption {
	return func(s *EstimateService) { s.outputPrefix = prefix }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EstimateOption {
	return func(s *EstimateService) { s.now = now }
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(fn func() string) EstimateOption {
	return func(s *EstimateService) { s.newID = fn }
}

// NewEstimateService creates an estimate service.
// The oracle may be nil for offline use (Plan, Parse, Reconcile).
func NewEstimateService(
	source driven.DocumentSource,
	oracle driven.Oracle,
	opts ...EstimateOption,
) *EstimateService {
	s := &EstimateService{
		source:     source,
		oracle:     oracle,
		splitter:   chunker.New(),
		reconciler: reconcile.New(),
		parser:     parser.New(),
		log:        logger.Nop(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dispatcher == nil && oracle != nil {
		s.dispatcher = dispatch.New(oracle, dispatch.Config{Concurrency: domain.DefaultConcurrency},
			dispatch.WithParser(s.parser),
			dispatch.WithPipeline(s.pipeline),
			dispatch.WithLogger(s.log),
		)
	}
	return s
}

// Pending lists the documents the document source holds.
func (s *EstimateService) Pending(ctx context.Context) ([]string, error) {
	if s.source == nil {
		return nil, errors.New("document source not configured")
	}
	names, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return names, nil
}

// Process reads name from the document source and extracts it.
func (s *EstimateService) Process(ctx context.Context, name string) (*driving.ProcessResult, error) {
	if s.source == nil {
		return nil, errors.New("document source not configured")
	}
	text, err := s.source.ReadText(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return s.ProcessText(ctx, name, text)
}

// ProcessText extracts text, saves the canonical document and records a run.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *EstimateService) ProcessText(ctx context.Context, name, text string) (*driving.ProcessResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrEmptyDocument)
	}
	if s.dispatcher == nil {
		return nil, domain.ErrLLMUnavailable
	}

	run := &domain.Run{
		ID:           s.newID(),
		DocumentName: name,
		Model:        s.oracle.ModelName(),
		StartedAt:    s.now(),
	}
	log := s.log.With("document", name, "run_id", run.ID)

	// 1. Rules are optional; a broken rule source fails the run early.
	rules, err := s.Rules(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Plan
	plan := s.splitter.Plan(text)
	run.Chunked = plan.Chunked
	run.ChunkCount = plan.Len()
	log.Info("estimate.plan", "chunked", plan.Chunked, "chunks", plan.Len(), "chars", len([]rune(text)), "rules", len(rules))

	// 3. Dispatch
	outcomes := s.dispatcher.DispatchAll(ctx, plan, rules, name)
	run.FailedChunks = dispatch.FailedIndexes(outcomes)
	run.UnparsedChunks = dispatch.UnparsedIndexes(outcomes)

	// 4. Reconcile
	doc := s.reconciler.Reconcile(dispatch.Partials(outcomes), rules)
	run.RoomCount = len(doc.Rooms)
	run.CriticalFlags = doc.Summary.CriticalFlags
	run.Status = runStatus(len(outcomes), len(run.FailedChunks)+len(run.UnparsedChunks))
	run.OutputName = s.OutputName(name)
	doc.Run = s.runMetadata(run)

	// 5. Save
	data, err := doc.MarshalIndent()
	if err != nil {
		return nil, fmt.Errorf("encode canonical document: %w", err)
	}
	if err := s.source.SaveResult(ctx, run.OutputName, data); err != nil {
		return nil, fmt.Errorf("save %s: %w", run.OutputName, err)
	}
	run.Canonical = data
	run.FinishedAt = s.now()

	// 6. Record
	if s.runs != nil {
		if err := s.runs.Save(ctx, run); err != nil {
			log.Warn("estimate.run.save_failed", "error", err)
		}
	}

	log.Info("estimate.done",
		"status", run.Status,
		"rooms", run.RoomCount,
		"failed_chunks", len(run.FailedChunks),
		"unparsed_chunks", len(run.UnparsedChunks),
		"output", run.OutputName,
		"duration", run.Duration(),
	)

	return &driving.ProcessResult{
		Run:      run,
		Document: doc,
		Chunks:   chunkReports(outcomes),
	}, nil
}

// Plan returns how text would be chunked.
func (s *EstimateService) Plan(text string) domain.ChunkPlan {
	return s.splitter.Plan(text)
}

// Parse decodes one raw response and runs it through the pipeline.
func (s *EstimateService) Parse(ctx context.Context, raw string, truncated bool) driving.ParsedResponse {
	res := s.parser.Parse(raw, truncated)
	out := driving.ParsedResponse{Strategy: res.Strategy}
	if !res.OK() {
		out.Partial = domain.PartialDocument{Unparsed: res.Unparsed}
		return out
	}

	obj := res.Object
	if s.pipeline != nil {
		processed, err := s.pipeline.Process(ctx, obj)
		if err != nil {
			s.log.Warn("estimate.parse.postprocess_failed", "error", err)
		} else {
			obj = processed
		}
	}
	out.Object = obj
	out.Partial = domain.DecodePartial(obj)
	return out
}

// Reconcile merges raw responses in the order given.
func (s *EstimateService) Reconcile(ctx context.Context, responses []string) (*domain.CanonicalDocument, error) {
	rules, err := s.Rules(ctx)
	if err != nil {
		return nil, err
	}
	partials := make([]domain.PartialDocument, len(responses))
	for i, raw := range responses {
		p := s.Parse(ctx, raw, parser.LooksTruncated(raw)).Partial
		if p.Unparsed != nil {
			p.Unparsed.ChunkIndex = i
		}
		partials[i] = p
	}
	return s.reconciler.Reconcile(partials, rules), nil
}

// Rules loads the validation rules. No rule source means no rules.
func (s *EstimateService) Rules(ctx context.Context) ([]domain.Rule, error) {
	if s.rules == nil {
		return nil, nil
	}
	rules, err := s.rules.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return rules, nil
}

// OutputName returns the saved file name for a source document:
// the prefix, the base name without extension, then ".json".
func (s *EstimateService) OutputName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "estimate"
	}
	return s.outputPrefix + stem + ".json"
}

func (s *EstimateService) runMetadata(run *domain.Run) *domain.Object {
	failed := make([]domain.Value, len(run.FailedChunks))
	for i, idx := range run.FailedChunks {
		failed[i] = domain.Int(idx)
	}
	meta := domain.NewObject()
	meta.Set(metaSourceFile, domain.String(run.DocumentName))
	meta.Set(metaTimestamp, domain.String(run.StartedAt.UTC().Format(time.RFC3339)))
	meta.Set(metaRunID, domain.String(run.ID))
	meta.Set(metaChunked, domain.Bool(run.Chunked))
	meta.Set(metaChunkCount, domain.Int(run.ChunkCount))
	meta.Set(metaFailedChunks, domain.List(failed...))
	meta.Set(metaModel, domain.String(run.Model))
	return meta
}

func runStatus(total, bad int) domain.RunStatus {
	switch {
	case bad == 0:
		return domain.RunStatusCompleted
	case bad >= total:
		return domain.RunStatusFailed
	default:
		return domain.RunStatusPartial
	}
}

func chunkReports(outcomes []dispatch.Outcome) []driving.ChunkReport {
	reports := make([]driving.ChunkReport, len(outcomes))
	for i, o := range outcomes {
		r := driving.ChunkReport{
			Index:     o.Index,
			Strategy:  o.Strategy,
			Truncated: o.Truncated,
			Attempts:  o.Attempts,
			Rooms:     len(o.Partial.Rooms),
			Duration:  o.Duration,
		}
		if o.Err != nil {
			r.Error = o.Err.Error()
		}
		reports[i] = r
	}
	return reports
}
