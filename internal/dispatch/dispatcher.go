// Package dispatch submits chunks to the extraction oracle concurrently
// and turns each response into a partial document.
//
// One chunk's failure never affects another: a chunk that errors, panics,
// times out or returns unparseable text yields an empty or unparsed
// partial at its own index, and every other chunk proceeds.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
	"github.com/custodia-labs/tally-cli/internal/logger"
	"github.com/custodia-labs/tally-cli/internal/parser"
	"github.com/custodia-labs/tally-cli/internal/prompts"
)

// Config controls dispatch.
type Config struct {
	// Concurrency is the number of oracle calls in flight. Values below
	// one are treated as one.
	Concurrency int

	// MaxRetries is the number of extra attempts after a failed call.
	MaxRetries int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// ChunkTimeout bounds each attempt. Zero means no timeout.
	ChunkTimeout time.Duration

	// RequestsPerSecond caps oracle calls. Zero means unlimited.
	RequestsPerSecond float64

	// RateLimitBackoff is the pause after a rate limit response.
	RateLimitBackoff time.Duration

	// LLM carries the request budget and truncation settings.
	LLM domain.LLMSettings
}

// ConfigFromSettings derives a dispatch config from application settings.
func ConfigFromSettings(p domain.ProcessingSettings, l domain.LLMSettings) Config {
	return Config{
		Concurrency:       p.Concurrency,
		MaxRetries:        p.MaxRetries,
		ChunkTimeout:      p.ChunkTimeout,
		RequestsPerSecond: p.RequestsPerSecond,
		LLM:               l,
	}
}

// Outcome is the result of one chunk.
type Outcome struct {
	// Index is the chunk index.
	Index int

	// Partial is the decoded partial document. Empty when the chunk failed.
	Partial domain.PartialDocument

	// Strategy names the parse strategy that succeeded.
	Strategy string

	// Truncated reports the oracle's truncation signal.
	Truncated bool

	// Attempts is the number of oracle calls made.
	Attempts int

	// Duration is the time spent on the chunk.
	Duration time.Duration

	// Err is set when the chunk produced no response.
	Err error
}

// Failed reports whether the chunk errored.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Unparsed reports whether the response could not be parsed.
func (o Outcome) Unparsed() bool {
	return o.Err == nil && o.Partial.Unparsed != nil
}

// Dispatcher fans chunks out to an oracle.
type Dispatcher struct {
	oracle   driven.Oracle
	cfg      Config
	prompts  *prompts.Builder
	parser   *parser.Parser
	pipeline driven.PostProcessorPipeline
	limiter  *RateLimiter
	log      *logger.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPrompts sets the prompt builder.
func WithPrompts(b *prompts.Builder) Option {
	return func(d *Dispatcher) { d.prompts = b }
}

// WithParser sets the response parser.
func WithParser(p *parser.Parser) Option {
	return func(d *Dispatcher) { d.parser = p }
}

// WithPipeline sets the post-processing pipeline run on parsed objects.
func WithPipeline(p driven.PostProcessorPipeline) Option {
	return func(d *Dispatcher) { d.pipeline = p }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New creates a dispatcher over oracle.
func New(oracle driven.Oracle, cfg Config, opts ...Option) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	d := &Dispatcher{
		oracle:  oracle,
		cfg:     cfg,
		prompts: prompts.New(nil),
		parser:  parser.New(),
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Concurrency, cfg.RateLimitBackoff),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchAll submits every chunk of plan and returns one outcome per
// chunk, aligned with chunk index regardless of completion order.
func (d *Dispatcher) DispatchAll(ctx context.Context, plan domain.ChunkPlan, rules []domain.Rule, docName string) []Outcome {
	outcomes := make([]Outcome, plan.Len())

	// A plain group: one chunk's failure must not cancel the others.
	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)

	for i, c := range plan.Chunks {
		g.Go(func() error {
			outcomes[i] = d.dispatchOne(ctx, plan, c, rules, docName)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Dispatcher) dispatchOne(
	ctx context.Context,
	plan domain.ChunkPlan,
	c domain.Chunk,
	rules []domain.Rule,
	docName string,
) (out Outcome) {
	start := time.Now()
	log := d.log.With("document", docName, "chunk", c.Number(), "total", plan.Len())
	out.Index = c.Index

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Index: c.Index, Attempts: out.Attempts, Err: fmt.Errorf("chunk %d panicked: %v", c.Number(), r)}
		}
		out.Duration = time.Since(start)
		if out.Err != nil {
			log.Warn("dispatch.chunk.failed", "error", out.Err, "attempts", out.Attempts, "duration", out.Duration)
		}
	}()

	prompt, err := d.prompts.Build(prompts.Request{
		Chunk:    c,
		Total:    plan.Len(),
		Chunked:  plan.Chunked,
		FileName: docName,
		Rules:    rules,
	})
	if err != nil {
		out.Err = fmt.Errorf("build prompt: %w", err)
		return out
	}

	completion, attempts, err := d.complete(ctx, driven.CompletionRequest{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
		MaxTokens:    d.cfg.LLM.MaxTokens,
		Temperature:  d.cfg.LLM.Temperature,
		JSONMode:     d.cfg.LLM.JSONMode,
	})
	out.Attempts = attempts
	if err != nil {
		out.Err = err
		return out
	}

	out.Truncated = d.cfg.LLM.IsTruncated(completion.FinishReason, completion.Text)
	res := d.parser.Parse(completion.Text, out.Truncated)
	out.Strategy = res.Strategy

	if !res.OK() {
		unparsed := *res.Unparsed
		unparsed.ChunkIndex = c.Index
		out.Partial = domain.PartialDocument{Unparsed: &unparsed}
		log.Warn("dispatch.chunk.unparsed", "truncated", out.Truncated, "response_chars", len(completion.Text))
		return out
	}

	obj := res.Object
	if d.pipeline != nil {
		processed, err := d.pipeline.Process(ctx, obj)
		if err != nil {
			log.Warn("dispatch.chunk.postprocess_failed", "error", err)
		} else {
			obj = processed
		}
	}
	out.Partial = domain.DecodePartial(obj)

	log.Info("dispatch.chunk.done",
		"strategy", out.Strategy,
		"truncated", out.Truncated,
		"rooms", len(out.Partial.Rooms),
		"attempts", out.Attempts,
		"prompt_tokens", completion.PromptTokens,
		"completion_tokens", completion.CompletionTokens,
		"duration", time.Since(start),
	)
	return out
}

// complete calls the oracle with retries and returns the completion and
// the number of attempts made.
func (d *Dispatcher) complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 && d.cfg.RetryDelay > 0 {
			if err := sleep(ctx, d.cfg.RetryDelay); err != nil {
				return nil, attempts, err
			}
		}
		if err := d.limiter.Wait(ctx); err != nil {
			if lastErr != nil {
				return nil, attempts, lastErr
			}
			return nil, attempts, err
		}

		attempts++
		completion, err := d.call(ctx, req)
		if err == nil {
			return completion, attempts, nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrRateLimited) {
			d.limiter.RecordRateLimitError(0)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, attempts, lastErr
}

// call makes one oracle call under the per-chunk timeout.
func (d *Dispatcher) call(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	if d.cfg.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ChunkTimeout)
		defer cancel()
	}
	completion, err := d.oracle.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if completion == nil {
		return nil, errors.New("oracle returned no completion")
	}
	return completion, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Partials returns the partial documents of outcomes in index order.
func Partials(outcomes []Outcome) []domain.PartialDocument {
	out := make([]domain.PartialDocument, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Partial
	}
	return out
}

// FailedIndexes returns the indexes of chunks that errored.
func FailedIndexes(outcomes []Outcome) []int {
	var out []int
	for _, o := range outcomes {
		if o.Failed() {
			out = append(out, o.Index)
		}
	}
	return out
}

// UnparsedIndexes returns the indexes of chunks whose response was unparsed.
func UnparsedIndexes(outcomes []Outcome) []int {
	var out []int
	for _, o := range outcomes {
		if o.Unparsed() {
			out = append(out, o.Index)
		}
	}
	return out
}
