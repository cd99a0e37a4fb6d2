package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// EstimateService turns extracted estimate text into canonical documents.
type EstimateService interface {
	// Pending lists the documents the document source holds.
	Pending(ctx context.Context) ([]string, error)

	// Process reads a document from the document source, extracts it,
	// saves the canonical JSON and records a run.
	// Returns domain.ErrEmptyDocument if the text is blank.
	Process(ctx context.Context, name string) (*ProcessResult, error)

	// ProcessText is Process for callers that already hold the text.
	ProcessText(ctx context.Context, name, text string) (*ProcessResult, error)

	// Plan returns how text would be chunked without calling the oracle.
	Plan(text string) domain.ChunkPlan

	// Parse decodes one raw oracle response the way a chunk result is decoded.
	Parse(ctx context.Context, raw string, truncated bool) ParsedResponse

	// Reconcile merges previously captured raw chunk responses, in chunk
	// order, into one canonical document. Nothing is saved.
	Reconcile(ctx context.Context, responses []string) (*domain.CanonicalDocument, error)

	// Rules returns the validation rules chunks are checked against.
	Rules(ctx context.Context) ([]domain.Rule, error)
}

// ProcessResult is the outcome of processing one document.
type ProcessResult struct {
	// Run is the recorded run.
	Run *domain.Run

	// Document is the canonical document that was saved.
	Document *domain.CanonicalDocument

	// Chunks reports each chunk in index order.
	Chunks []ChunkReport
}

// ChunkReport summarises one chunk of a run.
type ChunkReport struct {
	Index     int           `json:"index"`
	Strategy  string        `json:"strategy,omitempty"`
	Truncated bool          `json:"truncated"`
	Attempts  int           `json:"attempts"`
	Rooms     int           `json:"rooms"`
	Duration  time.Duration `json:"duration_ns"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// ParsedResponse is a decoded oracle response.
type ParsedResponse struct {
	// Strategy names the parse strategy that succeeded, or "unparsed".
	Strategy string

	// Object is the post-processed object. Nil when unparsed.
	Object *domain.Object

	// Partial is the decoded partial document.
	Partial domain.PartialDocument
}
