package domain

import "time"

// RunStatus is the outcome of one processing run.
type RunStatus string

// Run statuses.
const (
	// RunStatusCompleted means every chunk produced a usable partial.
	RunStatusCompleted RunStatus = "completed"

	// RunStatusPartial means at least one chunk failed or was unparsed.
	RunStatusPartial RunStatus = "partial"

	// RunStatusFailed means no chunk produced a usable partial.
	RunStatusFailed RunStatus = "failed"
)

// Run records one processing of a source document.
type Run struct {
	// ID is the unique run identifier.
	ID string

	// DocumentName is the source name as given by the document source.
	DocumentName string

	// OutputName is the name the canonical document was saved under.
	OutputName string

	// Model is the oracle model that served the run.
	Model string

	// Chunked is true when the text was split.
	Chunked bool

	// ChunkCount is the number of chunks dispatched.
	ChunkCount int

	// FailedChunks lists chunk indexes that errored.
	FailedChunks []int

	// UnparsedChunks lists chunk indexes whose response could not be parsed.
	UnparsedChunks []int

	// RoomCount is the number of rooms after merging.
	RoomCount int

	// CriticalFlags mirrors the validation summary.
	CriticalFlags int

	// Status is the run outcome.
	Status RunStatus

	// Canonical is the saved canonical JSON.
	Canonical []byte

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
