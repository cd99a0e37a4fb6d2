package driven

import "context"

// DocumentSource supplies extracted estimate text and stores results.
// Names are relative to the source (file names or object names).
type DocumentSource interface {
	// List returns the names of documents awaiting processing.
	List(ctx context.Context) ([]string, error)

	// ReadText returns the extracted text of a document.
	// Returns domain.ErrNotFound if the document does not exist.
	ReadText(ctx context.Context, name string) (string, error)

	// SaveResult stores a canonical JSON document under name.
	SaveResult(ctx context.Context, name string, data []byte) error

	// ReadResult returns a previously saved canonical JSON document.
	ReadResult(ctx context.Context, name string) ([]byte, error)
}
