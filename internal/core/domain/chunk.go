package domain

// Chunk is one window of the source text submitted to the oracle.
type Chunk struct {
	// Index is the zero-based position; index order is document order.
	Index int

	// Text is the window content.
	Text string

	// Start is the rune offset of the window within the source text.
	Start int

	// IsFirst is true only for index 0.
	IsFirst bool

	// IsLast is true only for the final chunk.
	IsLast bool
}

// Number returns the one-based chunk number used in prompts.
func (c Chunk) Number() int {
	return c.Index + 1
}

// ChunkPlan describes how a document is submitted.
type ChunkPlan struct {
	// Chunked is false when the text fits under the threshold and is
	// submitted whole.
	Chunked bool

	// Chunks holds the windows in order. A whole-text plan has one chunk.
	Chunks []Chunk
}

// Len returns the number of chunks.
func (p ChunkPlan) Len() int {
	return len(p.Chunks)
}
