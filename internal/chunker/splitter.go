// Package chunker splits oversized estimate text into overlapping windows.
package chunker

import (
	"github.com/custodia-labs/tally-cli/internal/core/domain"
)

// DefaultWindowSize is the default number of characters per chunk.
const DefaultWindowSize = domain.DefaultWindowSize

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = domain.DefaultOverlap

// DefaultThreshold is the text length above which text is split.
const DefaultThreshold = domain.DefaultChunkThreshold

// Splitter produces deterministic sliding windows over text.
// Lengths and offsets are measured in runes.
type Splitter struct {
	windowSize int
	overlap    int
	threshold  int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithWindowSize sets the window size in characters.
func WithWindowSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.windowSize = size
		}
	}
}

// WithOverlap sets the overlap between windows in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithThreshold sets the length above which Plan splits text.
func WithThreshold(threshold int) Option {
	return func(s *Splitter) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		windowSize: DefaultWindowSize,
		overlap:    DefaultOverlap,
		threshold:  DefaultThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap stays below the window size
	if s.overlap >= s.windowSize {
		s.overlap = s.windowSize / 4
	}

	return s
}

// WindowSize returns the configured window size.
func (s *Splitter) WindowSize() int { return s.windowSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Threshold returns the configured chunking threshold.
func (s *Splitter) Threshold() int { return s.threshold }

// Split cuts text into windows starting at offsets 0, step, 2*step, ...
// where step is windowSize-overlap, until the offset reaches the end of
// the text. The final window may be shorter than windowSize.
func (s *Splitter) Split(text string) []domain.Chunk {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	step := s.windowSize - s.overlap
	chunks := make([]domain.Chunk, 0, total/step+1)

	for start := 0; start < total; start += step {
		end := min(start+s.windowSize, total)
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
		})
	}

	chunks[0].IsFirst = true
	chunks[len(chunks)-1].IsLast = true
	return chunks
}

// Plan decides how text is submitted. Text no longer than the threshold
// becomes a single whole-text chunk; longer text is split.
func (s *Splitter) Plan(text string) domain.ChunkPlan {
	if len([]rune(text)) <= s.threshold {
		if text == "" {
			return domain.ChunkPlan{}
		}
		return domain.ChunkPlan{
			Chunks: []domain.Chunk{{Index: 0, Text: text, IsFirst: true, IsLast: true}},
		}
	}
	return domain.ChunkPlan{Chunked: true, Chunks: s.Split(text)}
}
