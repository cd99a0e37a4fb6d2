package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// Ensure DocumentSource implements the interface.
var _ driven.DocumentSource = (*DocumentSource)(nil)

// DocumentSource is an in-memory implementation of driven.DocumentSource.
// The HTTP and MCP servers use it to process text posted by callers.
type DocumentSource struct {
	mu      sync.RWMutex
	texts   map[string]string
	results map[string][]byte
}

// NewDocumentSource creates a new in-memory document source.
func NewDocumentSource() *DocumentSource {
	return &DocumentSource{
		texts:   make(map[string]string),
		results: make(map[string][]byte),
	}
}

// Put stores the text of a document.
func (s *DocumentSource) Put(name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[name] = text
}

// List returns the document names in sorted order.
func (s *DocumentSource) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.texts))
	for name := range s.texts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadText returns the text of a document.
func (s *DocumentSource) ReadText(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}

// SaveResult stores a canonical JSON document.
func (s *DocumentSource) SaveResult(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[name] = append([]byte(nil), data...)
	return nil
}

// ReadResult returns a saved canonical JSON document.
func (s *DocumentSource) ReadResult(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.results[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}
