// Package filesystem provides a DocumentSource over local directories.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// Ensure DocumentSource implements the interface.
var _ driven.DocumentSource = (*DocumentSource)(nil)

// TextExtension is the suffix of extracted text files.
const TextExtension = ".txt"

// DocumentSource reads extracted text from an input directory and writes
// canonical JSON to an output directory.
type DocumentSource struct {
	inputDir  string
	outputDir string
}

// NewDocumentSource creates a source over inputDir and outputDir.
// An empty outputDir writes results next to the input.
func NewDocumentSource(inputDir, outputDir string) (*DocumentSource, error) {
	if strings.TrimSpace(inputDir) == "" {
		return nil, fmt.Errorf("%w: input directory is required", domain.ErrInvalidInput)
	}
	if outputDir == "" {
		outputDir = inputDir
	}
	return &DocumentSource{inputDir: inputDir, outputDir: outputDir}, nil
}

// InputDir returns the directory scanned for text files.
func (s *DocumentSource) InputDir() string {
	return s.inputDir
}

// OutputDir returns the directory results are written to.
func (s *DocumentSource) OutputDir() string {
	return s.outputDir
}

// List returns the .txt files directly under the input directory, sorted.
func (s *DocumentSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.inputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("input directory %s: %w", s.inputDir, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), TextExtension) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// ReadText returns the contents of name. Absolute paths are read as is.
func (s *DocumentSource) ReadText(_ context.Context, name string) (string, error) {
	path, err := s.resolve(s.inputDir, name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", name, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

// SaveResult writes data to the output directory, creating it if needed.
func (s *DocumentSource) SaveResult(_ context.Context, name string, data []byte) error {
	path, err := s.resolve(s.outputDir, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReadResult reads a result from the output directory.
func (s *DocumentSource) ReadResult(_ context.Context, name string) ([]byte, error) {
	path, err := s.resolve(s.outputDir, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// resolve joins a relative name onto dir and rejects names that escape it.
func (s *DocumentSource) resolve(dir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty document name", domain.ErrInvalidInput)
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes %s", domain.ErrInvalidInput, name, dir)
	}
	return filepath.Join(dir, clean), nil
}
