// Package gcs provides a DocumentSource over a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// Ensure DocumentSource implements the interface.
var _ driven.DocumentSource = (*DocumentSource)(nil)

const (
	listTimeout   = 30 * time.Second
	objectTimeout = 2 * time.Minute
)

// bucket is the subset of object operations the source needs.
type bucket interface {
	list(ctx context.Context, prefix string) ([]string, error)
	read(ctx context.Context, key string) ([]byte, error)
	write(ctx context.Context, key, contentType string, data []byte) error
}

// Config configures the GCS document source.
type Config struct {
	Bucket          string
	InputPrefix     string
	OutputPrefix    string
	CredentialsFile string
}

// DocumentSource lists text objects under an input prefix and writes
// canonical JSON under an output prefix.
type DocumentSource struct {
	bucket       bucket
	client       *storage.Client
	inputPrefix  string
	outputPrefix string
}

// NewDocumentSource opens a storage client for cfg.Bucket.
func NewDocumentSource(ctx context.Context, cfg Config) (*DocumentSource, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("%w: gcs bucket is required", domain.ErrInvalidInput)
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	src := newDocumentSource(&gcsBucket{handle: client.Bucket(cfg.Bucket)}, cfg)
	src.client = client
	return src, nil
}

func newDocumentSource(b bucket, cfg Config) *DocumentSource {
	return &DocumentSource{
		bucket:       b,
		inputPrefix:  normalisePrefix(cfg.InputPrefix),
		outputPrefix: normalisePrefix(cfg.OutputPrefix),
	}
}

// normalisePrefix strips leading slashes and ensures a trailing one.
func normalisePrefix(p string) string {
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// List returns the .txt object names under the input prefix, relative to it.
// Objects in nested "directories" are skipped.
func (s *DocumentSource) List(ctx context.Context) ([]string, error) {
	keys, err := s.bucket.list(ctx, s.inputPrefix)
	if err != nil {
		return nil, fmt.Errorf("list gs objects: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		name := strings.TrimPrefix(k, s.inputPrefix)
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		if !strings.EqualFold(path.Ext(name), ".txt") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadText downloads a text object.
func (s *DocumentSource) ReadText(ctx context.Context, name string) (string, error) {
	key, err := objectKey(s.inputPrefix, name)
	if err != nil {
		return "", err
	}
	data, err := s.bucket.read(ctx, key)
	if err != nil {
		return "", mapError(name, err)
	}
	return string(data), nil
}

// SaveResult uploads a canonical JSON object.
func (s *DocumentSource) SaveResult(ctx context.Context, name string, data []byte) error {
	key, err := objectKey(s.outputPrefix, name)
	if err != nil {
		return err
	}
	if err := s.bucket.write(ctx, key, "application/json", data); err != nil {
		return fmt.Errorf("write gs object %s: %w", key, err)
	}
	return nil
}

// ReadResult downloads a canonical JSON object.
func (s *DocumentSource) ReadResult(ctx context.Context, name string) ([]byte, error) {
	key, err := objectKey(s.outputPrefix, name)
	if err != nil {
		return nil, err
	}
	data, err := s.bucket.read(ctx, key)
	if err != nil {
		return nil, mapError(name, err)
	}
	return data, nil
}

// Close releases the storage client.
func (s *DocumentSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func objectKey(prefix, name string) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", fmt.Errorf("%w: empty object name", domain.ErrInvalidInput)
	}
	return prefix + name, nil
}

func mapError(name string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%s: %w", name, domain.ErrNotFound)
	}
	return fmt.Errorf("read gs object %s: %w", name, err)
}

// gcsBucket adapts a storage bucket handle.
type gcsBucket struct {
	handle *storage.BucketHandle
}

func (b *gcsBucket) list(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	it := b.handle.Objects(ctx, &storage.Query{Prefix: prefix})
	var out []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (b *gcsBucket) read(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, objectTimeout)
	defer cancel()
	r, err := b.handle.Object(key).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *gcsBucket) write(ctx context.Context, key, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, objectTimeout)
	defer cancel()
	w := b.handle.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
