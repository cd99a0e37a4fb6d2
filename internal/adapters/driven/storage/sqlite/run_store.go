package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/tally-cli/internal/core/domain"
	"github.com/custodia-labs/tally-cli/internal/core/ports/driven"
)

// runColumns is the column list shared by every run query.
const runColumns = `id, document_name, output_name, model, chunked, chunk_count,
	failed_chunks, unparsed_chunks, room_count, critical_flags, status, canonical,
	started_at, finished_at`

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Save creates or replaces a run.
func (s *runStore) Save(ctx context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required: %w", domain.ErrInvalidInput)
	}
	failed, err := encodeIndexes(run.FailedChunks)
	if err != nil {
		return fmt.Errorf("marshalling failed chunks: %w", err)
	}
	unparsed, err := encodeIndexes(run.UnparsedChunks)
	if err != nil {
		return fmt.Errorf("marshalling unparsed chunks: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_name = excluded.document_name,
			output_name = excluded.output_name,
			model = excluded.model,
			chunked = excluded.chunked,
			chunk_count = excluded.chunk_count,
			failed_chunks = excluded.failed_chunks,
			unparsed_chunks = excluded.unparsed_chunks,
			room_count = excluded.room_count,
			critical_flags = excluded.critical_flags,
			status = excluded.status,
			canonical = excluded.canonical,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`,
		run.ID, run.DocumentName, run.OutputName, run.Model, run.Chunked, run.ChunkCount,
		failed, unparsed, run.RoomCount, run.CriticalFlags, string(run.Status), run.Canonical,
		toUnixNano(run.StartedAt), toUnixNano(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *runStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs newest first. A limit of 0 returns all runs.
func (s *runStore) List(ctx context.Context, limit int) ([]domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ListByDocument returns the runs for one document, newest first.
func (s *runStore) ListByDocument(ctx context.Context, documentName string) ([]domain.Run, error) {
	return s.query(ctx,
		`SELECT `+runColumns+` FROM runs WHERE document_name = ? ORDER BY started_at DESC, id`,
		documentName)
}

func (s *runStore) query(ctx context.Context, query string, args ...any) ([]domain.Run, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.Run, error) {
	var run domain.Run
	var status, failed, unparsed string
	var startedAt, finishedAt int64
	if err := row.Scan(&run.ID, &run.DocumentName, &run.OutputName, &run.Model, &run.Chunked,
		&run.ChunkCount, &failed, &unparsed, &run.RoomCount, &run.CriticalFlags, &status,
		&run.Canonical, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	if err := json.Unmarshal([]byte(failed), &run.FailedChunks); err != nil {
		return nil, fmt.Errorf("unmarshaling failed chunks: %w", err)
	}
	if err := json.Unmarshal([]byte(unparsed), &run.UnparsedChunks); err != nil {
		return nil, fmt.Errorf("unmarshaling unparsed chunks: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.StartedAt = fromUnixNano(startedAt)
	run.FinishedAt = fromUnixNano(finishedAt)
	return &run, nil
}

// ==================== Helper Functions ====================

func encodeIndexes(indexes []int) (string, error) {
	if indexes == nil {
		indexes = []int{}
	}
	data, err := json.Marshal(indexes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
