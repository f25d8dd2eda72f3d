package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

const runColumns = `id, query, started_at, ended_at, status, error, counts`

// Append records a started run. Runs are ordered by insertion.
func (s *syncRunStore) Append(ctx context.Context, run domain.SyncRun) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("marshalling run counts: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Query, formatTime(run.StartedAt), formatNullableTime(run.EndedAt),
		string(run.Status), nullString(run.Error), string(counts))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("run %s: %w", run.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Finish writes the terminal state of a run.
func (s *syncRunStore) Finish(ctx context.Context, run domain.SyncRun) error {
	counts, err := json.Marshal(run.Counts)
	if err != nil {
		return fmt.Errorf("marshalling run counts: %w", err)
	}
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE sync_runs SET ended_at = ?, status = ?, error = ?, counts = ?
		WHERE id = ?
	`, formatNullableTime(run.EndedAt), string(run.Status), nullString(run.Error), string(counts), run.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Latest returns the most recently started run.
func (s *syncRunStore) Latest(ctx context.Context) (*domain.SyncRun, error) {
	return s.one(ctx, `SELECT `+runColumns+` FROM sync_runs ORDER BY seq DESC LIMIT 1`)
}

// LatestSuccessful returns the most recent successful run.
func (s *syncRunStore) LatestSuccessful(ctx context.Context) (*domain.SyncRun, error) {
	return s.one(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE status = ? ORDER BY seq DESC LIMIT 1`,
		string(domain.RunStatusSuccess))
}

// List returns up to limit runs, newest first.
func (s *syncRunStore) List(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM sync_runs ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.SyncRun{}
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

func (s *syncRunStore) one(ctx context.Context, query string, args ...any) (*domain.SyncRun, error) {
	run, err := scanRun(s.store.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return run, err
}

func scanRun(row rowScanner) (*domain.SyncRun, error) {
	var (
		run              domain.SyncRun
		startedAt        string
		endedAt, errText sql.NullString
		status, counts   string
	)
	err := row.Scan(&run.ID, &run.Query, &startedAt, &endedAt, &status, &errText, &counts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	if err := json.Unmarshal([]byte(counts), &run.Counts); err != nil {
		return nil, fmt.Errorf("unmarshaling run counts: %w", err)
	}
	run.StartedAt = parseTime(startedAt)
	run.EndedAt = parseNullableTime(endedAt)
	run.Status = domain.RunStatus(status)
	run.Error = errText.String
	return &run, nil
}
