package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const taskColumns = `id, name, interval_seconds, enabled, last_run, next_run, last_success, last_error`

// GetTask returns nil, nil when the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, taskID)

	task, err := scanScheduledTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns every task ordered by ID.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.ScheduledTask{}
	for rows.Next() {
		task, err := scanScheduledTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled tasks: %w", err)
	}
	return tasks, nil
}

// SaveTask upserts the task by ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			enabled = excluded.enabled,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_success = excluded.last_success,
			last_error = excluded.last_error
	`, task.ID, task.Name, int64(task.Interval/time.Second), boolToInt(task.Enabled),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		formatNullableTime(task.LastSuccess), nullString(task.LastError))
	if err != nil {
		return fmt.Errorf("saving scheduled task %s: %w", task.ID, err)
	}
	return nil
}

// RecordResult appends a result. The task must exist.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO task_results (task_id, run_id, started_at, ended_at, success, error, categorized)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, result.TaskID, nullString(result.RunID), formatTime(result.StartedAt), formatTime(result.EndedAt),
		boolToInt(result.Success), nullString(result.Error), result.Categorized)
	if err != nil {
		return fmt.Errorf("recording result of %s: %w", result.TaskID, err)
	}
	return nil
}

// History returns a task's results, most recent first.
func (s *schedulerStore) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT task_id, run_id, started_at, ended_at, success, error, categorized
		FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", taskID, err)
	}
	defer rows.Close()

	results := []domain.TaskResult{}
	for rows.Next() {
		var (
			r                  domain.TaskResult
			runID, errMsg      sql.NullString
			startedAt, endedAt string
			success            int
		)
		if err := rows.Scan(&r.TaskID, &runID, &startedAt, &endedAt, &success, &errMsg, &r.Categorized); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		r.RunID = runID.String
		r.StartedAt = parseTime(startedAt)
		r.EndedAt = parseTime(endedAt)
		r.Success = success == 1
		r.Error = errMsg.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history of %s: %w", taskID, err)
	}
	return results, nil
}

// PruneHistory keeps the newest keep results per task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

func scanScheduledTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		task                                     domain.ScheduledTask
		intervalSeconds                          int64
		enabled                                  int
		lastRun, nextRun, lastSuccess, lastError sql.NullString
	)
	err := row.Scan(&task.ID, &task.Name, &intervalSeconds, &enabled, &lastRun, &nextRun, &lastSuccess, &lastError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.Enabled = enabled == 1
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.LastError = lastError.String
	return &task, nil
}
