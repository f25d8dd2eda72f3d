package driven

import (
	"context"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// SchedulerStore persists scheduled tasks and their recent results so the
// schedule survives restarts.
type SchedulerStore interface {
	// GetTask returns nil and no error when the task has never been saved.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every task ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask inserts the task or replaces the one with the same ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// History returns the results of a task, most recent first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps only the newest keep results of each task.
	PruneHistory(ctx context.Context, keep int) error
}
