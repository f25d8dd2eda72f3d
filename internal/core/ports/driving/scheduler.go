package driving

import (
	"context"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// Scheduler runs the mailbox and daily report syncs on their intervals.
type Scheduler interface {
	// Start blocks until Stop is called or ctx ends. It returns at once
	// when the scheduler is disabled.
	Start(ctx context.Context) error

	// Stop waits for in-flight syncs to finish.
	Stop() error

	// Tasks returns every known task with its most recent result.
	Tasks(ctx context.Context) ([]domain.TaskStatus, error)
}
