package driving

import (
	"context"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// SyncService runs mailbox ingestion.
type SyncService interface {
	// Run fetches messages matching the request and processes them.
	// Per-message failures are counted in the returned run; an error is
	// returned only when the run itself failed or could not start.
	Run(ctx context.Context, req domain.SyncRequest) (*domain.SyncRun, error)

	// SyncDigests runs ingestion over unread daily reports and marks them read.
	SyncDigests(ctx context.Context) (*domain.SyncRun, error)

	// Status returns the live and historical sync state. It never fails
	// because of partial failures in past runs.
	Status(ctx context.Context) (*domain.SyncStatus, error)

	// Runs returns recent runs, newest first.
	Runs(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
