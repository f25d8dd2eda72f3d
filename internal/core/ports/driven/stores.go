package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// CategorizationStore persists one classification per message.
type CategorizationStore interface {
	// Create inserts a record. Returns domain.ErrDuplicate if the message
	// already has one; the existing record is left untouched.
	Create(ctx context.Context, record domain.CategorizationRecord) error

	// Get retrieves the record for a message. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, messageID string) (*domain.CategorizationRecord, error)

	// Exists reports whether a record exists for the message.
	Exists(ctx context.Context, messageID string) (bool, error)

	// List returns records ordered by receive time descending.
	List(ctx context.Context, opts domain.ListOptions) ([]domain.CategorizationRecord, error)

	// Search returns records matching the filter, newest first.
	Search(ctx context.Context, filter domain.SearchFilter, limit int) ([]domain.CategorizationRecord, error)

	// Stats aggregates counts and average confidence per effective category.
	Stats(ctx context.Context) (*domain.CategoryStats, error)

	// Override sets the manual category. Returns domain.ErrNotFound if absent.
	Override(ctx context.Context, messageID string, category domain.Category) error
}

// SummaryStore persists summaries keyed by message.
type SummaryStore interface {
	// Upsert inserts or replaces the summary for a message.
	Upsert(ctx context.Context, record domain.SummaryRecord) error

	// Get returns the summary for a message. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, messageID string) (*domain.SummaryRecord, error)
}

// UnsubscribeStore persists unsubscribe candidates.
type UnsubscribeStore interface {
	// Upsert creates the candidate for a message or refreshes its last-seen
	// time. Status and method of an existing candidate are preserved.
	Upsert(ctx context.Context, candidate domain.UnsubscribeCandidate) error

	// List returns candidates, optionally filtered by status, newest first.
	List(ctx context.Context, status domain.UnsubscribeStatus, limit int) ([]domain.UnsubscribeCandidate, error)

	// UpdateStatus sets the status and action time. Returns domain.ErrNotFound if absent.
	UpdateStatus(ctx context.Context, id string, status domain.UnsubscribeStatus, at time.Time) error
}

// BookingStore persists extracted reservations.
type BookingStore interface {
	// Insert stores a booking in a single atomic statement guarded by the
	// unique external identifier. Returns domain.ErrDuplicate if the
	// identifier is already present.
	Insert(ctx context.Context, booking domain.ExtractedBooking) error

	// GetByExternalID returns a booking. Returns domain.ErrNotFound if absent.
	GetByExternalID(ctx context.Context, externalID string) (*domain.ExtractedBooking, error)

	// List returns bookings ordered by check-in descending.
	List(ctx context.Context, limit int) ([]domain.ExtractedBooking, error)
}

// DigestStore persists daily revenue reports.
type DigestStore interface {
	// Insert stores a digest. Returns domain.ErrDuplicate if the source
	// message was already recorded.
	Insert(ctx context.Context, digest domain.DailyDigest) error

	// List returns digests ordered by report date descending.
	List(ctx context.Context, limit int) ([]domain.DailyDigest, error)
}

// SyncRunStore is the append-only run log.
type SyncRunStore interface {
	// Append records a new run.
	Append(ctx context.Context, run domain.SyncRun) error

	// Finish writes the terminal status, counts and end time of a run.
	Finish(ctx context.Context, run domain.SyncRun) error

	// Latest returns the most recent run. Returns domain.ErrNotFound if none.
	Latest(ctx context.Context) (*domain.SyncRun, error)

	// LatestSuccessful returns the most recent successful run.
	// Returns domain.ErrNotFound if none.
	LatestSuccessful(ctx context.Context) (*domain.SyncRun, error)

	// List returns recent runs, newest first.
	List(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
