package driving

import (
	"context"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// InboxService is the operator-facing read and curation surface.
type InboxService interface {
	// ListCategorized returns categorised messages, newest first.
	ListCategorized(ctx context.Context, opts domain.ListOptions) ([]domain.CategorizationRecord, error)

	// CategoryStats returns per-category counts and average confidence.
	CategoryStats(ctx context.Context) (*domain.CategoryStats, error)

	// Search parses a free-text query and returns matching messages with the
	// filter that was applied.
	Search(ctx context.Context, query string) (*SearchResult, error)

	// OverrideCategory records an operator's category for a message.
	OverrideCategory(ctx context.Context, messageID string, category domain.Category) error

	// UnsubscribeSuggestions lists candidates, optionally filtered by status.
	UnsubscribeSuggestions(ctx context.Context, status domain.UnsubscribeStatus, limit int) ([]domain.UnsubscribeCandidate, error)

	// UpdateUnsubscribeStatus records an operator decision on a candidate.
	UpdateUnsubscribeStatus(ctx context.Context, id string, status domain.UnsubscribeStatus) error

	// Summarize fetches a message and summarises it on demand.
	Summarize(ctx context.Context, messageID string) (*domain.SummaryRecord, error)

	// Summary returns the stored summary for a message.
	Summary(ctx context.Context, messageID string) (*domain.SummaryRecord, error)

	// Bookings returns extracted reservations.
	Bookings(ctx context.Context, limit int) ([]domain.ExtractedBooking, error)

	// Digests returns parsed daily reports.
	Digests(ctx context.Context, limit int) ([]domain.DailyDigest, error)
}

// SearchResult pairs the applied filter with its matches.
type SearchResult struct {
	Filter  domain.SearchFilter
	Records []domain.CategorizationRecord
}
