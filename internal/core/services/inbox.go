package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// Ensure InboxService implements the interface.
var _ driving.InboxService = (*InboxService)(nil)

// InboxDeps are the collaborators of an InboxService. Mailbox is optional;
// without it on-demand summaries are unavailable.
type InboxDeps struct {
	Categorization driven.CategorizationStore
	Summaries      driven.SummaryStore
	Unsubscribes   driven.UnsubscribeStore
	Bookings       driven.BookingStore
	Digests        driven.DigestStore
	Mailbox        driven.MailboxClient

	Parser     *QueryParser
	Summarizer *Summarizer
}

// InboxService answers operator queries over processed mail.
type InboxService struct {
	deps InboxDeps
	now  func() time.Time
}

// NewInboxService creates an inbox service.
func NewInboxService(deps InboxDeps) *InboxService {
	return &InboxService{deps: deps, now: time.Now}
}

// ListCategorized returns categorized messages, newest first.
func (s *InboxService) ListCategorized(ctx context.Context, opts domain.ListOptions) ([]domain.CategorizationRecord, error) {
	if opts.Category != "" && !opts.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, opts.Category)
	}
	return s.deps.Categorization.List(ctx, opts.Normalise())
}

// CategoryStats returns per-category counts and mean confidence.
func (s *InboxService) CategoryStats(ctx context.Context) (*domain.CategoryStats, error) {
	return s.deps.Categorization.Stats(ctx)
}

// Search parses a free-text query into a filter and runs it.
func (s *InboxService) Search(ctx context.Context, query string) (*driving.SearchResult, error) {
	filter, err := s.deps.Parser.Parse(ctx, query)
	if err != nil {
		return nil, err
	}
	logger.Debug("search %q: intent=%s terms=%v category=%s fallback=%v",
		query, filter.Intent, filter.Terms, filter.Category, filter.Fallback)

	records, err := s.deps.Categorization.Search(ctx, filter, domain.DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return &driving.SearchResult{Filter: filter, Records: records}, nil
}

// OverrideCategory records an operator's category for a message.
func (s *InboxService) OverrideCategory(ctx context.Context, messageID string, category domain.Category) error {
	if messageID == "" {
		return fmt.Errorf("%w: message id is required", domain.ErrInvalidInput)
	}
	if !category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, category)
	}
	return s.deps.Categorization.Override(ctx, messageID, category)
}

// UnsubscribeSuggestions lists unsubscribe candidates. An empty status
// lists suggested candidates.
func (s *InboxService) UnsubscribeSuggestions(
	ctx context.Context,
	status domain.UnsubscribeStatus,
	limit int,
) ([]domain.UnsubscribeCandidate, error) {
	if status == "" {
		status = domain.UnsubscribeSuggested
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	if limit <= 0 {
		limit = domain.DefaultUnsubscribeLimit
	}
	return s.deps.Unsubscribes.List(ctx, status, min(limit, domain.MaxListLimit))
}

// UpdateUnsubscribeStatus records an operator decision on a candidate.
func (s *InboxService) UpdateUnsubscribeStatus(ctx context.Context, id string, status domain.UnsubscribeStatus) error {
	if id == "" {
		return fmt.Errorf("%w: candidate id is required", domain.ErrInvalidInput)
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.deps.Unsubscribes.UpdateStatus(ctx, id, status, s.now().UTC())
}

// Summarize (re)generates the summary of a processed message.
func (s *InboxService) Summarize(ctx context.Context, messageID string) (*domain.SummaryRecord, error) {
	if s.deps.Mailbox == nil {
		return nil, domain.ErrMailboxUnavailable
	}
	if _, err := s.deps.Categorization.Get(ctx, messageID); err != nil {
		return nil, fmt.Errorf("message %s: %w", messageID, err)
	}
	msg, err := s.deps.Mailbox.Get(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	now := s.now().UTC()
	if !s.deps.Summarizer.NeedsSummary(msg) {
		// Short messages get the trivial shape and no stored record.
		trivial := domain.TrivialSummary(msg.Subject, msg.WordCount())
		return &domain.SummaryRecord{MessageID: messageID, Summary: trivial, CreatedAt: now, UpdatedAt: now}, nil
	}

	summary, err := s.deps.Summarizer.Summarize(ctx, msg)
	if err != nil {
		return nil, err
	}
	if summary.Trivial {
		// Inference failed; keep whatever summary is already stored.
		if existing, err := s.deps.Summaries.Get(ctx, messageID); err == nil {
			return existing, nil
		}
	}

	record := domain.SummaryRecord{MessageID: messageID, Summary: summary, CreatedAt: now, UpdatedAt: now}
	if err := s.deps.Summaries.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	return s.deps.Summaries.Get(ctx, messageID)
}

// Summary returns the stored summary of a message.
func (s *InboxService) Summary(ctx context.Context, messageID string) (*domain.SummaryRecord, error) {
	return s.deps.Summaries.Get(ctx, messageID)
}

// Bookings lists extracted reservations.
func (s *InboxService) Bookings(ctx context.Context, limit int) ([]domain.ExtractedBooking, error) {
	return s.deps.Bookings.List(ctx, clampLimit(limit))
}

// Digests lists extracted vendor reports.
func (s *InboxService) Digests(ctx context.Context, limit int) ([]domain.DailyDigest, error) {
	return s.deps.Digests.List(ctx, clampLimit(limit))
}

func clampLimit(limit int) int {
	return domain.ListOptions{Limit: limit}.Normalise().Limit
}
