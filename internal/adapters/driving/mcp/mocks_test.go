package mcp

import (
	"context"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
)

// mockInboxService is a mock implementation of driving.InboxService.
type mockInboxService struct {
	records    []domain.CategorizationRecord
	stats      *domain.CategoryStats
	search     *driving.SearchResult
	candidates []domain.UnsubscribeCandidate
	summary    *domain.SummaryRecord
	summaryErr error
	generated  *domain.SummaryRecord
	bookings   []domain.ExtractedBooking
	digests    []domain.DailyDigest
	err        error

	lastList       domain.ListOptions
	lastOverride   domain.Category
	lastStatus     domain.UnsubscribeStatus
	summarizeCalls int
}

func (m *mockInboxService) ListCategorized(_ context.Context, opts domain.ListOptions) ([]domain.CategorizationRecord, error) {
	m.lastList = opts
	return m.records, m.err
}

func (m *mockInboxService) CategoryStats(_ context.Context) (*domain.CategoryStats, error) {
	if m.stats == nil {
		return &domain.CategoryStats{}, m.err
	}
	return m.stats, m.err
}

func (m *mockInboxService) Search(_ context.Context, _ string) (*driving.SearchResult, error) {
	return m.search, m.err
}

func (m *mockInboxService) OverrideCategory(_ context.Context, _ string, category domain.Category) error {
	m.lastOverride = category
	return m.err
}

func (m *mockInboxService) UnsubscribeSuggestions(
	_ context.Context,
	status domain.UnsubscribeStatus,
	_ int,
) ([]domain.UnsubscribeCandidate, error) {
	m.lastStatus = status
	return m.candidates, m.err
}

func (m *mockInboxService) UpdateUnsubscribeStatus(_ context.Context, _ string, status domain.UnsubscribeStatus) error {
	m.lastStatus = status
	return m.err
}

func (m *mockInboxService) Summarize(_ context.Context, _ string) (*domain.SummaryRecord, error) {
	m.summarizeCalls++
	return m.generated, m.err
}

func (m *mockInboxService) Summary(_ context.Context, _ string) (*domain.SummaryRecord, error) {
	return m.summary, m.summaryErr
}

func (m *mockInboxService) Bookings(_ context.Context, _ int) ([]domain.ExtractedBooking, error) {
	return m.bookings, m.err
}

func (m *mockInboxService) Digests(_ context.Context, _ int) ([]domain.DailyDigest, error) {
	return m.digests, m.err
}

// mockSyncService is a mock implementation of driving.SyncService.
type mockSyncService struct {
	run     *domain.SyncRun
	status  *domain.SyncStatus
	runs    []domain.SyncRun
	err     error
	lastReq domain.SyncRequest
}

func (m *mockSyncService) Run(_ context.Context, req domain.SyncRequest) (*domain.SyncRun, error) {
	m.lastReq = req
	return m.run, m.err
}

func (m *mockSyncService) SyncDigests(_ context.Context) (*domain.SyncRun, error) {
	return m.run, m.err
}

func (m *mockSyncService) Status(_ context.Context) (*domain.SyncStatus, error) {
	return m.status, m.err
}

func (m *mockSyncService) Runs(_ context.Context, _ int) ([]domain.SyncRun, error) {
	return m.runs, m.err
}
