package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
)

// mockInboxService implements driving.InboxService for testing.
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
	lastQuery      string
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

func (m *mockInboxService) Search(_ context.Context, query string) (*driving.SearchResult, error) {
	m.lastQuery = query
	if m.search == nil {
		return &driving.SearchResult{}, m.err
	}
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

// mockSyncService implements driving.SyncService for testing.
type mockSyncService struct {
	run       *domain.SyncRun
	status    *domain.SyncStatus
	runs      []domain.SyncRun
	err       error
	lastReq   domain.SyncRequest
	runCalled bool
	digests   bool
}

func (m *mockSyncService) Run(_ context.Context, req domain.SyncRequest) (*domain.SyncRun, error) {
	m.runCalled = true
	m.lastReq = req
	return m.run, m.err
}

func (m *mockSyncService) SyncDigests(_ context.Context) (*domain.SyncRun, error) {
	m.digests = true
	return m.run, m.err
}

func (m *mockSyncService) Status(_ context.Context) (*domain.SyncStatus, error) {
	return m.status, nil
}

func (m *mockSyncService) Runs(_ context.Context, _ int) ([]domain.SyncRun, error) {
	return m.runs, m.err
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	tasks []domain.TaskStatus
	err   error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error { return nil }

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.TaskStatus, error) {
	return m.tasks, m.err
}

// mockMailboxAuth implements MailboxAuth for testing.
type mockMailboxAuth struct {
	account   string
	err       error
	loggedOut bool
}

func (m *mockMailboxAuth) Login(_ context.Context, out io.Writer) (string, error) {
	_, _ = io.WriteString(out, "visit https://accounts.example.com\n")
	return m.account, m.err
}

func (m *mockMailboxAuth) Logout() error {
	m.loggedOut = true
	return m.err
}

func (m *mockMailboxAuth) Account(_ context.Context) (string, error) {
	return m.account, m.err
}

// mapSecrets implements driven.SecretStore in memory.
type mapSecrets map[string][]byte

func (m mapSecrets) Get(key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, driven.ErrSecretNotFound
	}
	return v, nil
}

func (m mapSecrets) Set(key string, value []byte) error {
	m[key] = value
	return nil
}

func (m mapSecrets) Delete(key string) error {
	delete(m, key)
	return nil
}

// withServices installs s for the duration of the test and resets
// flag-bound variables so earlier executions do not leak.
func withServices(t *testing.T, s Services) {
	t.Helper()
	old := Services{
		Inbox:       inboxService,
		Sync:        syncService,
		Scheduler:   schedulerService,
		Config:      configStore,
		Secrets:     secretStore,
		Auth:        mailboxAuth,
		PipelineErr: pipelineErr,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(old) })

	syncQuery, syncMax, syncMarkRead, syncDigests = "", 0, false, false
	listCategory, listLimit, listOffset = "", domain.DefaultListLimit, 0
	unsubscribeStatus, unsubscribeLimit = "", domain.DefaultUnsubscribeLimit
	summaryRefresh = false
	mcpHTTPAddr = ""
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
