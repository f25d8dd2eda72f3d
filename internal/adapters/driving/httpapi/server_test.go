package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driving"
)

type mockSyncService struct {
	run     *domain.SyncRun
	status  *domain.SyncStatus
	runs    []domain.SyncRun
	err     error
	lastReq domain.SyncRequest
	limit   int
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

func (m *mockSyncService) Runs(_ context.Context, limit int) ([]domain.SyncRun, error) {
	m.limit = limit
	return m.runs, m.err
}

// statsOnlyInbox implements the stats call; other methods are unused here.
type statsOnlyInbox struct {
	driving.InboxService
	stats *domain.CategoryStats
}

func (m *statsOnlyInbox) CategoryStats(_ context.Context) (*domain.CategoryStats, error) {
	return m.stats, nil
}

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

func serve(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.ErrorIs(t, err, ErrMissingSyncService)

	s, err := NewServer(&mockSyncService{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestHealthzAndMetrics(t *testing.T) {
	s, err := NewServer(&mockSyncService{}, nil)
	require.NoError(t, err)

	rec := serve(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHandleStatus(t *testing.T) {
	sync := &mockSyncService{status: &domain.SyncStatus{
		State:          domain.RunStateCompleted,
		LastRun:        &domain.SyncRun{ID: "r1", Status: domain.RunStatusFailed, Error: "fetch messages: boom"},
		LastSuccessful: &domain.SyncRun{ID: "r0", Status: domain.RunStatusSuccess},
		Staleness:      2 * time.Minute,
	}}
	s, err := NewServer(sync, nil)
	require.NoError(t, err)

	rec := serve(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, false, body["running"])
	assert.InDelta(t, 120, body["staleness_seconds"], 0.001)
	assert.Equal(t, "r1", body["last_run"].(map[string]any)["id"])
	assert.Equal(t, "r0", body["last_successful"].(map[string]any)["id"])
	assert.NotContains(t, body, "current")
}

func TestHandleRuns(t *testing.T) {
	t.Run("default limit", func(t *testing.T) {
		sync := &mockSyncService{runs: []domain.SyncRun{{ID: "r2"}, {ID: "r1"}}}
		s, err := NewServer(sync, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodGet, "/api/runs", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 20, sync.limit)
		assert.InDelta(t, 2, decode(t, rec)["count"], 0.001)
	})

	t.Run("bad limit", func(t *testing.T) {
		s, err := NewServer(&mockSyncService{}, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodGet, "/api/runs?limit=abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleSync(t *testing.T) {
	t.Run("passes request", func(t *testing.T) {
		sync := &mockSyncService{run: &domain.SyncRun{ID: "r1", Status: domain.RunStatusSuccess}}
		s, err := NewServer(sync, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodPost, "/api/sync", `{"query":"is:unread","max_results":10,"mark_read":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.SyncRequest{Query: "is:unread", MaxResults: 10, MarkRead: true}, sync.lastReq)
		assert.Equal(t, "success", decode(t, rec)["status"])
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		sync := &mockSyncService{run: &domain.SyncRun{ID: "r1"}}
		s, err := NewServer(sync, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodPost, "/api/sync", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.SyncRequest{}, sync.lastReq)
	})

	t.Run("malformed body", func(t *testing.T) {
		s, err := NewServer(&mockSyncService{}, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodPost, "/api/sync", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already running", func(t *testing.T) {
		s, err := NewServer(&mockSyncService{err: domain.ErrSyncInProgress}, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodPost, "/api/sync", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("failed run returns its record", func(t *testing.T) {
		sync := &mockSyncService{
			run: &domain.SyncRun{ID: "r1", Status: domain.RunStatusFailed, Error: "fetch messages: expired"},
			err: domain.ErrAuthExpired,
		}
		s, err := NewServer(sync, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodPost, "/api/sync/digests", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "r1", decode(t, rec)["id"])
	})

	t.Run("unexpected error", func(t *testing.T) {
		s, err := NewServer(&mockSyncService{err: errors.New("boom")}, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodPost, "/api/sync", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "boom", decode(t, rec)["error"])
	})
}

func TestHandleStats(t *testing.T) {
	t.Run("without inbox", func(t *testing.T) {
		s, err := NewServer(&mockSyncService{}, nil)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodGet, "/api/stats", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("with inbox", func(t *testing.T) {
		inbox := &statsOnlyInbox{stats: &domain.CategoryStats{
			Categories: []domain.CategoryStat{{Category: domain.CategoryFinance, Count: 2, AverageConfidence: 75}},
			Total:      2,
		}}
		s, err := NewServer(&mockSyncService{}, inbox)
		require.NoError(t, err)

		rec := serve(t, s, http.MethodGet, "/api/stats", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 2, decode(t, rec)["total"], 0.001)
	})
}

func TestHandleSchedule(t *testing.T) {
	s, err := NewServer(&mockSyncService{}, nil)
	require.NoError(t, err)

	rec := serve(t, s, http.MethodGet, "/api/schedule", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.SetScheduler(&mockScheduler{tasks: []domain.TaskStatus{
		{
			Task: domain.ScheduledTask{
				ID: domain.TaskIDMailboxSync, Name: "Mailbox sync", Enabled: true,
				Interval: 30 * time.Minute, LastRun: last, NextRun: last.Add(30 * time.Minute),
			},
			LastResult: &domain.TaskResult{RunID: "run-1", Success: true},
		},
		{Task: domain.ScheduledTask{ID: domain.TaskIDDigestSync, Name: "Digest sync", Interval: 6 * time.Hour}},
	}})

	rec = serve(t, s, http.MethodGet, "/api/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tasks, ok := decode(t, rec)["tasks"].([]any)
	require.True(t, ok)
	require.Len(t, tasks, 2)

	first := tasks[0].(map[string]any)
	assert.Equal(t, domain.TaskIDMailboxSync, first["id"])
	assert.Equal(t, "30m0s", first["interval"])
	assert.Equal(t, "run-1", first["last_run_id"])
	assert.Equal(t, "2026-03-01T09:30:00Z", first["next_run"])

	second := tasks[1].(map[string]any)
	assert.Equal(t, false, second["enabled"])
	assert.NotContains(t, second, "last_run")

	s.SetScheduler(&mockScheduler{err: errors.New("database is locked")})
	rec = serve(t, s, http.MethodGet, "/api/schedule", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(domain.ErrRateLimited))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
}
