package gmail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

type fakeGmail struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	handler  http.HandlerFunc
}

func newFakeGmail(t *testing.T, handler http.HandlerFunc) (*Client, *fakeGmail) {
	t.Helper()
	f := &fakeGmail{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.bodies = append(f.bodies, string(body))
		f.mu.Unlock()
		f.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc, err := gmail.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return NewClient(svc, Config{RequestsPerSecond: 1000, Burst: 100}), f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Search(t *testing.T) {
	c, f := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"messages":      []map[string]string{{"id": "a"}, {"id": "b"}},
			"nextPageToken": "next",
		})
	})

	page, err := c.Search(context.Background(), "newer_than:7d", 50, "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, page.IDs)
	assert.Equal(t, "next", page.NextPageToken)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.True(t, strings.HasSuffix(req.URL.Path, "/users/me/messages"), req.URL.Path)
	assert.Equal(t, "newer_than:7d", req.URL.Query().Get("q"))
	assert.Equal(t, "50", req.URL.Query().Get("maxResults"))
	assert.Equal(t, "tok", req.URL.Query().Get("pageToken"))
}

func TestClient_SearchClampsPageSize(t *testing.T) {
	c, f := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	page, err := c.Search(context.Background(), "is:unread", 10_000, "")
	require.NoError(t, err)
	assert.Empty(t, page.IDs)
	assert.Empty(t, page.NextPageToken)
	assert.Equal(t, "500", f.requests[0].URL.Query().Get("maxResults"))
	assert.Empty(t, f.requests[0].URL.Query().Get("pageToken"))
}

func TestClient_Get(t *testing.T) {
	c, f := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       "m1",
			"labelIds": []string{"UNREAD"},
			"payload": map[string]any{
				"mimeType": "text/plain",
				"headers":  []map[string]string{{"name": "Subject", "value": "Hi"}},
				"body":     map[string]string{"data": b64("hello there")},
			},
		})
	})

	msg, err := c.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "Hi", msg.Subject)
	assert.Equal(t, "hello there", msg.Body)
	assert.True(t, msg.Unread)
	assert.True(t, strings.HasSuffix(f.requests[0].URL.Path, "/users/me/messages/m1"))
	assert.Equal(t, "full", f.requests[0].URL.Query().Get("format"))
}

func TestClient_MarkRead(t *testing.T) {
	c, f := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "m1"})
	})

	require.NoError(t, c.MarkRead(context.Background(), "m1"))
	assert.Equal(t, http.MethodPost, f.requests[0].Method)
	assert.True(t, strings.HasSuffix(f.requests[0].URL.Path, "/users/me/messages/m1/modify"))
	assert.Contains(t, f.bodies[0], `"removeLabelIds":["UNREAD"]`)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason string
		want   error
	}{
		{"unauthorised", http.StatusUnauthorized, "authError", domain.ErrAuthExpired},
		{"not found", http.StatusNotFound, "notFound", domain.ErrNotFound},
		{"too many requests", http.StatusTooManyRequests, "rateLimitExceeded", domain.ErrRateLimited},
		{"quota 403", http.StatusForbidden, "userRateLimitExceeded", domain.ErrRateLimited},
		{"scope 403", http.StatusForbidden, "insufficientPermissions", domain.ErrAuthRequired},
		{"server error", http.StatusServiceUnavailable, "backendError", domain.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{
					"error": map[string]any{
						"code":    tt.status,
						"message": tt.name,
						"errors":  []map[string]string{{"reason": tt.reason, "message": tt.name}},
					},
				})
			})

			_, err := c.Get(context.Background(), "m1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_BreakerOpensOnTransientFailures(t *testing.T) {
	c, f := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]any{"code": 500, "message": "boom"},
		})
	})

	var err error
	for i := 0; i < 10; i++ {
		_, err = c.Get(context.Background(), "m1")
	}
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.True(t, domain.IsTransient(err))
	assert.Less(t, len(f.requests), 10)
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	c, f := newFakeGmail(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": 404, "message": "gone"},
		})
	})

	for i := 0; i < 10; i++ {
		_, err := c.Get(context.Background(), "m1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Len(t, f.requests, 10)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(domain.GmailConfig{RequestsPerSecond: 3, Burst: 2})
	assert.Equal(t, DefaultUser, cfg.User)
	assert.Equal(t, 3.0, cfg.RequestsPerSecond)
	assert.Equal(t, 2, cfg.Burst)
}
