//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	server := NewCallbackServer(0, state)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCallbackServer_PicksEphemeralPort(t *testing.T) {
	server := startServer(t, "s")

	assert.NotZero(t, server.Port())
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", server.Port()), server.RedirectURI())
}

func TestCallbackServer_PortInUse(t *testing.T) {
	first := startServer(t, "s")

	second := NewCallbackServer(first.Port(), "s")
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestCallbackServer_ReceivesCode(t *testing.T) {
	server := startServer(t, "state-1")

	body := get(t, fmt.Sprintf("%s?state=state-1&code=abc", server.RedirectURI()))
	assert.Contains(t, body, "connected")

	code, err := server.WaitForCode(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestCallbackServer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{name: "state mismatch", query: "state=other&code=abc", wantErr: "state mismatch"},
		{name: "missing code", query: "state=state-1", wantErr: "no authorization code"},
		{name: "provider error", query: "error=access_denied&error_description=denied", wantErr: "access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, "state-1")

			body := get(t, server.RedirectURI()+"?"+tt.query)
			assert.Contains(t, body, "Authorization failed")

			_, err := server.WaitForCode(context.Background(), time.Second)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCallbackServer_Timeout(t *testing.T) {
	server := startServer(t, "s")

	_, err := server.WaitForCode(context.Background(), 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServer_StopWithoutStart(t *testing.T) {
	assert.NoError(t, NewCallbackServer(0, "s").Stop())
}

func TestFindAvailablePort(t *testing.T) {
	port, err := FindAvailablePort(18080, 18180)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, port, 18080)
	assert.LessOrEqual(t, port, 18180)
}
