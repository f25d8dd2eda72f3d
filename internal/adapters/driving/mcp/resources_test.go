package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

func TestExtractMessageID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid summary URI", uri: "guestmail://messages/18c2f/summary", expected: "18c2f"},
		{name: "invalid prefix", uri: "file://messages/18c2f/summary", expected: ""},
		{name: "missing summary suffix", uri: "guestmail://messages/18c2f", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractMessageID(tt.uri))
		})
	}
}

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleCategoriesResource(t *testing.T) {
	inbox := &mockInboxService{
		stats: &domain.CategoryStats{
			Categories: []domain.CategoryStat{{Category: domain.CategorySpam, Count: 7}},
			Total:      7,
		},
	}
	server := newTestServer(t, inbox, nil)

	result, err := server.handleCategoriesResource(context.Background(), readRequest("guestmail://categories"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.Contains(t, result.Contents[0].Text, `"name": "bookings"`)
	assert.Contains(t, result.Contents[0].Text, `"count": 7`)
}

func TestServer_handleSummaryResource(t *testing.T) {
	ctx := context.Background()

	t.Run("renders summary", func(t *testing.T) {
		inbox := &mockInboxService{summary: &domain.SummaryRecord{
			MessageID: "m1",
			Summary: domain.Summary{
				ShortSummary: "Guest asks for late checkout",
				ActionItems:  []string{"Reply with availability"},
				Sentiment:    domain.SentimentNeutral,
			},
		}}
		server := newTestServer(t, inbox, nil)

		result, err := server.handleSummaryResource(ctx, readRequest("guestmail://messages/m1/summary"))
		require.NoError(t, err)
		text := result.Contents[0].Text
		assert.Contains(t, text, "Guest asks for late checkout")
		assert.Contains(t, text, "- Reply with availability")
		assert.NotContains(t, text, "Key points")
	})

	t.Run("missing summary", func(t *testing.T) {
		server := newTestServer(t, &mockInboxService{summaryErr: domain.ErrNotFound}, nil)

		_, err := server.handleSummaryResource(ctx, readRequest("guestmail://messages/m1/summary"))
		assert.Error(t, err)
	})

	t.Run("malformed uri", func(t *testing.T) {
		server := newTestServer(t, &mockInboxService{}, nil)

		_, err := server.handleSummaryResource(ctx, readRequest("guestmail://messages/m1"))
		assert.Error(t, err)
	})
}
