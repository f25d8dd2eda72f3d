package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for guestmail resources.
	uriScheme = "guestmail://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "categories",
		Name:        "categories",
		Description: "The category taxonomy with message counts",
		MIMEType:    "application/json",
	}, s.handleCategoriesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "messages/{messageId}/summary",
		Name:        "message-summary",
		Description: "Stored summary of a categorised message",
		MIMEType:    "text/plain",
	}, s.handleSummaryResource)
}

// handleCategoriesResource lists every category, including empty ones.
func (s *Server) handleCategoriesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Inbox.CategoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}

	counts := make(map[domain.Category]int, len(stats.Categories))
	for _, stat := range stats.Categories {
		counts[stat.Category] = stat.Count
	}

	type categoryInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Count       int    `json:"count"`
	}

	categories := domain.AllCategories()
	infos := make([]categoryInfo, len(categories))
	for i, c := range categories {
		infos[i] = categoryInfo{
			Name:        string(c),
			Description: c.Description(),
			Count:       counts[c],
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling categories: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleSummaryResource renders a stored summary as plain text.
func (s *Server) handleSummaryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	messageID := extractMessageID(req.Params.URI)
	if messageID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	record, err := s.ports.Inbox.Summary(ctx, messageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting summary: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     renderSummary(record),
		}},
	}, nil
}

func renderSummary(r *domain.SummaryRecord) string {
	var b strings.Builder
	b.WriteString(r.ShortSummary)
	b.WriteString("\n")
	if len(r.KeyPoints) > 0 {
		b.WriteString("\nKey points:\n")
		for _, p := range r.KeyPoints {
			b.WriteString("- " + p + "\n")
		}
	}
	if len(r.ActionItems) > 0 {
		b.WriteString("\nAction items:\n")
		for _, a := range r.ActionItems {
			b.WriteString("- " + a + "\n")
		}
	}
	fmt.Fprintf(&b, "\nSentiment: %s\n", r.Sentiment)
	return b.String()
}

// extractMessageID extracts the message ID from a URI like guestmail://messages/{messageId}/summary.
func extractMessageID(uri string) string {
	const prefix = uriScheme + "messages/"
	const suffix = "/summary"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
