package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// EmptyInput is the input schema for tools without arguments.
type EmptyInput struct{}

// ListMessagesInput is the input schema for the list_messages tool.
type ListMessagesInput struct {
	Category string `json:"category,omitempty" jsonschema:"only return messages in this category (bookings, finance, marketing, spam, important, general)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of messages to return (default 50, max 100)"`
	Offset   int    `json:"offset,omitempty" jsonschema:"number of messages to skip"`
}

// MessagesOutput is the output schema for tools returning messages.
type MessagesOutput struct {
	Messages []MessageOutput `json:"messages"`
	Count    int             `json:"count"`
}

// CategoryStatOutput is one row of category_stats.
type CategoryStatOutput struct {
	Category          string  `json:"category"`
	Description       string  `json:"description"`
	Count             int     `json:"count"`
	AverageConfidence float64 `json:"average_confidence"`
}

// CategoryStatsOutput is the output schema for the category_stats tool.
type CategoryStatsOutput struct {
	Categories []CategoryStatOutput `json:"categories"`
	Total      int                  `json:"total"`
}

// SearchInput is the input schema for the search_mail tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"free-text question about the mailbox, e.g. booking.com reservations last week"`
}

// SearchOutput is the output schema for the search_mail tool.
type SearchOutput struct {
	Intent        string          `json:"intent"`
	Terms         []string        `json:"terms"`
	Category      string          `json:"category,omitempty"`
	Sender        string          `json:"sender,omitempty"`
	DateFrom      string          `json:"date_from,omitempty"`
	DateTo        string          `json:"date_to,omitempty"`
	HasAttachment *bool           `json:"has_attachment,omitempty"`
	Fallback      bool            `json:"fallback"`
	Messages      []MessageOutput `json:"messages"`
	Count         int             `json:"count"`
}

// OverrideInput is the input schema for the override_category tool.
type OverrideInput struct {
	MessageID string `json:"message_id" jsonschema:"id of the categorised message"`
	Category  string `json:"category" jsonschema:"the correct category"`
}

// OverrideOutput is the output schema for the override_category tool.
type OverrideOutput struct {
	MessageID string `json:"message_id"`
	Category  string `json:"category"`
}

// UnsubscribeListInput is the input schema for list_unsubscribe_suggestions.
type UnsubscribeListInput struct {
	Status string `json:"status,omitempty" jsonschema:"suggested (default), dismissed, unsubscribed or kept"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of candidates (default 20)"`
}

// CandidatesOutput is the output schema for list_unsubscribe_suggestions.
type CandidatesOutput struct {
	Candidates []CandidateOutput `json:"candidates"`
	Count      int               `json:"count"`
}

// UnsubscribeUpdateInput is the input schema for update_unsubscribe_status.
type UnsubscribeUpdateInput struct {
	ID     string `json:"id" jsonschema:"candidate id"`
	Status string `json:"status" jsonschema:"dismissed, unsubscribed, kept or suggested"`
}

// UnsubscribeUpdateOutput is the output schema for update_unsubscribe_status.
type UnsubscribeUpdateOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SummarizeInput is the input schema for the summarize_message tool.
type SummarizeInput struct {
	MessageID string `json:"message_id" jsonschema:"id of the categorised message"`
	Refresh   bool   `json:"refresh,omitempty" jsonschema:"regenerate even if a summary is stored"`
}

// LimitInput is the input schema for list tools that only take a limit.
type LimitInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of rows (default 50, max 100)"`
}

// BookingsOutput is the output schema for list_bookings.
type BookingsOutput struct {
	Bookings []BookingOutput `json:"bookings"`
	Count    int             `json:"count"`
}

// DigestsOutput is the output schema for list_digests.
type DigestsOutput struct {
	Digests []DigestOutput `json:"digests"`
	Count   int            `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_messages",
		Description: "List categorised messages, newest first",
	}, s.handleListMessages)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "category_stats",
		Description: "Count messages and average classification confidence per category",
	}, s.handleCategoryStats)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_mail",
		Description: "Search categorised mail with a natural-language query",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "override_category",
		Description: "Correct the category of a message",
	}, s.handleOverrideCategory)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_unsubscribe_suggestions",
		Description: "List senders that look like bulk mail worth unsubscribing from",
	}, s.handleListUnsubscribe)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_unsubscribe_status",
		Description: "Record a decision on an unsubscribe suggestion",
	}, s.handleUpdateUnsubscribe)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize_message",
		Description: "Return the summary of a message, generating it if needed",
	}, s.handleSummarize)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_bookings",
		Description: "List reservations extracted from booking confirmations",
	}, s.handleListBookings)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_digests",
		Description: "List revenue figures parsed from daily property management reports",
	}, s.handleListDigests)

	s.registerSyncTools()
}

func (s *Server) handleListMessages(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListMessagesInput,
) (*mcp.CallToolResult, MessagesOutput, error) {
	opts := domain.ListOptions{Limit: input.Limit, Offset: input.Offset}
	if input.Category != "" {
		category, err := domain.ParseCategory(input.Category)
		if err != nil {
			return nil, MessagesOutput{}, err
		}
		opts.Category = category
	}

	records, err := s.ports.Inbox.ListCategorized(ctx, opts)
	if err != nil {
		return nil, MessagesOutput{}, err
	}
	return nil, MessagesOutput{Messages: toMessageOutputs(records), Count: len(records)}, nil
}

func (s *Server) handleCategoryStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, CategoryStatsOutput, error) {
	stats, err := s.ports.Inbox.CategoryStats(ctx)
	if err != nil {
		return nil, CategoryStatsOutput{}, err
	}

	output := CategoryStatsOutput{
		Categories: make([]CategoryStatOutput, len(stats.Categories)),
		Total:      stats.Total,
	}
	for i, stat := range stats.Categories {
		output.Categories[i] = CategoryStatOutput{
			Category:          string(stat.Category),
			Description:       stat.Category.Description(),
			Count:             stat.Count,
			AverageConfidence: stat.AverageConfidence,
		}
	}
	return nil, output, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}

	result, err := s.ports.Inbox.Search(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	f := result.Filter
	output := SearchOutput{
		Intent:        string(f.Intent),
		Terms:         nonNil(f.Terms),
		Category:      string(f.Category),
		Sender:        f.Sender,
		HasAttachment: f.HasAttachment,
		Fallback:      f.Fallback,
		Messages:      toMessageOutputs(result.Records),
		Count:         len(result.Records),
	}
	if !f.DateRange.Start.IsZero() {
		output.DateFrom = f.DateRange.Start.Format(domain.DateLayout)
	}
	if !f.DateRange.End.IsZero() {
		output.DateTo = f.DateRange.End.Format(domain.DateLayout)
	}
	return nil, output, nil
}

func (s *Server) handleOverrideCategory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OverrideInput,
) (*mcp.CallToolResult, OverrideOutput, error) {
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return nil, OverrideOutput{}, err
	}
	if err := s.ports.Inbox.OverrideCategory(ctx, input.MessageID, category); err != nil {
		return nil, OverrideOutput{}, err
	}
	return nil, OverrideOutput{MessageID: input.MessageID, Category: string(category)}, nil
}

func (s *Server) handleListUnsubscribe(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UnsubscribeListInput,
) (*mcp.CallToolResult, CandidatesOutput, error) {
	var status domain.UnsubscribeStatus
	if input.Status != "" {
		parsed, err := domain.ParseUnsubscribeStatus(input.Status)
		if err != nil {
			return nil, CandidatesOutput{}, err
		}
		status = parsed
	}

	candidates, err := s.ports.Inbox.UnsubscribeSuggestions(ctx, status, input.Limit)
	if err != nil {
		return nil, CandidatesOutput{}, err
	}

	output := CandidatesOutput{
		Candidates: make([]CandidateOutput, len(candidates)),
		Count:      len(candidates),
	}
	for i, c := range candidates {
		output.Candidates[i] = CandidateOutput{
			ID:         c.ID,
			MessageID:  c.MessageID,
			Sender:     c.Sender,
			Method:     string(c.Method),
			URL:        c.URL,
			Status:     string(c.Status),
			LastSeenAt: formatTime(c.LastSeenAt),
		}
	}
	return nil, output, nil
}

func (s *Server) handleUpdateUnsubscribe(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UnsubscribeUpdateInput,
) (*mcp.CallToolResult, UnsubscribeUpdateOutput, error) {
	status, err := domain.ParseUnsubscribeStatus(input.Status)
	if err != nil {
		return nil, UnsubscribeUpdateOutput{}, err
	}
	if err := s.ports.Inbox.UpdateUnsubscribeStatus(ctx, input.ID, status); err != nil {
		return nil, UnsubscribeUpdateOutput{}, err
	}
	return nil, UnsubscribeUpdateOutput{ID: input.ID, Status: string(status)}, nil
}

func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SummarizeInput,
) (*mcp.CallToolResult, SummaryOutput, error) {
	if input.MessageID == "" {
		return nil, SummaryOutput{}, errors.New("message_id is required")
	}

	if !input.Refresh {
		record, err := s.ports.Inbox.Summary(ctx, input.MessageID)
		if err == nil {
			return nil, toSummaryOutput(record), nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, SummaryOutput{}, err
		}
	}

	record, err := s.ports.Inbox.Summarize(ctx, input.MessageID)
	if err != nil {
		return nil, SummaryOutput{}, err
	}
	return nil, toSummaryOutput(record), nil
}

func (s *Server) handleListBookings(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LimitInput,
) (*mcp.CallToolResult, BookingsOutput, error) {
	bookings, err := s.ports.Inbox.Bookings(ctx, input.Limit)
	if err != nil {
		return nil, BookingsOutput{}, err
	}

	output := BookingsOutput{
		Bookings: make([]BookingOutput, len(bookings)),
		Count:    len(bookings),
	}
	for i := range bookings {
		b := &bookings[i]
		output.Bookings[i] = BookingOutput{
			ExternalID: b.ExternalID,
			MessageID:  b.MessageID,
			GuestName:  b.GuestName,
			CheckIn:    b.CheckIn.Format(domain.DateLayout),
			CheckOut:   b.CheckOut.Format(domain.DateLayout),
			Nights:     b.Nights(),
			Channel:    string(b.Channel),
			Status:     string(b.Status),
			RoomID:     b.RoomID,
			Price:      b.Price,
			Currency:   b.Currency,
			PartySize:  b.PartySize,
		}
	}
	return nil, output, nil
}

func (s *Server) handleListDigests(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LimitInput,
) (*mcp.CallToolResult, DigestsOutput, error) {
	digests, err := s.ports.Inbox.Digests(ctx, input.Limit)
	if err != nil {
		return nil, DigestsOutput{}, err
	}

	output := DigestsOutput{
		Digests: make([]DigestOutput, len(digests)),
		Count:   len(digests),
	}
	for i := range digests {
		d := &digests[i]
		output.Digests[i] = DigestOutput{
			MessageID:    d.MessageID,
			ReportDate:   d.ReportDate.Format(domain.DateLayout),
			TotalRevenue: d.TotalRevenue,
			Currency:     d.Currency,
			BookingCount: d.BookingCount,
			Channel:      d.Channel,
		}
	}
	return nil, output, nil
}
