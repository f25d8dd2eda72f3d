package mcp

import (
	"time"

	"github.com/custodia-labs/guestmail/internal/connectors/google/gmail"
	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// MessageOutput is a categorised message as returned by tools.
type MessageOutput struct {
	MessageID      string `json:"message_id"`
	ThreadID       string `json:"thread_id,omitempty"`
	Subject        string `json:"subject"`
	Sender         string `json:"sender"`
	ReceivedAt     string `json:"received_at,omitempty"`
	Category       string `json:"category"`
	SystemCategory string `json:"system_category"`
	Confidence     int    `json:"confidence"`
	Rationale      string `json:"rationale,omitempty"`
	Overridden     bool   `json:"overridden"`
	HasAttachment  bool   `json:"has_attachment"`
	WebURL         string `json:"web_url"`
}

// SummaryOutput is a stored message summary.
type SummaryOutput struct {
	MessageID    string   `json:"message_id"`
	ShortSummary string   `json:"short_summary"`
	KeyPoints    []string `json:"key_points"`
	ActionItems  []string `json:"action_items"`
	Sentiment    string   `json:"sentiment"`
	WordCount    int      `json:"word_count"`
	Trivial      bool     `json:"trivial"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// CandidateOutput is an unsubscribe suggestion.
type CandidateOutput struct {
	ID         string `json:"id"`
	MessageID  string `json:"message_id"`
	Sender     string `json:"sender"`
	Method     string `json:"method"`
	URL        string `json:"url,omitempty"`
	Status     string `json:"status"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

// BookingOutput is an extracted reservation.
type BookingOutput struct {
	ExternalID string  `json:"external_id"`
	MessageID  string  `json:"message_id"`
	GuestName  string  `json:"guest_name"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	Nights     int     `json:"nights"`
	Channel    string  `json:"channel"`
	Status     string  `json:"status"`
	RoomID     string  `json:"room_id,omitempty"`
	Price      float64 `json:"price,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	PartySize  int     `json:"party_size,omitempty"`
}

// DigestOutput is a parsed daily revenue report.
type DigestOutput struct {
	MessageID    string  `json:"message_id"`
	ReportDate   string  `json:"report_date"`
	TotalRevenue float64 `json:"total_revenue"`
	Currency     string  `json:"currency"`
	BookingCount int     `json:"booking_count,omitempty"`
	Channel      string  `json:"channel,omitempty"`
}

// RunOutput is a sync run audit record.
type RunOutput struct {
	ID                 string `json:"id"`
	Query              string `json:"query"`
	Status             string `json:"status"`
	StartedAt          string `json:"started_at"`
	EndedAt            string `json:"ended_at,omitempty"`
	Fetched            int    `json:"fetched"`
	Categorized        int    `json:"categorized"`
	Summarized         int    `json:"summarized"`
	Skipped            int    `json:"skipped"`
	Errored            int    `json:"errored"`
	BookingsExtracted  int    `json:"bookings_extracted"`
	DigestsExtracted   int    `json:"digests_extracted"`
	ExtractionFailures int    `json:"extraction_failures"`
	UnsubscribeFlagged int    `json:"unsubscribe_flagged"`
	Error              string `json:"error,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toMessageOutput(r *domain.CategorizationRecord) MessageOutput {
	return MessageOutput{
		MessageID:      r.MessageID,
		ThreadID:       r.ThreadID,
		Subject:        r.Subject,
		Sender:         r.Sender,
		ReceivedAt:     formatTime(r.ReceivedAt),
		Category:       string(r.EffectiveCategory()),
		SystemCategory: string(r.Category),
		Confidence:     r.Confidence,
		Rationale:      r.Rationale,
		Overridden:     r.Overridden,
		HasAttachment:  r.HasAttachment,
		WebURL:         gmail.WebURL(r.MessageID),
	}
}

func toMessageOutputs(records []domain.CategorizationRecord) []MessageOutput {
	out := make([]MessageOutput, len(records))
	for i := range records {
		out[i] = toMessageOutput(&records[i])
	}
	return out
}

func toSummaryOutput(r *domain.SummaryRecord) SummaryOutput {
	return SummaryOutput{
		MessageID:    r.MessageID,
		ShortSummary: r.ShortSummary,
		KeyPoints:    nonNil(r.KeyPoints),
		ActionItems:  nonNil(r.ActionItems),
		Sentiment:    string(r.Sentiment),
		WordCount:    r.WordCount,
		Trivial:      r.Trivial,
		UpdatedAt:    formatTime(r.UpdatedAt),
	}
}

func toRunOutput(r *domain.SyncRun) RunOutput {
	return RunOutput{
		ID:                 r.ID,
		Query:              r.Query,
		Status:             string(r.Status),
		StartedAt:          formatTime(r.StartedAt),
		EndedAt:            formatTime(r.EndedAt),
		Fetched:            r.Counts.Fetched,
		Categorized:        r.Counts.Categorized,
		Summarized:         r.Counts.Summarized,
		Skipped:            r.Counts.Skipped,
		Errored:            r.Counts.Errored,
		BookingsExtracted:  r.Counts.BookingsExtracted,
		DigestsExtracted:   r.Counts.DigestsExtracted,
		ExtractionFailures: r.Counts.ExtractionFailures,
		UnsubscribeFlagged: r.Counts.UnsubscribeFlagged,
		Error:              r.Error,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
