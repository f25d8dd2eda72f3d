package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

func TestUnsubscribeCmd_DefaultsToSuggested(t *testing.T) {
	inbox := &mockInboxService{candidates: []domain.UnsubscribeCandidate{
		{ID: "c-1", Sender: "news@vendor.example", Method: domain.DetectionHeader,
			URL: "https://vendor.example/unsub", Status: domain.UnsubscribeSuggested},
		{ID: "c-2", Sender: "deals@shop.example", Method: domain.DetectionHeuristic,
			Status: domain.UnsubscribeSuggested},
	}}
	withServices(t, Services{Inbox: inbox})

	out, err := execute(t, "unsubscribe")
	require.NoError(t, err)

	assert.Equal(t, domain.UnsubscribeStatus(""), inbox.lastStatus)
	assert.Contains(t, out, "https://vendor.example/unsub")
	assert.Contains(t, out, "content_heuristic")
}

func TestUnsubscribeListCmd_StatusFilter(t *testing.T) {
	inbox := &mockInboxService{}
	withServices(t, Services{Inbox: inbox})

	out, err := execute(t, "unsubscribe", "list", "--status", "kept")
	require.NoError(t, err)
	assert.Equal(t, domain.UnsubscribeKept, inbox.lastStatus)
	assert.Contains(t, out, "No unsubscribe suggestions.")
}

func TestUnsubscribeListCmd_InvalidStatus(t *testing.T) {
	withServices(t, Services{Inbox: &mockInboxService{}})

	_, err := execute(t, "unsubscribe", "list", "--status", "ignored")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUnsubscribeSetCmd(t *testing.T) {
	inbox := &mockInboxService{}
	withServices(t, Services{Inbox: inbox})

	out, err := execute(t, "unsubscribe", "set", "c-1", "dismissed")
	require.NoError(t, err)
	assert.Equal(t, domain.UnsubscribeDismissed, inbox.lastStatus)
	assert.Contains(t, out, "Suggestion c-1 marked dismissed.")
}

func storedSummary() *domain.SummaryRecord {
	return &domain.SummaryRecord{
		MessageID: "msg-1",
		Summary: domain.Summary{
			ShortSummary: "Guest asks for late check-in",
			KeyPoints:    []string{"Arrives 23:00"},
			ActionItems:  []string{"Confirm night reception"},
			Sentiment:    domain.SentimentNeutral,
			WordCount:    142,
		},
	}
}

func TestSummaryCmd_Stored(t *testing.T) {
	inbox := &mockInboxService{summary: storedSummary()}
	withServices(t, Services{Inbox: inbox})

	out, err := execute(t, "summary", "msg-1")
	require.NoError(t, err)

	assert.Zero(t, inbox.summarizeCalls)
	assert.Contains(t, out, "Guest asks for late check-in")
	assert.Contains(t, out, "  - Arrives 23:00")
	assert.Contains(t, out, "  - Confirm night reception")
	assert.Contains(t, out, "Words: 142")
	assert.Contains(t, out, "Open: https://mail.google.com/mail/u/0/#all/msg-1")
}

func TestSummaryCmd_GeneratesWhenMissing(t *testing.T) {
	inbox := &mockInboxService{summaryErr: domain.ErrNotFound, generated: storedSummary()}
	withServices(t, Services{Inbox: inbox})

	out, err := execute(t, "summary", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, 1, inbox.summarizeCalls)
	assert.Contains(t, out, "late check-in")
}

func TestSummaryCmd_Refresh(t *testing.T) {
	inbox := &mockInboxService{summary: storedSummary(), generated: storedSummary()}
	withServices(t, Services{Inbox: inbox})

	_, err := execute(t, "summary", "msg-1", "--refresh")
	require.NoError(t, err)
	assert.Equal(t, 1, inbox.summarizeCalls)
}

func TestSummaryCmd_MailboxUnavailable(t *testing.T) {
	inbox := &mockInboxService{summaryErr: domain.ErrNotFound, err: domain.ErrMailboxUnavailable}
	withServices(t, Services{Inbox: inbox})

	_, err := execute(t, "summary", "msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMailboxUnavailable)
}

func TestBookingsCmd(t *testing.T) {
	inbox := &mockInboxService{bookings: []domain.ExtractedBooking{
		{
			ExternalID: "4711",
			GuestName:  "Nino Beridze",
			CheckIn:    time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
			CheckOut:   time.Date(2025, 5, 13, 0, 0, 0, 0, time.UTC),
			Channel:    domain.ChannelBookingCom,
			Status:     domain.BookingConfirmed,
			Price:      450,
			Currency:   "GEL",
		},
	}}
	withServices(t, Services{Inbox: inbox})

	out, err := execute(t, "bookings")
	require.NoError(t, err)
	assert.Contains(t, out, "Nino Beridze")
	assert.Contains(t, out, "2025-05-10")
	assert.Contains(t, out, "booking.com")
	assert.Contains(t, out, "450.00 GEL")
}

func TestBookingsCmd_Empty(t *testing.T) {
	withServices(t, Services{Inbox: &mockInboxService{}})

	out, err := execute(t, "bookings")
	require.NoError(t, err)
	assert.Contains(t, out, "No bookings extracted yet.")
}

func TestDigestsCmd(t *testing.T) {
	inbox := &mockInboxService{digests: []domain.DailyDigest{
		{ReportDate: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), TotalRevenue: 1234.5, Currency: "GEL", Channel: "all"},
	}}
	withServices(t, Services{Inbox: inbox})

	out, err := execute(t, "digests")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-04-02")
	assert.Contains(t, out, "1234.50 GEL")
}

func TestDigestsCmd_Empty(t *testing.T) {
	withServices(t, Services{Inbox: &mockInboxService{}})

	out, err := execute(t, "digests")
	require.NoError(t, err)
	assert.Contains(t, out, "No daily reports processed yet.")
}
