package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/guestmail/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// --- Test fixture wiring the coordinator to in-memory stores ---

type testPipeline struct {
	coord      *SyncCoordinator
	mailbox    *stubMailbox
	llm        *stubLLM
	categories *memory.CategorizationStore
	summaries  *memory.SummaryStore
	unsubs     *memory.UnsubscribeStore
	bookings   *memory.BookingStore
	digests    *memory.DigestStore
	runs       *memory.SyncRunStore
	deduper    *memory.Deduper
}

// newTestPipeline builds a coordinator. A nil llm disables inference.
func newTestPipeline(t *testing.T, llm *stubLLM, msgs ...*domain.MailboxMessage) *testPipeline {
	t.Helper()
	p := &testPipeline{
		mailbox:    newStubMailbox(msgs...),
		llm:        llm,
		categories: memory.NewCategorizationStore(),
		summaries:  memory.NewSummaryStore(),
		unsubs:     memory.NewUnsubscribeStore(),
		bookings:   memory.NewBookingStore(),
		digests:    memory.NewDigestStore(),
		runs:       memory.NewSyncRunStore(),
		deduper:    memory.NewDeduper(),
	}

	var inference *Inference
	if llm != nil {
		inference = NewInference(llm, nil, 0)
	} else {
		inference = NewInference(nil, nil, 0)
	}

	coord, err := NewSyncCoordinator(SyncDeps{
		Mailbox:        p.mailbox,
		Categorization: p.categories,
		Summaries:      p.summaries,
		Unsubscribes:   p.unsubs,
		Bookings:       p.bookings,
		Digests:        p.digests,
		Runs:           p.runs,
		Deduper:        p.deduper,
		Classifier:     NewClassifier(inference, 0),
		Summarizer:     NewSummarizer(inference, 0),
		Detector:       NewUnsubscribeDetector(),
		Extractor:      NewCompositeExtractor(NewDigestExtractor(), NewBookingExtractor(inference)),
	}, domain.SyncConfig{BatchSize: 2, Parallelism: 2, MaxRetries: 1})
	require.NoError(t, err)
	coord.retryBackoff = 0
	p.coord = coord
	return p
}

func newsletter() *domain.MailboxMessage {
	return &domain.MailboxMessage{
		ID:      "msg-news",
		Subject: "Spring newsletter",
		From:    "news@shop.example",
		Body:    "Great offers this week. To unsubscribe go to https://shop.example/u?id=7",
	}
}

func vendorDigest() *domain.MailboxMessage {
	return &domain.MailboxMessage{
		ID:      "msg-digest",
		Subject: "OTELMS daily report",
		From:    "reports@otelms.com",
		Body:    "თარიღი: 2025-03-15\nშემოსავალი: 4,850 ₾\nჯავშნები: 12",
	}
}

func longNote() *domain.MailboxMessage {
	return &domain.MailboxMessage{
		ID:      "msg-long",
		Subject: "Catch up",
		From:    "friend@example.com",
		Body:    words(80),
	}
}

// modelReplies fails classification so the keyword rules decide, and
// scripts the summary and booking replies.
func modelReplies() *stubLLM {
	return newStubLLM().
		fail("email_categorization", domain.ErrContractViolation).
		reply("email_summary", `{"shortSummary":"Catching up.","keyPoints":["a"],"actionItems":[],"sentiment":"positive","wordCount":80}`).
		reply("booking_extraction", bookingReplyJSON)
}

func TestSyncCoordinator_FullPipeline(t *testing.T) {
	p := newTestPipeline(t, modelReplies(), bookingConfirmation(), newsletter(), vendorDigest(), longNote())
	ctx := context.Background()

	run, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, domain.DefaultSyncQuery, run.Query)
	assert.Equal(t, domain.RunCounts{
		Fetched:            4,
		Categorized:        4,
		Summarized:         1,
		BookingsExtracted:  1,
		DigestsExtracted:   1,
		UnsubscribeFlagged: 1,
	}, run.Counts)

	rec, err := p.categories.Get(ctx, "msg-bk")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBookings, rec.Category)
	assert.GreaterOrEqual(t, rec.Confidence, 70)

	booking, err := p.bookings.GetByExternalID(ctx, "BK12345")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", booking.GuestName)
	assert.Equal(t, domain.ChannelBookingCom, booking.Channel)
	assert.Equal(t, domain.BookingConfirmed, booking.Status)

	digests, err := p.digests.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, digests, 1)
	assert.Equal(t, 4850.0, digests[0].TotalRevenue)
	assert.Equal(t, 12, digests[0].BookingCount)

	candidates, err := p.unsubs.List(ctx, domain.UnsubscribeSuggested, 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "msg-news", candidates[0].MessageID)
	assert.Equal(t, "https://shop.example/u?id=7", candidates[0].URL)

	summary, err := p.summaries.Get(ctx, "msg-long")
	require.NoError(t, err)
	assert.Equal(t, "Catching up.", summary.ShortSummary)
	_, err = p.summaries.Get(ctx, "msg-bk")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The run log holds the finished record.
	latest, err := p.runs.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, domain.RunStatusSuccess, latest.Status)
	assert.False(t, latest.EndedAt.IsZero())
}

func TestSyncCoordinator_SecondRunIsIdempotent(t *testing.T) {
	p := newTestPipeline(t, modelReplies(), bookingConfirmation(), newsletter(), vendorDigest(), longNote())
	ctx := context.Background()

	first, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.NoError(t, err)
	stateAfterFirst, err := p.categories.List(ctx, domain.ListOptions{})
	require.NoError(t, err)

	second, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, first.Counts.Categorized, second.Counts.Skipped)
	assert.Equal(t, 0, second.Counts.Categorized)
	assert.Equal(t, 0, second.Counts.BookingsExtracted)
	assert.Equal(t, 0, second.Counts.Errored)

	stateAfterSecond, err := p.categories.List(ctx, domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, stateAfterFirst, stateAfterSecond)

	bookings, err := p.bookings.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	// Already-categorized messages are not fetched again.
	assert.Equal(t, 1, p.mailbox.getCount("msg-bk"))
}

func TestSyncCoordinator_DuplicateBookingCountsAsSkipped(t *testing.T) {
	p := newTestPipeline(t, modelReplies(), bookingConfirmation())
	ctx := context.Background()

	_, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.NoError(t, err)

	// A modification notice for the same reservation arrives later.
	reminder := bookingConfirmation()
	reminder.ID = "msg-bk-2"
	reminder.Subject = "Booking modified #BK12345"
	p.mailbox.order = append(p.mailbox.order, reminder.ID)
	p.mailbox.messages[reminder.ID] = reminder

	run, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.NoError(t, err)

	assert.Equal(t, 2, run.Counts.Skipped)
	assert.Equal(t, 1, run.Counts.Categorized)
	assert.Equal(t, 0, run.Counts.BookingsExtracted)

	bookings, err := p.bookings.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "msg-bk", bookings[0].MessageID)
}

func TestSyncCoordinator_FetchFailureFailsRun(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation())
	p.mailbox.searchErr = errors.New("mailbox offline")
	ctx := context.Background()

	run, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox offline")
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "fetch messages")
	assert.Equal(t, 0, run.Counts.Fetched)

	status, err := p.coord.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, domain.RunStateFailed, status.State)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, domain.RunStatusFailed, status.LastRun.Status)
	assert.Nil(t, status.LastSuccessful)
}

func TestSyncCoordinator_FetchRetriesTransientFailure(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation())
	p.mailbox.searchFailures = 1

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, 1, run.Counts.Categorized)
	assert.Equal(t, 2, p.mailbox.searches)
}

func TestSyncCoordinator_PagesUntilMaxResults(t *testing.T) {
	var msgs []*domain.MailboxMessage
	for i := 0; i < 5; i++ {
		msgs = append(msgs, &domain.MailboxMessage{ID: fmt.Sprintf("m-%d", i), Subject: "Hello"})
	}
	p := newTestPipeline(t, nil, msgs...)
	p.mailbox.pageSize = 2

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{MaxResults: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, run.Counts.Fetched)
	assert.Equal(t, 4, run.Counts.Categorized)
	assert.Equal(t, 2, p.mailbox.searches)
}

func TestSyncCoordinator_PerMessageFailureDoesNotAbortRun(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation(), newsletter(), longNote())
	p.mailbox.getErrs["msg-news"] = errors.New("malformed MIME")

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, 1, run.Counts.Errored)
	assert.Equal(t, 2, run.Counts.Categorized)
	assert.Empty(t, run.Error)
}

func TestSyncCoordinator_TransientMessageFailureRetriedAfterBatch(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation(), newsletter())
	p.mailbox.transientGets["msg-news"] = 1

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, run.Counts.Errored)
	assert.Equal(t, 2, run.Counts.Categorized)
	assert.Equal(t, 2, p.mailbox.getCount("msg-news"))
}

func TestSyncCoordinator_PersistentTransientFailureCountedOnce(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation(), newsletter())
	p.mailbox.transientGets["msg-news"] = 10

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Counts.Errored)
	assert.Equal(t, 1, run.Counts.Categorized)
	// One attempt plus MaxRetries.
	assert.Equal(t, 2, p.mailbox.getCount("msg-news"))
}

func TestSyncCoordinator_ExtractionFailureIsCountedNotFatal(t *testing.T) {
	llm := newStubLLM().
		fail("email_categorization", domain.ErrContractViolation).
		reply("booking_extraction", `{"bookingId":"","guestName":"","checkIn":"","checkOut":"","channel":"other","status":"confirmed"}`)
	p := newTestPipeline(t, llm, bookingConfirmation())

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Counts.Categorized)
	assert.Equal(t, 1, run.Counts.ExtractionFailures)
	assert.Equal(t, 0, run.Counts.Errored)
	assert.Equal(t, 0, run.Counts.BookingsExtracted)

	bookings, err := p.bookings.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestSyncCoordinator_CancellationFinalisesAsFailed(t *testing.T) {
	msgs := []*domain.MailboxMessage{
		{ID: "m-1", Subject: "one"}, {ID: "m-2", Subject: "two"}, {ID: "m-3", Subject: "three"},
	}
	p := newTestPipeline(t, nil, msgs...)
	p.coord.cfg.BatchSize = 1
	p.coord.cfg.Parallelism = 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.mailbox.onGet = func(string) { cancel() }

	run, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, 3, run.Counts.Fetched)
	assert.Equal(t, 1, run.Counts.Categorized)

	// Records written before cancellation stay valid and the run log is final.
	exists, err := p.categories.Exists(context.Background(), "m-1")
	require.NoError(t, err)
	assert.True(t, exists)
	latest, err := p.runs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, latest.Status)
	assert.Equal(t, 1, latest.Counts.Categorized)
}

func TestSyncCoordinator_RejectsConcurrentRun(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation())

	var (
		nested   error
		snapshot *domain.SyncStatus
	)
	p.mailbox.onGet = func(string) {
		_, nested = p.coord.Run(context.Background(), domain.SyncRequest{})
		snapshot, _ = p.coord.Status(context.Background())
	}

	_, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.ErrorIs(t, nested, domain.ErrSyncInProgress)

	require.NotNil(t, snapshot)
	assert.True(t, snapshot.Running)
	assert.Equal(t, domain.RunStateProcessing, snapshot.State)
	require.NotNil(t, snapshot.Current)
	assert.Equal(t, 1, snapshot.Current.Counts.Fetched)
}

func TestSyncCoordinator_StatusAfterSuccess(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation())
	ctx := context.Background()

	_, err := p.coord.Run(ctx, domain.SyncRequest{})
	require.NoError(t, err)

	status, err := p.coord.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, domain.RunStateCompleted, status.State)
	require.NotNil(t, status.LastSuccessful)
	assert.GreaterOrEqual(t, status.Staleness.Nanoseconds(), int64(0))

	runs, err := p.coord.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSyncCoordinator_SyncDigestsMarksRead(t *testing.T) {
	p := newTestPipeline(t, nil, vendorDigest())

	run, err := p.coord.SyncDigests(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDigestQuery, run.Query)
	assert.Equal(t, 1, run.Counts.DigestsExtracted)
	assert.True(t, p.mailbox.read["msg-digest"])
}

func TestSyncCoordinator_ClaimedMessageIsSkipped(t *testing.T) {
	p := newTestPipeline(t, nil, bookingConfirmation(), newsletter())
	// Another worker already holds the message.
	ok, err := p.deduper.Claim(context.Background(), claimKey("msg-news"), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Counts.Skipped)
	assert.Equal(t, 1, run.Counts.Categorized)
	assert.Equal(t, 0, p.mailbox.getCount("msg-news"))
}

func TestSyncCoordinator_CountersUnderParallelism(t *testing.T) {
	var msgs []*domain.MailboxMessage
	for i := 0; i < 40; i++ {
		msgs = append(msgs, &domain.MailboxMessage{
			ID:      fmt.Sprintf("m-%02d", i),
			Subject: "Weekly newsletter",
			From:    "news@shop.example",
		})
	}
	p := newTestPipeline(t, nil, msgs...)
	p.coord.cfg.BatchSize = 10
	p.coord.cfg.Parallelism = 5

	run, err := p.coord.Run(context.Background(), domain.SyncRequest{})
	require.NoError(t, err)
	assert.Equal(t, 40, run.Counts.Fetched)
	assert.Equal(t, 40, run.Counts.Categorized)
	assert.Equal(t, 40, run.Counts.UnsubscribeFlagged)
}

func TestNewSyncCoordinator_ValidatesDeps(t *testing.T) {
	_, err := NewSyncCoordinator(SyncDeps{}, domain.SyncConfig{})
	assert.ErrorIs(t, err, domain.ErrMailboxUnavailable)

	_, err = NewSyncCoordinator(SyncDeps{Mailbox: newStubMailbox()}, domain.SyncConfig{})
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}
