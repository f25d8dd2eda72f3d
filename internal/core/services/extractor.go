package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/metrics"
)

// Extraction strategy names, used as metric labels.
const (
	StrategyPattern = "pattern"
	StrategyModel   = "model"
)

// Extractor turns a message into a structured record.
//
// A nil extraction with a nil error means the strategy does not apply to
// the message. Errors wrapping domain.ErrContractViolation mean it applied
// but nothing valid came out; callers count those and move on.
type Extractor interface {
	Extract(ctx context.Context, msg *domain.MailboxMessage, category domain.Category) (*domain.Extraction, error)
}

// ============================================================================
// Pattern strategy: vendor daily digest
// ============================================================================

type digestDate struct {
	pattern *regexp.Regexp
	layout  string
}

var (
	digestDatePatterns = []digestDate{
		{regexp.MustCompile(`(?i)თარიღი[: \t]+(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
		{regexp.MustCompile(`(?i)date[: \t]+(\d{4}-\d{2}-\d{2})`), "2006-01-02"},
		{regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`), "02/01/2006"},
		{regexp.MustCompile(`(\d{4}\.\d{2}\.\d{2})`), "2006.01.02"},
	}

	// Amounts and their labels must share a line.
	digestRevenuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)შემოსავალი[: \t]+([\d,]+(?:\.\d+)?)[ \t]*₾`),
		regexp.MustCompile(`(?i)revenue[: \t]+([\d,]+(?:\.\d+)?)[ \t]*₾`),
		regexp.MustCompile(`(?i)თანხა[: \t]+([\d,]+(?:\.\d+)?)[ \t]*₾`),
		regexp.MustCompile(`([\d,]+(?:\.\d+)?)[ \t]*₾`),
		regexp.MustCompile(`₾[ \t]*([\d,]+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)[ \t]*GEL`),
	}

	digestBookingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ჯავშნები[: \t]+(\d+)`),
		regexp.MustCompile(`(?i)bookings?[: \t]+(\d+)`),
		regexp.MustCompile(`(?i)რაოდენობა[: \t]+(\d+)`),
		regexp.MustCompile(`(?i)(\d+)[ \t]*ჯავშანი`),
	}

	digestChannelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)წყარო[: \t]+([^\n]+)`),
		regexp.MustCompile(`(?i)source[: \t]+([^\n]+)`),
		regexp.MustCompile(`(?i)channel[: \t]+([^\n]+)`),
		regexp.MustCompile(`(?i)პლატფორმა[: \t]+([^\n]+)`),
	}

	digestNotePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)შენიშვნა[: \t]+([^\n]+)`),
		regexp.MustCompile(`(?i)notes?[: \t]+([^\n]+)`),
		regexp.MustCompile(`(?i)კომენტარი[: \t]+([^\n]+)`),
	}

	digestKeywords = []string{
		"otelms",
		"ოტელმს",
		"დღიური ანგარიში",
		"daily report",
		"შემოსავალი",
		"revenue report",
		"booking report",
		"ჯავშნები",
	}
)

// DigestExtractor parses the property-management system's daily report.
type DigestExtractor struct{}

// NewDigestExtractor creates a digest extractor.
func NewDigestExtractor() *DigestExtractor {
	return &DigestExtractor{}
}

// IsDigest reports whether the subject or body carries report keywords.
func (e *DigestExtractor) IsDigest(msg *domain.MailboxMessage) bool {
	return containsAny(strings.ToLower(msg.Subject+" "+msg.Body), digestKeywords...)
}

// Extract implements Extractor.
func (e *DigestExtractor) Extract(_ context.Context, msg *domain.MailboxMessage, _ domain.Category) (*domain.Extraction, error) {
	if !e.IsDigest(msg) {
		return nil, nil
	}
	digest, err := e.Parse(msg)
	if err != nil {
		return nil, err
	}
	return &domain.Extraction{Kind: domain.ExtractionDigest, Digest: digest}, nil
}

// Parse applies the field patterns first-match-wins. A report without a
// positive revenue figure is rejected even when other fields parse.
func (e *DigestExtractor) Parse(msg *domain.MailboxMessage) (*domain.DailyDigest, error) {
	revenue, ok := firstRevenue(msg.Body)
	if !ok {
		return nil, fmt.Errorf("%w: no revenue figure in report", domain.ErrContractViolation)
	}

	reportDate := parseDigestDate(msg.Body, msg.Subject)
	if reportDate.IsZero() {
		received := msg.ReceivedAt
		if received.IsZero() {
			received = time.Now()
		}
		reportDate = time.Date(received.Year(), received.Month(), received.Day(), 0, 0, 0, 0, time.UTC)
	}

	digest := &domain.DailyDigest{
		ID:           uuid.New().String(),
		MessageID:    msg.ID,
		ReportDate:   reportDate,
		TotalRevenue: revenue,
		Currency:     domain.DigestCurrency,
		Channel:      firstCapture(digestChannelPatterns, msg.Body),
		Notes:        firstCapture(digestNotePatterns, msg.Body),
		RawText:      msg.Body,
		CreatedAt:    time.Now().UTC(),
	}
	for _, p := range digestBookingPatterns {
		if m := p.FindStringSubmatch(msg.Body); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				digest.BookingCount = n
				break
			}
		}
	}
	return digest, nil
}

func parseDigestDate(texts ...string) time.Time {
	for _, d := range digestDatePatterns {
		for _, text := range texts {
			m := d.pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			if t, err := time.Parse(d.layout, m[1]); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func firstRevenue(body string) (float64, bool) {
	for _, p := range digestRevenuePatterns {
		m := p.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ============================================================================
// Model strategy: platform booking confirmations
// ============================================================================

// maxExtractionBodyChars bounds the body sent for extraction.
const maxExtractionBodyChars = 6000

// BookingExtractor asks the model for a booking record under a strict
// schema. Anything short of a complete record is rejected.
type BookingExtractor struct {
	inference *Inference
}

// NewBookingExtractor creates a model-backed booking extractor.
func NewBookingExtractor(inference *Inference) *BookingExtractor {
	return &BookingExtractor{inference: inference}
}

// Extract implements Extractor. It applies to messages classified as
// bookings when inference is available.
func (e *BookingExtractor) Extract(
	ctx context.Context,
	msg *domain.MailboxMessage,
	category domain.Category,
) (*domain.Extraction, error) {
	if category != domain.CategoryBookings || !e.inference.Available() {
		return nil, nil
	}

	var reply bookingReply
	err := e.inference.JSON(ctx, opExtractBooking, driven.PromptExtractBooking, bookingSchema(), &reply,
		msg.From, msg.Subject, domain.Truncate(msg.Body, maxExtractionBodyChars))
	if err != nil {
		return nil, err
	}

	booking, err := reply.toBooking(msg)
	if err != nil {
		return nil, err
	}
	return &domain.Extraction{Kind: domain.ExtractionBooking, Booking: booking}, nil
}

func (r bookingReply) toBooking(msg *domain.MailboxMessage) (*domain.ExtractedBooking, error) {
	checkIn, err := parseStayDate(r.CheckIn)
	if err != nil {
		return nil, fmt.Errorf("%w: check-in %q", domain.ErrContractViolation, r.CheckIn)
	}
	checkOut, err := parseStayDate(r.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("%w: check-out %q", domain.ErrContractViolation, r.CheckOut)
	}

	b := &domain.ExtractedBooking{
		ID:          uuid.New().String(),
		MessageID:   msg.ID,
		ExternalID:  strings.TrimLeft(strings.TrimSpace(r.BookingID), "#"),
		GuestName:   strings.TrimSpace(r.GuestName),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Channel:     domain.Channel(strings.ToLower(strings.TrimSpace(r.Channel))),
		Status:      domain.BookingStatus(strings.ToLower(strings.TrimSpace(r.Status))),
		RoomID:      strings.TrimSpace(deref(r.RoomNumber)),
		Currency:    strings.ToUpper(strings.TrimSpace(deref(r.Currency))),
		GuestEmail:  strings.TrimSpace(deref(r.GuestEmail)),
		GuestPhone:  strings.TrimSpace(deref(r.GuestPhone)),
		Notes:       strings.TrimSpace(deref(r.Notes)),
		ExtractedAt: time.Now().UTC(),
	}
	if r.Price != nil && *r.Price > 0 {
		b.Price = *r.Price
	}
	// Some endpoints send counts as 2.0; round rather than reject.
	if r.Guests != nil && *r.Guests > 0 {
		b.PartySize = int(math.Round(*r.Guests))
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func parseStayDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(domain.DateLayout) {
		s = s[:len(domain.DateLayout)]
	}
	return time.Parse(domain.DateLayout, s)
}

// ============================================================================
// Strategy selection
// ============================================================================

// CompositeExtractor routes a message to the first applicable strategy:
// vendor digests by pattern, then booking confirmations by model.
type CompositeExtractor struct {
	digests  *DigestExtractor
	bookings *BookingExtractor
}

// NewCompositeExtractor creates the extractor used by the sync coordinator.
func NewCompositeExtractor(digests *DigestExtractor, bookings *BookingExtractor) *CompositeExtractor {
	return &CompositeExtractor{digests: digests, bookings: bookings}
}

// Extract implements Extractor.
func (c *CompositeExtractor) Extract(
	ctx context.Context,
	msg *domain.MailboxMessage,
	category domain.Category,
) (*domain.Extraction, error) {
	if c.digests != nil && c.digests.IsDigest(msg) {
		out, err := c.digests.Extract(ctx, msg, category)
		if err == nil {
			metrics.RecordExtraction(StrategyPattern)
		}
		return out, err
	}
	if c.bookings != nil {
		out, err := c.bookings.Extract(ctx, msg, category)
		if err == nil && out != nil {
			metrics.RecordExtraction(StrategyModel)
		}
		return out, err
	}
	return nil, nil
}
