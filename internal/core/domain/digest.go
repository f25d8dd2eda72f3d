package domain

import "time"

// DigestCurrency is the currency of the property management daily report.
const DigestCurrency = "GEL"

// DailyDigest is a revenue record parsed from the property management
// system's daily report. TotalRevenue is always above zero.
type DailyDigest struct {
	ID           string
	MessageID    string
	ReportDate   time.Time
	TotalRevenue float64
	Currency     string

	// BookingCount is zero when the report does not state one.
	BookingCount int
	Channel      string
	Notes        string
	RawText      string
	CreatedAt    time.Time
}

// ExtractionKind identifies which strategy produced an Extraction.
type ExtractionKind string

// Extraction kinds.
const (
	ExtractionBooking ExtractionKind = "booking"
	ExtractionDigest  ExtractionKind = "digest"
)

// Extraction is the result of running an extraction strategy on a message.
// Exactly one of Booking or Digest is set, matching Kind.
type Extraction struct {
	Kind    ExtractionKind
	Booking *ExtractedBooking
	Digest  *DailyDigest
}
