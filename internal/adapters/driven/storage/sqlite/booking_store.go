package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// ==================== Booking Store ====================

// bookingStore implements driven.BookingStore.
type bookingStore struct {
	store *Store
}

var _ driven.BookingStore = (*bookingStore)(nil)

const bookingColumns = `id, message_id, external_id, guest_name, check_in, check_out, channel, status,
	room_id, price, currency, guest_email, guest_phone, party_size, notes, extracted_at`

// Insert stores a booking. The unique external_id column and DO NOTHING
// make the duplicate check and the write one statement, so concurrent
// inserts of the same reservation leave exactly one row.
func (s *bookingStore) Insert(ctx context.Context, b domain.ExtractedBooking) error {
	if err := b.Validate(); err != nil {
		return err
	}

	var price, partySize any
	if b.Price > 0 {
		price = b.Price
	}
	if b.PartySize > 0 {
		partySize = b.PartySize
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING
	`, b.ID, b.MessageID, b.ExternalID, b.GuestName,
		b.CheckIn.Format(domain.DateLayout), b.CheckOut.Format(domain.DateLayout),
		string(b.Channel), string(b.Status),
		nullString(b.RoomID), price, nullString(b.Currency), nullString(b.GuestEmail),
		nullString(b.GuestPhone), partySize, nullString(b.Notes), formatTime(b.ExtractedAt))
	if err != nil {
		return fmt.Errorf("saving booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving booking: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("booking %s: %w", b.ExternalID, domain.ErrDuplicate)
	}
	return nil
}

// GetByExternalID returns a booking by its platform reference.
func (s *bookingStore) GetByExternalID(ctx context.Context, externalID string) (*domain.ExtractedBooking, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE external_id = ?`, externalID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// List returns bookings ordered by check-in descending.
func (s *bookingStore) List(ctx context.Context, limit int) ([]domain.ExtractedBooking, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY check_in DESC, external_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	bookings := []domain.ExtractedBooking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(row rowScanner) (*domain.ExtractedBooking, error) {
	var (
		b                                     domain.ExtractedBooking
		checkIn, checkOut, channel, status    string
		roomID, currency, email, phone, notes sql.NullString
		price                                 sql.NullFloat64
		partySize                             sql.NullInt64
		extractedAt                           string
	)
	err := row.Scan(&b.ID, &b.MessageID, &b.ExternalID, &b.GuestName, &checkIn, &checkOut, &channel, &status,
		&roomID, &price, &currency, &email, &phone, &partySize, &notes, &extractedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning booking: %w", err)
	}

	b.CheckIn, _ = parseDate(checkIn)
	b.CheckOut, _ = parseDate(checkOut)
	b.Channel = domain.Channel(channel)
	b.Status = domain.BookingStatus(status)
	b.RoomID = roomID.String
	b.Price = price.Float64
	b.Currency = currency.String
	b.GuestEmail = email.String
	b.GuestPhone = phone.String
	b.PartySize = int(partySize.Int64)
	b.Notes = notes.String
	b.ExtractedAt = parseTime(extractedAt)
	return &b, nil
}

// ==================== Digest Store ====================

// digestStore implements driven.DigestStore.
type digestStore struct {
	store *Store
}

var _ driven.DigestStore = (*digestStore)(nil)

// Insert stores a digest, one per source message.
func (s *digestStore) Insert(ctx context.Context, d domain.DailyDigest) error {
	if d.TotalRevenue <= 0 {
		return fmt.Errorf("%w: digest revenue must be positive", domain.ErrContractViolation)
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO digests (id, message_id, report_date, total_revenue, currency, booking_count,
			channel, notes, raw_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, d.ID, d.MessageID, d.ReportDate.Format(domain.DateLayout), d.TotalRevenue, d.Currency,
		d.BookingCount, nullString(d.Channel), nullString(d.Notes), d.RawText, formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving digest: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("digest for %s: %w", d.MessageID, domain.ErrDuplicate)
	}
	return nil
}

// List returns digests ordered by report date descending.
func (s *digestStore) List(ctx context.Context, limit int) ([]domain.DailyDigest, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, message_id, report_date, total_revenue, currency, booking_count,
			channel, notes, raw_text, created_at
		FROM digests ORDER BY report_date DESC, created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying digests: %w", err)
	}
	defer rows.Close()

	digests := []domain.DailyDigest{}
	for rows.Next() {
		var (
			d                     domain.DailyDigest
			reportDate, createdAt string
			channel, notes        sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.MessageID, &reportDate, &d.TotalRevenue, &d.Currency, &d.BookingCount,
			&channel, &notes, &d.RawText, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning digest: %w", err)
		}
		d.ReportDate, _ = parseDate(reportDate)
		d.Channel = channel.String
		d.Notes = notes.String
		d.CreatedAt = parseTime(createdAt)
		digests = append(digests, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating digests: %w", err)
	}
	return digests, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(domain.DateLayout, s)
}
