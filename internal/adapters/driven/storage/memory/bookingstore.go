package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// Ensure BookingStore and DigestStore implement the interfaces.
var (
	_ driven.BookingStore = (*BookingStore)(nil)
	_ driven.DigestStore  = (*DigestStore)(nil)
)

// BookingStore is an in-memory implementation of driven.BookingStore.
// The check and insert happen under one lock, matching the unique
// constraint of the SQL store.
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[string]domain.ExtractedBooking // keyed by external id
}

// NewBookingStore creates a new in-memory booking store.
func NewBookingStore() *BookingStore {
	return &BookingStore{
		bookings: make(map[string]domain.ExtractedBooking),
	}
}

// Insert stores a booking. An existing external id yields domain.ErrDuplicate.
func (s *BookingStore) Insert(_ context.Context, b domain.ExtractedBooking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ExternalID]; ok {
		return domain.ErrDuplicate
	}
	s.bookings[b.ExternalID] = b
	return nil
}

// GetByExternalID retrieves a booking by its platform identifier.
func (s *BookingStore) GetByExternalID(_ context.Context, externalID string) (*domain.ExtractedBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[externalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

// List returns bookings by check-in, latest first.
func (s *BookingStore) List(_ context.Context, limit int) ([]domain.ExtractedBooking, error) {
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	s.mu.RLock()
	out := make([]domain.ExtractedBooking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckIn.Equal(out[j].CheckIn) {
			return out[i].ExternalID < out[j].ExternalID
		}
		return out[i].CheckIn.After(out[j].CheckIn)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DigestStore is an in-memory implementation of driven.DigestStore.
type DigestStore struct {
	mu      sync.RWMutex
	digests map[string]domain.DailyDigest // keyed by message id
}

// NewDigestStore creates a new in-memory digest store.
func NewDigestStore() *DigestStore {
	return &DigestStore{
		digests: make(map[string]domain.DailyDigest),
	}
}

// Insert stores a digest. A second digest from the same message yields domain.ErrDuplicate.
func (s *DigestStore) Insert(_ context.Context, d domain.DailyDigest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.digests[d.MessageID]; ok {
		return domain.ErrDuplicate
	}
	s.digests[d.MessageID] = d
	return nil
}

// List returns digests by report date, latest first.
func (s *DigestStore) List(_ context.Context, limit int) ([]domain.DailyDigest, error) {
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	s.mu.RLock()
	out := make([]domain.DailyDigest, 0, len(s.digests))
	for _, d := range s.digests {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ReportDate.Equal(out[j].ReportDate) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].ReportDate.After(out[j].ReportDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
