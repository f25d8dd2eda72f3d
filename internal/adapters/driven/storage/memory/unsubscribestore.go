package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// Ensure UnsubscribeStore implements the interface.
var _ driven.UnsubscribeStore = (*UnsubscribeStore)(nil)

// UnsubscribeStore is an in-memory implementation of driven.UnsubscribeStore.
type UnsubscribeStore struct {
	mu         sync.RWMutex
	candidates map[string]domain.UnsubscribeCandidate // keyed by id
	byMessage  map[string]string                      // message id -> candidate id
}

// NewUnsubscribeStore creates a new in-memory unsubscribe store.
func NewUnsubscribeStore() *UnsubscribeStore {
	return &UnsubscribeStore{
		candidates: make(map[string]domain.UnsubscribeCandidate),
		byMessage:  make(map[string]string),
	}
}

// Upsert inserts a candidate for a message, or refreshes LastSeenAt of the
// existing one. Status is never changed here.
func (s *UnsubscribeStore) Upsert(_ context.Context, c domain.UnsubscribeCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byMessage[c.MessageID]; ok {
		existing := s.candidates[id]
		if c.LastSeenAt.After(existing.LastSeenAt) {
			existing.LastSeenAt = c.LastSeenAt
		}
		s.candidates[id] = existing
		return nil
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = domain.UnsubscribeSuggested
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.candidates[c.ID] = c
	s.byMessage[c.MessageID] = c.ID
	return nil
}

// List returns candidates with the given status (all when empty), most recently seen first.
func (s *UnsubscribeStore) List(
	_ context.Context,
	status domain.UnsubscribeStatus,
	limit int,
) ([]domain.UnsubscribeCandidate, error) {
	if limit <= 0 {
		limit = domain.DefaultUnsubscribeLimit
	}
	s.mu.RLock()
	out := make([]domain.UnsubscribeCandidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeenAt.Equal(out[j].LastSeenAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus records an operator action on a candidate.
func (s *UnsubscribeStore) UpdateStatus(_ context.Context, id string, status domain.UnsubscribeStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	c.ActionAt = at
	s.candidates[id] = c
	return nil
}
