package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// Ensure SummaryStore implements the interface.
var _ driven.SummaryStore = (*SummaryStore)(nil)

// SummaryStore is an in-memory implementation of driven.SummaryStore.
type SummaryStore struct {
	mu        sync.RWMutex
	summaries map[string]domain.SummaryRecord
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		summaries: make(map[string]domain.SummaryRecord),
	}
}

// Upsert stores or replaces the summary for a message, keeping CreatedAt.
func (s *SummaryStore) Upsert(_ context.Context, record domain.SummaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.summaries[record.MessageID]; ok {
		record.CreatedAt = existing.CreatedAt
	}
	s.summaries[record.MessageID] = record
	return nil
}

// Get retrieves the summary for a message.
func (s *SummaryStore) Get(_ context.Context, messageID string) (*domain.SummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.summaries[messageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}
