package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// Ensure SyncRunStore implements the interface.
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore is an in-memory implementation of driven.SyncRunStore.
// Runs are kept in append order.
type SyncRunStore struct {
	mu   sync.RWMutex
	runs []domain.SyncRun
}

// NewSyncRunStore creates a new in-memory run log.
func NewSyncRunStore() *SyncRunStore {
	return &SyncRunStore{}
}

// Append records a started run.
func (s *SyncRunStore) Append(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.ID == run.ID {
			return domain.ErrAlreadyExists
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

// Finish replaces the record of a started run with its final state.
func (s *SyncRunStore) Finish(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	return domain.ErrNotFound
}

// Latest returns the most recently started run.
func (s *SyncRunStore) Latest(_ context.Context) (*domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return nil, domain.ErrNotFound
	}
	r := s.runs[len(s.runs)-1]
	return &r, nil
}

// LatestSuccessful returns the most recent successful run.
func (s *SyncRunStore) LatestSuccessful(_ context.Context) (*domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].Status == domain.RunStatusSuccess {
			r := s.runs[i]
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns up to limit runs, newest first.
func (s *SyncRunStore) List(_ context.Context, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]domain.SyncRun, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}
