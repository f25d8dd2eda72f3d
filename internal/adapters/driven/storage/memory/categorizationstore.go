package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// Ensure CategorizationStore implements the interface.
var _ driven.CategorizationStore = (*CategorizationStore)(nil)

// CategorizationStore is an in-memory implementation of driven.CategorizationStore.
type CategorizationStore struct {
	mu      sync.RWMutex
	records map[string]domain.CategorizationRecord
}

// NewCategorizationStore creates a new in-memory categorization store.
func NewCategorizationStore() *CategorizationStore {
	return &CategorizationStore{
		records: make(map[string]domain.CategorizationRecord),
	}
}

// Create stores a new record. An existing message id yields domain.ErrDuplicate.
func (s *CategorizationStore) Create(_ context.Context, record domain.CategorizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.MessageID]; ok {
		return domain.ErrDuplicate
	}
	s.records[record.MessageID] = record
	return nil
}

// Get retrieves a record by message id.
func (s *CategorizationStore) Get(_ context.Context, messageID string) (*domain.CategorizationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[messageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

// Exists reports whether a record exists for the message.
func (s *CategorizationStore) Exists(_ context.Context, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[messageID]
	return ok, nil
}

// List returns records newest first, filtered by effective category.
func (s *CategorizationStore) List(_ context.Context, opts domain.ListOptions) ([]domain.CategorizationRecord, error) {
	opts = opts.Normalise()
	all := s.sorted(func(r *domain.CategorizationRecord) bool {
		return opts.Category == "" || r.EffectiveCategory() == opts.Category
	})
	if opts.Offset >= len(all) {
		return []domain.CategorizationRecord{}, nil
	}
	end := min(opts.Offset+opts.Limit, len(all))
	return all[opts.Offset:end], nil
}

// Search returns records matching filter, newest first.
func (s *CategorizationStore) Search(
	_ context.Context,
	filter domain.SearchFilter,
	limit int,
) ([]domain.CategorizationRecord, error) {
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}
	all := s.sorted(filter.Matches)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Stats aggregates counts and mean confidence per effective category.
func (s *CategorizationStore) Stats(_ context.Context) (*domain.CategoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.Category]int)
	sums := make(map[domain.Category]int)
	for _, r := range s.records {
		c := r.EffectiveCategory()
		counts[c]++
		sums[c] += r.Confidence
	}

	stats := &domain.CategoryStats{Categories: []domain.CategoryStat{}}
	for _, c := range domain.AllCategories() {
		if counts[c] == 0 {
			continue
		}
		stats.Categories = append(stats.Categories, domain.CategoryStat{
			Category:          c,
			Count:             counts[c],
			AverageConfidence: float64(sums[c]) / float64(counts[c]),
		})
		stats.Total += counts[c]
	}
	return stats, nil
}

// Override records an operator category for a message.
func (s *CategorizationStore) Override(_ context.Context, messageID string, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[messageID]
	if !ok {
		return domain.ErrNotFound
	}
	r.ManualCategory = category
	r.Overridden = true
	r.AttributedTo = domain.AttributionUser
	r.UpdatedAt = time.Now().UTC()
	s.records[messageID] = r
	return nil
}

func (s *CategorizationStore) sorted(keep func(*domain.CategorizationRecord) bool) []domain.CategorizationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CategorizationRecord, 0, len(s.records))
	for _, r := range s.records {
		if keep(&r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	return out
}
