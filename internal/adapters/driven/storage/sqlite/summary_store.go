package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// summaryStore implements driven.SummaryStore.
type summaryStore struct {
	store *Store
}

var _ driven.SummaryStore = (*summaryStore)(nil)

// Upsert inserts or replaces the summary for a message. The original
// created_at is kept on replace.
func (s *summaryStore) Upsert(ctx context.Context, r domain.SummaryRecord) error {
	keyPoints, err := json.Marshal(nonNil(r.KeyPoints))
	if err != nil {
		return fmt.Errorf("marshalling key points: %w", err)
	}
	actionItems, err := json.Marshal(nonNil(r.ActionItems))
	if err != nil {
		return fmt.Errorf("marshalling action items: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO summaries (message_id, short_summary, key_points, action_items, sentiment,
			word_count, trivial, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			short_summary = excluded.short_summary,
			key_points = excluded.key_points,
			action_items = excluded.action_items,
			sentiment = excluded.sentiment,
			word_count = excluded.word_count,
			trivial = excluded.trivial,
			updated_at = excluded.updated_at
	`, r.MessageID, r.ShortSummary, string(keyPoints), string(actionItems), string(r.Sentiment),
		r.WordCount, boolToInt(r.Trivial), formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

// Get returns the summary for a message.
func (s *summaryStore) Get(ctx context.Context, messageID string) (*domain.SummaryRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT message_id, short_summary, key_points, action_items, sentiment,
			word_count, trivial, created_at, updated_at
		FROM summaries WHERE message_id = ?
	`, messageID)

	var (
		r                      domain.SummaryRecord
		keyPoints, actionItems string
		sentiment              string
		trivial                int
		createdAt, updatedAt   string
	)
	err := row.Scan(&r.MessageID, &r.ShortSummary, &keyPoints, &actionItems, &sentiment,
		&r.WordCount, &trivial, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning summary: %w", err)
	}

	if err := json.Unmarshal([]byte(keyPoints), &r.KeyPoints); err != nil {
		return nil, fmt.Errorf("unmarshaling key points: %w", err)
	}
	if err := json.Unmarshal([]byte(actionItems), &r.ActionItems); err != nil {
		return nil, fmt.Errorf("unmarshaling action items: %w", err)
	}
	r.Sentiment = domain.Sentiment(sentiment)
	r.Trivial = trivial == 1
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
