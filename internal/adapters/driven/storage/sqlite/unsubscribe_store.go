package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// unsubscribeStore implements driven.UnsubscribeStore.
type unsubscribeStore struct {
	store *Store
}

var _ driven.UnsubscribeStore = (*unsubscribeStore)(nil)

// Upsert creates the candidate for a message. On conflict only
// last_seen_at moves forward; status, method and URL stay as they were.
func (s *unsubscribeStore) Upsert(ctx context.Context, c domain.UnsubscribeCandidate) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = domain.UnsubscribeSuggested
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.LastSeenAt.IsZero() {
		c.LastSeenAt = c.CreatedAt
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO unsubscribe_candidates (id, message_id, sender, method, url, status, last_seen_at, action_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			last_seen_at = MAX(last_seen_at, excluded.last_seen_at)
	`, c.ID, c.MessageID, c.Sender, string(c.Method), nullString(c.URL), string(c.Status),
		formatTime(c.LastSeenAt), formatNullableTime(c.ActionAt), formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving unsubscribe candidate: %w", err)
	}
	return nil
}

// List returns candidates with the given status (all when empty), most
// recently seen first.
func (s *unsubscribeStore) List(
	ctx context.Context,
	status domain.UnsubscribeStatus,
	limit int,
) ([]domain.UnsubscribeCandidate, error) {
	if limit <= 0 {
		limit = domain.DefaultUnsubscribeLimit
	}

	query := `SELECT id, message_id, sender, method, url, status, last_seen_at, action_at, created_at
		FROM unsubscribe_candidates`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY last_seen_at DESC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying unsubscribe candidates: %w", err)
	}
	defer rows.Close()

	candidates := []domain.UnsubscribeCandidate{}
	for rows.Next() {
		var (
			c                   domain.UnsubscribeCandidate
			method, st          string
			url, actionAt       sql.NullString
			lastSeen, createdAt string
		)
		if err := rows.Scan(&c.ID, &c.MessageID, &c.Sender, &method, &url, &st,
			&lastSeen, &actionAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning unsubscribe candidate: %w", err)
		}
		c.Method = domain.DetectionMethod(method)
		c.URL = url.String
		c.Status = domain.UnsubscribeStatus(st)
		c.LastSeenAt = parseTime(lastSeen)
		c.ActionAt = parseNullableTime(actionAt)
		c.CreatedAt = parseTime(createdAt)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unsubscribe candidates: %w", err)
	}
	return candidates, nil
}

// UpdateStatus records an operator action on a candidate.
func (s *unsubscribeStore) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.UnsubscribeStatus,
	at time.Time,
) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE unsubscribe_candidates SET status = ?, action_at = ? WHERE id = ?",
		string(status), formatNullableTime(at), id)
	if err != nil {
		return fmt.Errorf("updating unsubscribe status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
