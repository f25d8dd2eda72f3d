package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// categorizationStore implements driven.CategorizationStore.
type categorizationStore struct {
	store *Store
}

var _ driven.CategorizationStore = (*categorizationStore)(nil)

const categorizationColumns = `message_id, thread_id, subject, sender, received_at, snippet, has_attachment,
	category, confidence, rationale, manual_category, overridden, attributed_to, created_at, updated_at`

// effectiveCategory is the SQL form of CategorizationRecord.EffectiveCategory.
const effectiveCategory = `CASE WHEN overridden = 1 AND manual_category IS NOT NULL
	THEN manual_category ELSE category END`

// Create inserts a record. The primary key makes a second insert for the
// same message fail with domain.ErrDuplicate without touching the first.
func (s *categorizationStore) Create(ctx context.Context, r domain.CategorizationRecord) error {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO categorizations (`+categorizationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, r.MessageID, nullString(r.ThreadID), r.Subject, r.Sender, formatTime(r.ReceivedAt),
		r.Snippet, boolToInt(r.HasAttachment), string(r.Category), r.Confidence, r.Rationale,
		nullString(string(r.ManualCategory)), boolToInt(r.Overridden), string(r.AttributedTo),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving categorization: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

// Get retrieves the record for a message.
func (s *categorizationStore) Get(ctx context.Context, messageID string) (*domain.CategorizationRecord, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+categorizationColumns+` FROM categorizations WHERE message_id = ?`, messageID)
	r, err := scanCategorization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return r, err
}

// Exists reports whether a record exists for the message.
func (s *categorizationStore) Exists(ctx context.Context, messageID string) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT 1 FROM categorizations WHERE message_id = ?", messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking categorization: %w", err)
	}
	return true, nil
}

// List returns records newest first, optionally by effective category.
func (s *categorizationStore) List(ctx context.Context, opts domain.ListOptions) ([]domain.CategorizationRecord, error) {
	opts = opts.Normalise()

	query := `SELECT ` + categorizationColumns + ` FROM categorizations`
	var args []any
	if opts.Category != "" {
		query += ` WHERE ` + effectiveCategory + ` = ?`
		args = append(args, string(opts.Category))
	}
	query += ` ORDER BY received_at DESC, message_id ASC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	return s.query(ctx, query, args...)
}

// Search translates the filter into SQL. Terms are OR-ed LIKE clauses over
// subject, sender, snippet and rationale.
func (s *categorizationStore) Search(
	ctx context.Context,
	filter domain.SearchFilter,
	limit int,
) ([]domain.CategorizationRecord, error) {
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, effectiveCategory+` = ?`)
		args = append(args, string(filter.Category))
	}
	if filter.Sender != "" {
		where = append(where, `LOWER(sender) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(filter.Sender))
	}
	if !filter.DateRange.Start.IsZero() {
		where = append(where, `received_at >= ?`)
		args = append(args, formatTime(filter.DateRange.Start))
	}
	if !filter.DateRange.End.IsZero() {
		where = append(where, `received_at <= ?`)
		args = append(args, formatTime(filter.DateRange.End))
	}
	if filter.HasAttachment != nil {
		where = append(where, `has_attachment = ?`)
		args = append(args, boolToInt(*filter.HasAttachment))
	}
	if len(filter.Terms) > 0 {
		var terms []string
		for _, term := range filter.Terms {
			terms = append(terms, `LOWER(subject || ' ' || sender || ' ' || snippet || ' ' || rationale) LIKE ? ESCAPE '\'`)
			args = append(args, likePattern(term))
		}
		where = append(where, "("+strings.Join(terms, " OR ")+")")
	}

	query := `SELECT ` + categorizationColumns + ` FROM categorizations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY received_at DESC, message_id ASC LIMIT ?`
	args = append(args, limit)

	return s.query(ctx, query, args...)
}

// Stats aggregates counts and average confidence per effective category.
func (s *categorizationStore) Stats(ctx context.Context) (*domain.CategoryStats, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+effectiveCategory+` AS effective, COUNT(*), AVG(confidence)
		FROM categorizations
		GROUP BY effective
	`)
	if err != nil {
		return nil, fmt.Errorf("querying category stats: %w", err)
	}
	defer rows.Close()

	byCategory := make(map[domain.Category]domain.CategoryStat)
	for rows.Next() {
		var stat domain.CategoryStat
		var category string
		if err := rows.Scan(&category, &stat.Count, &stat.AverageConfidence); err != nil {
			return nil, fmt.Errorf("scanning category stats: %w", err)
		}
		stat.Category = domain.Category(category)
		byCategory[stat.Category] = stat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category stats: %w", err)
	}

	stats := &domain.CategoryStats{Categories: []domain.CategoryStat{}}
	for _, c := range domain.AllCategories() {
		if stat, ok := byCategory[c]; ok {
			stats.Categories = append(stats.Categories, stat)
			stats.Total += stat.Count
		}
	}
	return stats, nil
}

// Override sets the manual category and user attribution.
func (s *categorizationStore) Override(ctx context.Context, messageID string, category domain.Category) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE categorizations
		SET manual_category = ?, overridden = 1, attributed_to = ?, updated_at = ?
		WHERE message_id = ?
	`, string(category), string(domain.AttributionUser), formatTime(time.Now()), messageID)
	if err != nil {
		return fmt.Errorf("overriding category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *categorizationStore) query(ctx context.Context, query string, args ...any) ([]domain.CategorizationRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying categorizations: %w", err)
	}
	defer rows.Close()

	records := []domain.CategorizationRecord{}
	for rows.Next() {
		r, err := scanCategorization(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categorizations: %w", err)
	}
	return records, nil
}

func scanCategorization(row rowScanner) (*domain.CategorizationRecord, error) {
	var (
		r                                domain.CategorizationRecord
		threadID, manual                 sql.NullString
		receivedAt, createdAt, updatedAt string
		category, attributedTo           string
		hasAttachment, overridden        int
	)
	err := row.Scan(&r.MessageID, &threadID, &r.Subject, &r.Sender, &receivedAt, &r.Snippet, &hasAttachment,
		&category, &r.Confidence, &r.Rationale, &manual, &overridden, &attributedTo, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning categorization: %w", err)
	}

	r.ThreadID = threadID.String
	r.ReceivedAt = parseTime(receivedAt)
	r.HasAttachment = hasAttachment == 1
	r.Category = domain.Category(category)
	r.ManualCategory = domain.Category(manual.String)
	r.Overridden = overridden == 1
	r.AttributedTo = domain.Attribution(attributedTo)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// likePattern lowercases s and escapes LIKE wildcards.
func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
