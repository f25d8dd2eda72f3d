package domain

import "time"

// Confidence bounds for classifications.
const (
	MinConfidence = 0
	MaxConfidence = 100
)

// Classification is the outcome of classifying one message.
type Classification struct {
	Category   Category
	Confidence int
	Rationale  string

	// Fallback is true when the keyword rules produced the result.
	Fallback bool
}

// ClampConfidence bounds a model-reported confidence to [0,100].
func ClampConfidence(v float64) int {
	switch {
	case v != v: // NaN
		return MinConfidence
	case v < MinConfidence:
		return MinConfidence
	case v > MaxConfidence:
		return MaxConfidence
	default:
		return int(v + 0.5)
	}
}

// CategorizationRecord is the persisted classification of one message.
// At most one record exists per MessageID. Only the override fields change after creation.
type CategorizationRecord struct {
	MessageID  string
	ThreadID   string
	Subject    string
	Sender     string
	ReceivedAt time.Time
	// Snippet is a body prefix kept for search.
	Snippet       string
	HasAttachment bool

	Category   Category
	Confidence int
	Rationale  string

	// ManualCategory is set by an operator override.
	ManualCategory Category

	// Overridden is true once an operator has overridden the category.
	Overridden bool

	AttributedTo Attribution
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EffectiveCategory returns the override if present, otherwise the system category.
func (r *CategorizationRecord) EffectiveCategory() Category {
	if r.Overridden && r.ManualCategory.IsValid() {
		return r.ManualCategory
	}
	return r.Category
}

// SnippetChars bounds the stored body prefix.
const SnippetChars = 280

// NewCategorizationRecord builds a system-attributed record for a message.
func NewCategorizationRecord(msg *MailboxMessage, c Classification) CategorizationRecord {
	now := time.Now().UTC()
	return CategorizationRecord{
		MessageID:     msg.ID,
		ThreadID:      msg.ThreadID,
		Subject:       msg.Subject,
		Sender:        msg.From,
		ReceivedAt:    msg.ReceivedAt,
		Snippet:       msg.BodyPrefix(SnippetChars),
		HasAttachment: msg.HasAttachment,
		Category:      c.Category,
		Confidence:    c.Confidence,
		Rationale:     c.Rationale,
		AttributedTo:  AttributionSystem,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CategoryStat aggregates records for one category.
type CategoryStat struct {
	Category          Category
	Count             int
	AverageConfidence float64
}

// CategoryStats is the per-category breakdown plus the total record count.
type CategoryStats struct {
	Categories []CategoryStat
	Total      int
}

// ListOptions controls pagination of categorised messages.
type ListOptions struct {
	// Category filters by effective category when set.
	Category Category
	Limit    int
	Offset   int
}

// Pagination limits for listing categorised messages.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// Normalise clamps the limit to [1,100] and the offset to >= 0.
func (o ListOptions) Normalise() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
