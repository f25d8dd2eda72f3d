package domain

import (
	"fmt"
	"strings"
	"time"
)

// Sentiment is the overall tone of a summarised message.
type Sentiment string

// Sentiment values.
const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUrgent   Sentiment = "urgent"
)

// SentimentNames returns all sentiment values, for schema enums.
func SentimentNames() []string {
	return []string{
		string(SentimentPositive),
		string(SentimentNeutral),
		string(SentimentNegative),
		string(SentimentUrgent),
	}
}

// IsValid returns true if the sentiment is recognised.
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentUrgent:
		return true
	default:
		return false
	}
}

// ParseSentiment converts a string to a Sentiment.
func ParseSentiment(s string) (Sentiment, error) {
	v := Sentiment(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", fmt.Errorf("%w: unknown sentiment %q", ErrInvalidInput, s)
	}
	return v, nil
}

// Summary is the abstractive summary of one message.
type Summary struct {
	ShortSummary string
	KeyPoints    []string
	ActionItems  []string
	Sentiment    Sentiment
	WordCount    int

	// Trivial is true when the summary was produced without inference.
	Trivial bool
}

// TrivialSummary is the shape returned for short messages and failed inference.
func TrivialSummary(subject string, wordCount int) Summary {
	short := strings.TrimSpace(subject)
	if short == "" {
		short = "Short email"
	}
	return Summary{
		ShortSummary: short,
		KeyPoints:    []string{},
		ActionItems:  []string{},
		Sentiment:    SentimentNeutral,
		WordCount:    wordCount,
		Trivial:      true,
	}
}

// SummaryRecord is the persisted summary for a categorised message.
type SummaryRecord struct {
	MessageID string
	Summary
	CreatedAt time.Time
	UpdatedAt time.Time
}
