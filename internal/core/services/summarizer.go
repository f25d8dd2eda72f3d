package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/logger"
	"github.com/custodia-labs/guestmail/internal/metrics"
)

// DefaultSummaryMinWords is the word count a body must exceed before
// inference is spent on it.
const DefaultSummaryMinWords = 50

// maxSummaryBodyChars bounds the body sent for summarisation.
const maxSummaryBodyChars = 8000

// Summarizer produces structured summaries of message bodies.
type Summarizer struct {
	inference *Inference
	minWords  int
}

// NewSummarizer creates a summarizer. minWords <= 0 uses DefaultSummaryMinWords.
func NewSummarizer(inference *Inference, minWords int) *Summarizer {
	if minWords <= 0 {
		minWords = DefaultSummaryMinWords
	}
	return &Summarizer{inference: inference, minWords: minWords}
}

// NeedsSummary reports whether msg is long enough to summarise.
func (s *Summarizer) NeedsSummary(msg *domain.MailboxMessage) bool {
	return msg.WordCount() > s.minWords
}

// Summarize returns a summary of msg. Short bodies and inference failures
// yield the trivial shape; only cancellation of ctx is returned as an error.
func (s *Summarizer) Summarize(ctx context.Context, msg *domain.MailboxMessage) (domain.Summary, error) {
	words := msg.WordCount()
	if words <= s.minWords || !s.inference.Available() {
		return domain.TrivialSummary(msg.Subject, words), nil
	}

	var reply summaryReply
	err := s.inference.JSON(ctx, opSummarise, driven.PromptSummarise, summarySchema(), &reply,
		msg.From, msg.Subject, domain.Truncate(msg.Body, maxSummaryBodyChars))
	if err == nil {
		summary, verr := reply.toSummary(words)
		if verr == nil {
			return summary, nil
		}
		err = verr
	}
	if ctx.Err() != nil {
		return domain.Summary{}, ctx.Err()
	}

	logger.Warn("summarise %s: %v (using trivial summary)", msg.ID, err)
	metrics.RecordFallback(opSummarise)
	return domain.TrivialSummary(msg.Subject, words), nil
}

func (r summaryReply) toSummary(words int) (domain.Summary, error) {
	sentiment, err := domain.ParseSentiment(r.Sentiment)
	if err != nil {
		return domain.Summary{}, err
	}
	short := strings.TrimSpace(r.ShortSummary)
	if short == "" {
		return domain.Summary{}, domain.ErrContractViolation
	}
	return domain.Summary{
		ShortSummary: short,
		KeyPoints:    nonEmpty(r.KeyPoints),
		ActionItems:  nonEmpty(r.ActionItems),
		Sentiment:    sentiment,
		// The model's estimate is discarded in favour of the exact count.
		WordCount: words,
	}, nil
}

// nonEmpty trims entries and drops blanks, never returning nil.
func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
