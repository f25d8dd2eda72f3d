package services

import (
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/logger"
	"github.com/custodia-labs/guestmail/internal/metrics"
)

// QueryParser turns free text into a structured search filter.
type QueryParser struct {
	inference *Inference
	now       func() time.Time
}

// NewQueryParser creates a query parser.
func NewQueryParser(inference *Inference) *QueryParser {
	return &QueryParser{inference: inference, now: time.Now}
}

// Parse returns the filter for query. Inference failures fall back to
// FallbackFilter; only cancellation of ctx is returned as an error.
func (p *QueryParser) Parse(ctx context.Context, query string) (domain.SearchFilter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SearchFilter{}, domain.ErrInvalidInput
	}
	if !p.inference.Available() {
		return FallbackFilter(query), nil
	}

	var reply searchFilterReply
	err := p.inference.JSON(ctx, opParseQuery, driven.PromptParseQuery, searchFilterSchema(), &reply,
		p.now().Format(domain.DateLayout), query)
	if err == nil {
		return reply.toFilter(), nil
	}
	if ctx.Err() != nil {
		return domain.SearchFilter{}, ctx.Err()
	}

	logger.Warn("parse query: %v (using keyword split)", err)
	metrics.RecordFallback(opParseQuery)
	return FallbackFilter(query), nil
}

// FallbackFilter splits query on whitespace and keeps words longer than
// three characters as search terms.
func FallbackFilter(query string) domain.SearchFilter {
	terms := []string{}
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(word)) > 3 {
			terms = append(terms, word)
		}
	}
	return domain.SearchFilter{
		Terms:    terms,
		Intent:   domain.IntentGeneralSearch,
		Fallback: true,
	}
}

// toFilter keeps only values that parse. An unknown category or malformed
// date drops that filter rather than the whole reply.
func (r searchFilterReply) toFilter() domain.SearchFilter {
	filter := domain.SearchFilter{
		Terms:         nonEmpty(r.SearchTerms),
		Sender:        strings.TrimSpace(deref(r.Filters.Sender)),
		HasAttachment: r.Filters.HasAttachment,
		Intent:        domain.Intent(r.Intent),
	}
	if !filter.Intent.IsValid() {
		filter.Intent = domain.IntentGeneralSearch
	}
	if c, err := domain.ParseCategory(deref(r.Filters.Category)); err == nil {
		filter.Category = c
	}
	if dr := r.Filters.DateRange; dr != nil {
		if t, err := time.Parse(domain.DateLayout, deref(dr.Start)); err == nil {
			filter.DateRange.Start = t
		}
		if t, err := time.Parse(domain.DateLayout, deref(dr.End)); err == nil {
			// Inclusive of the whole end day.
			filter.DateRange.End = t.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return filter
}
