package domain

import (
	"strings"
	"time"
)

// Intent is the operator's goal inferred from a free-text query.
type Intent string

// Intents.
const (
	IntentFindBooking   Intent = "find_booking"
	IntentFindFinancial Intent = "find_financial"
	IntentFindByDate    Intent = "find_by_date"
	IntentFindBySender  Intent = "find_by_sender"
	IntentGeneralSearch Intent = "general_search"
)

// IntentNames returns all intent values, for schema enums.
func IntentNames() []string {
	return []string{
		string(IntentFindBooking),
		string(IntentFindFinancial),
		string(IntentFindByDate),
		string(IntentFindBySender),
		string(IntentGeneralSearch),
	}
}

// IsValid returns true if the intent is recognised.
func (i Intent) IsValid() bool {
	switch i {
	case IntentFindBooking, IntentFindFinancial, IntentFindByDate, IntentFindBySender, IntentGeneralSearch:
		return true
	default:
		return false
	}
}

// DateRange is an inclusive range of receive dates. Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero returns true if neither bound is set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// SearchFilter is the structured form of a free-text operator query.
type SearchFilter struct {
	Terms         []string
	Category      Category
	Sender        string
	DateRange     DateRange
	HasAttachment *bool
	Intent        Intent

	// Fallback is true when keyword extraction produced the filter.
	Fallback bool
}

// DefaultSearchLimit bounds search results.
const DefaultSearchLimit = 50

// Matches reports whether r satisfies every filter that is set. Terms match
// case-insensitively against subject, sender, snippet and rationale; any
// single term is enough.
func (f SearchFilter) Matches(r *CategorizationRecord) bool {
	if f.Category != "" && r.EffectiveCategory() != f.Category {
		return false
	}
	if f.Sender != "" && !strings.Contains(strings.ToLower(r.Sender), strings.ToLower(f.Sender)) {
		return false
	}
	if !f.DateRange.Start.IsZero() && r.ReceivedAt.Before(f.DateRange.Start) {
		return false
	}
	if !f.DateRange.End.IsZero() && r.ReceivedAt.After(f.DateRange.End) {
		return false
	}
	if f.HasAttachment != nil && r.HasAttachment != *f.HasAttachment {
		return false
	}
	if len(f.Terms) == 0 {
		return true
	}
	haystack := strings.ToLower(r.Subject + "\n" + r.Sender + "\n" + r.Snippet + "\n" + r.Rationale)
	for _, term := range f.Terms {
		if strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
