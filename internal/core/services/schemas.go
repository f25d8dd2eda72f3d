package services

import (
	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// The schemas below are the wire contract with the inference service.
// Field names and enum values must stay stable: replies are decoded
// straight into the matching reply structs.

func object(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func stringEnum(values []string, description string) map[string]any {
	return map[string]any{"type": "string", "enum": values, "description": description}
}

func nullable(kind, description string) map[string]any {
	return map[string]any{"type": []string{kind, "null"}, "description": description}
}

func classificationSchema() driven.JSONSchema {
	return driven.JSONSchema{
		Name: "email_categorization",
		Schema: object(map[string]any{
			"category":   stringEnum(domain.CategoryNames(), "The email category"),
			"confidence": map[string]any{"type": "number", "description": "Confidence score from 0 to 100"},
			"reasoning":  map[string]any{"type": "string", "description": "Brief explanation of the categorization"},
		}, "category", "confidence", "reasoning"),
	}
}

type classificationReply struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func summarySchema() driven.JSONSchema {
	list := func(description string) map[string]any {
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": description}
	}
	return driven.JSONSchema{
		Name: "email_summary",
		Schema: object(map[string]any{
			"shortSummary": map[string]any{"type": "string", "description": "1-2 sentence summary"},
			"keyPoints":    list("3-5 key points"),
			"actionItems":  list("Action items, empty if none"),
			"sentiment":    stringEnum(domain.SentimentNames(), "Overall sentiment"),
			"wordCount":    map[string]any{"type": "number", "description": "Approximate word count"},
		}, "shortSummary", "keyPoints", "actionItems", "sentiment", "wordCount"),
	}
}

type summaryReply struct {
	ShortSummary string   `json:"shortSummary"`
	KeyPoints    []string `json:"keyPoints"`
	ActionItems  []string `json:"actionItems"`
	Sentiment    string   `json:"sentiment"`
	WordCount    float64  `json:"wordCount"`
}

func bookingSchema() driven.JSONSchema {
	return driven.JSONSchema{
		Name: "booking_extraction",
		Schema: object(map[string]any{
			"bookingId":  map[string]any{"type": "string", "description": "Platform reservation number"},
			"guestName":  map[string]any{"type": "string", "description": "Lead guest full name"},
			"checkIn":    map[string]any{"type": "string", "description": "Check-in date, YYYY-MM-DD"},
			"checkOut":   map[string]any{"type": "string", "description": "Check-out date, YYYY-MM-DD"},
			"channel":    stringEnum(domain.ChannelNames(), "Booking platform"),
			"status":     stringEnum(domain.BookingStatusNames(), "Reservation status"),
			"roomNumber": nullable("string", "Room or unit identifier"),
			"price":      nullable("number", "Total price"),
			"currency":   nullable("string", "ISO currency code"),
			"guestEmail": nullable("string", "Guest email address"),
			"guestPhone": nullable("string", "Guest phone number"),
			"guests":     nullable("integer", "Number of guests"),
			"notes":      nullable("string", "Special requests or remarks"),
		},
			"bookingId", "guestName", "checkIn", "checkOut", "channel", "status",
			"roomNumber", "price", "currency", "guestEmail", "guestPhone", "guests", "notes",
		),
	}
}

type bookingReply struct {
	BookingID  string   `json:"bookingId"`
	GuestName  string   `json:"guestName"`
	CheckIn    string   `json:"checkIn"`
	CheckOut   string   `json:"checkOut"`
	Channel    string   `json:"channel"`
	Status     string   `json:"status"`
	RoomNumber *string  `json:"roomNumber"`
	Price      *float64 `json:"price"`
	Currency   *string  `json:"currency"`
	GuestEmail *string  `json:"guestEmail"`
	GuestPhone *string  `json:"guestPhone"`
	Guests     *float64 `json:"guests"`
	Notes      *string  `json:"notes"`
}

func searchFilterSchema() driven.JSONSchema {
	return driven.JSONSchema{
		Name: "search_filter",
		Schema: object(map[string]any{
			"searchTerms": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"filters": object(map[string]any{
				"category": nullable("string", "One of the categories"),
				"sender":   nullable("string", "Sender name or address"),
				"dateRange": map[string]any{
					"type": []string{"object", "null"},
					"properties": map[string]any{
						"start": nullable("string", "YYYY-MM-DD"),
						"end":   nullable("string", "YYYY-MM-DD"),
					},
					"required":             []string{"start", "end"},
					"additionalProperties": false,
				},
				"hasAttachment": nullable("boolean", "Whether the email has an attachment"),
			}, "category", "sender", "dateRange", "hasAttachment"),
			"intent": stringEnum(domain.IntentNames(), "What the user is trying to find"),
		}, "searchTerms", "filters", "intent"),
	}
}

type searchFilterReply struct {
	SearchTerms []string `json:"searchTerms"`
	Filters     struct {
		Category  *string `json:"category"`
		Sender    *string `json:"sender"`
		DateRange *struct {
			Start *string `json:"start"`
			End   *string `json:"end"`
		} `json:"dateRange"`
		HasAttachment *bool `json:"hasAttachment"`
	} `json:"filters"`
	Intent string `json:"intent"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
