package domain

import (
	"fmt"
	"strings"
)

// Category is the operational label assigned to an inbound message.
// The set is closed; use ParseCategory to convert untrusted input.
type Category string

// Available categories.
const (
	CategoryBookings  Category = "bookings"
	CategoryFinance   Category = "finance"
	CategoryMarketing Category = "marketing"
	CategorySpam      Category = "spam"
	CategoryImportant Category = "important"
	CategoryGeneral   Category = "general"
)

// AllCategories returns every category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryBookings,
		CategoryFinance,
		CategoryMarketing,
		CategorySpam,
		CategoryImportant,
		CategoryGeneral,
	}
}

// CategoryNames returns the category values as strings, for schema enums.
func CategoryNames() []string {
	cats := AllCategories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return names
}

// IsValid returns true if the category is part of the taxonomy.
func (c Category) IsValid() bool {
	switch c {
	case CategoryBookings, CategoryFinance, CategoryMarketing,
		CategorySpam, CategoryImportant, CategoryGeneral:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c Category) String() string {
	return string(c)
}

// Description returns a short human-readable description.
func (c Category) Description() string {
	switch c {
	case CategoryBookings:
		return "Reservations, confirmations, cancellations and guest stays"
	case CategoryFinance:
		return "Invoices, payments, receipts and revenue reports"
	case CategoryMarketing:
		return "Newsletters, promotions and offers"
	case CategorySpam:
		return "Unsolicited, phishing or prize mail"
	case CategoryImportant:
		return "Time-sensitive operational mail that needs attention"
	case CategoryGeneral:
		return "Everything else"
	default:
		return unknownDescription
	}
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
	}
	return c, nil
}

// Attribution records who set a categorisation.
type Attribution string

// Attribution values.
const (
	AttributionSystem Attribution = "system"
	AttributionUser   Attribution = "user"
)

const unknownDescription = "Unknown"
