package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptSystem is the system prompt for every structured request. No placeholders.
	PromptSystem = "system"

	// PromptClassify expects %s placeholders for sender, subject, date and body.
	PromptClassify = "classify"

	// PromptSummarise expects %s placeholders for sender, subject and body.
	PromptSummarise = "summarise"

	// PromptExtractBooking expects %s placeholders for sender, subject and body.
	PromptExtractBooking = "extract_booking"

	// PromptParseQuery expects %s placeholders for today's date and the query.
	PromptParseQuery = "parse_query"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	// If not set, the service should use hardcoded default prompts.
	SetPromptStore(store PromptStore)
}

// DefaultPrompts holds the built-in templates. File-backed stores seed
// their directory from it and services fall back to it.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var DefaultPrompts = map[string]string{
	PromptSystem: `You are an expert email categorization AI. Always respond with valid JSON only.`,

	PromptClassify: `You are an email categorization AI for a serviced-apartment hotel.

Analyze the following email and categorize it into ONE of these categories:

1. bookings - Booking confirmations, modifications, cancellations, guest inquiries about reservations
2. finance - Invoices, payment confirmations, financial reports, accounting documents, tax documents
3. marketing - Newsletters, promotional emails, marketing campaigns, advertisements
4. spam - Unwanted emails, phishing attempts, obvious spam
5. important - Urgent matters, legal notices, critical business communications
6. general - General correspondence that doesn't fit other categories

From: %[1]s
Subject: %[2]s
Date: %[3]s

Body (first characters):
%[4]s

Choose the MOST APPROPRIATE category, give a confidence score from 0 to 100 and explain your reasoning in 1-2 sentences.

Notes:
- Booking.com, Airbnb, Expedia, Agoda emails are "bookings"
- OTELMS daily reports are "finance"
- Newsletters and promotions are "marketing"
- Suspicious or unwanted mail is "spam"
- Urgent legal or critical mail is "important"
- Everything else is "general"`,

	PromptSummarise: `You are an email summarization AI for a serviced-apartment hotel.

From: %[1]s
Subject: %[2]s

Email body:
%[3]s

1. Write a SHORT SUMMARY (1-2 sentences) capturing the main point.
2. Extract 3-5 KEY POINTS of important information.
3. List ACTION ITEMS, specific tasks or deadlines mentioned (empty if none).
4. Determine SENTIMENT: positive, neutral, negative or urgent.
5. Count the approximate number of words.`,

	PromptExtractBooking: `Extract the reservation from this booking platform email.

From: %[1]s
Subject: %[2]s

Body:
%[3]s

Rules:
- Dates use the YYYY-MM-DD format.
- bookingId is the platform's reservation or confirmation number.
- channel is the platform the booking came through; use "direct" for guest mail and "other" for unknown platforms.
- status is "cancelled" for cancellations, "pending" for requests awaiting approval, otherwise "confirmed".
- Use null for optional values that are not present. Never invent values.`,

	PromptParseQuery: `You are a natural language search parser for an email management system.

Today is %[1]s.

User query: "%[2]s"

Extract SEARCH TERMS, FILTERS (category, sender, date range, attachments) and the INTENT.

Categories: bookings (reservations, check-ins, Booking.com, Airbnb), finance (invoices, payments, OTELMS reports), marketing (newsletters, promotions), spam, important (urgent matters), general.

Intents:
- find_booking: looking for reservation or booking emails
- find_financial: looking for financial reports or invoices
- find_by_date: searching by a specific date or period
- find_by_sender: searching for emails from a specific sender
- general_search: anything else

Dates use the YYYY-MM-DD format. Use null for filters that do not apply.`,
}
