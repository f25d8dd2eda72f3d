package domain

import (
	"strings"
	"time"
)

// MailboxMessage is a message fetched from the mailbox provider for one run.
// It is never persisted as-is.
type MailboxMessage struct {
	// ID is the provider's message identifier.
	ID string

	// ThreadID is the provider's conversation identifier.
	ThreadID string

	Subject string
	From    string
	To      string

	// Body is the plain-text body. HTML-only messages are converted to text.
	Body string

	// ReceivedAt is when the provider received the message.
	ReceivedAt time.Time

	// Labels are the provider label identifiers.
	Labels []string

	// Unread is true while the message carries the UNREAD label.
	Unread bool

	// HasAttachment is true if any part carries a filename.
	HasAttachment bool

	// ListUnsubscribe is the raw List-Unsubscribe header, if any.
	ListUnsubscribe string

	// ListUnsubscribePost is the raw List-Unsubscribe-Post header, if any.
	ListUnsubscribePost string

	// UnsubscribeLinks are anchor hrefs from the HTML body that mention unsubscribing.
	UnsubscribeLinks []string
}

// WordCount returns the number of whitespace-separated words in the body.
func (m *MailboxMessage) WordCount() int {
	return WordCount(m.Body)
}

// BodyPrefix returns at most n characters of the body, cut on a rune boundary.
func (m *MailboxMessage) BodyPrefix(n int) string {
	return Truncate(m.Body, n)
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// MessagePage is one page of message identifiers returned by a mailbox search.
type MessagePage struct {
	// IDs are message identifiers in provider order.
	IDs []string

	// NextPageToken is empty when no further pages exist.
	NextPageToken string
}
