package driven

import (
	"context"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// MailboxClient is the mailbox provider as seen by the sync coordinator.
// Implementations perform no retries; transient failures are returned to
// the caller wrapped with domain.ErrTransient or domain.ErrRateLimited.
type MailboxClient interface {
	// Search returns one page of message IDs matching the provider query.
	Search(ctx context.Context, query string, maxResults int, pageToken string) (*domain.MessagePage, error)

	// Get fetches a full message with headers and decoded body.
	Get(ctx context.Context, messageID string) (*domain.MailboxMessage, error)

	// MarkRead removes the unread flag from a message.
	MarkRead(ctx context.Context, messageID string) error
}
