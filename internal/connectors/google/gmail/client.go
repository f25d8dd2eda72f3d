// Package gmail implements the mailbox client over the Gmail REST API.
package gmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/guestmail/internal/connectors/google"
	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.MailboxClient = (*Client)(nil)

// LabelUnread marks unread messages.
const LabelUnread = "UNREAD"

// Client is a driven.MailboxClient. Every call waits on the rate limiter
// and runs inside the circuit breaker. It never retries.
type Client struct {
	svc     *gmail.Service
	cfg     Config
	limiter *google.RateLimiter
	cb      *gobreaker.CircuitBreaker
}

// NewClient wraps an authenticated Gmail service.
func NewClient(svc *gmail.Service, cfg Config) *Client {
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	return &Client{
		svc:     svc,
		cfg:     cfg,
		limiter: google.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		cb:      google.NewBreaker("gmail-api"),
	}
}

// Search returns one page of message IDs matching query.
func (c *Client) Search(ctx context.Context, query string, maxResults int, pageToken string) (*domain.MessagePage, error) {
	if maxResults <= 0 || maxResults > maxPageSize {
		maxResults = maxPageSize
	}

	var resp *gmail.ListMessagesResponse
	err := c.call(ctx, "search", func(ctx context.Context) error {
		call := c.svc.Users.Messages.List(c.cfg.User).
			Q(query).
			MaxResults(int64(maxResults)).
			Fields("messages(id)", "nextPageToken").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		var err error
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &domain.MessagePage{IDs: make([]string, 0, len(resp.Messages)), NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		if m != nil && m.Id != "" {
			page.IDs = append(page.IDs, m.Id)
		}
	}
	return page, nil
}

// Get fetches a full message and decodes its body.
func (c *Client) Get(ctx context.Context, messageID string) (*domain.MailboxMessage, error) {
	var msg *gmail.Message
	err := c.call(ctx, "get", func(ctx context.Context) error {
		var err error
		msg, err = c.svc.Users.Messages.Get(c.cfg.User, messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToMailboxMessage(msg), nil
}

// MarkRead removes the UNREAD label.
func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	return c.call(ctx, "mark read", func(ctx context.Context) error {
		_, err := c.svc.Users.Messages.Modify(c.cfg.User, messageID, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{LabelUnread},
		}).Context(ctx).Do()
		return err
	})
}

// Profile returns the address of the authorised mailbox.
func (c *Client) Profile(ctx context.Context) (string, error) {
	var email string
	err := c.call(ctx, "profile", func(ctx context.Context) error {
		p, err := c.svc.Users.GetProfile(c.cfg.User).Context(ctx).Do()
		if err != nil {
			return err
		}
		email = p.EmailAddress
		return nil
	})
	return email, err
}

// call applies the per-call timeout, the limiter and the breaker, and maps
// the failure onto the domain taxonomy.
func (c *Client) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("gmail %s: %w", op, err)
	}

	err := google.Execute(c.cb, func() error {
		return google.WrapError(fn(ctx))
	})
	if errors.Is(err, domain.ErrRateLimited) {
		c.limiter.RecordRateLimitError(google.RetryAfter(err))
	}
	if err != nil {
		return fmt.Errorf("gmail %s: %w", op, err)
	}
	return nil
}
